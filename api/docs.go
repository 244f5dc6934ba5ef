// Package api carries the HTTP contract served at /openapi.json
package api

import _ "embed"

//go:embed openapi.json
var OpenAPI []byte
