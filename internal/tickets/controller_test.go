package tickets_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seatline/internal/shared/middleware"
	"seatline/internal/shared/utils/response"
	"seatline/internal/tickets"

	"github.com/gin-gonic/gin"
)

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	actor := func(c *gin.Context) {
		c.Set(middleware.ContextActorID, int64(5))
		c.Next()
	}
	tickets.SetupTicketRoutes(r.Group("/api/v1"), tickets.NewController(f.svc), actor)
	return r
}

func post(t *testing.T, r http.Handler, path, body string, headers map[string]string) (int, response.StandardApiResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env response.StandardApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return w.Code, env
}

func TestBatchEndpoint(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)

	code, env := post(t, r, "/api/v1/tickets/batch", `{"device_id":"tab-1","tickets":[]}`, nil)
	if code != http.StatusBadRequest || env.Error != "empty_batch" {
		t.Fatalf("empty batch: %d %+v", code, env)
	}

	body := `{"device_id":"tab-1","tickets":[{"local_id":1,"trip_id":7,"final_price":3},{"local_id":2}]}`
	code, env = post(t, r, "/api/v1/tickets/batch", body, nil)
	if code != http.StatusOK || !env.OK {
		t.Fatalf("batch: %d %+v", code, env)
	}
	data, _ := json.Marshal(env.Data)
	var resp tickets.BatchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Succeeded != 1 || resp.Failed != 1 || resp.Results[1].Code != "invalid_trip_id" {
		t.Fatalf("resp = %+v", resp)
	}
	if p := f.store.Payments[0]; *p.CollectedBy != 5 {
		t.Fatalf("collected_by = %v", p.CollectedBy)
	}
}

func TestCreateTicketEndpoint(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)
	headers := map[string]string{"X-Device-ID": "tab-3"}
	body := `{"local_id":"L1","trip_id":7,"seat_id":1,"from_station_id":11,"to_station_id":12,"final_price":4}`

	code, env := post(t, r, "/api/v1/tickets", body, headers)
	if code != http.StatusCreated || env.Message != "Ticket created" {
		t.Fatalf("create: %d %+v", code, env)
	}
	code, env = post(t, r, "/api/v1/tickets", body, headers)
	if code != http.StatusOK || env.Message != "Ticket already recorded" {
		t.Fatalf("replay: %d %+v", code, env)
	}

	code, env = post(t, r, "/api/v1/tickets", `{"trip_id":7,"seat_id":1}`, nil)
	if code != http.StatusBadRequest || env.Error != "incomplete_segment" {
		t.Fatalf("incomplete: %d %+v", code, env)
	}
}
