package offline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAgentConfig(t *testing.T) {
	path := writeConfig(t, `
device_id: bus-12-tablet
employee_id: 31
server:
  base_url: https://seatline.example.com/api/v1
  timeout: 15s
sync:
  interval: 2m
`)
	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.DeviceID != "bus-12-tablet" || cfg.EmployeeID != 31 {
		t.Fatalf("identity = %+v", cfg)
	}
	if cfg.Server.Timeout != 15*time.Second || cfg.Sync.Interval != 2*time.Minute {
		t.Fatalf("durations = %v %v", cfg.Server.Timeout, cfg.Sync.Interval)
	}
	if cfg.Sync.BatchSize != 100 || cfg.Store.Path != "seatline-agent.db" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadAgentConfigTokenFromEnv(t *testing.T) {
	t.Setenv("SEATLINE_TOKEN", "from-env")
	path := writeConfig(t, "device_id: d\nserver:\n  base_url: http://localhost:8080/api/v1\n  token: from-file\n")
	cfg, err := LoadAgentConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.Server.Token != "from-env" {
		t.Fatalf("token = %q", cfg.Server.Token)
	}
}

func TestLoadAgentConfigRejects(t *testing.T) {
	tests := map[string]string{
		"missing device": "server:\n  base_url: http://localhost/api/v1\n",
		"bad url":        "device_id: d\nserver:\n  base_url: not a url\n",
		"huge batch":     "device_id: d\nsync:\n  batch_size: 10000\n",
		"bad yaml":       "device_id: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadAgentConfig(writeConfig(t, body)); err == nil {
				t.Fatal("config accepted")
			}
		})
	}
	if _, err := LoadAgentConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
