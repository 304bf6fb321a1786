package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/Courier/internal/forwarder"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courier.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// --- Load Tests ---

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Host.APIAddr != ":8080" {
		t.Errorf("expected default api addr, got %q", cfg.Host.APIAddr)
	}
	if len(cfg.Stores) != 1 || cfg.Stores[0].Type != StoreTypeMemory {
		t.Errorf("expected a single default memory store, got %+v", cfg.Stores)
	}
	if len(cfg.Processors) != 0 {
		t.Errorf("expected no processors, got %d", len(cfg.Processors))
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Stores) != 1 || cfg.Stores[0].Name != "default" {
		t.Errorf("expected default store, got %+v", cfg.Stores)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
host:
  api_addr: ":9090"
  shutdown_timeout: 5s

stores:
  - name: orders-store
    type: rabbitmq
    queue: orders.pending
  - name: dead-orders
    type: memory

endpoints:
  - name: orders
    url: http://orders.internal/api
    timeout: 10s
    breaker_threshold: 5

sequences:
  - name: dead-letter
    type: store
    store: dead-orders
  - name: audit
    type: log
    level: warn

processors:
  - name: orders-forwarder
    store: orders-store
    active: false
    parameters:
      target.endpoint: orders
      max.delivery.attempts: "5"
      retry.interval: "2000"
      fault.sequence: dead-letter
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Host.APIAddr != ":9090" || cfg.Host.ShutdownTimeout != 5*time.Second {
		t.Errorf("unexpected host config: %+v", cfg.Host)
	}

	if len(cfg.Stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(cfg.Stores))
	}
	if cfg.Stores[0].Queue != "orders.pending" {
		t.Errorf("explicit queue name lost: %q", cfg.Stores[0].Queue)
	}
	// Производные дефолты
	if cfg.Stores[1].Queue != "dead-orders" || cfg.Stores[1].Group != "courier" {
		t.Errorf("store defaults not applied: %+v", cfg.Stores[1])
	}

	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].BreakerThreshold != 5 ||
		cfg.Endpoints[0].Timeout != 10*time.Second {
		t.Errorf("unexpected endpoints: %+v", cfg.Endpoints)
	}

	if len(cfg.Sequences) != 2 || cfg.Sequences[1].Level != "warn" {
		t.Errorf("unexpected sequences: %+v", cfg.Sequences)
	}

	if len(cfg.Processors) != 1 {
		t.Fatalf("expected 1 processor, got %d", len(cfg.Processors))
	}
	proc := cfg.Processors[0]
	if proc.IsActive() {
		t.Error("processor should start inactive")
	}

	params, err := proc.ForwarderParams()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.TargetEndpoint != "orders" || params.MaxDeliverAttempts != 5 ||
		params.RetryInterval != 2*time.Second || params.FaultSequence != "dead-letter" {
		t.Errorf("unexpected params: %+v", params)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "stores: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestProcessorConfig_IsActiveDefault(t *testing.T) {
	p := ProcessorConfig{Name: "p", Store: "s"}
	if !p.IsActive() {
		t.Error("missing active field should mean active")
	}

	inactive := false
	p.Active = &inactive
	if p.IsActive() {
		t.Error("explicit active: false should mean inactive")
	}
}

// --- Validate Tests ---

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "duplicate store",
			body: `
stores:
  - {name: a, type: memory}
  - {name: a, type: memory}
`,
		},
		{
			name: "unknown store type",
			body: `
stores:
  - {name: a, type: kafka}
`,
		},
		{
			name: "endpoint without url",
			body: `
endpoints:
  - {name: orders}
`,
		},
		{
			name: "sequence with unknown type",
			body: `
sequences:
  - {name: s, type: teleport}
`,
		},
		{
			name: "store sequence references unknown store",
			body: `
sequences:
  - {name: s, type: store, store: ghost}
`,
		},
		{
			name: "processor references unknown store",
			body: `
processors:
  - {name: p, store: ghost}
`,
		},
		{
			name: "duplicate processor",
			body: `
stores:
  - {name: a, type: memory}
processors:
  - {name: p, store: a}
  - {name: p, store: a}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_BadProcessorParams(t *testing.T) {
	path := writeConfig(t, `
stores:
  - {name: a, type: memory}
processors:
  - name: p
    store: a
    parameters:
      max.delivery.attempts: "many"
`)
	_, err := Load(path)
	if !errors.Is(err, forwarder.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}
