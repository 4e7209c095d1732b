package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level     string
		wantDebug bool
		wantErr   bool
	}{
		{level: "debug", wantDebug: true},
		{level: " INFO "},
		{level: ""},
		{level: "warn"},
		{level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.level)
			if tt.wantErr {
				if err == nil || logger != nil {
					t.Fatalf("NewLogger(%q) = %v, %v; want nil logger and error", tt.level, logger, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger(%q) error = %v", tt.level, err)
			}
			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Fatalf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestCorrelationIDFromContext(t *testing.T) {
	t.Parallel()

	if _, ok := CorrelationIDFromContext(context.Background()); ok {
		t.Fatal("background context should carry no correlation id")
	}
	if _, ok := CorrelationIDFromContext(WithCorrelationID(context.Background(), "")); ok {
		t.Fatal("empty correlation id should be treated as missing")
	}

	id, ok := CorrelationIDFromContext(WithCorrelationID(context.Background(), "corr-7"))
	if !ok || id != "corr-7" {
		t.Fatalf("CorrelationIDFromContext() = %q, %v", id, ok)
	}
}

func TestContextLoggers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	correlated := WithCorrelationID(context.Background(), "corr-9")

	WithContextLogger(base, context.Background()).Info("plain")
	WithContextLogger(base, correlated).Info("correlated")
	BatchLogger(base, correlated, "batch-1").Info("batch scoped")

	plain := logs.FilterMessage("plain").All()[0].ContextMap()
	if _, ok := plain["correlationId"]; ok {
		t.Fatalf("plain entry fields = %v, want no correlationId", plain)
	}

	if got := logs.FilterMessage("correlated").All()[0].ContextMap()["correlationId"]; got != "corr-9" {
		t.Fatalf("correlationId = %v, want corr-9", got)
	}

	scoped := logs.FilterMessage("batch scoped").All()[0].ContextMap()
	if scoped["batchId"] != "batch-1" || scoped["correlationId"] != "corr-9" {
		t.Fatalf("batch entry fields = %v", scoped)
	}

	if WithContextLogger(nil, correlated) != nil {
		t.Fatal("WithContextLogger(nil) should stay nil")
	}
	BatchLogger(nil, correlated, "batch-1").Info("dropped")
}

func TestCorrelationMiddleware(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Use(CorrelationMiddleware())
	app.Get("/v1/batches/:batchId", func(c *fiber.Ctx) error {
		id, _ := CorrelationIDFromContext(c.UserContext())
		return c.SendString(id)
	})

	req := httptest.NewRequest("GET", "/v1/batches/b-1", nil)
	req.Header.Set(CorrelationIDHeader, " corr-abc ")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if got := resp.Header.Get(CorrelationIDHeader); got != "corr-abc" {
		t.Fatalf("echoed correlation id = %q, want corr-abc", got)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/batches/b-1", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if got := resp.Header.Get(CorrelationIDHeader); len(got) != 36 {
		t.Fatalf("generated correlation id = %q, want a uuid", got)
	}
}
