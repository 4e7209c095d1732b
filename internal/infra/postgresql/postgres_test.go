package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/route-engine/internal/observability"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLoggerTrace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{name: "query error", err: errors.New("duplicate key"), wantMsg: "query failed", wantLvl: zapcore.ErrorLevel},
		{name: "slow query", elapsed: time.Second, wantMsg: "slow query", wantLvl: zapcore.WarnLevel},
		{name: "record not found is quiet", err: gorm.ErrRecordNotFound},
		{name: "fast query is quiet"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			l := NewGormLogger(zap.New(core), 200*time.Millisecond)

			ctx := observability.WithCorrelationID(context.Background(), "corr-1")
			l.Trace(ctx, time.Now().Add(-tt.elapsed), sqlFn("SELECT 1", 1), tt.err)

			if tt.wantMsg == "" {
				if logs.Len() != 0 {
					t.Fatalf("logged %d entries, want none", logs.Len())
				}
				return
			}

			entries := logs.FilterMessage(tt.wantMsg).All()
			if len(entries) != 1 {
				t.Fatalf("entries for %q = %d, want 1", tt.wantMsg, len(entries))
			}
			if entries[0].Level != tt.wantLvl {
				t.Fatalf("level = %s, want %s", entries[0].Level, tt.wantLvl)
			}
			fields := entries[0].ContextMap()
			if fields["sql"] != "SELECT 1" || fields["correlationId"] != "corr-1" || fields["component"] != "gorm" {
				t.Fatalf("fields = %v", fields)
			}
		})
	}
}

func TestGormLoggerLogModeSilences(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	base := NewGormLogger(zap.New(core), time.Millisecond)
	silent := base.LogMode(gormlogger.Silent)

	silent.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn("SELECT 1", 0), errors.New("boom"))
	silent.Error(context.Background(), "failed %s", "x")
	if logs.Len() != 0 {
		t.Fatalf("silent logger wrote %d entries", logs.Len())
	}

	base.Warn(context.Background(), "pool %d", 3)
	if logs.FilterMessage("pool 3").Len() != 1 {
		t.Fatal("base logger should keep its level after LogMode copy")
	}
}

func TestDefaultPoolOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultPoolOptions()
	if opts.MaxOpenConns != 25 || opts.MaxIdleConns != 5 || opts.ConnMaxLifetime != time.Hour {
		t.Fatalf("DefaultPoolOptions() = %+v", opts)
	}
}
