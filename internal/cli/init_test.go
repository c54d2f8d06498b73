package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"talentdesk/internal/config"
	"talentdesk/internal/share"
)

func TestSetupLoggerLevel(t *testing.T) {
	logger := SetupLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
	logger = SetupLogger("warn")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be filtered at warn level")
	}
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(&config.Config{AgencyShareScope: "global", ReportTopN: 3})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if opts := e.Options(); opts.ShareScope != share.Global || opts.TopN != 3 {
		t.Errorf("options = %+v", opts)
	}

	if _, err := NewEngine(&config.Config{AgencyShareScope: "team"}); err == nil {
		t.Error("unknown scope should fail")
	}
}

func TestOpenBackend(t *testing.T) {
	logger := SetupLogger("error")
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}

	result, err := OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer result.Cleanup()
	if result.Publisher != nil {
		t.Error("no publisher without AMQP_URL")
	}
	l, err := result.Backend.LoadLedger(context.Background())
	if err != nil || len(l.Users) != 0 {
		t.Errorf("fresh ledger = %+v, %v", l, err)
	}

	if _, err := OpenBackend(context.Background(), logger, &config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("unknown backend should fail")
	}
}
