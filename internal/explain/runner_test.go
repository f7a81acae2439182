package explain

import (
	"context"
	"errors"
	"testing"

	"github.com/coregx/querygov/internal/dialects"
)

func TestForEngine(t *testing.T) {
	tests := []struct {
		engine dialects.Engine
		want   string
	}{
		{dialects.EnginePostgres, "*explain.PostgresRunner"},
		{dialects.EngineMySQL, "*explain.MySQLRunner"},
		{dialects.EngineSQLite, "*explain.SQLiteRunner"},
		{dialects.EngineOther, "explain.unsupportedRunner"},
	}

	for _, tt := range tests {
		t.Run(tt.engine.String(), func(t *testing.T) {
			runner := ForEngine(tt.engine, nil)

			var got string
			switch runner.(type) {
			case *PostgresRunner:
				got = "*explain.PostgresRunner"
			case *MySQLRunner:
				got = "*explain.MySQLRunner"
			case *SQLiteRunner:
				got = "*explain.SQLiteRunner"
			case unsupportedRunner:
				got = "explain.unsupportedRunner"
			}
			if got != tt.want {
				t.Errorf("ForEngine(%v) = %s, want %s", tt.engine, got, tt.want)
			}
		})
	}
}

func TestUnsupportedRunner(t *testing.T) {
	r := unsupportedRunner{}
	ctx := context.Background()

	// Estimates degrade to zero without error.
	rows, err := r.EstimateRows(ctx, "SELECT 1")
	if err != nil || rows != 0 {
		t.Errorf("EstimateRows() = %d, %v; want 0, nil", rows, err)
	}

	// Plan captures report the missing facility.
	if _, err := r.Explain(ctx, "SELECT 1"); !errors.Is(err, ErrPlanUnavailable) {
		t.Errorf("Explain() err = %v, want ErrPlanUnavailable", err)
	}
	if _, err := r.ExplainAnalyze(ctx, "SELECT 1"); !errors.Is(err, ErrPlanUnavailable) {
		t.Errorf("ExplainAnalyze() err = %v, want ErrPlanUnavailable", err)
	}
}

func TestClampU64(t *testing.T) {
	if got := clampU64(-1); got != 0 {
		t.Errorf("clampU64(-1) = %d, want 0", got)
	}
	if got := clampU64(0); got != 0 {
		t.Errorf("clampU64(0) = %d, want 0", got)
	}
	if got := clampU64(42); got != 42 {
		t.Errorf("clampU64(42) = %d, want 42", got)
	}
}
