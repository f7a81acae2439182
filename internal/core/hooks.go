package core

import (
	"context"
	"time"

	"github.com/coregx/querygov/internal/classifier"
	"github.com/coregx/querygov/internal/estimator"
)

// Event describes one governed statement. It is passed to Hook callbacks
// after execution, when the guard blocks a statement, and when a background
// row estimate completes.
type Event struct {
	// SQL is the statement as submitted.
	SQL string
	// Rewritten is the statement as executed, after any limit injection.
	// Equal to SQL when no rewrite happened.
	Rewritten string
	// Kind is the classified statement kind.
	Kind classifier.Kind
	// Duration is how long the execution took.
	Duration time.Duration
	// RowsAffected is the driver-reported count for write statements.
	RowsAffected int64
	// Err is any error from the execution, or the guard rejection when
	// Blocked is set.
	Err error
	// Blocked reports that the statement was rejected before reaching the
	// engine.
	Blocked bool
	// Estimate carries the row estimate when this event reports a completed
	// background estimate; nil on execution and block events.
	Estimate *estimator.RowEstimate
}

// Hook is a callback invoked for each governed statement event.
// Use this for logging, metrics, distributed tracing, or surfacing
// large-result warnings to a UI.
//
// Example:
//
//	db, _ := querygov.Open("postgres", dsn,
//	    querygov.WithQueryHook(func(ctx context.Context, e querygov.Event) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Err)
//	    }))
type Hook func(ctx context.Context, event Event)

// invokeHook calls the query hook if set.
func (db *DB) invokeHook(ctx context.Context, event Event) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
