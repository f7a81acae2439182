package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/querygov/internal/advisor"
	"github.com/coregx/querygov/internal/classifier"
	"github.com/coregx/querygov/internal/estimator"
	"github.com/coregx/querygov/internal/history"
	"github.com/coregx/querygov/internal/limiter"
	"github.com/coregx/querygov/internal/logger"
	"github.com/coregx/querygov/internal/plan"
	"github.com/coregx/querygov/internal/tracer"
)

// estimateTimeout bounds the background estimate so a slow planner cannot
// leak goroutines.
const estimateTimeout = 5 * time.Second

// Query is one governed statement. Build it with DB.Query or Tx.Query,
// configure it by chaining, then execute with Rows or Exec.
// When tx is not nil, the statement executes within that transaction.
type Query struct {
	db     *DB
	tx     *sql.Tx // nil for non-transactional queries
	sql    string
	params []any

	pageSize    uint64
	pageSizeSet bool
	offset      uint64
	force       bool
}

// Query builds a governed statement. Nothing executes until Rows or Exec.
func (db *DB) Query(sqlText string, args ...any) *Query {
	return &Query{db: db, sql: sqlText, params: args}
}

// Query builds a governed statement that executes within the transaction.
// It passes the same guard and limit pipeline as session-level statements.
func (tx *Tx) Query(sqlText string, args ...any) *Query {
	return &Query{db: tx.db, tx: tx.tx, sql: sqlText, params: args}
}

// PageSize sets the LIMIT injected when the statement has none. Zero is a
// valid page size and produces LIMIT 0. The session maximum still caps it.
func (q *Query) PageSize(n uint64) *Query {
	q.pageSize = n
	q.pageSizeSet = true
	return q
}

// Offset sets the OFFSET paired with an injected LIMIT.
func (q *Query) Offset(n uint64) *Query {
	q.offset = n
	return q
}

// Force replaces a LIMIT already present in the statement instead of
// preserving it.
func (q *Query) Force() *Query {
	q.force = true
	return q
}

// Describe classifies the statement without executing it.
func (q *Query) Describe() classifier.Descriptor {
	return classifier.Classify(q.sql)
}

// Rows is the result of a governed SELECT: the row stream plus what the
// governor did to produce it.
type Rows struct {
	*sql.Rows
	// Statement is the SQL text that was executed, after any limit rewrite.
	Statement string
	// Descriptor is the classification of the submitted statement.
	Descriptor classifier.Descriptor
	// Limit reports the rewrite outcome and the bounds in effect.
	Limit limiter.Result
	// Elapsed is the duration of the execute call, not of consuming the
	// stream.
	Elapsed time.Duration
}

// Rows executes the statement and returns its row stream. SELECT statements
// without a LIMIT get one injected first; everything else runs unchanged.
// If the query is part of a transaction, it bypasses the statement cache and
// uses the transaction connection.
func (q *Query) Rows(ctx context.Context) (*Rows, error) {
	if err := q.db.checkOpen(); err != nil {
		return nil, err
	}

	desc := classifier.Classify(q.sql)
	if err := q.db.guard.Check(ctx, q.sql, desc); err != nil {
		return nil, q.block(ctx, desc, err)
	}

	limit := q.db.clampPageSize(q.pageSize, q.pageSizeSet)
	res := limiter.Rewrite(q.sql, desc, limit, q.offset, q.force)

	// The estimate races the primary query; they are independent and either
	// may finish first.
	if q.db.bgEstimates && desc.Kind == classifier.KindSelect {
		go q.backgroundEstimate(desc)
	}

	ctx, span := q.db.tracer.StartSpan(ctx, "querygov.query.rows")
	defer span.End()

	start := time.Now()

	stmt, needsClose, err := q.prepareStatement(ctx, res.SQL)
	if err != nil {
		// Syntax errors surface at prepare time; they belong in the
		// history and audit trail like any other failed statement.
		q.logPrepareFailure(res.SQL, err)
		q.record(ctx, span, desc, res, 0, err, time.Since(start))
		return nil, err
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	rows, err := stmt.QueryContext(ctx, q.params...)
	elapsed := time.Since(start)

	// The stream has not been consumed yet, so the row count is unknown;
	// -1 follows the driver convention for counts that cannot be reported.
	q.finish(ctx, span, desc, res, -1, err, elapsed)

	if err != nil {
		return nil, err
	}

	return &Rows{
		Rows:       rows,
		Statement:  res.SQL,
		Descriptor: desc,
		Limit:      res,
		Elapsed:    elapsed,
	}, nil
}

// Exec executes the statement without a limit rewrite; only row streams are
// paged. If the query is part of a transaction, it bypasses the statement
// cache and uses the transaction connection.
func (q *Query) Exec(ctx context.Context) (sql.Result, error) {
	if err := q.db.checkOpen(); err != nil {
		return nil, err
	}

	desc := classifier.Classify(q.sql)
	if err := q.db.guard.Check(ctx, q.sql, desc); err != nil {
		return nil, q.block(ctx, desc, err)
	}

	res := limiter.Result{SQL: q.sql}

	ctx, span := q.db.tracer.StartSpan(ctx, "querygov.query.exec")
	defer span.End()

	start := time.Now()

	stmt, needsClose, err := q.prepareStatement(ctx, q.sql)
	if err != nil {
		q.logPrepareFailure(q.sql, err)
		q.record(ctx, span, desc, res, 0, err, time.Since(start))
		return nil, err
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	result, err := stmt.ExecContext(ctx, q.params...)
	elapsed := time.Since(start)

	var rowsAffected int64
	if result != nil {
		rowsAffected, _ = result.RowsAffected()
	}

	q.finish(ctx, span, desc, res, rowsAffected, err, elapsed)
	return result, err
}

// Estimate predicts how many rows this statement would produce without
// executing it. Estimation never fails; failures degrade to a zero estimate
// with an advisory warning.
func (q *Query) Estimate(ctx context.Context) estimator.RowEstimate {
	return q.db.estimator.Estimate(ctx, q.sql, q.params...)
}

// Explain captures this statement's execution plan without running it.
func (q *Query) Explain(ctx context.Context) (*plan.Root, error) {
	if err := q.db.checkOpen(); err != nil {
		return nil, err
	}
	return q.db.runner.Explain(ctx, q.sql, q.params...)
}

// Analyze captures the plan with actual execution metrics and grades it.
// The analyzed EXPLAIN form executes the statement, so the guard screens it
// exactly as Exec would; a blocked DELETE cannot be smuggled through plan
// analysis.
func (q *Query) Analyze(ctx context.Context) (*plan.Analysis, error) {
	if err := q.db.checkOpen(); err != nil {
		return nil, err
	}

	desc := classifier.Classify(q.sql)
	if err := q.db.guard.Check(ctx, q.sql, desc); err != nil {
		return nil, q.block(ctx, desc, err)
	}

	root, err := q.db.runner.ExplainAnalyze(ctx, q.sql, q.params...)
	if err != nil {
		return nil, err
	}

	analysis := q.db.analyzer.Analyze(*root)
	return &analysis, nil
}

// Advise grades the statement's captured plan and derives follow-up
// suggestions: index recommendations and engine maintenance advice. It
// executes the statement the way Analyze does, so the guard screens it first.
func (q *Query) Advise(ctx context.Context) (*advisor.Report, error) {
	analysis, err := q.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	return &advisor.Report{
		Analysis:    *analysis,
		Suggestions: q.db.advisor.Advise(q.sql, *analysis),
	}, nil
}

// prepareStatement prepares a SQL statement, using transaction or statement cache.
// For transactions, bypasses cache to avoid conflicts.
// For regular queries, uses LRU statement cache for better performance.
func (q *Query) prepareStatement(ctx context.Context, sqlText string) (*sql.Stmt, bool, error) {
	if q.tx != nil {
		stmt, err := q.tx.PrepareContext(ctx, sqlText)
		if err != nil {
			return nil, false, err
		}
		return stmt, true, nil // true = needs close
	}

	if stmt, ok := q.db.stmtCache.Get(sqlText); ok {
		return stmt, false, nil // false = cached, don't close
	}

	stmt, err := q.db.sqlDB.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, false, err
	}
	q.db.stmtCache.Put(sqlText, stmt)
	return stmt, false, nil // false = cached, don't close
}

// block records a guard rejection in the audit log, the history ring, and
// the hook, then hands the rejection back to the caller.
func (q *Query) block(ctx context.Context, desc classifier.Descriptor, err error) error {
	q.db.auditor.LogBlocked(ctx, desc.Kind, q.sql, err)
	q.db.history.Record(history.Entry{
		SQL:    q.sql,
		Kind:   desc.Kind,
		Status: history.StatusBlocked,
		Err:    err.Error(),
	})
	q.db.invokeHook(ctx, Event{
		SQL:       q.sql,
		Rewritten: q.sql,
		Kind:      desc.Kind,
		Err:       err,
		Blocked:   true,
	})
	return err
}

// finish records one execution everywhere it is observed: log line, span
// attributes, audit trail, history ring, and hook.
func (q *Query) finish(ctx context.Context, span tracer.Span, desc classifier.Descriptor, res limiter.Result, rows int64, err error, elapsed time.Duration) {
	q.logResult(res.SQL, desc, rows, err, elapsed)
	q.record(ctx, span, desc, res, rows, err, elapsed)
}

// record writes the span attributes, audit record, history entry, and hook
// event for one statement.
func (q *Query) record(ctx context.Context, span tracer.Span, desc classifier.Descriptor, res limiter.Result, rows int64, err error, elapsed time.Duration) {
	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          logger.CompactSQL(res.SQL),
		Operation:    desc.Kind.String(),
		Database:     q.db.engine.String(),
		Duration:     elapsed,
		RowsAffected: rows,
		LimitApplied: res.WasLimited,
		AppliedLimit: res.AppliedLimit,
		Error:        err,
	})

	q.db.auditor.LogStatement(ctx, desc.Kind, q.sql, q.params, rows, elapsed, err)

	entry := history.Entry{
		SQL:          q.sql,
		RewrittenSQL: res.SQL,
		Kind:         desc.Kind,
		Status:       history.StatusOK,
		Elapsed:      elapsed,
		RowsReturned: rows,
	}
	if err != nil {
		entry.Status = history.StatusError
		entry.Err = err.Error()
	}
	q.db.history.Record(entry)

	q.db.invokeHook(ctx, Event{
		SQL:          q.sql,
		Rewritten:    res.SQL,
		Kind:         desc.Kind,
		Duration:     elapsed,
		RowsAffected: rows,
		Err:          err,
	})
}

// logResult writes the one-line execution record.
func (q *Query) logResult(executed string, desc classifier.Descriptor, rows int64, err error, elapsed time.Duration) {
	masked := q.db.sanitizer.FormatParams(q.db.sanitizer.MaskParams(executed, q.params))

	if err != nil {
		q.db.logger.Error("query execution failed",
			"sql", logger.CompactSQL(executed),
			"params", masked,
			"kind", desc.Kind.String(),
			"duration_ms", elapsed.Milliseconds(),
			"engine", q.db.engine.String(),
			"error", err,
		)
		return
	}

	q.db.logger.Info("query executed",
		"sql", logger.CompactSQL(executed),
		"params", masked,
		"kind", desc.Kind.String(),
		"duration_ms", elapsed.Milliseconds(),
		"rows", rows,
		"engine", q.db.engine.String(),
	)
}

func (q *Query) logPrepareFailure(executed string, err error) {
	q.db.logger.Error("query preparation failed",
		"sql", logger.CompactSQL(executed),
		"params", q.db.sanitizer.FormatParams(q.db.sanitizer.MaskParams(executed, q.params)),
		"engine", q.db.engine.String(),
		"error", err,
	)
}

// backgroundEstimate runs the row estimate off the query path. It carries its
// own timeout context, so cancelling the primary query does not cancel it and
// a hung estimate never affects the primary.
func (q *Query) backgroundEstimate(desc classifier.Descriptor) {
	ctx, cancel := context.WithTimeout(context.Background(), estimateTimeout)
	defer cancel()

	est := q.db.estimator.EstimateClassified(ctx, q.sql, desc, q.params...)
	if est.Warning == "" {
		return
	}

	if !est.IsLargeResult {
		// Estimate unavailable. Worth a debug line, not a warning.
		q.db.logger.Debug("row estimate skipped",
			"sql", logger.CompactSQL(q.sql),
			"reason", est.Warning,
		)
		return
	}

	q.db.logger.Warn("large result estimated",
		"sql", logger.CompactSQL(q.sql),
		"estimated_rows", est.EstimatedRows,
		"threshold", q.db.estimator.Threshold(),
	)
	q.db.invokeHook(ctx, Event{
		SQL:       q.sql,
		Rewritten: q.sql,
		Kind:      desc.Kind,
		Estimate:  &est,
	})
}
