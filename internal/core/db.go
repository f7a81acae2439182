// Package core assembles the governed session: connection management, guard
// screening, limit governance, estimate and plan capture, and the logging,
// tracing, and history plumbing around every statement.
package core

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/coregx/querygov/internal/advisor"
	"github.com/coregx/querygov/internal/cache"
	"github.com/coregx/querygov/internal/classifier"
	"github.com/coregx/querygov/internal/dialects"
	"github.com/coregx/querygov/internal/estimator"
	"github.com/coregx/querygov/internal/explain"
	"github.com/coregx/querygov/internal/guard"
	"github.com/coregx/querygov/internal/history"
	"github.com/coregx/querygov/internal/limiter"
	"github.com/coregx/querygov/internal/logger"
	"github.com/coregx/querygov/internal/plan"
	"github.com/coregx/querygov/internal/tracer"
)

// Page size bounds for governed SELECT statements.
const (
	// DefaultPageSize is the LIMIT injected into an unbounded SELECT when the
	// caller picks no page size.
	DefaultPageSize = 500
	// MaxPageSize caps any requested page size.
	MaxPageSize = 100_000
)

// DB is a governed database session over a *sql.DB. Every statement routed
// through Query passes the guard, is classified, and has its result size
// bounded before it reaches the engine.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	dialect    dialects.Dialect
	engine     dialects.Engine

	stmtCache *cache.StmtCache
	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer
	queryHook Hook

	guard     *guard.Guard
	auditor   *guard.Auditor
	history   *history.Recorder
	runner    explain.Runner
	analyzer  *plan.Analyzer
	advisor   *advisor.Advisor
	estimator *estimator.Estimator
	health    *healthChecker

	pageSize    uint64
	maxPageSize uint64
	bgEstimates bool

	closed atomic.Bool

	// Option staging, consumed once all options have run.
	policy         guard.Policy
	auditLevel     guard.AuditLevel
	historyCap     int
	planThresholds plan.Thresholds
	largeThreshold uint64
	healthInterval time.Duration
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *DB) {
		db.sqlDB.SetConnMaxLifetime(d)
	}
}

// WithConnMaxIdleTime sets the maximum amount of time a connection may be idle.
func WithConnMaxIdleTime(d time.Duration) Option {
	return func(db *DB) {
		db.sqlDB.SetConnMaxIdleTime(d)
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.New(capacity)
	}
}

// WithLogger sets the logger for statement execution and audit records.
func WithLogger(log logger.Logger) Option {
	return func(db *DB) {
		if log != nil {
			db.logger = log
		}
	}
}

// WithTracer sets the tracer used to span governed executions.
func WithTracer(tr tracer.Tracer) Option {
	return func(db *DB) {
		if tr != nil {
			db.tracer = tr
		}
	}
}

// WithQueryHook sets a callback invoked for every governed statement event.
func WithQueryHook(hook Hook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithDefaultPageSize sets the LIMIT injected into unbounded SELECT
// statements. Zero selects DefaultPageSize.
func WithDefaultPageSize(n uint64) Option {
	return func(db *DB) {
		db.pageSize = n
	}
}

// WithMaxPageSize sets the cap applied to any requested page size.
// Zero selects MaxPageSize.
func WithMaxPageSize(n uint64) Option {
	return func(db *DB) {
		db.maxPageSize = n
	}
}

// WithLargeResultThreshold sets the estimated row count above which a
// statement is flagged as a large result. Zero selects
// estimator.DefaultLargeResultThreshold.
func WithLargeResultThreshold(n uint64) Option {
	return func(db *DB) {
		db.largeThreshold = n
	}
}

// WithPlanThresholds tunes the plan analyzer's rule checks. Zero fields keep
// their defaults.
func WithPlanThresholds(t plan.Thresholds) Option {
	return func(db *DB) {
		db.planThresholds = t
	}
}

// WithGuardPolicy sets the statement screening policy for the session.
func WithGuardPolicy(p guard.Policy) Option {
	return func(db *DB) {
		db.policy = p
	}
}

// WithAuditLevel selects which statements are written to the audit log.
func WithAuditLevel(level guard.AuditLevel) Option {
	return func(db *DB) {
		db.auditLevel = level
	}
}

// WithHistoryCapacity sets how many recent statements the session retains.
// Zero selects history.DefaultCapacity.
func WithHistoryCapacity(n int) Option {
	return func(db *DB) {
		db.historyCap = n
	}
}

// WithBackgroundEstimates enables the per-SELECT background row estimate.
// The estimate runs on its own goroutine with its own timeout and never
// delays or fails the statement it describes.
func WithBackgroundEstimates(enabled bool) Option {
	return func(db *DB) {
		db.bgEstimates = enabled
	}
}

// WithHealthCheck enables periodic connection pings at the given interval.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		db.healthInterval = interval
	}
}

// NewDB creates a governed session with default options.
func NewDB(driverName, dsn string) (*DB, error) {
	return Open(driverName, dsn)
}

// Open opens a database handle through database/sql and wraps it in a
// governed session.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return WrapDB(sqlDB, driverName, opts...), nil
}

// WrapDB wraps an existing *sql.DB in a governed session. The caller keeps
// ownership of sqlDB unless it calls Close on the session, which closes the
// underlying handle too.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) *DB {
	dialect := dialects.ForDriver(driverName)

	db := &DB{
		sqlDB:       sqlDB,
		driverName:  driverName,
		dialect:     dialect,
		engine:      dialect.Engine(),
		stmtCache:   cache.New(0),
		logger:      &logger.NoopLogger{},
		sanitizer:   logger.NewSanitizer(nil),
		tracer:      &tracer.NoopTracer{},
		auditLevel:  guard.AuditBlocked,
		pageSize:    DefaultPageSize,
		maxPageSize: MaxPageSize,
	}

	for _, opt := range opts {
		opt(db)
	}

	if db.pageSize == 0 {
		db.pageSize = DefaultPageSize
	}
	if db.maxPageSize == 0 {
		db.maxPageSize = MaxPageSize
	}
	if db.pageSize > db.maxPageSize {
		db.pageSize = db.maxPageSize
	}

	db.guard = guard.New(db.policy)
	db.auditor = guard.NewAuditor(db.logger, db.auditLevel)
	db.history = history.NewRecorder(db.historyCap)
	db.runner = explain.ForEngine(db.engine, sqlDB)
	db.analyzer = plan.New(db.planThresholds)
	db.advisor = advisor.New(db.engine)
	db.estimator = estimator.New(db.runner, db.largeThreshold)

	if db.healthInterval > 0 {
		db.health = newHealthChecker(sqlDB, db.logger, db.healthInterval)
		db.health.start()
	}

	return db
}

// Close stops the health monitor, clears the statement cache, and closes the
// underlying handle. Close is idempotent.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if db.health != nil {
		db.health.shutdown()
	}
	db.stmtCache.Clear()
	return db.sqlDB.Close()
}

// checkOpen reports ErrClosed once Close has run.
func (db *DB) checkOpen() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Classify returns the statement descriptor without executing anything.
func (db *DB) Classify(sqlText string) classifier.Descriptor {
	return classifier.Classify(sqlText)
}

// ApplyLimit rewrites a SELECT to carry a bounded LIMIT without executing it.
// A pageSize of zero selects the session default; the session maximum caps
// any value.
func (db *DB) ApplyLimit(sqlText string, pageSize, offset uint64, force bool) limiter.Result {
	return limiter.Apply(sqlText, db.clampPageSize(pageSize, false), offset, force)
}

// clampPageSize resolves a requested page size against the session bounds.
// explicit distinguishes a requested zero (LIMIT 0) from no request at all.
func (db *DB) clampPageSize(requested uint64, explicit bool) uint64 {
	size := requested
	if size == 0 && !explicit {
		size = db.pageSize
	}
	if size > db.maxPageSize {
		size = db.maxPageSize
	}
	return size
}

// Estimate predicts how many rows a statement would produce without
// executing it. Estimation never fails; see estimator.RowEstimate.
func (db *DB) Estimate(ctx context.Context, sqlText string, args ...any) estimator.RowEstimate {
	return db.Query(sqlText, args...).Estimate(ctx)
}

// Explain captures the statement's execution plan without running it.
func (db *DB) Explain(ctx context.Context, sqlText string, args ...any) (*plan.Root, error) {
	return db.Query(sqlText, args...).Explain(ctx)
}

// Analyze executes the statement under the engine's analyzed EXPLAIN variant
// and grades the captured plan. The guard screens the statement first, since
// the analyzed form executes it.
func (db *DB) Analyze(ctx context.Context, sqlText string, args ...any) (*plan.Analysis, error) {
	return db.Query(sqlText, args...).Analyze(ctx)
}

// Advise analyzes the statement and derives follow-up suggestions from the
// graded plan: index recommendations and engine maintenance advice.
func (db *DB) Advise(ctx context.Context, sqlText string, args ...any) (*advisor.Report, error) {
	return db.Query(sqlText, args...).Advise(ctx)
}

// History returns the recorded statements, newest first.
func (db *DB) History() []history.Entry {
	return db.history.Recent(0)
}

// CacheStats returns a snapshot of the statement cache counters.
func (db *DB) CacheStats() cache.Stats {
	return db.stmtCache.Stats()
}

// Health reports the connection monitor's latest observation.
func (db *DB) Health() HealthStatus {
	if db.health == nil {
		return HealthStatus{Healthy: true}
	}
	return db.health.status()
}

// Dialect returns the SQL surface details for the connected engine.
func (db *DB) Dialect() dialects.Dialect {
	return db.dialect
}

// Engine returns the engine family behind the session.
func (db *DB) Engine() dialects.Engine {
	return db.engine
}

// Unwrap returns the underlying pool for operations the governor does not
// cover. Statements issued on it bypass the guard and the limit rewrite.
func (db *DB) Unwrap() *sql.DB {
	return db.sqlDB
}

// Tx represents a database transaction. Statements built from it run within
// the transaction but pass the same governed pipeline.
type Tx struct {
	tx  *sql.Tx
	db  *DB
	ctx context.Context
}

// TxOptions represents transaction options including isolation level.
type TxOptions struct {
	// Isolation level for the transaction (e.g., sql.LevelReadCommitted)
	Isolation sql.IsolationLevel
	// ReadOnly indicates whether the transaction is read-only
	ReadOnly bool
}

// Begin starts a transaction with default options.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with specified options.
// Options can specify isolation level and read-only mode.
func (db *DB) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	var sqlOpts *sql.TxOptions
	if opts != nil {
		sqlOpts = &sql.TxOptions{
			Isolation: opts.Isolation,
			ReadOnly:  opts.ReadOnly,
		}
	}

	tx, err := db.sqlDB.BeginTx(ctx, sqlOpts)
	if err != nil {
		return nil, err
	}

	return &Tx{
		tx:  tx,
		db:  db,
		ctx: ctx,
	}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.tx.Commit()
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	return tx.tx.Rollback()
}

// Transactional runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics. A panic is
// re-raised after the rollback.
func (db *DB) Transactional(ctx context.Context, fn func(*Tx) error) error {
	return db.TransactionalTx(ctx, nil, fn)
}

// TransactionalTx is Transactional with explicit transaction options.
func (db *DB) TransactionalTx(ctx context.Context, opts *TxOptions, fn func(*Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.rollback(tx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		db.rollback(tx)
		return err
	}

	return tx.Commit()
}

func (db *DB) rollback(tx *Tx) {
	if err := tx.Rollback(); err != nil {
		db.logger.Error("transaction rollback failed", "error", err.Error())
	}
}
