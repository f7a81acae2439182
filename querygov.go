// Package querygov is a query governor and plan analyzer for SQL sent from
// interactive tools: it classifies raw statements, bounds unbounded SELECTs
// with an injected LIMIT, screens dangerous statements, predicts result
// sizes through planner estimates, and grades captured execution plans.
// It wraps database/sql and supports PostgreSQL, MySQL, and SQLite, with
// structured logging, audit trails, and OpenTelemetry tracing out of the box.
package querygov

import (
	"github.com/coregx/querygov/internal/advisor"
	"github.com/coregx/querygov/internal/classifier"
	"github.com/coregx/querygov/internal/core"
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

type (
	// DB is a governed database session over a *sql.DB.
	DB = core.DB
	// Option is a functional option for configuring DB.
	Option = core.Option
	// Query is one governed statement, built by DB.Query or Tx.Query.
	Query = core.Query
	// Rows is the result of a governed SELECT: the row stream plus what the
	// governor did to produce it.
	Rows = core.Rows
	// Tx represents a database transaction.
	Tx = core.Tx
	// TxOptions represents transaction options including isolation level.
	TxOptions = core.TxOptions
	// Event describes one governed statement for Hook callbacks.
	Event = core.Event
	// Hook is a callback invoked for each governed statement event.
	Hook = core.Hook
	// HealthStatus is a snapshot of the connection monitor's latest
	// observation.
	HealthStatus = core.HealthStatus

	// Descriptor describes one classified SQL statement.
	Descriptor = classifier.Descriptor
	// Kind is the coarse category of a SQL statement.
	Kind = classifier.Kind

	// LimitResult describes the outcome of a limit rewrite.
	LimitResult = limiter.Result

	// RowEstimate is the planner's prediction of a statement's result size.
	RowEstimate = estimator.RowEstimate

	// Policy configures the statement guard.
	Policy = guard.Policy
	// AuditLevel selects which statements are written to the audit log.
	AuditLevel = guard.AuditLevel

	// Entry is one recorded statement in the session history.
	Entry = history.Entry
	// HistoryStatus is the outcome recorded for a history entry.
	HistoryStatus = history.Status

	// Root is a captured execution plan with its top node and timings.
	Root = plan.Root
	// Node is one operator in a normalized plan tree.
	Node = plan.Node
	// Analysis aggregates one walk over a plan tree.
	Analysis = plan.Analysis
	// PlanWarning is one actionable finding from a plan walk.
	PlanWarning = plan.Warning
	// Insight is one plan-wide summary metric with a health grade.
	Insight = plan.Insight
	// InsightStatus grades an insight value.
	InsightStatus = plan.Status
	// Severity ranks how urgently a plan warning deserves attention.
	Severity = plan.Severity
	// Thresholds tune the plan analyzer's rule checks.
	Thresholds = plan.Thresholds

	// Report pairs a graded plan analysis with the advisor's suggestions.
	Report = advisor.Report
	// Suggestion is one actionable follow-up derived from a plan analysis.
	Suggestion = advisor.Suggestion
	// Recommendation is one suggested index.
	Recommendation = advisor.Recommendation

	// Engine is the closed set of database engines the governor understands.
	Engine = dialects.Engine
	// Dialect defines database-specific behaviors.
	Dialect = dialects.Dialect

	// Logger is the structured logging interface the governor emits to.
	Logger = logger.Logger
	// Tracer starts spans around governed operations.
	Tracer = tracer.Tracer
)

// Statement kinds.
const (
	KindOther  = classifier.KindOther
	KindSelect = classifier.KindSelect
	KindInsert = classifier.KindInsert
	KindUpdate = classifier.KindUpdate
	KindDelete = classifier.KindDelete
	KindDDL    = classifier.KindDDL
)

// Audit levels.
const (
	AuditNone    = guard.AuditNone
	AuditBlocked = guard.AuditBlocked
	AuditWrites  = guard.AuditWrites
	AuditAll     = guard.AuditAll
)

// History entry statuses.
const (
	StatusOK      = history.StatusOK
	StatusError   = history.StatusError
	StatusBlocked = history.StatusBlocked
)

// Plan warning severities.
const (
	SeverityInfo     = plan.SeverityInfo
	SeverityWarning  = plan.SeverityWarning
	SeverityCritical = plan.SeverityCritical
)

// Insight grades.
const (
	StatusGood            = plan.StatusGood
	StatusInsightWarning  = plan.StatusWarning
	StatusInsightCritical = plan.StatusCritical
)

// Database engines.
const (
	EngineOther    = dialects.EngineOther
	EnginePostgres = dialects.EnginePostgres
	EngineMySQL    = dialects.EngineMySQL
	EngineSQLite   = dialects.EngineSQLite
)

// Governor defaults, overridable per session through options.
const (
	// DefaultPageSize is the LIMIT injected into an unbounded SELECT when
	// the caller picks no page size.
	DefaultPageSize = core.DefaultPageSize
	// MaxPageSize caps any requested page size.
	MaxPageSize = core.MaxPageSize
	// DefaultLargeResultThreshold is the estimated row count above which a
	// statement is flagged as a large result.
	DefaultLargeResultThreshold = estimator.DefaultLargeResultThreshold
)

// Predefined errors, checked with errors.Is.
var (
	// ErrClosed reports a governed operation on a closed session.
	ErrClosed = core.ErrClosed
	// ErrReadOnly reports a write or DDL statement in a read-only session.
	ErrReadOnly = guard.ErrReadOnly
	// ErrDestructive reports an unfiltered DELETE/UPDATE or a DROP/TRUNCATE
	// under a policy that blocks them.
	ErrDestructive = guard.ErrDestructive
	// ErrDangerous reports a statement matching a dangerous construct.
	ErrDangerous = guard.ErrDangerous
	// ErrPlanUnavailable reports that the connected engine exposes no plan
	// facility for the statement.
	ErrPlanUnavailable = explain.ErrPlanUnavailable
	// ErrMalformedPlan reports EXPLAIN output that did not match the shape
	// the engine documents.
	ErrMalformedPlan = explain.ErrMalformedPlan
)

// Re-export core constructors and options.
var (
	Open   = core.Open
	NewDB  = core.NewDB
	WrapDB = core.WrapDB

	WithMaxOpenConns         = core.WithMaxOpenConns
	WithMaxIdleConns         = core.WithMaxIdleConns
	WithConnMaxLifetime      = core.WithConnMaxLifetime
	WithConnMaxIdleTime      = core.WithConnMaxIdleTime
	WithStmtCacheCapacity    = core.WithStmtCacheCapacity
	WithLogger               = core.WithLogger
	WithTracer               = core.WithTracer
	WithQueryHook            = core.WithQueryHook
	WithDefaultPageSize      = core.WithDefaultPageSize
	WithMaxPageSize          = core.WithMaxPageSize
	WithLargeResultThreshold = core.WithLargeResultThreshold
	WithPlanThresholds       = core.WithPlanThresholds
	WithGuardPolicy          = core.WithGuardPolicy
	WithAuditLevel           = core.WithAuditLevel
	WithHistoryCapacity      = core.WithHistoryCapacity
	WithBackgroundEstimates  = core.WithBackgroundEstimates
	WithHealthCheck          = core.WithHealthCheck
)

// Re-export the pure building blocks, usable without a session.
var (
	// Classify inspects a single SQL statement and returns its descriptor.
	Classify = classifier.Classify
	// ApplyLimit injects a trailing LIMIT/OFFSET bound into a SELECT
	// lacking one.
	ApplyLimit = limiter.Apply
	// AnalyzePlan walks an already-captured plan tree with default
	// thresholds.
	AnalyzePlan = plan.Analyze
	// DefaultThresholds returns the plan analyzer's stock tuning.
	DefaultThresholds = plan.DefaultThresholds
)

// Re-export the logging and tracing adapters.
var (
	// NewSlogAdapter wraps a *slog.Logger as a Logger.
	NewSlogAdapter = logger.NewSlogAdapter
	// NewOtelTracer wraps an OpenTelemetry tracer as a Tracer.
	NewOtelTracer = tracer.NewOtelTracer
)

// Re-export the audit identity helpers. Values stamped into a context show
// up on that statement's audit records.
var (
	WithUser      = guard.WithUser
	WithClientIP  = guard.WithClientIP
	WithRequestID = guard.WithRequestID
	GetUser       = guard.GetUser
	GetClientIP   = guard.GetClientIP
	GetRequestID  = guard.GetRequestID
)
