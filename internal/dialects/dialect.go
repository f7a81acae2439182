// Package dialects identifies the database engine behind a driver name and
// provides engine-specific SQL surface details: identifier quoting, parameter
// placeholders, and which plan facilities (row estimates, plan capture) the
// engine supports.
package dialects

// Engine is the closed set of database engines the governor understands.
// Drivers that map to no known engine are EngineOther: queries still run,
// but no row estimate or plan capture is attempted.
type Engine int

const (
	EngineOther Engine = iota
	EnginePostgres
	EngineMySQL
	EngineSQLite
)

// String returns the engine name in lowercase.
func (e Engine) String() string {
	switch e {
	case EnginePostgres:
		return "postgres"
	case EngineMySQL:
		return "mysql"
	case EngineSQLite:
		return "sqlite"
	default:
		return "other"
	}
}

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name is the canonical dialect name (matches Engine.String for known engines).
	Name() string
	// Engine identifies the engine family this dialect belongs to.
	Engine() Engine
	// QuoteIdentifier quotes a table or column name for this engine.
	QuoteIdentifier(string) string
	// Placeholder returns the parameter placeholder for the 1-based position.
	Placeholder(int) string
	// SupportsRowEstimate reports whether a plan-only EXPLAIN yields a usable
	// row-count prediction on this engine.
	SupportsRowEstimate() bool
	// SupportsPlanCapture reports whether an execution plan tree can be
	// collected from this engine.
	SupportsPlanCapture() bool
}

var dialects = make(map[string]Dialect)

// Register registers a dialect under a driver name. Later registrations for
// the same name win, so applications can override a built-in.
func Register(driverName string, d Dialect) {
	dialects[driverName] = d
}

// ForDriver returns the dialect registered for a driver name. Unknown driver
// names fall back to the generic dialect (EngineOther) rather than failing:
// the governor still executes queries on engines it cannot introspect.
func ForDriver(driverName string) Dialect {
	if d, ok := dialects[driverName]; ok {
		return d
	}
	return genericFallback
}

// EngineForDriver maps a driver name to its engine family.
func EngineForDriver(driverName string) Engine {
	return ForDriver(driverName).Engine()
}
