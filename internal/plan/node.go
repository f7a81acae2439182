package plan

// Node is one operation in a normalized execution plan tree: a scan, join,
// sort, or aggregate, annotated with the engine's estimated and (when the
// plan was collected with execution) actual metrics. Engine-specific plan
// payloads are converted into this shape at the collection boundary, so the
// analyzer never sees engine field names.
//
// Numeric fields the engine did not report are zero. ActualLoops is
// normalized to 1 before any ratio math (see Analyzer).
type Node struct {
	// NodeType names the operation, e.g. "Seq Scan", "Index Scan",
	// "Nested Loop", "Sort", "Aggregate".
	NodeType string

	// ActualRows is the row count the node produced; zero on plan-only
	// collections. PlanRows is the planner's prediction.
	ActualRows uint64
	PlanRows   uint64

	// ActualTotalTimeMs is the node's total execution time in milliseconds;
	// zero on plan-only collections.
	ActualTotalTimeMs float64

	// TotalCost is the planner's cumulative cost estimate for the node and
	// everything beneath it, in engine-specific units.
	TotalCost float64

	// SharedHitBlocks and SharedReadBlocks count storage pages served from
	// cache versus fetched from disk while executing the node.
	SharedHitBlocks  uint64
	SharedReadBlocks uint64

	// RelationName and IndexName identify the table and index the node
	// touches, when it touches one. Filter is the node's filter condition
	// text. Empty means the engine reported none.
	RelationName string
	IndexName    string
	Filter       string

	// ActualLoops is how many times the node executed (inner sides of nested
	// loops run once per outer row).
	ActualLoops uint64

	// Children are the sub-plans feeding this node.
	Children []Node
}

// Root is the top of one statement's plan, together with the engine-reported
// timing totals. A nil Plan means the engine produced no plan; analyzing it
// yields an empty Analysis.
type Root struct {
	Plan            *Node
	PlanningTimeMs  float64
	ExecutionTimeMs float64
}
