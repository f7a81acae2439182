package plan

// Severity ranks how urgently a warning deserves attention.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the severity label used in logs and UI chips.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Warning is one actionable finding from a plan walk: a short title, a
// description naming the concrete relation or metric that triggered it, and
// the type of the node it fired on.
type Warning struct {
	Severity    Severity
	Title       string
	Description string
	NodeType    string
}

// Status grades an insight value.
type Status int

const (
	StatusGood Status = iota
	StatusWarning
	StatusCritical
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Insight is one plan-wide summary metric with a health grade, e.g.
// {"Cache Hit Ratio", "98.2%", StatusGood}.
type Insight struct {
	Label  string
	Value  string
	Status Status
}

// Analysis aggregates one walk over a plan tree: totals accumulated across
// every node, warnings ranked most severe first, and graded insights.
type Analysis struct {
	ExecutionTimeMs float64
	PlanningTimeMs  float64

	// TotalRows sums ActualRows over all nodes. TotalCost is the root
	// node's cumulative cost, which already includes its children.
	TotalRows uint64
	TotalCost float64

	// BufferHits and BufferReads sum the shared block counters over all
	// nodes.
	BufferHits  uint64
	BufferReads uint64

	// NodeCount is the number of nodes visited.
	NodeCount uint64

	Warnings []Warning
	Insights []Insight
}
