// Package advisor turns a graded plan analysis into follow-up actions: index
// recommendations parsed out of the statement text, and engine-specific
// maintenance advice. It consumes plan.Analysis values and never touches the
// database itself.
package advisor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/querygov/internal/dialects"
	"github.com/coregx/querygov/internal/plan"
)

// slowExecMs flags statements whose measured execution time deserves a
// follow-up regardless of plan shape.
const slowExecMs = 100

// Recommendation is one suggested index: the table to index, the columns in
// order, and why.
type Recommendation struct {
	Table   string
	Columns []string
	Reason  string
}

// IndexName returns the conventional name for the suggested index,
// idx_<table>_<col>_<col>.
func (r Recommendation) IndexName() string {
	if len(r.Columns) == 0 {
		return "idx_" + r.Table
	}
	return "idx_" + r.Table + "_" + strings.Join(r.Columns, "_")
}

// SQL returns the CREATE INDEX statement implementing the recommendation.
func (r Recommendation) SQL() string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);", r.IndexName(), r.Table, strings.Join(r.Columns, ", "))
}

// Suggestion is one actionable follow-up: what to do, why, and when it is
// expressible as a single statement, the SQL to do it with.
type Suggestion struct {
	Severity plan.Severity
	Title    string
	Detail   string
	SQL      string
}

// Report pairs a graded analysis with the suggestions derived from it.
type Report struct {
	Analysis    plan.Analysis
	Suggestions []Suggestion
}

// Advisor derives suggestions for one engine.
type Advisor struct {
	engine dialects.Engine
}

// New creates an advisor speaking the given engine's maintenance vocabulary.
func New(engine dialects.Engine) *Advisor {
	return &Advisor{engine: engine}
}

// Advise derives suggestions from the analysis of sqlText, most severe
// first. A clean analysis yields no suggestions.
func (a *Advisor) Advise(sqlText string, analysis plan.Analysis) []Suggestion {
	var out []Suggestion

	seqScan := hasWarning(analysis, "Sequential Scan")
	rec, recOK := recommendIndex(sqlText)
	if seqScan && recOK {
		out = append(out, Suggestion{
			Severity: plan.SeverityWarning,
			Title:    "Missing Index",
			Detail:   fmt.Sprintf("%s is scanned in full while filtering on %s", rec.Table, strings.Join(rec.Columns, ", ")),
			SQL:      rec.SQL(),
		})
	}

	out = append(out, a.engineAdvice(analysis, seqScan, rec, recOK)...)

	if analysis.ExecutionTimeMs > slowExecMs {
		out = append(out, Suggestion{
			Severity: plan.SeverityInfo,
			Title:    "Slow Statement",
			Detail:   fmt.Sprintf("execution took %.1f ms; capture the plan under production data volumes before tuning further", analysis.ExecutionTimeMs),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}

// engineAdvice emits the maintenance advice each engine documents for the
// patterns the analysis surfaced.
func (a *Advisor) engineAdvice(analysis plan.Analysis, seqScan bool, rec Recommendation, recOK bool) []Suggestion {
	switch a.engine {
	case dialects.EnginePostgres:
		return postgresAdvice(analysis, seqScan)
	case dialects.EngineMySQL:
		return mysqlAdvice(analysis, seqScan, rec, recOK)
	case dialects.EngineSQLite:
		return sqliteAdvice(analysis, seqScan)
	default:
		return nil
	}
}

func postgresAdvice(analysis plan.Analysis, seqScan bool) []Suggestion {
	var out []Suggestion

	if seqScan {
		out = append(out, Suggestion{
			Severity: plan.SeverityInfo,
			Title:    "Stale Statistics",
			Detail:   "the planner chose a sequential scan; ANALYZE refreshes the statistics it decides with",
			SQL:      "ANALYZE;",
		})
	}

	total := analysis.BufferHits + analysis.BufferReads
	if analysis.BufferReads > 0 && total > 0 {
		ratio := float64(analysis.BufferHits) / float64(total)
		if ratio < 0.90 {
			out = append(out, Suggestion{
				Severity: plan.SeverityWarning,
				Title:    "Cold Buffer Cache",
				Detail:   fmt.Sprintf("only %.1f%% of blocks came from shared buffers; the working set may not fit shared_buffers", ratio*100),
			})
		}
	}

	return out
}

func mysqlAdvice(analysis plan.Analysis, seqScan bool, rec Recommendation, recOK bool) []Suggestion {
	var out []Suggestion

	if seqScan && recOK {
		out = append(out, Suggestion{
			Severity: plan.SeverityInfo,
			Title:    "Index Hint",
			Detail:   fmt.Sprintf("once %s exists, USE INDEX (%s) steers the optimizer onto it if it keeps choosing the scan", rec.IndexName(), rec.IndexName()),
		})
	}

	if analysis.TotalRows > 500_000 {
		out = append(out, Suggestion{
			Severity: plan.SeverityInfo,
			Title:    "Buffer Pool Pressure",
			Detail:   fmt.Sprintf("the plan touched %d rows; scans of this size evict the InnoDB buffer pool", analysis.TotalRows),
		})
	}

	return out
}

func sqliteAdvice(analysis plan.Analysis, seqScan bool) []Suggestion {
	var out []Suggestion

	if seqScan {
		out = append(out, Suggestion{
			Severity: plan.SeverityInfo,
			Title:    "Planner Statistics",
			Detail:   "ANALYZE stores table shape statistics the query planner uses to pick indexes",
			SQL:      "ANALYZE;",
		})
	}

	if analysis.ExecutionTimeMs > slowExecMs {
		out = append(out, Suggestion{
			Severity: plan.SeverityInfo,
			Title:    "Fragmentation",
			Detail:   "a slow statement on a long-lived database can indicate fragmentation; VACUUM rebuilds the file",
			SQL:      "VACUUM;",
		})
	}

	return out
}

// hasWarning reports whether the analysis carries a warning with the given
// title.
func hasWarning(analysis plan.Analysis, title string) bool {
	for _, w := range analysis.Warnings {
		if w.Title == title {
			return true
		}
	}
	return false
}

// recommendIndex derives an index recommendation from the statement text:
// the filtered columns in appearance order, extended by the ORDER BY columns
// so the index can serve rows pre-sorted.
func recommendIndex(sqlText string) (Recommendation, bool) {
	table := tableName(sqlText)
	if table == "" {
		return Recommendation{}, false
	}

	cols := whereColumns(sqlText)
	if len(cols) == 0 {
		return Recommendation{}, false
	}

	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	for _, c := range orderByColumns(sqlText) {
		if !seen[c] {
			cols = append(cols, c)
			seen[c] = true
		}
	}

	return Recommendation{
		Table:   table,
		Columns: cols,
		Reason:  "filtered without index support",
	}, true
}
