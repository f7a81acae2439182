// Package plan models execution plans as a normalized node tree and derives
// diagnostics from them: per-node warnings for expensive patterns and
// plan-wide graded insights. It is pure tree math over Node values; plan
// collection lives in internal/explain.
package plan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Thresholds tune the analyzer's rule checks. Zero fields fall back to the
// matching DefaultThresholds value, so callers only set what they want to
// change.
type Thresholds struct {
	// SeqScanRows is the actual-row count above which a sequential scan is
	// flagged.
	SeqScanRows uint64

	// SortTimeMs flags sorts whose actual total time exceeds it.
	SortTimeMs float64

	// NestedLoops flags nested loop nodes whose inner side executed more
	// than this many times.
	NestedLoops uint64

	// CardinalityFactor flags nodes whose actual/planned row ratio exceeds
	// it or falls below its inverse.
	CardinalityFactor float64

	// CacheHitRatio is the minimum hit fraction graded good.
	CacheHitRatio float64

	// NodeCount is the plan size above which the node-count insight is
	// graded warning.
	NodeCount uint64

	// SlowExecMs and CriticalExecMs grade the execution-time insight.
	SlowExecMs     float64
	CriticalExecMs float64
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SeqScanRows:       10_000,
		SortTimeMs:        100,
		NestedLoops:       1_000,
		CardinalityFactor: 10,
		CacheHitRatio:     0.95,
		NodeCount:         20,
		SlowExecMs:        100,
		CriticalExecMs:    1_000,
	}
}

// Analyzer walks plan trees and reports warnings and insights.
type Analyzer struct {
	thresholds Thresholds
}

// New creates an Analyzer with the given thresholds. Zero fields are
// replaced with defaults.
func New(t Thresholds) *Analyzer {
	d := DefaultThresholds()
	if t.SeqScanRows == 0 {
		t.SeqScanRows = d.SeqScanRows
	}
	if t.SortTimeMs == 0 {
		t.SortTimeMs = d.SortTimeMs
	}
	if t.NestedLoops == 0 {
		t.NestedLoops = d.NestedLoops
	}
	if t.CardinalityFactor == 0 {
		t.CardinalityFactor = d.CardinalityFactor
	}
	if t.CacheHitRatio == 0 {
		t.CacheHitRatio = d.CacheHitRatio
	}
	if t.NodeCount == 0 {
		t.NodeCount = d.NodeCount
	}
	if t.SlowExecMs == 0 {
		t.SlowExecMs = d.SlowExecMs
	}
	if t.CriticalExecMs == 0 {
		t.CriticalExecMs = d.CriticalExecMs
	}
	return &Analyzer{thresholds: t}
}

// Analyze walks root with default thresholds.
func Analyze(root Root) Analysis {
	return New(Thresholds{}).Analyze(root)
}

// Analyze traverses the plan depth-first, accumulating totals, applying
// every rule check to every node independently, and grading the plan-wide
// insights. A root without a plan yields an empty Analysis.
func (a *Analyzer) Analyze(root Root) Analysis {
	if root.Plan == nil {
		return Analysis{}
	}

	an := Analysis{
		ExecutionTimeMs: root.ExecutionTimeMs,
		PlanningTimeMs:  root.PlanningTimeMs,
		TotalCost:       root.Plan.TotalCost,
	}
	a.walk(root.Plan, &an)

	// Most severe first; ties keep discovery order.
	sort.SliceStable(an.Warnings, func(i, j int) bool {
		return an.Warnings[i].Severity > an.Warnings[j].Severity
	})

	an.Insights = a.insights(&an)
	return an
}

func (a *Analyzer) walk(n *Node, an *Analysis) {
	an.NodeCount++
	an.TotalRows += n.ActualRows
	an.BufferHits += n.SharedHitBlocks
	an.BufferReads += n.SharedReadBlocks

	a.checkNode(n, an)

	for i := range n.Children {
		a.walk(&n.Children[i], an)
	}
}

// checkNode applies every rule to n. A single node can trip several rules.
func (a *Analyzer) checkNode(n *Node, an *Analysis) {
	loops := n.ActualLoops
	if loops == 0 {
		loops = 1
	}

	if strings.Contains(n.NodeType, "Seq Scan") || n.NodeType == "Table Scan" || n.NodeType == "Scan" {
		if n.ActualRows > a.thresholds.SeqScanRows {
			an.Warnings = append(an.Warnings, Warning{
				Severity:    SeverityWarning,
				Title:       "Sequential Scan",
				Description: fmt.Sprintf("full scan of %s read %d rows; an index on the filtered columns could avoid it", relationLabel(n), n.ActualRows),
				NodeType:    n.NodeType,
			})
		}
	}

	if n.PlanRows > 0 && n.ActualRows > 0 {
		ratio := float64(n.ActualRows) / float64(n.PlanRows)
		if ratio > a.thresholds.CardinalityFactor || ratio < 1/a.thresholds.CardinalityFactor {
			an.Warnings = append(an.Warnings, Warning{
				Severity:    SeverityInfo,
				Title:       "Cardinality Mismatch",
				Description: fmt.Sprintf("planner expected %d rows but %s produced %d; table statistics may be outdated", n.PlanRows, nodeLabel(n), n.ActualRows),
				NodeType:    n.NodeType,
			})
		}
	}

	if strings.Contains(n.NodeType, "Sort") && n.ActualTotalTimeMs > a.thresholds.SortTimeMs {
		an.Warnings = append(an.Warnings, Warning{
			Severity:    SeverityWarning,
			Title:       "Expensive Sort",
			Description: fmt.Sprintf("sort spent %.1f ms; an index matching the sort order could serve rows pre-sorted", n.ActualTotalTimeMs),
			NodeType:    n.NodeType,
		})
	}

	if strings.Contains(n.NodeType, "Nested Loop") && loops > a.thresholds.NestedLoops {
		an.Warnings = append(an.Warnings, Warning{
			Severity:    SeverityCritical,
			Title:       "Runaway Nested Loop",
			Description: fmt.Sprintf("inner side executed %d times; this is the shape of an N+1 query pattern", loops),
			NodeType:    n.NodeType,
		})
	}
}

func (a *Analyzer) insights(an *Analysis) []Insight {
	out := make([]Insight, 0, 3)

	// Zero block activity counts as a fully cold read rather than a crash.
	total := an.BufferHits + an.BufferReads
	if total == 0 {
		total = 1
	}
	ratio := float64(an.BufferHits) / float64(total)
	status := StatusGood
	if ratio < a.thresholds.CacheHitRatio {
		status = StatusWarning
	}
	out = append(out, Insight{
		Label:  "Cache Hit Ratio",
		Value:  fmt.Sprintf("%.1f%%", ratio*100),
		Status: status,
	})

	status = StatusGood
	if an.NodeCount > a.thresholds.NodeCount {
		status = StatusWarning
	}
	out = append(out, Insight{
		Label:  "Plan Nodes",
		Value:  strconv.FormatUint(an.NodeCount, 10),
		Status: status,
	})

	status = StatusGood
	switch {
	case an.ExecutionTimeMs > a.thresholds.CriticalExecMs:
		status = StatusCritical
	case an.ExecutionTimeMs > a.thresholds.SlowExecMs:
		status = StatusWarning
	}
	out = append(out, Insight{
		Label:  "Execution Time",
		Value:  fmt.Sprintf("%.1f ms", an.ExecutionTimeMs),
		Status: status,
	})

	return out
}

func relationLabel(n *Node) string {
	if n.RelationName != "" {
		return n.RelationName
	}
	return "the relation"
}

func nodeLabel(n *Node) string {
	if n.RelationName != "" {
		return n.RelationName
	}
	if n.NodeType != "" {
		return n.NodeType
	}
	return "the node"
}
