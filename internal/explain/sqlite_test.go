package explain

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNodeFromDetail(t *testing.T) {
	tests := []struct {
		name         string
		detail       string
		wantType     string
		wantRelation string
		wantIndex    string
		wantFilter   string
	}{
		{
			name:         "full_table_scan",
			detail:       "SCAN users",
			wantType:     "Scan",
			wantRelation: "users",
		},
		{
			name:         "legacy_scan_table_keyword",
			detail:       "SCAN TABLE users",
			wantType:     "Scan",
			wantRelation: "users",
		},
		{
			name:         "scan_with_covering_index",
			detail:       "SCAN users USING COVERING INDEX idx_users_email",
			wantType:     "Index Scan",
			wantRelation: "users",
			wantIndex:    "idx_users_email",
		},
		{
			name:         "index_search",
			detail:       "SEARCH users USING INDEX idx_users_email (email=?)",
			wantType:     "Index Search",
			wantRelation: "users",
			wantIndex:    "idx_users_email",
			wantFilter:   "email=?",
		},
		{
			name:         "primary_key_search",
			detail:       "SEARCH users USING INTEGER PRIMARY KEY (rowid=?)",
			wantType:     "Index Search",
			wantRelation: "users",
			wantIndex:    "PRIMARY KEY",
			wantFilter:   "rowid=?",
		},
		{
			name:         "automatic_index",
			detail:       "SEARCH users USING AUTOMATIC COVERING INDEX (email=?)",
			wantType:     "Index Search",
			wantRelation: "users",
			wantIndex:    "AUTOMATIC INDEX",
			wantFilter:   "email=?",
		},
		{
			name:     "temp_btree_sort",
			detail:   "USE TEMP B-TREE FOR ORDER BY",
			wantType: "Sort",
		},
		{
			name:     "materialized_cte",
			detail:   "MATERIALIZE recent_orders",
			wantType: "Materialize",
		},
		{
			name:     "list_subquery",
			detail:   "LIST SUBQUERY 2",
			wantType: "Subquery",
		},
		{
			name:     "coroutine",
			detail:   "CO-ROUTINE order_totals",
			wantType: "Subquery",
		},
		{
			name:     "compound_query",
			detail:   "COMPOUND QUERY",
			wantType: "Union",
		},
		{
			name:     "unknown_detail_preserved",
			detail:   "BLOOM FILTER ON t1",
			wantType: "BLOOM FILTER ON t1",
		},
		{
			name:         "lowercase_detail",
			detail:       "search users using index idx_email (email=?)",
			wantType:     "Index Search",
			wantRelation: "users",
			wantIndex:    "idx_email",
			wantFilter:   "email=?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nodeFromDetail(tt.detail)
			if got.NodeType != tt.wantType {
				t.Errorf("NodeType = %q, want %q", got.NodeType, tt.wantType)
			}
			if got.RelationName != tt.wantRelation {
				t.Errorf("RelationName = %q, want %q", got.RelationName, tt.wantRelation)
			}
			if got.IndexName != tt.wantIndex {
				t.Errorf("IndexName = %q, want %q", got.IndexName, tt.wantIndex)
			}
			if got.Filter != tt.wantFilter {
				t.Errorf("Filter = %q, want %q", got.Filter, tt.wantFilter)
			}
		})
	}
}

func TestBuildSQLitePlan_Tree(t *testing.T) {
	// A join under a sort, the shape SQLite emits for
	// SELECT ... JOIN ... ORDER BY without a usable index.
	entries := []eqpRow{
		{id: 4, parent: 0, detail: "SCAN orders"},
		{id: 17, parent: 0, detail: "SEARCH customers USING INTEGER PRIMARY KEY (rowid=?)"},
		{id: 30, parent: 0, detail: "USE TEMP B-TREE FOR ORDER BY"},
	}

	root, err := buildSQLitePlan(entries)
	if err != nil {
		t.Fatalf("buildSQLitePlan() error = %v", err)
	}

	// Three top-level rows wrap into a synthetic Query node.
	if root.Plan.NodeType != "Query" {
		t.Fatalf("root NodeType = %q, want Query", root.Plan.NodeType)
	}
	if len(root.Plan.Children) != 3 {
		t.Fatalf("Children = %d, want 3", len(root.Plan.Children))
	}
	if root.Plan.Children[0].NodeType != "Scan" {
		t.Errorf("child 0 = %q, want Scan", root.Plan.Children[0].NodeType)
	}
	if root.Plan.Children[2].NodeType != "Sort" {
		t.Errorf("child 2 = %q, want Sort", root.Plan.Children[2].NodeType)
	}
}

func TestBuildSQLitePlan_NestedParents(t *testing.T) {
	// Subquery rows reference their parent's id.
	entries := []eqpRow{
		{id: 2, parent: 0, detail: "SEARCH users USING INDEX idx_email (email=?)"},
		{id: 9, parent: 2, detail: "LIST SUBQUERY 1"},
		{id: 12, parent: 9, detail: "SCAN orders"},
	}

	root, err := buildSQLitePlan(entries)
	if err != nil {
		t.Fatalf("buildSQLitePlan() error = %v", err)
	}

	top := root.Plan
	if top.NodeType != "Index Search" {
		t.Fatalf("root NodeType = %q, want Index Search", top.NodeType)
	}
	if len(top.Children) != 1 || top.Children[0].NodeType != "Subquery" {
		t.Fatalf("want Index Search -> Subquery, got %+v", top.Children)
	}
	leaf := top.Children[0].Children
	if len(leaf) != 1 || leaf[0].NodeType != "Scan" || leaf[0].RelationName != "orders" {
		t.Fatalf("want Subquery -> Scan orders, got %+v", leaf)
	}
}

func TestBuildSQLitePlan_Empty(t *testing.T) {
	_, err := buildSQLitePlan(nil)
	if !errors.Is(err, ErrMalformedPlan) {
		t.Fatalf("err = %v, want ErrMalformedPlan", err)
	}
}

func TestIndexFromDetail(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		want   string
	}{
		{"simple_index", "SEARCH users USING INDEX email_idx (email=?)", "email_idx"},
		{"covering_index", "SEARCH users USING COVERING INDEX idx_email_status (email=?)", "idx_email_status"},
		{"primary_key", "SEARCH users USING INTEGER PRIMARY KEY (rowid=?)", "PRIMARY KEY"},
		{"automatic", "SEARCH users USING AUTOMATIC COVERING INDEX (email=?)", "AUTOMATIC INDEX"},
		{"no_index", "SCAN users", ""},
		{"lowercase", "search users using index email_idx (email=?)", "email_idx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := indexFromDetail(tt.detail); got != tt.want {
				t.Errorf("indexFromDetail(%q) = %q, want %q", tt.detail, got, tt.want)
			}
		})
	}
}

func TestFirstWord(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"email_idx (email=?)", "email_idx"},
		{"email_idx(email=?)", "email_idx"},
		{"  email_idx rest", "email_idx"},
		{"email_idx", "email_idx"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := firstWord(tt.input); got != tt.want {
			t.Errorf("firstWord(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSQLiteRunner_EstimateRows(t *testing.T) {
	runner := NewSQLiteRunner(nil)
	got, err := runner.EstimateRows(context.Background(), "SELECT * FROM users")
	if err != nil {
		t.Fatalf("EstimateRows() error = %v", err)
	}
	if got != 0 {
		t.Errorf("EstimateRows() = %d, want 0", got)
	}
}

func TestSQLiteRunner_Explain(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"id", "parent", "notused", "detail"}).
		AddRow(3, 0, 0, "SEARCH users USING INDEX idx_email (email=?)")
	mock.ExpectQuery("EXPLAIN QUERY PLAN SELECT * FROM users WHERE email = ?").
		WithArgs("a@example.com").
		WillReturnRows(rows)

	runner := NewSQLiteRunner(db)
	root, err := runner.Explain(context.Background(),
		"SELECT * FROM users WHERE email = ?", "a@example.com")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if root.Plan.NodeType != "Index Search" {
		t.Errorf("NodeType = %q, want Index Search", root.Plan.NodeType)
	}
	if root.Plan.IndexName != "idx_email" {
		t.Errorf("IndexName = %q, want idx_email", root.Plan.IndexName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
