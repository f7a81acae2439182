package explain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestParseMySQLPlan(t *testing.T) {
	tests := []struct {
		name      string
		jsonInput string
		wantErr   bool
		check     func(t *testing.T, top *planRootCheck)
	}{
		{
			name: "single_full_scan",
			jsonInput: `{
				"query_block": {
					"select_id": 1,
					"cost_info": {"query_cost": "105.25"},
					"table": {
						"table_name": "users",
						"access_type": "ALL",
						"rows_examined_per_scan": 1000,
						"rows_produced_per_join": 1000,
						"cost_info": {"prefix_cost": "105.25"}
					}
				}
			}`,
			check: func(t *testing.T, got *planRootCheck) {
				if got.top.NodeType != "Table Scan" {
					t.Errorf("NodeType = %q, want Table Scan", got.top.NodeType)
				}
				if got.top.RelationName != "users" {
					t.Errorf("RelationName = %q, want users", got.top.RelationName)
				}
				if got.top.PlanRows != 1000 {
					t.Errorf("PlanRows = %d, want 1000", got.top.PlanRows)
				}
				if got.top.TotalCost != 105.25 {
					t.Errorf("TotalCost = %v, want 105.25", got.top.TotalCost)
				}
			},
		},
		{
			name: "index_lookup",
			jsonInput: `{
				"query_block": {
					"select_id": 1,
					"table": {
						"table_name": "users",
						"access_type": "ref",
						"key": "idx_users_email",
						"rows_examined_per_scan": 1,
						"rows_produced_per_join": 1,
						"cost_info": {"prefix_cost": "0.35"}
					}
				}
			}`,
			check: func(t *testing.T, got *planRootCheck) {
				if got.top.NodeType != "Index Lookup" {
					t.Errorf("NodeType = %q, want Index Lookup", got.top.NodeType)
				}
				if got.top.IndexName != "idx_users_email" {
					t.Errorf("IndexName = %q, want idx_users_email", got.top.IndexName)
				}
			},
		},
		{
			name: "nested_loop_join",
			jsonInput: `{
				"query_block": {
					"select_id": 1,
					"cost_info": {"query_cost": "850.00"},
					"nested_loop": [
						{"table": {
							"table_name": "orders",
							"access_type": "ALL",
							"rows_examined_per_scan": 5000,
							"rows_produced_per_join": 5000,
							"cost_info": {"prefix_cost": "520.00"}
						}},
						{"table": {
							"table_name": "customers",
							"access_type": "eq_ref",
							"key": "PRIMARY",
							"rows_examined_per_scan": 1,
							"rows_produced_per_join": 5000,
							"cost_info": {"prefix_cost": "850.00"}
						}}
					]
				}
			}`,
			check: func(t *testing.T, got *planRootCheck) {
				if got.top.NodeType != "Nested Loop" {
					t.Errorf("NodeType = %q, want Nested Loop", got.top.NodeType)
				}
				if len(got.top.Children) != 2 {
					t.Fatalf("Children = %d, want 2", len(got.top.Children))
				}
				if got.top.TotalCost != 850.00 {
					t.Errorf("TotalCost = %v, want last prefix cost 850.00", got.top.TotalCost)
				}
				if got.top.Children[0].NodeType != "Table Scan" {
					t.Errorf("child 0 NodeType = %q, want Table Scan", got.top.Children[0].NodeType)
				}
				if got.top.Children[1].IndexName != "PRIMARY" {
					t.Errorf("child 1 IndexName = %q, want PRIMARY", got.top.Children[1].IndexName)
				}
			},
		},
		{
			name: "ordering_over_grouping",
			jsonInput: `{
				"query_block": {
					"select_id": 1,
					"ordering_operation": {
						"using_filesort": true,
						"grouping_operation": {
							"using_temporary_table": true,
							"using_filesort": false,
							"table": {
								"table_name": "events",
								"access_type": "index",
								"key": "idx_events_day",
								"rows_examined_per_scan": 90000,
								"rows_produced_per_join": 90000,
								"cost_info": {"prefix_cost": "9021.00"}
							}
						}
					}
				}
			}`,
			check: func(t *testing.T, got *planRootCheck) {
				if got.top.NodeType != "Sort" {
					t.Fatalf("NodeType = %q, want Sort", got.top.NodeType)
				}
				if len(got.top.Children) != 1 || got.top.Children[0].NodeType != "Aggregate" {
					t.Fatalf("want Sort -> Aggregate, got %+v", got.top.Children)
				}
				leaf := got.top.Children[0].Children[0]
				if leaf.NodeType != "Index Scan" || leaf.RelationName != "events" {
					t.Errorf("leaf = %q on %q, want Index Scan on events", leaf.NodeType, leaf.RelationName)
				}
			},
		},
		{
			name:      "no_table_access",
			jsonInput: `{"query_block": {"select_id": 1}}`,
			wantErr:   true,
		},
		{
			name:      "not_json",
			jsonInput: `-> Table scan on users (cost=105 rows=1000)`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := parseMySQLPlan(tt.jsonInput)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPlan) {
					t.Fatalf("err = %v, want ErrMalformedPlan", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMySQLPlan() error = %v", err)
			}
			tt.check(t, &planRootCheck{top: root.Plan})
		})
	}
}

func TestSumExaminedRows(t *testing.T) {
	tests := []struct {
		name      string
		jsonInput string
		want      uint64
	}{
		{
			name: "single_table",
			jsonInput: `{
				"query_block": {
					"table": {"table_name": "users", "rows_examined_per_scan": 1500}
				}
			}`,
			want: 1500,
		},
		{
			name: "join_sums_tables",
			jsonInput: `{
				"query_block": {
					"nested_loop": [
						{"table": {"table_name": "a", "rows_examined_per_scan": 5000}},
						{"table": {"table_name": "b", "rows_examined_per_scan": 3}}
					]
				}
			}`,
			want: 5003,
		},
		{
			name: "ordering_and_grouping_wrappers",
			jsonInput: `{
				"query_block": {
					"ordering_operation": {
						"grouping_operation": {
							"table": {"table_name": "events", "rows_examined_per_scan": 90000}
						}
					}
				}
			}`,
			want: 90000,
		},
		{
			name:      "no_tables",
			jsonInput: `{"query_block": {"select_id": 1}}`,
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload mysqlExplainRoot
			if err := json.Unmarshal([]byte(tt.jsonInput), &payload); err != nil {
				t.Fatalf("fixture does not parse: %v", err)
			}
			if got := sumExaminedRows(&payload.QueryBlock); got != tt.want {
				t.Errorf("sumExaminedRows() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCostValue(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"105.25", 105.25},
		{"0.00", 0},
		{"", 0},
		{"not a number", 0},
	}
	for _, tt := range tests {
		if got := costValue(tt.input); got != tt.want {
			t.Errorf("costValue(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestMySQLRunner_EstimateRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	fixture := `{
		"query_block": {
			"nested_loop": [
				{"table": {"table_name": "orders", "access_type": "ALL", "rows_examined_per_scan": 120000}},
				{"table": {"table_name": "customers", "access_type": "eq_ref", "rows_examined_per_scan": 1}}
			]
		}
	}`
	mock.ExpectQuery("EXPLAIN FORMAT=JSON SELECT * FROM orders JOIN customers").
		WillReturnRows(sqlmock.NewRows([]string{"EXPLAIN"}).AddRow(fixture))

	runner := NewMySQLRunner(db)
	got, err := runner.EstimateRows(context.Background(), "SELECT * FROM orders JOIN customers")
	if err != nil {
		t.Fatalf("EstimateRows() error = %v", err)
	}
	if got != 120001 {
		t.Errorf("EstimateRows() = %d, want 120001", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMySQLRunner_ExplainAnalyzeFallsBackToExplain(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	fixture := `{"query_block": {"table": {"table_name": "users", "access_type": "ALL"}}}`
	mock.ExpectQuery("EXPLAIN FORMAT=JSON SELECT * FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"EXPLAIN"}).AddRow(fixture))

	runner := NewMySQLRunner(db)
	root, err := runner.ExplainAnalyze(context.Background(), "SELECT * FROM users")
	if err != nil {
		t.Fatalf("ExplainAnalyze() error = %v", err)
	}
	if root.ExecutionTimeMs != 0 {
		t.Errorf("ExecutionTimeMs = %v, want 0 for estimate-only capture", root.ExecutionTimeMs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
