package limiter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyInjectsLimit(t *testing.T) {
	res := Apply("SELECT * FROM orders", 500, 0, false)

	assert.Equal(t, "SELECT * FROM orders LIMIT 500", res.SQL)
	assert.True(t, res.WasLimited)
	assert.False(t, res.HasOriginalLimit)
	assert.Equal(t, uint64(500), res.AppliedLimit)
	assert.Equal(t, uint64(0), res.AppliedOffset)
}

func TestApplyInjectsLimitAndOffset(t *testing.T) {
	res := Apply("SELECT * FROM orders", 100, 40, false)

	assert.Equal(t, "SELECT * FROM orders LIMIT 100 OFFSET 40", res.SQL)
	assert.True(t, res.WasLimited)
	assert.Equal(t, uint64(100), res.AppliedLimit)
	assert.Equal(t, uint64(40), res.AppliedOffset)
}

func TestApplyNonSelectUnchanged(t *testing.T) {
	statements := []string{
		"INSERT INTO t (a) VALUES (1)",
		"UPDATE t SET a = 1 WHERE id = 2",
		"UPDATE t SET a = 1 LIMIT 5",
		"DELETE FROM t",
		"CREATE TABLE t (id INT)",
		"DROP TABLE t",
		"EXPLAIN SELECT 1",
		"",
	}

	for _, sql := range statements {
		t.Run(sql, func(t *testing.T) {
			res := Apply(sql, 500, 0, false)
			assert.Equal(t, sql, res.SQL)
			assert.False(t, res.WasLimited)

			forced := Apply(sql, 500, 0, true)
			assert.Equal(t, sql, forced.SQL)
			assert.False(t, forced.WasLimited)
		})
	}
}

func TestApplyPreservesExistingLimit(t *testing.T) {
	res := Apply("SELECT * FROM t LIMIT 10", 500, 0, false)

	assert.Equal(t, "SELECT * FROM t LIMIT 10", res.SQL)
	assert.False(t, res.WasLimited)
	assert.True(t, res.HasOriginalLimit)
	assert.Equal(t, uint64(10), res.OriginalLimit)
	assert.Equal(t, uint64(10), res.AppliedLimit)
}

func TestApplyPreservesTwoArgumentForm(t *testing.T) {
	res := Apply("SELECT * FROM t LIMIT 5, 20", 500, 0, false)

	assert.Equal(t, "SELECT * FROM t LIMIT 5, 20", res.SQL)
	assert.False(t, res.WasLimited)
	assert.True(t, res.HasOriginalLimit)
	assert.Equal(t, uint64(20), res.OriginalLimit)
	assert.Equal(t, uint64(20), res.AppliedLimit)
	assert.Equal(t, uint64(5), res.AppliedOffset)
}

func TestApplyForceReplacesExistingClause(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"limit only", "SELECT * FROM t LIMIT 10", "SELECT * FROM t LIMIT 50 OFFSET 5"},
		{"limit offset", "SELECT * FROM t LIMIT 10 OFFSET 20", "SELECT * FROM t LIMIT 50 OFFSET 5"},
		{"two-argument", "SELECT * FROM t LIMIT 3, 9", "SELECT * FROM t LIMIT 50 OFFSET 5"},
		{"bare offset", "SELECT * FROM t OFFSET 30", "SELECT * FROM t LIMIT 50 OFFSET 5"},
		{"no clause", "SELECT * FROM t", "SELECT * FROM t LIMIT 50 OFFSET 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply(tt.sql, 50, 5, true)
			assert.Equal(t, tt.want, res.SQL)
			assert.True(t, res.WasLimited)
			assert.Equal(t, uint64(50), res.AppliedLimit)
			assert.Equal(t, uint64(5), res.AppliedOffset)
		})
	}
}

func TestApplyForceIsIdempotent(t *testing.T) {
	first := Apply("SELECT * FROM orders", 100, 10, true)
	second := Apply(first.SQL, 50, 0, true)

	assert.Equal(t, "SELECT * FROM orders LIMIT 50", second.SQL)
	assert.Equal(t, 1, strings.Count(second.SQL, "LIMIT"))
	assert.Equal(t, 0, strings.Count(second.SQL, "OFFSET"))
}

func TestApplyPreservesSemicolon(t *testing.T) {
	res := Apply("SELECT * FROM t;", 500, 0, false)
	assert.Equal(t, "SELECT * FROM t LIMIT 500;", res.SQL)

	res = Apply("SELECT * FROM t LIMIT 10;", 50, 0, true)
	assert.Equal(t, "SELECT * FROM t LIMIT 50;", res.SQL)

	res = Apply("SELECT * FROM t", 500, 0, false)
	assert.False(t, strings.HasSuffix(res.SQL, ";"))
}

func TestApplyStripFailureIsNoOp(t *testing.T) {
	// The descriptor sees the trailing LIMIT on normalized text, but the
	// comment keeps the strip pattern from isolating it in the original.
	sql := "SELECT * FROM t LIMIT 10 -- note"

	res := Apply(sql, 500, 0, true)

	assert.Equal(t, sql, res.SQL)
	assert.False(t, res.WasLimited)
}

func TestApplyLimitZero(t *testing.T) {
	res := Apply("SELECT * FROM t", 0, 0, false)

	assert.Equal(t, "SELECT * FROM t LIMIT 0", res.SQL)
	assert.True(t, res.WasLimited)
	assert.Equal(t, uint64(0), res.AppliedLimit)
}

func TestApplyBareOffsetComposes(t *testing.T) {
	res := Apply("SELECT * FROM t OFFSET 30", 500, 0, false)

	assert.Equal(t, "SELECT * FROM t OFFSET 30 LIMIT 500", res.SQL)
	assert.True(t, res.WasLimited)
}

func TestApplyReportsReplacedOriginal(t *testing.T) {
	res := Apply("SELECT * FROM t LIMIT 10", 50, 0, true)

	assert.True(t, res.WasLimited)
	assert.True(t, res.HasOriginalLimit)
	assert.Equal(t, uint64(10), res.OriginalLimit)
	assert.Equal(t, uint64(50), res.AppliedLimit)
}

func TestApplyStringLiteralNotAClause(t *testing.T) {
	res := Apply("SELECT * FROM t WHERE note = 'LIMIT 10 trick'", 500, 0, false)

	assert.Equal(t, "SELECT * FROM t WHERE note = 'LIMIT 10 trick' LIMIT 500", res.SQL)
	assert.True(t, res.WasLimited)
	assert.False(t, res.HasOriginalLimit)
}

func BenchmarkApply(b *testing.B) {
	sql := "SELECT o.id, o.total FROM orders o WHERE o.created_at > '2024-01-01' ORDER BY o.total DESC"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Apply(sql, 500, 0, false)
	}
}
