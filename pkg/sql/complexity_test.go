package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeComplexity(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		wantScore int
		check     func(t *testing.T, c Complexity)
	}{
		{
			name:      "trivial select",
			sql:       "SELECT * FROM users",
			wantScore: 0,
		},
		{
			name:      "filtered select",
			sql:       "SELECT * FROM users WHERE id = 1",
			wantScore: 5,
			check: func(t *testing.T, c Complexity) {
				assert.True(t, c.HasWhere)
			},
		},
		{
			name:      "join with aggregate and group by",
			sql:       "SELECT u.name, COUNT(*) FROM users u JOIN orders o ON o.uid = u.id GROUP BY u.name",
			wantScore: 25,
			check: func(t *testing.T, c Complexity) {
				assert.Equal(t, 1, c.JoinCount)
				assert.Equal(t, []string{"COUNT"}, c.Aggregates)
				assert.True(t, c.HasGroupBy)
			},
		},
		{
			name:      "subquery",
			sql:       "SELECT * FROM orders WHERE uid IN (SELECT id FROM users)",
			wantScore: 20,
			check: func(t *testing.T, c Complexity) {
				assert.Equal(t, 1, c.SubqueryCount)
			},
		},
		{
			name: "kitchen sink caps at 100",
			sql: `SELECT COUNT(*), SUM(x), AVG(y), MAX(z), MIN(w)
				FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id
				JOIN d ON c.id = d.id JOIN e ON d.id = e.id
				JOIN f ON e.id = f.id JOIN g ON f.id = g.id
				WHERE x IN (SELECT x FROM h) AND y IN (SELECT y FROM i)
				GROUP BY x ORDER BY y`,
			wantScore: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := AnalyzeComplexity(tt.sql)
			assert.Equal(t, tt.wantScore, c.Score)
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestComplexityBucket(t *testing.T) {
	assert.Equal(t, "Simple", ComplexityBucket(0))
	assert.Equal(t, "Simple", ComplexityBucket(19))
	assert.Equal(t, "Medium", ComplexityBucket(20))
	assert.Equal(t, "Medium", ComplexityBucket(49))
	assert.Equal(t, "Complex", ComplexityBucket(50))
	assert.Equal(t, "Complex", ComplexityBucket(79))
	assert.Equal(t, "Very Complex", ComplexityBucket(80))
	assert.Equal(t, "Very Complex", ComplexityBucket(100))
}
