package sql

import (
	"regexp"
	"strings"
)

// Complexity holds the lexical complexity metrics of a statement.
type Complexity struct {
	JoinCount     int
	SubqueryCount int
	Aggregates    []string
	HasWhere      bool
	HasGroupBy    bool
	HasOrderBy    bool
	Score         int // 0-100
}

var (
	joinPattern     = regexp.MustCompile(`\bJOIN\b`)
	subqueryPattern = regexp.MustCompile(`\(\s*SELECT\b`)
	wherePattern    = regexp.MustCompile(`\bWHERE\b`)
	groupByPattern  = regexp.MustCompile(`\bGROUP\s+BY\b`)
	orderByPattern  = regexp.MustCompile(`\bORDER\s+BY\b`)
)

var aggregateFunctions = []string{"COUNT", "SUM", "AVG", "MAX", "MIN", "GROUP_CONCAT"}

// AnalyzeComplexity scores a statement on joins, subqueries, aggregates,
// and clause usage. Scores cap at 100; buckets follow ComplexityBucket.
func AnalyzeComplexity(sqlText string) Complexity {
	upper := strings.ToUpper(sqlText)

	c := Complexity{
		JoinCount:     len(joinPattern.FindAllString(upper, -1)),
		SubqueryCount: len(subqueryPattern.FindAllString(upper, -1)),
		HasWhere:      wherePattern.MatchString(upper),
		HasGroupBy:    groupByPattern.MatchString(upper),
		HasOrderBy:    orderByPattern.MatchString(upper),
	}

	for _, fn := range aggregateFunctions {
		if strings.Contains(upper, fn+"(") {
			c.Aggregates = append(c.Aggregates, fn)
		}
	}

	score := c.JoinCount*10 + c.SubqueryCount*15 + len(c.Aggregates)*5
	if c.HasGroupBy {
		score += 10
	}
	if c.HasOrderBy {
		score += 5
	}
	if c.HasWhere {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	c.Score = score

	return c
}

// ComplexityBucket maps a score to its display level.
func ComplexityBucket(score int) string {
	switch {
	case score < 20:
		return "Simple"
	case score < 50:
		return "Medium"
	case score < 80:
		return "Complex"
	default:
		return "Very Complex"
	}
}
