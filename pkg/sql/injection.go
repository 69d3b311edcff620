package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a parameter value that matched a SQL
// injection fingerprint.
type InjectionCheckResult struct {
	Position    int    // zero-based index of the offending parameter
	Fingerprint string // libinjection fingerprint of the detected pattern
	Value       string // the string value that was checked
}

// CheckParameters screens positional parameter values for SQL injection
// patterns before they reach a backend. Only string values are checked;
// numbers and booleans can't contain injection payloads.
//
// Returns one result per offending parameter; an empty slice means all
// parameters are clean.
func CheckParameters(params []any) []InjectionCheckResult {
	var results []InjectionCheckResult
	for i, p := range params {
		strValue, ok := p.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(strValue); isSQLi {
			results = append(results, InjectionCheckResult{
				Position:    i,
				Fingerprint: string(fingerprint),
				Value:       strValue,
			})
		}
	}
	return results
}
