package sql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
)

// Physical table names are "proj_<project-token>__<logical>". The project
// token is the project UUID without dashes, so it can never contain the
// "__" separator, and logical names starting with "proj_" are rejected,
// which makes the encoding injective and reversible.
const (
	isolationPrefix    = "proj_"
	isolationSeparator = "__"
)

var logicalNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ProjectToken returns the fixed-format token encoding a project ID inside
// physical table names.
func ProjectToken(projectID uuid.UUID) string {
	return strings.ReplaceAll(projectID.String(), "-", "")
}

// TablePrefix returns the physical-name prefix shared by every table the
// project owns. Schema discovery matches on this prefix.
func TablePrefix(projectID uuid.UUID) string {
	return isolationPrefix + ProjectToken(projectID) + isolationSeparator
}

// IsolatedName maps a (project, logical table) pair to its physical table
// name. The mapping is a pure function of its inputs: the same pair always
// yields the same physical name, and distinct projects can never collide.
func IsolatedName(projectID uuid.UUID, logical string) (string, error) {
	if err := validateLogicalName(logical); err != nil {
		return "", err
	}
	return TablePrefix(projectID) + logical, nil
}

// LogicalName recovers the logical table name from a physical one. Returns
// false for names that do not carry the isolation prefix.
func LogicalName(physical string) (string, bool) {
	if !strings.HasPrefix(physical, isolationPrefix) {
		return "", false
	}
	rest := physical[len(isolationPrefix):]
	idx := strings.Index(rest, isolationSeparator)
	if idx <= 0 {
		return "", false
	}
	logical := rest[idx+len(isolationSeparator):]
	if logical == "" {
		return "", false
	}
	return logical, true
}

func validateLogicalName(logical string) error {
	if !logicalNamePattern.MatchString(logical) {
		return fmt.Errorf("%w: invalid table name %q", apperrors.ErrValidation, logical)
	}
	if strings.HasPrefix(strings.ToLower(logical), isolationPrefix) {
		return fmt.Errorf("%w: table name %q uses the reserved %q prefix", apperrors.ErrValidation, logical, isolationPrefix)
	}
	return nil
}

// RewriteResult is the outcome of isolation rewriting.
type RewriteResult struct {
	// SQL is the statement with project-owned table references replaced by
	// their physical isolated names.
	SQL string
	// Tables lists the referenced logical table names in order of first
	// reference, deduplicated.
	Tables []string
}

// Rewrite renames every project-owned table reference in the statement to
// its isolated physical name. A reference is project-owned when it is
// unqualified or qualified by the project's own logical database; references
// qualified with any other catalog or schema are intentional federation and
// pass through untouched. Keywords, string literals, and comments are never
// rewritten.
func Rewrite(projectID uuid.UUID, database string, sqlText string) (*RewriteResult, error) {
	w := tableWalker{database: database}
	if err := w.walk(sqlText); err != nil {
		return nil, err
	}

	var replacements []replacement
	tables := make([]string, 0, len(w.refs))
	seen := make(map[string]struct{})

	for _, ref := range w.refs {
		if err := validateLogicalName(ref.tok.value); err != nil {
			return nil, err
		}
		physical, err := IsolatedName(projectID, ref.tok.value)
		if err != nil {
			return nil, err
		}
		replacements = append(replacements, replacement{
			start: ref.tok.start,
			end:   ref.tok.end,
			text:  quoteLike(ref.tok, physical),
		})
		if _, dup := seen[ref.tok.value]; !dup {
			seen[ref.tok.value] = struct{}{}
			tables = append(tables, ref.tok.value)
		}
	}

	// Column references qualified by a renamed table ("users.id" after
	// "FROM users") must follow the rename or the statement stops resolving.
	for i, t := range w.tokens {
		if t.kind != tokenIdent || isReservedWord(t) {
			continue
		}
		if _, isTable := seen[t.value]; !isTable {
			continue
		}
		prevIsDot := i > 0 && w.tokens[i-1].kind == tokenPunct && w.tokens[i-1].value == "."
		nextIsDot := i+2 < len(w.tokens) &&
			w.tokens[i+1].kind == tokenPunct && w.tokens[i+1].value == "." &&
			w.tokens[i+2].kind == tokenIdent
		if prevIsDot || !nextIsDot {
			continue
		}
		physical, err := IsolatedName(projectID, t.value)
		if err != nil {
			return nil, err
		}
		replacements = append(replacements, replacement{
			start: t.start,
			end:   t.end,
			text:  quoteLike(t, physical),
		})
	}

	return &RewriteResult{SQL: applyReplacements(sqlText, replacements), Tables: tables}, nil
}

// ExtractTables returns the logical table names a statement references,
// using the same lexical walk as Rewrite but without renaming anything.
// Qualified references are reported by their bare table name.
func ExtractTables(sqlText string) ([]string, error) {
	w := tableWalker{database: "", includeForeign: true}
	if err := w.walk(sqlText); err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(w.refs))
	seen := make(map[string]struct{})
	for _, ref := range w.refs {
		name := ref.tok.value
		if logical, ok := LogicalName(name); ok {
			name = logical
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// tableRef is one table reference found in table position.
type tableRef struct {
	tok token // the table-name token itself (last part of a qualified chain)
}

// tableWalker scans a token stream for identifiers in table position:
// after FROM, JOIN, INTO, statement-leading UPDATE, TABLE (with optional
// IF [NOT] EXISTS), and RENAME ... TO. Within a FROM list, a comma re-arms
// table position so "FROM a, b" catches both names.
type tableWalker struct {
	database string
	// includeForeign collects references qualified by foreign catalogs too
	// (used for extraction, never for rewriting).
	includeForeign bool

	tokens []token
	refs   []tableRef
	// ctes holds the lowercased names a leading WITH clause introduces.
	// Those names are statement-local and never project tables.
	ctes map[string]struct{}
}

func (w *tableWalker) walk(sqlText string) error {
	tokens, err := lex(sqlText)
	if err != nil {
		return err
	}
	w.tokens = tokens
	w.ctes = leadingCTENames(tokens)

	expectTable := false
	armedBy := ""
	inFromList := false
	prevKeyword := ""

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]

		if t.kind == tokenIdent && isReservedWord(t) {
			kw := strings.ToUpper(t.value)
			switch kw {
			case "FROM":
				expectTable = true
				armedBy = kw
				inFromList = true
			case "JOIN", "INTO", "TABLE", "REFERENCES":
				expectTable = true
				armedBy = kw
			case "UPDATE":
				// Only statement-leading UPDATE names a table;
				// "ON DUPLICATE KEY UPDATE" introduces assignments.
				if prevKeyword == "" {
					expectTable = true
					armedBy = kw
				}
			case "TO":
				if prevKeyword == "RENAME" {
					expectTable = true
					armedBy = kw
				}
			case "IF", "NOT", "EXISTS":
				// CREATE TABLE IF NOT EXISTS t / DROP TABLE IF EXISTS t:
				// stay armed through the existence guard.
			case "SELECT", "WHERE", "GROUP", "ORDER", "HAVING", "LIMIT",
				"OFFSET", "ON", "USING", "SET", "VALUES", "UNION", "EXCEPT",
				"INTERSECT", "WHEN", "RETURNING", "WINDOW", "FETCH":
				expectTable = false
				inFromList = false
			default:
				expectTable = false
			}
			prevKeyword = kw
			continue
		}

		if expectTable && t.kind == tokenIdent {
			chain := []token{t}
			j := i
			for j+2 < len(tokens) &&
				tokens[j+1].kind == tokenPunct && tokens[j+1].value == "." &&
				tokens[j+2].kind == tokenIdent {
				chain = append(chain, tokens[j+2])
				j += 2
			}

			// In FROM/JOIN position an identifier glued to "(" is a table
			// function (UNNEST, generate_series, ...), not a table name.
			isCall := len(chain) == 1 &&
				(armedBy == "FROM" || armedBy == "JOIN") &&
				j+1 < len(tokens) &&
				tokens[j+1].kind == tokenPunct && tokens[j+1].value == "(" &&
				tokens[j+1].start == t.end

			// An unqualified name matching a CTE resolves to the CTE,
			// not to a table.
			isCTE := len(chain) == 1 && w.isCTE(t)

			if !isCall && !isCTE {
				if w.owned(chain) || w.includeForeign {
					w.refs = append(w.refs, tableRef{tok: chain[len(chain)-1]})
				}
			}

			i = j
			expectTable = false
			continue
		}

		if t.kind == tokenPunct {
			switch t.value {
			case ",":
				if inFromList {
					expectTable = true
					armedBy = "FROM"
				}
			case "(":
				// FROM ( SELECT ... ): stay armed; the SELECT keyword
				// disarms on the next iteration.
			case ";":
				expectTable = false
				inFromList = false
				prevKeyword = ""
			}
		}
	}

	return nil
}

func (w *tableWalker) isCTE(t token) bool {
	_, ok := w.ctes[strings.ToLower(t.value)]
	return ok
}

// leadingCTENames collects the names a statement-leading WITH clause
// introduces: WITH [RECURSIVE] name [(cols)] AS ( body ) [, name2 ...].
// Collection stops at the first shape that is not a CTE definition; whatever
// was gathered up to that point still shadows table names.
func leadingCTENames(tokens []token) map[string]struct{} {
	if len(tokens) == 0 || tokens[0].kind != tokenIdent || !strings.EqualFold(tokens[0].value, "WITH") {
		return nil
	}

	names := make(map[string]struct{})
	i := 1
	if i < len(tokens) && tokens[i].kind == tokenIdent && strings.EqualFold(tokens[i].value, "RECURSIVE") {
		i++
	}

	for i < len(tokens) {
		if tokens[i].kind != tokenIdent || isReservedWord(tokens[i]) {
			break
		}
		names[strings.ToLower(tokens[i].value)] = struct{}{}
		i++

		// Optional column list: name (a, b) AS (...).
		if i < len(tokens) && tokens[i].kind == tokenPunct && tokens[i].value == "(" {
			i = skipParens(tokens, i)
		}
		if i >= len(tokens) || tokens[i].kind != tokenIdent || !strings.EqualFold(tokens[i].value, "AS") {
			break
		}
		i++
		if i >= len(tokens) || tokens[i].kind != tokenPunct || tokens[i].value != "(" {
			break
		}
		i = skipParens(tokens, i)

		if i < len(tokens) && tokens[i].kind == tokenPunct && tokens[i].value == "," {
			i++
			continue
		}
		break
	}

	return names
}

// skipParens advances past a balanced parenthesized group starting at i.
func skipParens(tokens []token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		if tokens[i].kind != tokenPunct {
			continue
		}
		switch tokens[i].value {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

// owned reports whether a (possibly qualified) reference belongs to the
// project's own namespace. Unqualified names are owned; qualified names are
// owned only when the schema qualifier is the project's logical database.
func (w *tableWalker) owned(chain []token) bool {
	switch len(chain) {
	case 1:
		return true
	case 2:
		return strings.EqualFold(chain[0].value, w.database)
	case 3:
		return strings.EqualFold(chain[1].value, w.database)
	default:
		return false
	}
}

type replacement struct {
	start, end int
	text       string
}

func applyReplacements(sqlText string, replacements []replacement) string {
	if len(replacements) == 0 {
		return sqlText
	}
	sort.Slice(replacements, func(i, j int) bool { return replacements[i].start < replacements[j].start })

	var b strings.Builder
	last := 0
	for _, r := range replacements {
		b.WriteString(sqlText[last:r.start])
		b.WriteString(r.text)
		last = r.end
	}
	b.WriteString(sqlText[last:])
	return b.String()
}

// quoteLike renders a physical name in the same quoting style as the token
// it replaces.
func quoteLike(t token, name string) string {
	switch t.quote {
	case '`':
		return "`" + name + "`"
	case '"':
		return `"` + name + `"`
	case '[':
		return "[" + name + "]"
	default:
		return name
	}
}
