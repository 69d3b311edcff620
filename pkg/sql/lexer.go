package sql

import (
	"fmt"
	"strings"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenPunct
	tokenString
	tokenNumber
)

// token is one lexical unit of a statement. Comments and whitespace are not
// tokenized; they survive untouched in the original text because rewriting
// works on byte ranges.
type token struct {
	kind  tokenKind
	value string // identifier value without quotes, or raw text otherwise
	quote byte   // 0 for bare identifiers, else '`', '"' or '['
	start int    // byte offset of the token in the input
	end   int    // byte offset just past the token
}

// lex splits a statement into identifier/punctuation/literal tokens following
// the quoting rules of all supported dialects: backtick (MySQL/Spark), double
// quote (Postgres/Trino), and bracket quoting. Malformed quoting is an
// ErrUnparseableIdentifier; guessing at an ambiguous identifier could leak
// another project's table.
func lex(sqlText string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(sqlText)

	for i < n {
		c := sqlText[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '-' && i+1 < n && sqlText[i+1] == '-':
			idx := strings.IndexByte(sqlText[i:], '\n')
			if idx < 0 {
				i = n
			} else {
				i += idx + 1
			}

		case c == '/' && i+1 < n && sqlText[i+1] == '*':
			idx := strings.Index(sqlText[i+2:], "*/")
			if idx < 0 {
				return nil, fmt.Errorf("%w: unterminated block comment at offset %d", apperrors.ErrUnparseableIdentifier, i)
			}
			i += idx + 4

		case c == '\'':
			end, err := scanString(sqlText, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, value: sqlText[i:end], start: i, end: end})
			i = end

		case c == '`' || c == '"':
			value, end, err := scanQuotedIdent(sqlText, i, c)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenIdent, value: value, quote: c, start: i, end: end})
			i = end

		case c == '[':
			idx := strings.IndexByte(sqlText[i+1:], ']')
			if idx < 0 {
				return nil, fmt.Errorf("%w: unterminated bracket identifier at offset %d", apperrors.ErrUnparseableIdentifier, i)
			}
			tokens = append(tokens, token{kind: tokenIdent, value: sqlText[i+1 : i+1+idx], quote: '[', start: i, end: i + idx + 2})
			i += idx + 2

		case isIdentStartByte(c):
			end := i + 1
			for end < n && isIdentByte(sqlText[end]) {
				end++
			}
			tokens = append(tokens, token{kind: tokenIdent, value: sqlText[i:end], start: i, end: end})
			i = end

		case c >= '0' && c <= '9':
			end := i + 1
			for end < n && (isIdentByte(sqlText[end]) || sqlText[end] == '.') {
				end++
			}
			tokens = append(tokens, token{kind: tokenNumber, value: sqlText[i:end], start: i, end: end})
			i = end

		default:
			tokens = append(tokens, token{kind: tokenPunct, value: sqlText[i : i+1], start: i, end: i + 1})
			i++
		}
	}

	return tokens, nil
}

// scanString scans a single-quoted literal starting at offset i, honoring
// both the doubled-quote ('') and backslash escapes.
func scanString(sqlText string, i int) (int, error) {
	j := i + 1
	n := len(sqlText)
	for j < n {
		switch sqlText[j] {
		case '\\':
			j += 2
		case '\'':
			if j+1 < n && sqlText[j+1] == '\'' {
				j += 2
				continue
			}
			return j + 1, nil
		default:
			j++
		}
	}
	return 0, fmt.Errorf("%w: unterminated string literal at offset %d", apperrors.ErrUnparseableIdentifier, i)
}

// scanQuotedIdent scans a backtick- or double-quote-delimited identifier,
// honoring the doubled-delimiter escape.
func scanQuotedIdent(sqlText string, i int, quote byte) (string, int, error) {
	var value strings.Builder
	j := i + 1
	n := len(sqlText)
	for j < n {
		if sqlText[j] == quote {
			if j+1 < n && sqlText[j+1] == quote {
				value.WriteByte(quote)
				j += 2
				continue
			}
			return value.String(), j + 1, nil
		}
		value.WriteByte(sqlText[j])
		j++
	}
	return "", 0, fmt.Errorf("%w: unterminated quoted identifier at offset %d", apperrors.ErrUnparseableIdentifier, i)
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStartByte(b) || (b >= '0' && b <= '9') || b == '$'
}
