// Package parser lays out and highlights SQL text for echoing statements
// back to the terminal. It does not validate SQL.
package parser

import (
	"regexp"
	"strings"

	"github.com/kendallb/PhalangerMySql/internal/styles"
)

// Clauses that start a new line, longest first so compound forms win.
var clauseKeywords = []string{
	"FULL OUTER JOIN", "LEFT OUTER JOIN", "RIGHT OUTER JOIN",
	"LEFT JOIN", "RIGHT JOIN", "INNER JOIN", "FULL JOIN", "CROSS JOIN",
	"INSERT INTO", "DELETE FROM", "GROUP BY", "ORDER BY", "ON DUPLICATE KEY UPDATE",
	"UNION ALL", "SELECT", "FROM", "WHERE", "HAVING",
	"LIMIT", "OFFSET", "UNION", "UPDATE", "VALUES", "SET",
}

var highlightKeywords = []string{
	"SELECT", "FROM", "WHERE", "JOIN", "LEFT", "RIGHT", "INNER", "FULL", "CROSS", "OUTER",
	"ON", "GROUP", "BY", "HAVING", "ORDER", "LIMIT", "OFFSET", "UNION", "ALL",
	"INSERT", "INTO", "UPDATE", "DELETE", "VALUES", "SET", "AND", "OR", "NOT",
	"IN", "EXISTS", "BETWEEN", "LIKE", "IS", "NULL", "DISTINCT", "AS",
	"CASE", "WHEN", "THEN", "ELSE", "END", "SHOW", "GLOBAL", "VARIABLES", "USE",
	"DUPLICATE", "KEY", "ASC", "DESC",
}

var (
	clausePattern  = keywordPattern(clauseKeywords)
	keywordMatcher = keywordPattern(highlightKeywords)
)

func keywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

type segment struct {
	text   string
	quoted bool
}

// split cuts sql into runs of plain text and quoted literals or
// identifiers. An unterminated quote runs to the end of the input.
func split(sql string) []segment {
	var segments []segment
	start := 0
	for i := 0; i < len(sql); i++ {
		q := sql[i]
		if q != '\'' && q != '"' && q != '`' {
			continue
		}
		if i > start {
			segments = append(segments, segment{text: sql[start:i]})
		}
		end := len(sql)
		for j := i + 1; j < len(sql); j++ {
			if sql[j] == '\\' && q != '`' {
				j++
				continue
			}
			if sql[j] == q {
				end = j + 1
				break
			}
		}
		segments = append(segments, segment{text: sql[i:end], quoted: true})
		start = end
		i = end - 1
	}
	if start < len(sql) {
		segments = append(segments, segment{text: sql[start:]})
	}
	return segments
}

// Format puts each major clause of sql on its own line and collapses runs
// of whitespace. Keywords inside quotes never start a clause.
func Format(sql string) string {
	var b strings.Builder
	for _, seg := range split(sql) {
		if seg.quoted {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(clausePattern.ReplaceAllStringFunc(seg.text, func(match string) string {
			return "\n" + match + " "
		}))
	}

	lines := strings.Split(b.String(), "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		if trimmed := strings.Join(strings.Fields(line), " "); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}

// Highlight styles keywords and string literals.
func Highlight(sql string) string {
	var b strings.Builder
	for _, seg := range split(sql) {
		if seg.quoted {
			if seg.text[0] == '`' {
				b.WriteString(seg.text)
			} else {
				b.WriteString(styles.SQLString.Render(seg.text))
			}
			continue
		}
		b.WriteString(keywordMatcher.ReplaceAllStringFunc(seg.text, func(m string) string { return styles.SQLKeyword.Render(m) }))
	}
	return b.String()
}
