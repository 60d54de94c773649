// Package sqlguard classifies candidate SQL before it is allowed anywhere
// near the database. It is a pure gate: no connection, no state, the same
// input always yields the same verdict.
package sqlguard

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	rsql "github.com/rqlite/sql"
)

// ErrEmptyQuery is returned when the candidate is empty or whitespace-only.
var ErrEmptyQuery = errors.New("sql query is empty")

// Keywords that never appear in a legitimate read query. Matched as
// case-insensitive whole words so identifiers like "created_at" pass.
var blockedKeywords = regexp.MustCompile(`(?i)\b(drop|delete|update|insert|alter|create|truncate|replace)\b`)

// Check returns nil when query is a single read-only SELECT statement.
// Anything else yields an error describing the violation. Check must be
// called before every execution; the executor never sees unchecked SQL.
func Check(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}

	if kw := blockedKeywords.FindString(query); kw != "" {
		return fmt.Errorf("security violation: keyword %s is not allowed, only SELECT queries are permitted", strings.ToUpper(kw))
	}

	parser := rsql.NewParser(strings.NewReader(query))
	stmt, err := parser.ParseStatement()
	if err != nil {
		return fmt.Errorf("cannot parse sql: %v", err)
	}
	if _, ok := stmt.(*rsql.SelectStatement); !ok {
		return fmt.Errorf("only SELECT statements are allowed, got %s", statementName(stmt))
	}
	if _, err := parser.ParseStatement(); err != io.EOF {
		return errors.New("only a single statement is allowed per query")
	}

	return nil
}

func statementName(stmt rsql.Statement) string {
	switch stmt.(type) {
	case *rsql.ExplainStatement:
		return "EXPLAIN"
	case *rsql.AnalyzeStatement:
		return "ANALYZE"
	case *rsql.BeginStatement:
		return "BEGIN"
	case *rsql.CommitStatement:
		return "COMMIT"
	case *rsql.RollbackStatement:
		return "ROLLBACK"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", stmt), "*sql.")
	}
}
