package sqlguard

import (
	"strings"
	"testing"
)

func TestCheck_AllowsSelect(t *testing.T) {
	queries := []string{
		"SELECT 1",
		"SELECT COUNT(*) FROM chat_session;",
		"select name, unit_id from user where user_id = 3",
		"SELECT u.name, SUM(c.num_of_mess) FROM user u JOIN chat_session c ON u.user_id = c.user_id GROUP BY u.name",
		"WITH top AS (SELECT user_id FROM chat_session LIMIT 5) SELECT * FROM top",
	}
	for _, q := range queries {
		if err := Check(q); err != nil {
			t.Errorf("Check(%q) = %v, want nil", q, err)
		}
	}
}

func TestCheck_BlockedKeywords(t *testing.T) {
	queries := []string{
		"DROP TABLE users;",
		"delete from user",
		"UPDATE user SET name='x'",
		"Insert INTO user VALUES (1)",
		"ALTER TABLE user ADD COLUMN x TEXT",
		"create table t (id int)",
		"TRUNCATE TABLE user",
		"REPLACE INTO user VALUES (1)",
		// Keyword smuggled inside an otherwise harmless SELECT.
		"SELECT 1; DROP TABLE users",
	}
	for _, q := range queries {
		err := Check(q)
		if err == nil {
			t.Errorf("Check(%q) = nil, want security violation", q)
			continue
		}
		if !strings.Contains(err.Error(), "security violation") {
			t.Errorf("Check(%q) = %v, want security violation reason", q, err)
		}
	}
}

func TestCheck_KeywordMustBeWholeWord(t *testing.T) {
	// "created_at" contains "create" but is not the keyword itself.
	q := "SELECT created_at, updated_count FROM chat_session"
	if err := Check(q); err != nil {
		t.Errorf("Check(%q) = %v, want nil", q, err)
	}
}

func TestCheck_EmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		if err := Check(q); err != ErrEmptyQuery {
			t.Errorf("Check(%q) = %v, want ErrEmptyQuery", q, err)
		}
	}
}

// EXPLAIN carries no blocked keyword, so rejecting it proves the statement
// type check is enforced independently of the keyword filter.
func TestCheck_NonSelectStatementType(t *testing.T) {
	queries := []string{
		"EXPLAIN SELECT 1",
		"EXPLAIN QUERY PLAN SELECT * FROM user",
	}
	for _, q := range queries {
		err := Check(q)
		if err == nil {
			t.Errorf("Check(%q) = nil, want type rejection", q)
			continue
		}
		if !strings.Contains(err.Error(), "only SELECT statements are allowed") {
			t.Errorf("Check(%q) = %v, want statement type reason", q, err)
		}
	}
}

func TestCheck_Unparseable(t *testing.T) {
	queries := []string{
		"SELEC * FORM user",
		"PRAGMA table_info(user)",
		"this is not sql at all",
	}
	for _, q := range queries {
		if err := Check(q); err == nil {
			t.Errorf("Check(%q) = nil, want parse rejection", q)
		}
	}
}

func TestCheck_MultipleStatements(t *testing.T) {
	q := "SELECT 1; SELECT 2"
	err := Check(q)
	if err == nil {
		t.Fatalf("Check(%q) = nil, want single statement rejection", q)
	}
	if !strings.Contains(err.Error(), "single statement") {
		t.Errorf("Check(%q) = %v, want single statement reason", q, err)
	}
}

func TestCheck_Idempotent(t *testing.T) {
	queries := []string{
		"SELECT COUNT(*) FROM chat_session",
		"UPDATE user SET name='x'",
		"",
	}
	for _, q := range queries {
		first := Check(q)
		for i := 0; i < 5; i++ {
			again := Check(q)
			if (first == nil) != (again == nil) {
				t.Fatalf("Check(%q) verdict changed between runs: %v then %v", q, first, again)
			}
			if first != nil && first.Error() != again.Error() {
				t.Errorf("Check(%q) reason changed: %q then %q", q, first, again)
			}
		}
	}
}
