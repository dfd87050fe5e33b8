package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsRetryableTxErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "40001"}), true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"mysql deadlock", errors.New("Error 1213: Deadlock found"), true},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableTxErr(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestNewTestIsolated(t *testing.T) {
	a, err := NewTest()
	if err != nil {
		t.Fatalf("NewTest: %v", err)
	}
	b, err := NewTest()
	if err != nil {
		t.Fatalf("NewTest: %v", err)
	}
	if err := a.Exec("CREATE TABLE probe (id INTEGER)").Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Migrator().HasTable("probe") {
		t.Fatalf("databases should not share tables")
	}
}

func TestDialectRejectsUnknownType(t *testing.T) {
	if _, err := Dialect(Config{Type: "oracle"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Dialect(Config{Type: "postgres"}); err != nil {
		t.Fatalf("postgres dialect: %v", err)
	}
}
