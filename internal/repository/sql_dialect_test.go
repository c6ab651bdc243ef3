package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/pulseopti/hrflow/internal/config"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

func TestPlaceholderPerDialect(t *testing.T) {
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_POSTGRES)
	if got := placeholder(3); got != "$3" {
		t.Errorf("postgres placeholder = %s, want $3", got)
	}
	if !supportsReturning() {
		t.Error("postgres should support RETURNING")
	}

	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_MYSQL)
	if got := placeholder(3); got != "?" {
		t.Errorf("mysql placeholder = %s, want ?", got)
	}
	if supportsReturning() {
		t.Error("mysql must not use RETURNING")
	}
}

func TestFormatDateInDatabase(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 30, 15, 123456789, time.UTC)

	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)
	if got := formatDateInDatabase(ts); got != "2025-03-01 09:30:15.123" {
		t.Errorf("sqlite format = %s", got)
	}

	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_MYSQL)
	if got := formatDateInDatabase(ts); got != "2025-03-01 09:30:15.123456" {
		t.Errorf("mysql format = %s", got)
	}

	if v := formatDateInDatabaseNull(sql.NullTime{}); v != nil {
		t.Errorf("null time should bind as NULL, got %v", v)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres other", &pq.Error{Code: "23503"}, false},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1451}, false},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite other constraint", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"plain", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Errorf("%s: isUniqueViolation = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBuildInstanceWhereClause_CompanyAlwaysFirst(t *testing.T) {
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)

	where, args := buildInstanceWhereClause(models.SearchInstancesRequest{CompanyID: "acme"})
	if where != " WHERE company_id = ?" {
		t.Errorf("unexpected clause: %q", where)
	}
	if len(args) != 1 || args[0] != "acme" {
		t.Errorf("unexpected args: %v", args)
	}

	where, args = buildInstanceWhereClause(models.SearchInstancesRequest{
		CompanyID: "acme",
		Type:      "leave",
		Status:    "active",
	})
	if where != " WHERE company_id = ? AND type = ? AND status = ?" {
		t.Errorf("unexpected clause: %q", where)
	}
	if len(args) != 3 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildHistoryWhereClause_DateRange(t *testing.T) {
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)

	where, args := buildHistoryWhereClause(models.HistoryQuery{
		CompanyID: "acme",
		Action:    "approved",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	want := " WHERE company_id = ? AND action = ? AND created >= ? AND created <= ?"
	if where != want {
		t.Errorf("clause = %q, want %q", where, want)
	}
	if len(args) != 4 {
		t.Errorf("unexpected args: %v", args)
	}
}
