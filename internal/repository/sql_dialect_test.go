package repository

import "testing"

func TestPrefixMatchConditionSQLite(t *testing.T) {
	condition, arg := prefixMatchConditionByDialect("sqlite", "serial_code", "SKN")
	if condition != "serial_code GLOB ?" || arg != "SKN*" {
		t.Fatalf("sqlite prefix condition mismatch, got %s %s", condition, arg)
	}
}

func TestPrefixMatchConditionPostgres(t *testing.T) {
	condition, arg := prefixMatchConditionByDialect("postgres", "serial_code", "SK_")
	if condition != "serial_code LIKE ?" || arg != `SK\_%` {
		t.Fatalf("postgres prefix condition mismatch, got %s %s", condition, arg)
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("A*B?"); got != "A[*]B[?]" {
		t.Fatalf("want A[*]B[?] got %s", got)
	}
}

func TestDialectNameDefaultsToSQLite(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("want sqlite got %s", got)
	}
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		page, size    int
		limit, offset int
	}{
		{page: 1, size: 50, limit: 50, offset: 0},
		{page: 3, size: 20, limit: 20, offset: 40},
		{page: 0, size: 10, limit: 10, offset: 0},
		{page: 2, size: 0, limit: 0, offset: 0},
	}
	for _, tc := range cases {
		limit, offset := pageWindow(tc.page, tc.size)
		if limit != tc.limit || offset != tc.offset {
			t.Fatalf("page=%d size=%d want %d/%d got %d/%d", tc.page, tc.size, tc.limit, tc.offset, limit, offset)
		}
	}
}
