package query_test

import (
	"testing"

	"github.com/finlight/appraise/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "reports", "r").
		Project("id", "ID").
		Project("owner", "Owner").
		Project("status", "Status").
		Project("created_at", "CreatedAt")
}

func TestBuild(t *testing.T) {
	t.Run("no conditions", func(t *testing.T) {
		sql, args := query.NewBuilder(testProjection()).Build()

		want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r"
		if sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
		if len(args) != 0 {
			t.Errorf("args = %v, want none", args)
		}
	})

	t.Run("numbers parameters across conditions", func(t *testing.T) {
		status := "pending"
		owner := "user-1"

		sql, args := query.
			NewBuilder(testProjection()).
			WhereEquals("Status", &status).
			WhereEquals("Owner", &owner).
			Build()

		want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r WHERE r.status = $1 AND r.owner = $2"
		if sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
		if len(args) != 2 {
			t.Fatalf("args = %v", args)
		}
	})

	t.Run("nil values skipped", func(t *testing.T) {
		sql, args := query.
			NewBuilder(testProjection()).
			WhereEquals("Status", (*string)(nil)).
			Build()

		if len(args) != 0 {
			t.Errorf("args = %v, want none", args)
		}
		if sql != "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r" {
			t.Errorf("sql = %q", sql)
		}
	})
}

func TestBuildPage(t *testing.T) {
	sql, _ := query.
		NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		BuildPage(3, 20)

	want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r ORDER BY r.created_at DESC LIMIT 20 OFFSET 40"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestBuildCount(t *testing.T) {
	owner := "user-1"
	sql, args := query.
		NewBuilder(testProjection()).
		WhereEquals("Owner", &owner).
		BuildCount()

	want := "SELECT COUNT(*) FROM public.reports r WHERE r.owner = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}

func TestBuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).BuildSingle("ID", "abc")

	want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r WHERE r.id = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != "abc" {
		t.Errorf("args = %v", args)
	}
}

func TestWhereContains(t *testing.T) {
	name := "acme"
	sql, args := query.
		NewBuilder(testProjection()).
		WhereContains("Owner", &name).
		Build()

	want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r WHERE r.owner ILIKE $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if args[0] != "%acme%" {
		t.Errorf("args = %v", args)
	}
}

func TestWhereSearch(t *testing.T) {
	search := "acme"
	sql, args := query.
		NewBuilder(testProjection()).
		WhereSearch(&search, "Owner", "Status").
		Build()

	want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r WHERE (r.owner ILIKE $1 OR r.status ILIKE $2)"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}

func TestOrderByFieldsOverridesDefault(t *testing.T) {
	sql, _ := query.
		NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		OrderByFields([]query.SortField{{Field: "Owner"}}).
		Build()

	want := "SELECT r.id, r.owner, r.status, r.created_at FROM public.reports r ORDER BY r.owner ASC"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestParseSortFields(t *testing.T) {
	fields := query.ParseSortFields("owner,-CreatedAt")

	if len(fields) != 2 {
		t.Fatalf("fields = %v", fields)
	}
	if fields[0].Field != "owner" || fields[0].Descending {
		t.Errorf("fields[0] = %+v", fields[0])
	}
	if fields[1].Field != "CreatedAt" || !fields[1].Descending {
		t.Errorf("fields[1] = %+v", fields[1])
	}

	if got := query.ParseSortFields(""); got != nil {
		t.Errorf("empty input = %v, want nil", got)
	}
}
