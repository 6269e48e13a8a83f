package pagination_test

import (
	"net/url"
	"testing"

	"github.com/finlight/appraise/pkg/pagination"
)

func testConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name     string
		in       pagination.PageRequest
		page     int
		pageSize int
	}{
		{"zero values get defaults", pagination.PageRequest{}, 1, 20},
		{"negative page clamped", pagination.PageRequest{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size clamped", pagination.PageRequest{Page: 2, PageSize: 500}, 2, 100},
		{"valid values untouched", pagination.PageRequest{Page: 4, PageSize: 50}, 4, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.Normalize(testConfig())
			if tc.in.Page != tc.page || tc.in.PageSize != tc.pageSize {
				t.Errorf("got %d/%d, want %d/%d", tc.in.Page, tc.in.PageSize, tc.page, tc.pageSize)
			}
		})
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("page_size", "10")
	values.Set("search", "acme")
	values.Set("sort", "-CreatedAt")

	req := pagination.PageRequestFromQuery(values, testConfig())

	if req.Page != 2 || req.PageSize != 10 {
		t.Errorf("page = %d/%d", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "acme" {
		t.Errorf("search = %v", req.Search)
	}
	if len(req.Sort) != 1 || req.Sort[0].Field != "CreatedAt" || !req.Sort[0].Descending {
		t.Errorf("sort = %+v", req.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	t.Run("rounds up total pages", func(t *testing.T) {
		result := pagination.NewPageResult([]int{1, 2, 3}, 41, 1, 20)
		if result.TotalPages != 3 {
			t.Errorf("total pages = %d, want 3", result.TotalPages)
		}
	})

	t.Run("empty data never nil", func(t *testing.T) {
		result := pagination.NewPageResult[int](nil, 0, 1, 20)
		if result.Data == nil {
			t.Error("data is nil, want empty slice")
		}
		if result.TotalPages != 1 {
			t.Errorf("total pages = %d, want 1", result.TotalPages)
		}
	})
}
