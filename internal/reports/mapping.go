package reports

import (
	"encoding/json"
	"net/url"

	"github.com/finlight/appraise/pkg/query"
	"github.com/finlight/appraise/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "reports", "r").
	Project("id", "ID").
	Project("owner", "Owner").
	Project("status", "Status").
	Project("progress", "Progress").
	Project("message", "Message").
	Project("error", "Error").
	Project("content", "Content").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for report queries.
// Nil fields are ignored; both use exact matching.
type Filters struct {
	Status *string `json:"status,omitempty"`
	Owner  *string `json:"owner,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Owner", f.Owner)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if o := values.Get("owner"); o != "" {
		f.Owner = &o
	}

	return f
}

func scanReport(s repository.Scanner) (Report, error) {
	var (
		r       Report
		content []byte
	)

	err := s.Scan(
		&r.ID,
		&r.Owner,
		&r.Status,
		&r.Progress,
		&r.Message,
		&r.Error,
		&content,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}

	if len(content) > 0 {
		if err := json.Unmarshal(content, &r.Content); err != nil {
			return r, err
		}
	}

	if r.Content == nil {
		r.Content = map[string]json.RawMessage{}
	}

	return r, nil
}
