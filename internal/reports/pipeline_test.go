package reports_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finlight/appraise/internal/documents"
	"github.com/finlight/appraise/internal/extractions"
	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/pipeline"
	"github.com/finlight/appraise/internal/reports"
	"github.com/finlight/appraise/pkg/pagination"
)

// pipelineStore backs both phase systems with one shared report so the
// extraction-to-valuation handoff runs against a single state.
type pipelineStore struct {
	report  *reports.Report
	records []extractions.DocumentExtraction
}

func (p *pipelineStore) Insert(_ context.Context, owner string, documentIDs []uuid.UUID) (*reports.Report, error) {
	p.report = &reports.Report{
		ID:      uuid.New(),
		Owner:   owner,
		Status:  reports.StatusPending,
		Content: map[string]json.RawMessage{},
	}

	base := time.Now().Add(-time.Minute)
	for i, docID := range documentIDs {
		p.records = append(p.records, extractions.DocumentExtraction{
			ID:         uuid.New(),
			ReportID:   p.report.ID,
			DocumentID: docID,
			Status:     extractions.StatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			UpdatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}
	return copyReport(p.report), nil
}

func (p *pipelineStore) Find(_ context.Context, id uuid.UUID) (*reports.Report, error) {
	if p.report == nil || p.report.ID != id {
		return nil, reports.ErrNotFound
	}
	return copyReport(p.report), nil
}

func (p *pipelineStore) List(_ context.Context, page pagination.PageRequest, _ reports.Filters) (*pagination.PageResult[reports.Report], error) {
	result := pagination.NewPageResult([]reports.Report{*copyReport(p.report)}, 1, page.Page, page.PageSize)
	return &result, nil
}

func (p *pipelineStore) BeginValuation(_ context.Context, id uuid.UUID, from []reports.Status) error {
	if p.report == nil || p.report.ID != id {
		return reports.ErrNotFound
	}
	for _, status := range from {
		if p.report.Status == status {
			p.report.Status = reports.StatusValuating
			p.report.Progress = 0
			return nil
		}
	}
	if p.report.Status == reports.StatusCompleted {
		return reports.ErrAlreadyCompleted
	}
	return reports.ErrActiveRun
}

func (p *pipelineStore) SetProgress(_ context.Context, _ uuid.UUID, progress int, message string) error {
	if progress > p.report.Progress {
		p.report.Progress = progress
	}
	p.report.Message = message
	return nil
}

func (p *pipelineStore) CompleteValuation(_ context.Context, _ uuid.UUID, result json.RawMessage, message string) (*reports.Report, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(result, &sections); err != nil {
		return nil, err
	}
	for k, v := range sections {
		p.report.Content[k] = v
	}
	p.report.Status = reports.StatusCompleted
	p.report.Progress = 100
	p.report.Message = message
	p.report.Error = nil
	return copyReport(p.report), nil
}

func (p *pipelineStore) FailValuation(_ context.Context, _ uuid.UUID, message, errDesc string) error {
	p.report.Status = reports.StatusFailed
	p.report.Message = message
	p.report.Error = &errDesc
	return nil
}

func (p *pipelineStore) PatchSection(_ context.Context, _ uuid.UUID, section string, content json.RawMessage) (*reports.Report, error) {
	p.report.Content[section] = content
	return copyReport(p.report), nil
}

func (p *pipelineStore) ExtractionOutcomes(_ context.Context, _ uuid.UUID) ([]reports.ExtractionOutcome, error) {
	outcomes := make([]reports.ExtractionOutcome, len(p.records))
	for i, rec := range p.records {
		outcomes[i] = reports.ExtractionOutcome{
			DocumentID: rec.DocumentID,
			Status:     string(rec.Status),
			Facts:      rec.Facts,
		}
	}
	return outcomes, nil
}

func (p *pipelineStore) BeginRun(_ context.Context, id uuid.UUID, _ time.Time) error {
	if p.report == nil || p.report.ID != id {
		return extractions.ErrReportNotFound
	}
	switch p.report.Status {
	case reports.StatusPending, reports.StatusExtractionFailed, reports.StatusFailed:
		p.report.Status = reports.StatusExtracting
		return nil
	case reports.StatusCompleted:
		return extractions.ErrReportCompleted
	default:
		return extractions.ErrActiveRun
	}
}

func (p *pipelineStore) FinishRun(_ context.Context, _ uuid.UUID, to reports.Status, message, errDesc string) error {
	p.report.Status = to
	p.report.Message = message
	if errDesc != "" {
		p.report.Error = &errDesc
	}
	return nil
}

func (p *pipelineStore) ReportStatus(_ context.Context, id uuid.UUID) (reports.Status, error) {
	if p.report == nil || p.report.ID != id {
		return "", extractions.ErrReportNotFound
	}
	return p.report.Status, nil
}

func (p *pipelineStore) ListByReport(_ context.Context, _ uuid.UUID) ([]extractions.DocumentExtraction, error) {
	out := make([]extractions.DocumentExtraction, len(p.records))
	copy(out, p.records)
	return out, nil
}

func (p *pipelineStore) Runnable(_ context.Context, _ uuid.UUID, staleBefore time.Time) ([]extractions.DocumentExtraction, error) {
	var out []extractions.DocumentExtraction
	for _, rec := range p.records {
		switch rec.Status {
		case extractions.StatusPending, extractions.StatusFailed:
			out = append(out, rec)
		case extractions.StatusProcessing:
			if rec.UpdatedAt.Before(staleBefore) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (p *pipelineStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return p.updateRecord(id, func(rec *extractions.DocumentExtraction) {
		rec.Status = extractions.StatusProcessing
		rec.UpdatedAt = time.Now()
	})
}

func (p *pipelineStore) Complete(_ context.Context, id uuid.UUID, facts json.RawMessage) error {
	return p.updateRecord(id, func(rec *extractions.DocumentExtraction) {
		rec.Status = extractions.StatusCompleted
		rec.Facts = facts
		rec.Error = nil
	})
}

func (p *pipelineStore) Fail(_ context.Context, id uuid.UUID, errDesc string) error {
	return p.updateRecord(id, func(rec *extractions.DocumentExtraction) {
		rec.Status = extractions.StatusFailed
		rec.Error = &errDesc
	})
}

func (p *pipelineStore) updateRecord(id uuid.UUID, fn func(*extractions.DocumentExtraction)) error {
	for i := range p.records {
		if p.records[i].ID == id {
			fn(&p.records[i])
			return nil
		}
	}
	return extractions.ErrReportNotFound
}

type pipeSource struct {
	contents map[uuid.UUID][]byte
}

func (s *pipeSource) Content(_ context.Context, id uuid.UUID) (*documents.Content, error) {
	data, ok := s.contents[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return &documents.Content{Filename: "statement.pdf", ContentType: "application/pdf", Data: data}, nil
}

type pipeExtractor struct{}

func (pipeExtractor) Extract(_ context.Context, doc intelligence.DocumentPayload) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"doc": %q}`, doc.DocumentID)), nil
}

// TestPipelineRoundTrip drives a report through both phases over one shared
// state: pending, extraction run, back to pending, valuation, completed.
func TestPipelineRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &pipelineStore{}
	source := &pipeSource{contents: make(map[uuid.UUID][]byte)}

	docA, docB := uuid.New(), uuid.New()
	source.contents[docA] = []byte("pdf a")
	source.contents[docB] = []byte("pdf b")

	created, err := store.Insert(ctx, "user-1", []uuid.UUID{docA, docB})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	phaseCfg := pipeline.Config{ExtractionConcurrency: 1, StaleProcessingAfter: "15m"}
	extSys := extractions.NewSystem(store, source, pipeExtractor{}, testLogger(), phaseCfg)

	valuator := &fakeValuator{result: json.RawMessage(`{"valuation_summary": {"value": 420000}}`)}
	repSys := newTestSystem(store, valuator, phaseCfg)

	summary, err := extSys.Run(ctx, created.ID)
	if err != nil {
		t.Fatalf("extraction run: %v", err)
	}
	if !summary.Success || summary.Completed != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected run summary: %+v", summary)
	}
	if store.report.Status != reports.StatusPending {
		t.Fatalf("status after extraction = %s, want pending for handoff", store.report.Status)
	}

	r, err := repSys.Valuate(ctx, created.ID)
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}

	if r.Status != reports.StatusCompleted {
		t.Errorf("status = %s, want completed", r.Status)
	}
	if r.Progress != 100 {
		t.Errorf("progress = %d, want 100", r.Progress)
	}
	if r.Error != nil {
		t.Errorf("error = %q, want nil", *r.Error)
	}
	if len(valuator.facts) != 2 {
		t.Fatalf("valuator received %d facts, want 2", len(valuator.facts))
	}
	if string(valuator.facts[0]) != fmt.Sprintf(`{"doc": %q}`, docA) {
		t.Errorf("facts out of insertion order: %s", valuator.facts[0])
	}
	if _, ok := r.Content["valuation_summary"]; !ok {
		t.Error("valuation result missing from report content")
	}
}
