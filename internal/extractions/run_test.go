package extractions_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finlight/appraise/internal/documents"
	"github.com/finlight/appraise/internal/extractions"
	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/pipeline"
	"github.com/finlight/appraise/internal/reports"
)

type fakeStore struct {
	mu sync.Mutex

	reportID        uuid.UUID
	reportStatus    reports.Status
	reportUpdatedAt time.Time
	records         []extractions.DocumentExtraction

	finishedTo  reports.Status
	finishedMsg string
	finishedErr string
}

func (f *fakeStore) BeginRun(_ context.Context, reportID uuid.UUID, staleBefore time.Time) error {
	if reportID != f.reportID {
		return extractions.ErrReportNotFound
	}
	switch f.reportStatus {
	case reports.StatusPending, reports.StatusExtractionFailed, reports.StatusFailed:
		f.reportStatus = reports.StatusExtracting
		f.reportUpdatedAt = time.Now()
		return nil
	case reports.StatusExtracting:
		if f.reportUpdatedAt.Before(staleBefore) {
			f.reportUpdatedAt = time.Now()
			return nil
		}
		return extractions.ErrActiveRun
	case reports.StatusCompleted:
		return extractions.ErrReportCompleted
	default:
		return extractions.ErrActiveRun
	}
}

func (f *fakeStore) FinishRun(ctx context.Context, _ uuid.UUID, to reports.Status, message, errDesc string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.reportStatus = to
	f.finishedTo = to
	f.finishedMsg = message
	f.finishedErr = errDesc
	return nil
}

func (f *fakeStore) ReportStatus(_ context.Context, reportID uuid.UUID) (reports.Status, error) {
	if reportID != f.reportID {
		return "", extractions.ErrReportNotFound
	}
	return f.reportStatus, nil
}

func (f *fakeStore) ListByReport(_ context.Context, _ uuid.UUID) ([]extractions.DocumentExtraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]extractions.DocumentExtraction, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStore) Runnable(_ context.Context, _ uuid.UUID, staleBefore time.Time) ([]extractions.DocumentExtraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []extractions.DocumentExtraction
	for _, rec := range f.records {
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

func (f *fakeStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return f.update(id, func(rec *extractions.DocumentExtraction) {
		rec.Status = extractions.StatusProcessing
		rec.UpdatedAt = time.Now()
	})
}

func (f *fakeStore) Complete(_ context.Context, id uuid.UUID, facts json.RawMessage) error {
	return f.update(id, func(rec *extractions.DocumentExtraction) {
		rec.Status = extractions.StatusCompleted
		rec.Facts = facts
		rec.Error = nil
	})
}

func (f *fakeStore) Fail(ctx context.Context, id uuid.UUID, errDesc string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.update(id, func(rec *extractions.DocumentExtraction) {
		rec.Status = extractions.StatusFailed
		rec.Error = &errDesc
	})
}

func (f *fakeStore) update(id uuid.UUID, fn func(*extractions.DocumentExtraction)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			fn(&f.records[i])
			return nil
		}
	}
	return errors.New("record not found")
}

type fakeSource struct {
	contents map[uuid.UUID][]byte
}

func (f *fakeSource) Content(_ context.Context, id uuid.UUID) (*documents.Content, error) {
	data, ok := f.contents[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return &documents.Content{
		Filename:    "statement.pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

type fakeExtractor struct {
	mu     sync.Mutex
	seen   []uuid.UUID
	fails  map[uuid.UUID]error
	cancel context.CancelFunc
}

func (f *fakeExtractor) Extract(ctx context.Context, doc intelligence.DocumentPayload) (json.RawMessage, error) {
	f.mu.Lock()
	f.seen = append(f.seen, doc.DocumentID)
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		return nil, ctx.Err()
	}
	if err, ok := f.fails[doc.DocumentID]; ok {
		return nil, err
	}
	return json.RawMessage(fmt.Sprintf(`{"doc": %q}`, doc.DocumentID)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultConfig() pipeline.Config {
	return pipeline.Config{
		ExtractionConcurrency: 1,
		StaleProcessingAfter:  "15m",
	}
}

func seedRun(docCount int) (*fakeStore, *fakeSource, []uuid.UUID) {
	store := &fakeStore{
		reportID:        uuid.New(),
		reportStatus:    reports.StatusPending,
		reportUpdatedAt: time.Now(),
	}
	source := &fakeSource{contents: make(map[uuid.UUID][]byte)}

	docIDs := make([]uuid.UUID, docCount)
	base := time.Now().Add(-time.Hour)
	for i := range docCount {
		docID := uuid.New()
		docIDs[i] = docID
		source.contents[docID] = []byte("pdf bytes")
		store.records = append(store.records, extractions.DocumentExtraction{
			ID:         uuid.New(),
			ReportID:   store.reportID,
			DocumentID: docID,
			Status:     extractions.StatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			UpdatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}

	return store, source, docIDs
}

func TestRunAllDocumentsSucceed(t *testing.T) {
	store, source, _ := seedRun(3)
	extractor := &fakeExtractor{}
	sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

	summary, err := sys.Run(context.Background(), store.reportID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !summary.Success {
		t.Error("success = false, want true")
	}
	if summary.Total != 3 || summary.Completed != 3 || summary.Failed != 0 {
		t.Errorf("summary = %d/%d/%d, want 3/3/0", summary.Total, summary.Completed, summary.Failed)
	}

	if store.finishedTo != reports.StatusPending {
		t.Errorf("report status = %s, want pending", store.finishedTo)
	}
	if store.finishedErr != "" {
		t.Errorf("report error = %q, want empty", store.finishedErr)
	}

	for _, rec := range store.records {
		if rec.Status != extractions.StatusCompleted {
			t.Errorf("record %s status = %s, want completed", rec.DocumentID, rec.Status)
		}
		if len(rec.Facts) == 0 {
			t.Errorf("record %s has no facts", rec.DocumentID)
		}
	}
}

func TestRunFailureIsolation(t *testing.T) {
	store, source, docIDs := seedRun(3)
	extractor := &fakeExtractor{
		fails: map[uuid.UUID]error{
			docIDs[1]: errors.New("ENCRYPTED_PDF: password protected"),
		},
	}
	sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

	summary, err := sys.Run(context.Background(), store.reportID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !summary.Success {
		t.Error("success = false, want true (document failure is not an infrastructure fault)")
	}
	if summary.Completed != 2 || summary.Failed != 1 {
		t.Errorf("completed/failed = %d/%d, want 2/1", summary.Completed, summary.Failed)
	}

	if len(extractor.seen) != 3 {
		t.Errorf("extractor calls = %d, want 3 (failure must not abort the run)", len(extractor.seen))
	}

	failed := store.records[1]
	if failed.Status != extractions.StatusFailed {
		t.Fatalf("record status = %s, want failed", failed.Status)
	}
	if failed.Error == nil || *failed.Error != "ENCRYPTED_PDF: password protected" {
		t.Errorf("record error = %v", failed.Error)
	}

	// Partial failure still hands the report back for valuation.
	if store.finishedTo != reports.StatusPending {
		t.Errorf("report status = %s, want pending", store.finishedTo)
	}
}

func TestRunAllDocumentsFail(t *testing.T) {
	store, source, docIDs := seedRun(2)
	extractor := &fakeExtractor{
		fails: map[uuid.UUID]error{
			docIDs[0]: errors.New("CORRUPTED_PDF: unreadable"),
			docIDs[1]: errors.New("SCANNED_PDF: no text layer"),
		},
	}
	sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

	summary, err := sys.Run(context.Background(), store.reportID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Failed != 2 {
		t.Errorf("failed = %d, want 2", summary.Failed)
	}
	if store.finishedTo != reports.StatusExtractionFailed {
		t.Errorf("report status = %s, want extraction_failed", store.finishedTo)
	}
	if store.finishedErr == "" {
		t.Error("report error empty, want failure description")
	}
}

func TestRunSequentialInsertionOrder(t *testing.T) {
	store, source, docIDs := seedRun(4)
	extractor := &fakeExtractor{}
	sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

	if _, err := sys.Run(context.Background(), store.reportID); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(extractor.seen) != len(docIDs) {
		t.Fatalf("extractor calls = %d, want %d", len(extractor.seen), len(docIDs))
	}
	for i, docID := range docIDs {
		if extractor.seen[i] != docID {
			t.Errorf("call %d = %s, want %s (insertion order)", i, extractor.seen[i], docID)
		}
	}
}

func TestRunMissingDocumentBlob(t *testing.T) {
	store, source, docIDs := seedRun(2)
	delete(source.contents, docIDs[0])

	extractor := &fakeExtractor{}
	sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

	summary, err := sys.Run(context.Background(), store.reportID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Completed != 1 || summary.Failed != 1 {
		t.Errorf("completed/failed = %d/%d, want 1/1", summary.Completed, summary.Failed)
	}
	if store.records[0].Error == nil {
		t.Error("missing blob failure not recorded")
	}
}

func TestRunLock(t *testing.T) {
	cases := []struct {
		name   string
		status reports.Status
		want   error
	}{
		{"extracting", reports.StatusExtracting, extractions.ErrActiveRun},
		{"valuating", reports.StatusValuating, extractions.ErrActiveRun},
		{"completed", reports.StatusCompleted, extractions.ErrReportCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, source, _ := seedRun(1)
			store.reportStatus = tc.status

			sys := extractions.NewSystem(store, source, &fakeExtractor{}, testLogger(), defaultConfig())

			_, err := sys.Run(context.Background(), store.reportID)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("missing report", func(t *testing.T) {
		store, source, _ := seedRun(1)
		sys := extractions.NewSystem(store, source, &fakeExtractor{}, testLogger(), defaultConfig())

		_, err := sys.Run(context.Background(), uuid.New())
		if !errors.Is(err, extractions.ErrReportNotFound) {
			t.Fatalf("err = %v, want ErrReportNotFound", err)
		}
	})

	t.Run("stale extracting lock reclaimed", func(t *testing.T) {
		store, source, _ := seedRun(1)
		store.reportStatus = reports.StatusExtracting
		store.reportUpdatedAt = time.Now().Add(-time.Hour)

		sys := extractions.NewSystem(store, source, &fakeExtractor{}, testLogger(), defaultConfig())

		summary, err := sys.Run(context.Background(), store.reportID)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if summary.Completed != 1 {
			t.Errorf("completed = %d, want 1", summary.Completed)
		}
		if store.reportStatus != reports.StatusPending {
			t.Errorf("report status = %s, want pending", store.reportStatus)
		}
	})

	t.Run("retry allowed after extraction failure", func(t *testing.T) {
		store, source, _ := seedRun(1)
		store.reportStatus = reports.StatusExtractionFailed
		store.records[0].Status = extractions.StatusFailed

		sys := extractions.NewSystem(store, source, &fakeExtractor{}, testLogger(), defaultConfig())

		summary, err := sys.Run(context.Background(), store.reportID)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if summary.Completed != 1 {
			t.Errorf("completed = %d, want 1 (failed record retried)", summary.Completed)
		}
	})
}

func TestRunStaleProcessing(t *testing.T) {
	t.Run("stale record is reprocessed", func(t *testing.T) {
		store, source, _ := seedRun(1)
		store.records[0].Status = extractions.StatusProcessing
		store.records[0].UpdatedAt = time.Now().Add(-time.Hour)

		sys := extractions.NewSystem(store, source, &fakeExtractor{}, testLogger(), defaultConfig())

		summary, err := sys.Run(context.Background(), store.reportID)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if summary.Completed != 1 {
			t.Errorf("completed = %d, want 1 (stale processing record reclaimed)", summary.Completed)
		}
	})

	t.Run("fresh record is skipped", func(t *testing.T) {
		store, source, _ := seedRun(2)
		store.records[0].Status = extractions.StatusProcessing
		store.records[0].UpdatedAt = time.Now()

		extractor := &fakeExtractor{}
		sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

		summary, err := sys.Run(context.Background(), store.reportID)
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		if len(extractor.seen) != 1 {
			t.Fatalf("extractor calls = %d, want 1 (fresh processing record skipped)", len(extractor.seen))
		}
		if store.records[0].Status != extractions.StatusProcessing {
			t.Errorf("skipped record status = %s, want processing", store.records[0].Status)
		}

		var reported bool
		for _, d := range summary.Details {
			if d.DocumentID == store.records[0].DocumentID && d.Status == extractions.StatusProcessing {
				reported = true
			}
		}
		if !reported {
			t.Error("skipped record missing from run details")
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("partitions counts", func(t *testing.T) {
		store, source, _ := seedRun(4)
		store.records[0].Status = extractions.StatusCompleted
		store.records[1].Status = extractions.StatusFailed
		store.records[2].Status = extractions.StatusProcessing

		sys := extractions.NewSystem(store, source, &fakeExtractor{}, testLogger(), defaultConfig())

		status, err := sys.Status(context.Background(), store.reportID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}

		if status.Total != 4 || status.Completed != 1 || status.Failed != 1 ||
			status.Processing != 1 || status.Pending != 1 {
			t.Errorf("unexpected partition: %+v", status)
		}
	})

	t.Run("unknown report yields empty aggregate", func(t *testing.T) {
		store := &fakeStore{reportID: uuid.New()}
		sys := extractions.NewSystem(store, &fakeSource{}, &fakeExtractor{}, testLogger(), defaultConfig())

		status, err := sys.Status(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("status: %v", err)
		}

		if status.Total != 0 {
			t.Errorf("total = %d, want 0", status.Total)
		}
		if status.Extractions == nil {
			t.Error("extractions slice should be empty, not nil")
		}
	})
}

func TestRunCancellationReleasesLock(t *testing.T) {
	store, source, _ := seedRun(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := &fakeExtractor{cancel: cancel}
	sys := extractions.NewSystem(store, source, extractor, testLogger(), defaultConfig())

	if _, err := sys.Run(ctx, store.reportID); err == nil {
		t.Fatal("expected run to fail when the context is canceled mid-run")
	}

	if store.reportStatus != reports.StatusExtractionFailed {
		t.Fatalf("report status = %s, want extraction_failed (lock released)", store.reportStatus)
	}
	if store.finishedErr == "" {
		t.Error("expected abort cause to be recorded on the report")
	}

	if _, err := sys.Run(context.Background(), store.reportID); err != nil {
		t.Fatalf("fresh invocation after canceled run: %v", err)
	}
}
