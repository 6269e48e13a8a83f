package extractions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/finlight/appraise/internal/intelligence"
	"github.com/finlight/appraise/internal/reports"
)

// Run executes the extraction phase for a report. It acquires the report's
// run lock via a conditional status transition, processes every runnable
// extraction record through the external extraction operation, and releases
// the lock with a finishing transition.
//
// A document-level failure is recorded on its record and never aborts the
// run. An infrastructure fault (the store itself failing) aborts the run
// and surfaces as an error; the lock is released with a failure transition.
func (s *system) Run(ctx context.Context, reportID uuid.UUID) (*RunSummary, error) {
	staleBefore := time.Now().Add(-s.pipeline.StaleProcessingAfterDuration())

	if err := s.store.BeginRun(ctx, reportID, staleBefore); err != nil {
		return nil, err
	}

	runnable, err := s.store.Runnable(ctx, reportID, staleBefore)
	if err != nil {
		s.abort(ctx, reportID, err)
		return nil, err
	}

	details := make([]Detail, len(runnable))
	processed := make(map[uuid.UUID]struct{}, len(runnable))
	for _, rec := range runnable {
		processed[rec.ID] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pipeline.ExtractionConcurrency)

	for i, rec := range runnable {
		g.Go(func() error {
			detail, err := s.processOne(gctx, rec)
			details[i] = detail
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.abort(ctx, reportID, err)
		return nil, err
	}

	all, err := s.store.ListByReport(ctx, reportID)
	if err != nil {
		s.abort(ctx, reportID, err)
		return nil, err
	}

	summary := RunSummary{
		Success: true,
		Total:   len(all),
		Details: details,
	}

	for _, rec := range all {
		switch rec.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusFailed:
			summary.Failed++
		case StatusProcessing:
			// A fresh processing record belongs to another run; report it
			// without having touched it.
			if _, ok := processed[rec.ID]; !ok {
				summary.Details = append(summary.Details, Detail{
					DocumentID: rec.DocumentID,
					Status:     StatusProcessing,
				})
			}
		}
	}

	if err := s.finish(ctx, reportID, summary); err != nil {
		return nil, err
	}

	s.logger.Info("extraction run finished",
		"report", reportID,
		"total", summary.Total,
		"completed", summary.Completed,
		"failed", summary.Failed)

	return &summary, nil
}

func (s *system) processOne(ctx context.Context, rec DocumentExtraction) (Detail, error) {
	detail := Detail{DocumentID: rec.DocumentID}

	if err := s.store.MarkProcessing(ctx, rec.ID); err != nil {
		return detail, fmt.Errorf("mark extraction %s processing: %w", rec.ID, err)
	}

	content, err := s.source.Content(ctx, rec.DocumentID)
	if err != nil {
		return s.failDocument(ctx, rec, detail, fmt.Sprintf("load document: %v", err))
	}

	facts, err := s.extractor.Extract(ctx, intelligence.DocumentPayload{
		DocumentID: rec.DocumentID,
		Filename:   content.Filename,
		Data:       content.Data,
	})
	if err != nil {
		return s.failDocument(ctx, rec, detail, err.Error())
	}

	if err := s.store.Complete(ctx, rec.ID, facts); err != nil {
		return detail, fmt.Errorf("complete extraction %s: %w", rec.ID, err)
	}

	detail.Status = StatusCompleted
	return detail, nil
}

func (s *system) failDocument(
	ctx context.Context,
	rec DocumentExtraction,
	detail Detail,
	desc string,
) (Detail, error) {
	if err := s.store.Fail(ctx, rec.ID, desc); err != nil {
		return detail, fmt.Errorf("record extraction %s failure: %w", rec.ID, err)
	}

	s.logger.Warn("document extraction failed", "document", rec.DocumentID, "error", desc)

	detail.Status = StatusFailed
	detail.Error = &desc
	return detail, nil
}

// finish and abort release the run lock. Both detach from the caller's
// context so a cancellation that ended the run cannot also block the
// releasing transition and strand the report in extracting.
func (s *system) finish(ctx context.Context, reportID uuid.UUID, summary RunSummary) error {
	ctx = context.WithoutCancel(ctx)

	if summary.Total > 0 && summary.Failed == summary.Total {
		msg := fmt.Sprintf("extraction failed for all %d documents", summary.Total)
		return s.store.FinishRun(ctx, reportID, reports.StatusExtractionFailed, msg, msg)
	}

	msg := fmt.Sprintf("extraction complete: %d of %d documents", summary.Completed, summary.Total)
	if summary.Failed > 0 {
		msg = fmt.Sprintf("%s (%d failed)", msg, summary.Failed)
	}
	return s.store.FinishRun(ctx, reportID, reports.StatusPending, msg, "")
}

func (s *system) abort(ctx context.Context, reportID uuid.UUID, cause error) {
	err := s.store.FinishRun(context.WithoutCancel(ctx), reportID,
		reports.StatusExtractionFailed,
		"extraction run aborted",
		cause.Error(),
	)
	if err != nil {
		s.logger.Error("record extraction abort", "report", reportID, "error", err)
	}
}
