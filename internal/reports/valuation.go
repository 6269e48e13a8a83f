package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Progress checkpoints emitted during a valuation run.
const (
	progressVerified = 25
	progressCalling  = 50
	progressReceived = 85
)

// Valuate runs the valuation phase: it acquires the report's run lock via a
// conditional status transition, verifies every extraction reached a terminal
// state, submits the accumulated facts for valuation, and merges the result
// into the report content. Any failure after the lock is acquired transitions
// the report to failed; progress is left where it stopped.
func (s *system) Valuate(ctx context.Context, id uuid.UUID) (*Report, error) {
	from := []Status{StatusPending, StatusFailed, StatusExtractionFailed}
	if !s.pipeline.RejectCompleted {
		from = append(from, StatusCompleted)
	}

	if err := s.store.BeginValuation(ctx, id, from); err != nil {
		return nil, err
	}

	outcomes, err := s.store.ExtractionOutcomes(ctx, id)
	if err != nil {
		s.fail(ctx, id, "valuation failed", err.Error())
		return nil, err
	}

	var completed, failed, pending int
	facts := make([]json.RawMessage, 0, len(outcomes))
	for _, o := range outcomes {
		switch {
		case !o.Terminal():
			pending++
		case o.Status == "completed":
			completed++
			facts = append(facts, o.Facts)
		default:
			failed++
		}
	}

	if pending > 0 {
		msg := fmt.Sprintf("%d of %d documents still awaiting extraction", pending, len(outcomes))
		s.fail(ctx, id, "valuation failed", msg)
		return nil, fmt.Errorf("%w: %s", ErrExtractionIncomplete, msg)
	}

	if completed == 0 {
		msg := fmt.Sprintf("all %d documents failed extraction", len(outcomes))
		s.fail(ctx, id, "valuation failed", msg)
		return nil, fmt.Errorf("%w: %s", ErrNoUsableFacts, msg)
	}

	if err := s.store.SetProgress(ctx, id, progressVerified, "extraction verified"); err != nil {
		s.fail(ctx, id, "valuation failed", err.Error())
		return nil, err
	}

	msg := fmt.Sprintf("valuating facts from %d documents", completed)
	if err := s.store.SetProgress(ctx, id, progressCalling, msg); err != nil {
		s.fail(ctx, id, "valuation failed", err.Error())
		return nil, err
	}

	result, err := s.valuator.Valuate(ctx, id, facts)
	if err != nil {
		s.fail(ctx, id, "valuation failed", err.Error())
		return nil, fmt.Errorf("valuate report %s: %w", id, err)
	}

	if err := s.store.SetProgress(ctx, id, progressReceived, "valuation result received"); err != nil {
		s.fail(ctx, id, "valuation failed", err.Error())
		return nil, err
	}

	summary := fmt.Sprintf("valuation complete: %d of %d documents contributed", completed, len(outcomes))
	if failed > 0 {
		summary = fmt.Sprintf("%s (%d failed extraction)", summary, failed)
	}

	r, err := s.store.CompleteValuation(ctx, id, valuationObject(result), summary)
	if err != nil {
		s.fail(ctx, id, "valuation failed", err.Error())
		return nil, err
	}

	s.logger.Info("valuation complete",
		"report", id,
		"documents", len(outcomes),
		"contributed", completed,
		"failed", failed)

	return r, nil
}

// fail releases the run lock by recording the failure. It detaches from the
// caller's context so a cancellation that ended the run cannot also block
// the failure write and strand the report in valuating.
func (s *system) fail(ctx context.Context, id uuid.UUID, message, errDesc string) {
	if err := s.store.FailValuation(context.WithoutCancel(ctx), id, message, errDesc); err != nil {
		s.logger.Error("record valuation failure", "report", id, "error", err)
	}
}

// valuationObject ensures the merged payload is a JSON object. A non-object
// result is wrapped under a "valuation" key so the content merge stays valid.
func valuationObject(result json.RawMessage) json.RawMessage {
	for _, b := range result {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return result
		default:
			wrapped, _ := json.Marshal(map[string]json.RawMessage{"valuation": result})
			return wrapped
		}
	}
	return json.RawMessage(`{}`)
}
