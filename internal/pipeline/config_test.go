package pipeline_test

import (
	"testing"
	"time"

	"github.com/finlight/appraise/internal/pipeline"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := pipeline.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if cfg.ExtractionConcurrency != 1 {
		t.Errorf("extraction_concurrency = %d, want 1", cfg.ExtractionConcurrency)
	}
	if cfg.StaleProcessingAfter != "15m" {
		t.Errorf("stale_processing_after = %q, want 15m", cfg.StaleProcessingAfter)
	}
	if cfg.RejectCompleted {
		t.Error("reject_completed = true, want false (revaluation allowed by default)")
	}
	if cfg.StaleProcessingAfterDuration() != 15*time.Minute {
		t.Errorf("duration = %v", cfg.StaleProcessingAfterDuration())
	}
}

func TestFinalizeEnvOverride(t *testing.T) {
	t.Setenv("TEST_PIPELINE_CONCURRENCY", "4")
	t.Setenv("TEST_PIPELINE_STALE", "1h")
	t.Setenv("TEST_PIPELINE_REJECT", "true")

	cfg := pipeline.Config{}
	env := &pipeline.Env{
		ExtractionConcurrency: "TEST_PIPELINE_CONCURRENCY",
		StaleProcessingAfter:  "TEST_PIPELINE_STALE",
		RejectCompleted:       "TEST_PIPELINE_REJECT",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if cfg.ExtractionConcurrency != 4 {
		t.Errorf("extraction_concurrency = %d, want 4", cfg.ExtractionConcurrency)
	}
	if cfg.StaleProcessingAfter != "1h" {
		t.Errorf("stale_processing_after = %q, want 1h", cfg.StaleProcessingAfter)
	}
	if !cfg.RejectCompleted {
		t.Error("reject_completed = false, want true")
	}
}

func TestValidate(t *testing.T) {
	t.Run("rejects non-positive concurrency", func(t *testing.T) {
		cfg := pipeline.Config{ExtractionConcurrency: -1, StaleProcessingAfter: "15m"}
		if err := cfg.Finalize(nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("rejects malformed duration", func(t *testing.T) {
		cfg := pipeline.Config{ExtractionConcurrency: 1, StaleProcessingAfter: "soon"}
		if err := cfg.Finalize(nil); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestMerge(t *testing.T) {
	cfg := pipeline.Config{
		ExtractionConcurrency: 1,
		StaleProcessingAfter:  "15m",
	}
	cfg.Merge(&pipeline.Config{
		ExtractionConcurrency: 8,
		RejectCompleted:       true,
	})

	if cfg.ExtractionConcurrency != 8 {
		t.Errorf("extraction_concurrency = %d, want 8", cfg.ExtractionConcurrency)
	}
	if cfg.StaleProcessingAfter != "15m" {
		t.Errorf("stale_processing_after = %q, want 15m preserved", cfg.StaleProcessingAfter)
	}
	if !cfg.RejectCompleted {
		t.Error("reject_completed not applied")
	}
}
