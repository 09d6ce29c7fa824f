package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RedisAddr == "" {
		t.Error("RedisAddr must default")
	}
	if cfg.WorkerConcurrency != 4 || cfg.JobTimeoutSeconds != 120 {
		t.Errorf("worker defaults = %d/%d", cfg.WorkerConcurrency, cfg.JobTimeoutSeconds)
	}
	if cfg.ApproveScoreThreshold != 75 || cfg.ReviewScoreThreshold != 40 {
		t.Errorf("threshold defaults = %d/%d", cfg.ApproveScoreThreshold, cfg.ReviewScoreThreshold)
	}
	if cfg.SupabaseBucket != "scans" || cfg.IntakeTable != "intake_jobs" {
		t.Errorf("supabase defaults = %q/%q", cfg.SupabaseBucket, cfg.IntakeTable)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JOB_TIMEOUT_SECONDS", "45")
	t.Setenv("OCR_LANGUAGES", "eng, deu ,")
	t.Setenv("CV_DEBUG_VIS", "true")

	cfg := Load()
	if cfg.JobTimeoutSeconds != 45 {
		t.Errorf("JobTimeoutSeconds = %d", cfg.JobTimeoutSeconds)
	}
	if len(cfg.OCRLanguages) != 2 || cfg.OCRLanguages[0] != "eng" || cfg.OCRLanguages[1] != "deu" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
	if !cfg.CVDebugVis {
		t.Error("CV_DEBUG_VIS not honored")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "lots")
	cfg := Load()
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want default", cfg.WorkerConcurrency)
	}
}
