package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"docintake/internal/config"
	"docintake/internal/core/job"
	"docintake/internal/logger"
)

// Approval states derived from the quality score by fixed thresholds. The
// sink records the classification; acting on it is the consumer's business.
const (
	StateAutoApproved = "auto_approved"
	StateNeedsReview  = "needs_review"
	StateRejected     = "rejected"
)

// Sink receives the full job record plus derived fields exactly once per job,
// success or failure, so failed intakes are auditable too.
type Sink interface {
	Record(ctx context.Context, j job.Job) error
}

// Derived holds the fields computed from the job result for the sink.
type Derived struct {
	ScoreInt      int    `json:"score_int"`
	ApprovalState string `json:"approval_state"`
	OCRText       string `json:"ocr_text"`
}

// Derive classifies a terminal job. Failed jobs score 0 and land in
// needs_review so a human sees them.
func Derive(j job.Job, approveAt, reviewAt int) Derived {
	if j.Status != job.StatusDone || j.Result == nil {
		return Derived{ApprovalState: StateNeedsReview}
	}
	score := int(math.Round(j.Result.Quality.Score))
	state := StateRejected
	switch {
	case score >= approveAt:
		state = StateAutoApproved
	case score >= reviewAt:
		state = StateNeedsReview
	}
	return Derived{ScoreInt: score, ApprovalState: state, OCRText: j.Result.OCR.Text}
}

// NewSink returns the supabase-backed sink when credentials are configured
// and a logging no-op otherwise, so development without secrets still works.
func NewSink(cfg config.Config) Sink {
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		return &SupabaseSink{
			cfg:  cfg,
			log:  logger.New("PersistSink"),
			http: &http.Client{Timeout: 15 * time.Second},
		}
	}
	return &NopSink{log: logger.New("PersistSink")}
}

// NopSink drops records. Used when supabase is not configured.
type NopSink struct{ log *logger.Logger }

func (s *NopSink) Record(_ context.Context, j job.Job) error {
	s.log.LogDebugf("supabase not configured, dropping record for job %s (%s)", j.ID, j.Status)
	return nil
}

// SupabaseSink upserts intake rows through the PostgREST endpoint with a
// direct REST call, same as the storage signing workaround: fresh headers,
// no client-cached auth state.
type SupabaseSink struct {
	cfg  config.Config
	log  *logger.Logger
	http *http.Client
}

type intakeRow struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Derived
}

func (s *SupabaseSink) Record(ctx context.Context, j job.Job) error {
	d := Derive(j, s.cfg.ApproveScoreThreshold, s.cfg.ReviewScoreThreshold)
	row := intakeRow{
		ID:        j.ID,
		Status:    string(j.Status),
		Filename:  j.OriginalFilename,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
		Derived:   d,
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(row); err != nil {
		return fmt.Errorf("encode intake row: %w", err)
	}

	url := fmt.Sprintf("%s/rest/v1/%s", strings.TrimRight(s.cfg.SupabaseURL, "/"), s.cfg.IntakeTable)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return fmt.Errorf("build persist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.SupabaseServiceKey)
	req.Header.Set("apikey", s.cfg.SupabaseServiceKey)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("persist job %s: %w", j.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("persist job %s: status %d", j.ID, resp.StatusCode)
	}
	s.log.LogDebugf("persisted job %s (%s, score=%d, state=%s)", j.ID, j.Status, d.ScoreInt, d.ApprovalState)
	return nil
}
