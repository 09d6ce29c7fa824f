package persist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docintake/internal/config"
	"docintake/internal/core/job"
	"docintake/internal/cv"
	"docintake/internal/ocr"
)

func doneJob(score float64, text string) job.Job {
	now := time.Now().UTC()
	return job.Job{
		ID:               "j-1",
		Status:           job.StatusDone,
		CreatedAt:        now,
		UpdatedAt:        now,
		OriginalFilename: "receipt.jpg",
		Progress:         100,
		Result: &job.Result{
			Quality: cv.QualityResult{Score: score},
			OCR:     ocr.Result{Text: text},
		},
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		j         job.Job
		wantScore int
		wantState string
		wantText  string
	}{
		{"high score auto approves", doneJob(88.6, "total 12.50"), 89, StateAutoApproved, "total 12.50"},
		{"threshold is inclusive", doneJob(75, "x"), 75, StateAutoApproved, "x"},
		{"middling score needs review", doneJob(74.4, "x"), 74, StateNeedsReview, "x"},
		{"review floor is inclusive", doneJob(40, "x"), 40, StateNeedsReview, "x"},
		{"low score rejected", doneJob(12, ""), 12, StateRejected, ""},
		{"failed job needs review", job.Job{ID: "j-2", Status: job.StatusFailed, Error: "boom"}, 0, StateNeedsReview, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Derive(tt.j, 75, 40)
			require.Equal(t, tt.wantScore, d.ScoreInt)
			require.Equal(t, tt.wantState, d.ApprovalState)
			require.Equal(t, tt.wantText, d.OCRText)
		})
	}
}

func TestNewSinkSelection(t *testing.T) {
	sink := NewSink(config.Config{})
	require.IsType(t, &NopSink{}, sink)
	require.NoError(t, sink.Record(context.Background(), doneJob(50, "x")))

	sink = NewSink(config.Config{SupabaseURL: "https://example.supabase.co", SupabaseServiceKey: "key"})
	require.IsType(t, &SupabaseSink{}, sink)
}

func TestSupabaseSinkRecord(t *testing.T) {
	var gotPath, gotPrefer, gotAPIKey string
	var gotRow map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPrefer = r.Header.Get("Prefer")
		gotAPIKey = r.Header.Get("apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRow))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := config.Config{
		SupabaseURL:           srv.URL,
		SupabaseServiceKey:    "service-key",
		IntakeTable:           "intake_jobs",
		ApproveScoreThreshold: 75,
		ReviewScoreThreshold:  40,
	}
	sink := NewSink(cfg)

	require.NoError(t, sink.Record(context.Background(), doneJob(91.2, "hello")))
	require.Equal(t, "/rest/v1/intake_jobs", gotPath)
	require.Equal(t, "resolution=merge-duplicates", gotPrefer)
	require.Equal(t, "service-key", gotAPIKey)

	require.Equal(t, "j-1", gotRow["id"])
	require.Equal(t, "done", gotRow["status"])
	require.EqualValues(t, 91, gotRow["score_int"])
	require.Equal(t, StateAutoApproved, gotRow["approval_state"])
	require.Equal(t, "hello", gotRow["ocr_text"])
}

func TestSupabaseSinkRecordServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewSink(config.Config{
		SupabaseURL:        srv.URL,
		SupabaseServiceKey: "k",
		IntakeTable:        "intake_jobs",
	})
	require.Error(t, sink.Record(context.Background(), doneJob(50, "x")))
}
