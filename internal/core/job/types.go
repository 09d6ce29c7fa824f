package job

import (
	"time"

	"docintake/internal/cv"
	"docintake/internal/ocr"
)

// Status is the job lifecycle state machine: queued -> running -> done|failed.
// queued, done and failed are stable; running is only ever held by the worker
// that dequeued the job. There is no cancelled state and no automatic retry.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status is a stable end state.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// Options is the immutable per-job configuration captured at creation.
// CornersOverride is parsed and validated once at the intake boundary; a nil
// slice means no manual override.
type Options struct {
	OCREngine            string     `json:"ocr_engine"`
	OCRMode              string     `json:"ocr_mode"`
	CornersOverride      []cv.Point `json:"corners_override,omitempty"`
	RunAblation          bool       `json:"run_ablation"`
	IncludeDebugOverlays bool       `json:"include_debug_overlays"`
}

// Preview is an inline base64 JPEG of the scanned output.
type Preview struct {
	ImgB64    string `json:"img_b64"`
	IsScanned bool   `json:"is_scanned"`
}

// OriginalPreview is an inline preview of the uploaded image together with
// its full-resolution dimensions, for client-side corner overlays.
type OriginalPreview struct {
	ImgB64 string `json:"img_b64"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Result is the terminal artifact of the intake pipeline. It is written once
// when the job completes and immutable thereafter.
type Result struct {
	Quality         cv.QualityResult   `json:"quality"`
	OCR             ocr.Result         `json:"ocr"`
	Preview         *Preview           `json:"preview,omitempty"`
	Boundary        *cv.BoundaryResult `json:"boundary,omitempty"`
	ScanMeta        *cv.ScanMeta       `json:"scan_meta,omitempty"`
	OriginalPreview *OriginalPreview   `json:"original_preview,omitempty"`
	OCRVariants     []ocr.Variant      `json:"ocr_variants,omitempty"`
	BestVariant     string             `json:"best_variant,omitempty"`
	DebugOverlays   *cv.Overlays       `json:"debug_overlays,omitempty"`
	ScanArchiveURL  string             `json:"scan_archive_url,omitempty"`
}

// Job is one queued unit of intake work. Exactly one of Result/Error is set
// once the status leaves running; both are empty while queued or running.
type Job struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	InputRef         string    `json:"input_ref"`
	OriginalFilename string    `json:"original_filename"`
	Options          Options   `json:"options"`
	Progress         int       `json:"progress"`
	Result           *Result   `json:"result,omitempty"`
	Error            string    `json:"error,omitempty"`
}
