package ocr

import (
	"context"
	"image"
)

// Recognition modes tune preprocessing intensity; they never change the
// output contract.
const (
	ModeBasic    = "basic"
	ModeEnhanced = "enhanced"
)

// Result captures a single OCR run. OCRError is set instead of an error
// return so callers can branch on success without exception handling.
type Result struct {
	Text              string   `json:"text"`
	Confidence        float64  `json:"confidence"`
	Engine            string   `json:"engine"`
	TesseractFound    bool     `json:"tesseract_found"`
	TesseractPathUsed string   `json:"tesseract_path_used,omitempty"`
	OCRError          string   `json:"ocr_error,omitempty"`
	Mode              string   `json:"mode"`
	TimingMS          int64    `json:"timing_ms"`
	DebugNotes        []string `json:"debug_notes"`
}

// Variant is one ablation arm: the same OCR step run over a differently
// preprocessed input image.
type Variant struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	TextPreview string  `json:"text_preview"`
	TextFull    string  `json:"text_full"`
	TimingMS    int64   `json:"timing_ms"`
	CharCount   int     `json:"char_count"`
}

// Engine is the OCR provider contract: one image in, text and a normalized
// [0,1] confidence out.
type Engine interface {
	Name() string
	// Available reports whether the backing engine is usable, with an
	// optional diagnostic path for the installed binary.
	Available() (bool, string)
	Recognize(ctx context.Context, img image.Image) (text string, confidence float64, err error)
}
