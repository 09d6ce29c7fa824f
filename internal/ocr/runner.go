package ocr

import (
	"context"
	"image"
	"time"

	"docintake/internal/cv"
	"docintake/internal/logger"
)

// Runner resolves engine names and wraps every OCR invocation so it never
// fails: any backend error is captured into the Result with confidence 0 and
// empty text.
type Runner struct {
	log     *logger.Logger
	engines map[string]Engine
}

func NewRunner(engines ...Engine) *Runner {
	r := &Runner{log: logger.New("OCR"), engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

// Run executes OCR on a single image under the selected engine and mode.
func (r *Runner) Run(ctx context.Context, img image.Image, engineName, mode string) Result {
	start := time.Now()
	res := Result{Engine: engineName, Mode: mode, DebugNotes: []string{}}

	eng, ok := r.engines[engineName]
	if !ok {
		res.OCRError = "unknown OCR engine: " + engineName
		res.TimingMS = time.Since(start).Milliseconds()
		return res
	}

	found, path := eng.Available()
	res.TesseractFound = found
	res.TesseractPathUsed = path

	var prepared image.Image
	switch mode {
	case ModeEnhanced:
		prepared = cv.EnhanceContrast(img)
		res.DebugNotes = append(res.DebugNotes, "applied contrast enhancement")
	default:
		prepared = cv.ToGray(img)
	}

	text, conf, err := eng.Recognize(ctx, prepared)
	res.TimingMS = time.Since(start).Milliseconds()
	if err != nil {
		r.log.LogWarnf("ocr run failed (engine=%s mode=%s): %v", engineName, mode, err)
		res.OCRError = err.Error()
		res.TesseractFound = false
		res.Text = ""
		res.Confidence = 0
		return res
	}

	res.Text = text
	res.Confidence = conf
	res.TesseractFound = true
	return res
}
