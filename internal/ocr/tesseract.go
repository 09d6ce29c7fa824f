package ocr

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"docintake/internal/cv"
)

// TesseractEngine runs text extraction through gosseract. A fresh client is
// created per call; gosseract clients are not safe for concurrent reuse.
type TesseractEngine struct {
	languages []string
}

func NewTesseractEngine(languages ...string) *TesseractEngine {
	return &TesseractEngine{languages: languages}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Available looks up the tesseract binary as a deployment diagnostic. The
// library link is what actually matters, but a missing binary is the usual
// sign of a missing install.
func (e *TesseractEngine) Available() (bool, string) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return false, ""
	}
	return true, path
}

func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (string, float64, error) {
	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	default:
	}

	data, err := cv.EncodePNG(img)
	if err != nil {
		return "", 0, err
	}

	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(data); err != nil {
		return "", 0, fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", 0, fmt.Errorf("set languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", 0, fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), meanWordConfidence(c), nil
}

// meanWordConfidence averages per-word confidences from tesseract (0-100)
// down to the [0,1] scale used across the pipeline.
func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var total float64
	for _, b := range boxes {
		total += b.Confidence / 100.0
	}
	return total / float64(len(boxes))
}
