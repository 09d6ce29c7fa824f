package ocr

import (
	"context"
	"image"
	"sync"

	"docintake/internal/cv"
)

// Ablation arm names.
const (
	VariantRaw          = "raw"
	VariantScan         = "scan"
	VariantScanEnhanced = "scan_enhanced"
)

const previewRunes = 500

// RunVariants runs OCR independently over the unprocessed original, the
// perspective-corrected image and a contrast-enhanced corrected image. The
// arms are pure per image, so they run concurrently. A failed arm contributes
// a zero-confidence empty variant rather than aborting the batch.
//
// Best-variant policy: highest confidence, ties broken by greater character
// count; when every arm has zero confidence and zero characters the best
// variant is "" (none).
func (r *Runner) RunVariants(ctx context.Context, original, scanned image.Image, engineName string) ([]Variant, string) {
	arms := []struct {
		name string
		img  image.Image
	}{
		{VariantRaw, original},
		{VariantScan, scanned},
		{VariantScanEnhanced, cv.EnhanceContrast(scanned)},
	}

	variants := make([]Variant, len(arms))
	var wg sync.WaitGroup
	for i, a := range arms {
		wg.Add(1)
		go func(i int, name string, img image.Image) {
			defer wg.Done()
			res := r.Run(ctx, img, engineName, ModeBasic)
			variants[i] = toVariant(name, res)
		}(i, a.name, a.img)
	}
	wg.Wait()

	return variants, selectBest(variants)
}

func toVariant(name string, res Result) Variant {
	runes := []rune(res.Text)
	preview := res.Text
	if len(runes) > previewRunes {
		preview = string(runes[:previewRunes])
	}
	return Variant{
		Name:        name,
		Confidence:  res.Confidence,
		TextPreview: preview,
		TextFull:    res.Text,
		TimingMS:    res.TimingMS,
		CharCount:   len(runes),
	}
}

func selectBest(vs []Variant) string {
	allZero := true
	best := 0
	for i, v := range vs {
		if v.Confidence != 0 || v.CharCount != 0 {
			allZero = false
		}
		if v.Confidence > vs[best].Confidence ||
			(v.Confidence == vs[best].Confidence && v.CharCount > vs[best].CharCount) {
			best = i
		}
	}
	if allZero || len(vs) == 0 {
		return ""
	}
	return vs[best].Name
}
