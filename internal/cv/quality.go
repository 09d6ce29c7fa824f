package cv

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	blurSharpThreshold   = 100.0
	blurScoreSaturation  = 300.0
	glareHighlightLevel  = 240
	glareIssueThreshold  = 0.05
	glarePenaltySaturate = 0.10
	darkIssueThreshold   = 70.0
	brightIssueThreshold = 200.0
	lowDocConfThreshold  = 0.30
	brightnessTarget     = 127.5
)

// LaplacianVariance measures sharpness as the variance of the Laplacian
// response over the grayscale image. Higher means sharper.
func LaplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) float64 {
		return float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}
	data := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*at(x, y) + at(x, y-1) + at(x, y+1) + at(x-1, y) + at(x+1, y)
			data = append(data, lap)
		}
	}
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// BrightnessMean is the average gray level in [0,255].
func BrightnessMean(gray *image.Gray) float64 {
	b := gray.Bounds()
	total := float64(b.Dx() * b.Dy())
	if total == 0 {
		return 0
	}
	var s float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s += float64(gray.GrayAt(x, y).Y)
		}
	}
	return s / total
}

// GlareRatio is the fraction of pixels in the near-saturated highlight band.
func GlareRatio(gray *image.Gray) float64 {
	b := gray.Bounds()
	total := float64(b.Dx() * b.Dy())
	if total == 0 {
		return 0
	}
	count := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if gray.GrayAt(x, y).Y >= glareHighlightLevel {
				count++
			}
		}
	}
	return float64(count) / total
}

// compositeScore combines the raw metrics into one 0-100 score. It is
// non-decreasing in sharpness and docConfidence and non-increasing in glare
// and in brightness deviation from the midpoint; weights sum to 1 so the
// score stays in [0,100].
func compositeScore(blur, brightness, glare, docConf float64) float64 {
	sharp := math.Min(blur/blurScoreSaturation, 1)
	bright := 1 - math.Min(math.Abs(brightness-brightnessTarget)/brightnessTarget, 1)
	glarePenalty := math.Min(glare/glarePenaltySaturate, 1)

	score := 100 * (0.35*sharp + 0.25*bright + 0.20*(1-glarePenalty) + 0.20*docConf)
	return math.Max(0, math.Min(score, 100))
}

// AnalyzeQuality scores capture quality of the original photo and emits
// advisory issues/tips when a metric crosses its threshold.
func AnalyzeQuality(original image.Image, docConfidence float64) QualityResult {
	gray := ToGray(original)

	blur := LaplacianVariance(gray)
	brightness := BrightnessMean(gray)
	glare := GlareRatio(gray)

	docConf := math.Max(0, math.Min(docConfidence, 1))
	score := compositeScore(blur, brightness, glare, docConf)

	issues := []string{}
	tips := []string{}
	if blur < blurSharpThreshold {
		issues = append(issues, "image is blurry")
		tips = append(tips, "hold the camera steady or move to better light")
	}
	if glare > glareIssueThreshold {
		issues = append(issues, "high glare detected")
		tips = append(tips, "retake in even lighting without direct flash")
	}
	if brightness < darkIssueThreshold {
		issues = append(issues, "image is too dark")
		tips = append(tips, "increase lighting or exposure")
	} else if brightness > brightIssueThreshold {
		issues = append(issues, "image is overexposed")
		tips = append(tips, "reduce lighting or move away from direct light")
	}
	if docConf < lowDocConfThreshold {
		issues = append(issues, "document edges unclear")
		tips = append(tips, "place the document on a contrasting background")
	}

	return QualityResult{
		Score:          score,
		Issues:         issues,
		Tips:           tips,
		BlurScore:      blur,
		BrightnessMean: brightness,
		GlareRatio:     glare,
		DocConfidence:  docConf,
	}
}
