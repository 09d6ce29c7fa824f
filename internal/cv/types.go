package cv

// Point is a pixel coordinate in image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundaryResult reports the best-guess document quadrilateral for an image.
// When Found is false, Corners is empty, Confidence is 0 and DebugNotes
// carries at least one entry explaining why.
type BoundaryResult struct {
	Found      bool     `json:"found"`
	Corners    []Point  `json:"corners,omitempty"`
	Confidence float64  `json:"confidence"`
	DebugNotes []string `json:"debug_notes"`
}

// ScanMeta records which corner source the perspective correction used and
// whether the warp succeeded.
type ScanMeta struct {
	UsedAutoCorners bool    `json:"used_auto_corners"`
	CornersUsed     []Point `json:"corners_used,omitempty"`
	ScanWarpSuccess bool    `json:"scan_warp_success"`
	ScanError       string  `json:"scan_error,omitempty"`
}

// QualityResult is the composite capture-quality assessment of the original
// photo. Issues and Tips are advisory text, not control-flow signals.
type QualityResult struct {
	Score          float64  `json:"score"`
	Issues         []string `json:"issues"`
	Tips           []string `json:"tips"`
	BlurScore      float64  `json:"blur_score"`
	BrightnessMean float64  `json:"brightness_mean"`
	GlareRatio     float64  `json:"glare_ratio"`
	DocConfidence  float64  `json:"doc_confidence"`
}

// Overlays holds the optional diagnostic renderings, base64 JPEG encoded.
// A field is empty when the overlay was not requested or failed to render.
type Overlays struct {
	GlareOverlay string `json:"glare_overlay,omitempty"`
	EdgeOverlay  string `json:"edge_overlay,omitempty"`
}
