package cv

import (
	"encoding/base64"
	"image"
	"testing"
)

func TestDecodeImageRoundTrip(t *testing.T) {
	src := docImage(64, 48, image.Rect(8, 8, 56, 40))
	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("decoded size %dx%d, want 64x48", b.Dx(), b.Dy())
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImage([]byte("not an image")); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestResizeToWidth(t *testing.T) {
	src := flatImage(800, 400, 128)
	out := ResizeToWidth(src, 200)
	if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("resized to %dx%d, want 200x100", b.Dx(), b.Dy())
	}

	// Already small enough: returned untouched.
	small := flatImage(100, 50, 128)
	if got := ResizeToWidth(small, 200); got != image.Image(small) {
		t.Fatal("small image should pass through without resampling")
	}
}

func TestEncodeJPEGBase64(t *testing.T) {
	b64, err := EncodeJPEGBase64(flatImage(32, 32, 90))
	if err != nil {
		t.Fatalf("EncodeJPEGBase64: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
}

func TestGenerateDebugOverlays(t *testing.T) {
	img := docImage(120, 120, image.Rect(20, 20, 100, 100))

	both := GenerateDebugOverlays(img, true, true)
	if both.GlareOverlay == "" || both.EdgeOverlay == "" {
		t.Fatalf("expected both overlays, got %+v", both)
	}

	edgesOnly := GenerateDebugOverlays(img, false, true)
	if edgesOnly.GlareOverlay != "" || edgesOnly.EdgeOverlay == "" {
		t.Fatalf("expected only the edge overlay, got %+v", edgesOnly)
	}

	none := GenerateDebugOverlays(img, false, false)
	if none.GlareOverlay != "" || none.EdgeOverlay != "" {
		t.Fatalf("expected no overlays, got %+v", none)
	}
}
