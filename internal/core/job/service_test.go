package job

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"docintake/internal/cv"
	rds "docintake/internal/platform/redis"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := rds.New(rds.Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return NewService(r)
}

func TestCreateAndGet(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	opts := Options{
		OCREngine:       "tesseract",
		OCRMode:         "enhanced",
		CornersOverride: []cv.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}, {X: 7, Y: 8}},
		RunAblation:     true,
	}
	created, err := s.Create(ctx, "/data/uploads/x.png", "receipt.png", opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("missing job id")
	}
	if created.Status != StatusQueued || created.Progress != 0 {
		t.Fatalf("new job = %s/%d, want queued/0", created.Status, created.Progress)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.InputRef != created.InputRef || got.OriginalFilename != "receipt.png" {
		t.Fatalf("stored job mismatch: %+v", got)
	}
	if len(got.Options.CornersOverride) != 4 || got.Options.CornersOverride[2] != (cv.Point{X: 5, Y: 6}) {
		t.Fatalf("options did not round-trip: %+v", got.Options)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed: %v vs %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestGetUnknown(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Get(context.Background(), "no-such-job"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProgressMonotonic(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	j, err := s.Create(ctx, "/tmp/in.png", "in.png", Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SetRunning(ctx, j.ID, 10); err != nil {
		t.Fatalf("SetRunning: %v", err)
	}
	got, _ := s.Get(ctx, j.ID)
	if got.Status != StatusRunning || got.Progress != 10 {
		t.Fatalf("after SetRunning: %s/%d", got.Status, got.Progress)
	}

	for _, p := range []int{40, 20, 70} {
		if err := s.SetProgress(ctx, j.ID, p); err != nil {
			t.Fatalf("SetProgress(%d): %v", p, err)
		}
	}
	got, _ = s.Get(ctx, j.ID)
	if got.Progress != 70 {
		t.Fatalf("progress = %d, want 70 (stale 20 must be ignored)", got.Progress)
	}
}

func TestComplete(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	j, _ := s.Create(ctx, "/tmp/in.png", "in.png", Options{})

	res := &Result{Quality: cv.QualityResult{Score: 81.5}, BestVariant: "scan"}
	final, err := s.Complete(ctx, j.ID, res)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if final.Status != StatusDone || final.Progress != 100 {
		t.Fatalf("final = %s/%d", final.Status, final.Progress)
	}
	if final.Result == nil || final.Result.Quality.Score != 81.5 {
		t.Fatalf("result missing: %+v", final.Result)
	}
	if final.Error != "" {
		t.Fatalf("done job must carry no error, got %q", final.Error)
	}
	if !final.Status.Terminal() {
		t.Fatal("done must be terminal")
	}
}

func TestFail(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	j, _ := s.Create(ctx, "/tmp/in.png", "in.png", Options{})
	_ = s.SetRunning(ctx, j.ID, 10)

	final, err := s.Fail(ctx, j.ID, "could not decode image: boom")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if final.Status != StatusFailed {
		t.Fatalf("status = %s", final.Status)
	}
	if final.Result != nil {
		t.Fatal("failed job must carry no result")
	}
	if final.Error == "" {
		t.Fatal("failed job must carry a diagnostic")
	}
	if !final.Status.Terminal() {
		t.Fatal("failed must be terminal")
	}
}

func TestStatusTerminal(t *testing.T) {
	for st, want := range map[Status]bool{
		StatusQueued:  false,
		StatusRunning: false,
		StatusDone:    true,
		StatusFailed:  true,
	} {
		if st.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", st, st.Terminal(), want)
		}
	}
}
