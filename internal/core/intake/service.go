package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"docintake/internal/config"
	"docintake/internal/core/job"
	"docintake/internal/cv"
	"docintake/internal/logger"
	"docintake/internal/ocr"
	"docintake/internal/persist"
	tasks "docintake/internal/platform/tasks"
)

// TaskTypeIntake is the asynq task type for one document-intake job.
const TaskTypeIntake = "intake:process"

const (
	maxUploadBytes = 10 * 1024 * 1024
	previewWidth   = 800
)

// ErrInvalidInput marks request-shaped failures that map to a 400 at the
// HTTP boundary.
var ErrInvalidInput = errors.New("invalid input")

type taskPayload struct {
	JobID string `json:"job_id"`
}

// Service drives the intake pipeline: it accepts uploads on the producer
// side and executes the staged processing on the worker side. Stages run
// strictly sequentially within one job; stage-local failures degrade the
// result instead of failing the job.
type Service struct {
	log     *logger.Logger
	cfg     config.Config
	jobs    *job.Service
	tasks   *tasks.Client
	runner  *ocr.Runner
	sink    persist.Sink
	archive *persist.Archive
}

func NewService(cfg config.Config, jobs *job.Service, t *tasks.Client, runner *ocr.Runner, sink persist.Sink, archive *persist.Archive) *Service {
	return &Service{
		log:     logger.New("IntakeService"),
		cfg:     cfg,
		jobs:    jobs,
		tasks:   t,
		runner:  runner,
		sink:    sink,
		archive: archive,
	}
}

// Enqueue validates and stores the upload, creates the queued job record and
// submits the task. MaxRetry is 0: a failed job is terminal and must be
// resubmitted as a new job.
func (s *Service) Enqueue(ctx context.Context, data []byte, filename, contentType string, opts job.Options) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrInvalidInput)
	}
	if len(data) > maxUploadBytes {
		return "", fmt.Errorf("%w: file too large (max 10MB)", ErrInvalidInput)
	}
	if !allowedContentType(contentType) {
		return "", fmt.Errorf("%w: only JPEG/PNG uploads are accepted", ErrInvalidInput)
	}

	uploadDir := filepath.Join(s.cfg.DataDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(uploadDir, uuid.NewString()+uploadExt(filename, contentType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	j, err := s.jobs.Create(ctx, path, filename, opts)
	if err != nil {
		return "", err
	}

	payload, _ := json.Marshal(taskPayload{JobID: j.ID})
	if err := s.tasks.Enqueue(asynq.NewTask(TaskTypeIntake, payload), tasks.QueueIntake, 0); err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", j.ID, err)
	}
	s.log.LogInfof("queued job %s (%s)", j.ID, filename)
	return j.ID, nil
}

func allowedContentType(ct string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0])) {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}

func uploadExt(filename, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if strings.Contains(contentType, "png") {
		return ".png"
	}
	return ".jpg"
}

// HandleTask owns one dequeued job for its whole run. The job terminates as
// done or failed; the persistence sink is invoked exactly once either way.
// The error return to asynq is always nil after a terminal store write, since
// retry policy lives in this system, not the queue's.
func (s *Service) HandleTask(ctx context.Context, task *asynq.Task) error {
	var p taskPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode task payload: %w", err)
	}

	j, err := s.jobs.Get(ctx, p.JobID)
	if err != nil {
		s.log.LogWarnf("job %s not found in store, dropping task", p.JobID)
		return nil
	}

	s.log.LogInfof("processing job %s", j.ID)
	if err := s.jobs.SetRunning(ctx, j.ID, 10); err != nil {
		return err
	}

	timeout := time.Duration(s.cfg.JobTimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type outcome struct {
		res *job.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("unexpected failure: %v", r)}
			}
		}()
		res, err := s.process(runCtx, j)
		ch <- outcome{res: res, err: err}
	}()

	var final job.Job
	var storeErr error
	select {
	case o := <-ch:
		if o.err != nil {
			s.log.LogErrorf("job %s failed: %v", j.ID, o.err)
			final, storeErr = s.jobs.Fail(context.Background(), j.ID, o.err.Error())
		} else {
			final, storeErr = s.jobs.Complete(context.Background(), j.ID, o.res)
			s.log.LogSuccessf("job %s completed", j.ID)
		}
	case <-runCtx.Done():
		s.log.LogErrorf("job %s timed out after %v", j.ID, timeout)
		final, storeErr = s.jobs.Fail(context.Background(), j.ID, fmt.Sprintf("job timed out after %v", timeout))
	}
	if storeErr != nil {
		return storeErr
	}

	if err := s.sink.Record(context.Background(), final); err != nil {
		s.log.LogWarnf("persistence sink failed for job %s: %v", final.ID, err)
	}
	return nil
}

// checkpoint advances progress; a stale or failed write never interrupts the
// run, progress is observability only.
func (s *Service) checkpoint(ctx context.Context, id string, progress int) {
	if err := s.jobs.SetProgress(ctx, id, progress); err != nil {
		s.log.LogWarnf("progress update failed for job %s: %v", id, err)
	}
}

// process runs the ordered stages. Errors returned here are job failures;
// everything stage-local has already been absorbed into the result.
func (s *Service) process(ctx context.Context, j job.Job) (*job.Result, error) {
	data, err := os.ReadFile(j.InputRef)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	original, err := cv.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	origBounds := original.Bounds()
	s.checkpoint(ctx, j.ID, 20)

	scanned, boundary, scanMeta := cv.ScanDocument(original, j.Options.CornersOverride, s.cfg.CVDebugVis)
	s.checkpoint(ctx, j.ID, 40)

	quality := cv.AnalyzeQuality(original, boundary.Confidence)
	s.checkpoint(ctx, j.ID, 50)

	engine := j.Options.OCREngine
	if engine == "" {
		engine = "tesseract"
	}
	mode := j.Options.OCRMode
	if mode == "" {
		mode = ocr.ModeEnhanced
	}
	ocrRes := s.runner.Run(ctx, scanned, engine, mode)
	s.checkpoint(ctx, j.ID, 70)

	var variants []ocr.Variant
	best := ""
	if j.Options.RunAblation {
		variants, best = s.runner.RunVariants(ctx, original, scanned, engine)
	}
	s.checkpoint(ctx, j.ID, 80)

	var overlays *cv.Overlays
	if j.Options.IncludeDebugOverlays || s.cfg.CVDebugVis {
		o := cv.GenerateDebugOverlays(original, true, true)
		overlays = &o
	}

	previewB64, err := cv.EncodeJPEGBase64(cv.ResizeToWidth(scanned, previewWidth))
	if err != nil {
		return nil, fmt.Errorf("render scan preview: %w", err)
	}
	origPreviewB64, err := cv.EncodeJPEGBase64(cv.ResizeToWidth(original, previewWidth))
	if err != nil {
		return nil, fmt.Errorf("render original preview: %w", err)
	}

	archiveURL := ""
	if s.archive.Enabled() && scanMeta.ScanWarpSuccess {
		if png, encErr := cv.EncodePNG(scanned); encErr == nil {
			url, upErr := s.archive.UploadScan(j.ID, png)
			if upErr != nil {
				s.log.LogWarnf("scan archive upload failed for job %s: %v", j.ID, upErr)
			} else {
				archiveURL = url
			}
		}
	}

	return &job.Result{
		Quality:  quality,
		OCR:      ocrRes,
		Preview:  &job.Preview{ImgB64: previewB64, IsScanned: scanMeta.ScanWarpSuccess},
		Boundary: &boundary,
		ScanMeta: &scanMeta,
		OriginalPreview: &job.OriginalPreview{
			ImgB64: origPreviewB64,
			Width:  origBounds.Dx(),
			Height: origBounds.Dy(),
		},
		OCRVariants:    variants,
		BestVariant:    best,
		DebugOverlays:  overlays,
		ScanArchiveURL: archiveURL,
	}, nil
}
