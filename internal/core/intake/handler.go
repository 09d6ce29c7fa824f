package intake

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docintake/internal/core/job"
	"docintake/internal/cv"
)

type Handler struct {
	service *Service
	jobs    *job.Service
}

func NewHandler(service *Service, jobs *job.Service) *Handler {
	return &Handler{service: service, jobs: jobs}
}

// HandleCreate accepts a multipart upload plus options and returns the new
// queued job id. corners_override must be valid JSON; its point count is
// checked later by the scan stage so a bad override degrades the result
// instead of rejecting the job.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read upload"})
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "could not read upload"})
	}

	opts := job.Options{
		OCREngine:            c.FormValue("ocr_engine", "tesseract"),
		OCRMode:              c.FormValue("ocr_mode", "enhanced"),
		RunAblation:          formBool(c, "run_ablation", true),
		IncludeDebugOverlays: formBool(c, "include_debug_overlays", false),
	}
	if raw := c.FormValue("corners_override"); raw != "" {
		var pts []cv.Point
		if err := json.Unmarshal([]byte(raw), &pts); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON in corners_override"})
		}
		opts.CornersOverride = pts
	}

	id, err := h.service.Enqueue(c.Context(), data, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), opts)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"job_id": id, "status": string(job.StatusQueued)})
}

// HandleGet returns the current job record or a not-found signal.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(j)
}

func formBool(c *fiber.Ctx, key string, def bool) bool {
	v := c.FormValue(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
