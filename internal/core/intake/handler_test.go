package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"docintake/internal/core/job"
	"docintake/internal/cv"
)

func newTestApp(t *testing.T, env *testEnv) *fiber.App {
	t.Helper()
	app := fiber.New()
	h := NewHandler(env.svc, env.jobs)
	app.Post("/v1/intake/jobs", h.HandleCreate)
	app.Get("/v1/intake/jobs/:jobId", h.HandleGet)
	return app
}

func multipartUpload(t *testing.T, fields map[string]string, filename, fileType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		hdr.Set("Content-Type", fileType)
		fw, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestHandleCreateQueuesJob(t *testing.T) {
	env := newTestEnv(t, okEngine("x", 0.5))
	app := newTestApp(t, env)

	img, err := cv.EncodePNG(image.NewGray(image.Rect(0, 0, 20, 20)))
	require.NoError(t, err)
	body, ct := multipartUpload(t, map[string]string{
		"ocr_mode":         "basic",
		"run_ablation":     "false",
		"corners_override": `[{"x":1,"y":1},{"x":19,"y":1},{"x":19,"y":19},{"x":1,"y":19}]`,
	}, "tiny.png", "image/png", img)

	req := httptest.NewRequest(http.MethodPost, "/v1/intake/jobs", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	require.Equal(t, "queued", out["status"])
	id, _ := out["job_id"].(string)
	require.NotEmpty(t, id)

	j, err := env.jobs.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "basic", j.Options.OCRMode)
	require.False(t, j.Options.RunAblation)
	require.Len(t, j.Options.CornersOverride, 4)
}

func TestHandleCreateMissingFile(t *testing.T) {
	env := newTestEnv(t, okEngine("x", 0.5))
	app := newTestApp(t, env)

	body, ct := multipartUpload(t, map[string]string{"ocr_mode": "basic"}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/intake/jobs", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleCreateMalformedCorners(t *testing.T) {
	env := newTestEnv(t, okEngine("x", 0.5))
	app := newTestApp(t, env)

	img, err := cv.EncodePNG(image.NewGray(image.Rect(0, 0, 20, 20)))
	require.NoError(t, err)
	body, ct := multipartUpload(t, map[string]string{
		"corners_override": `{"not": "a list"`,
	}, "tiny.png", "image/png", img)

	req := httptest.NewRequest(http.MethodPost, "/v1/intake/jobs", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decodeBody(t, resp)
	require.Equal(t, "invalid JSON in corners_override", out["error"])
}

func TestHandleCreateRejectsNonImage(t *testing.T) {
	env := newTestEnv(t, okEngine("x", 0.5))
	app := newTestApp(t, env)

	body, ct := multipartUpload(t, nil, "doc.pdf", "application/pdf", []byte("%PDF-1.7"))
	req := httptest.NewRequest(http.MethodPost, "/v1/intake/jobs", body)
	req.Header.Set("Content-Type", ct)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleGet(t *testing.T) {
	env := newTestEnv(t, okEngine("x", 0.5))
	app := newTestApp(t, env)

	j, err := env.jobs.Create(context.Background(), "/tmp/x.png", "x.png", job.Options{})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/intake/jobs/"+j.ID, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody(t, resp)
	require.Equal(t, j.ID, out["id"])
	require.Equal(t, "queued", out["status"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v1/intake/jobs/nope", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	out = decodeBody(t, resp)
	require.Equal(t, "not_found", out["error"])
}
