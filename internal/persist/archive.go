package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antoineross/supabase-go"
	storage_go "github.com/supabase-community/storage-go"

	"docintake/internal/config"
	"docintake/internal/logger"
)

// Archive stores corrected scan images in the supabase bucket so the
// full-resolution output outlives the inline preview. Optional: when
// supabase is not configured every upload is a no-op.
type Archive struct {
	cfg    config.Config
	log    *logger.Logger
	client *supabase.Client
}

func NewArchive(cfg config.Config) *Archive {
	a := &Archive{cfg: cfg, log: logger.New("ScanArchive")}
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, nil)
		if err != nil {
			a.log.LogWarnf("failed to initialize supabase client: %v", err)
		} else {
			a.client = client
		}
	}
	return a
}

// Enabled reports whether uploads will actually go anywhere.
func (a *Archive) Enabled() bool { return a != nil && a.client != nil && a.cfg.SupabaseBucket != "" }

// UploadScan stores the PNG under scans/<job-id>.png and returns a signed
// URL. Callers treat failures as best-effort: an empty URL is a valid result.
func (a *Archive) UploadScan(jobID string, png []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	bucketPath := "scans/" + jobID + ".png"
	mimeType := "image/png"
	reader := bytes.NewReader(png)
	if _, err := a.client.Storage.UploadFile(a.cfg.SupabaseBucket, bucketPath, reader, storage_go.FileOptions{ContentType: &mimeType}); err != nil {
		return "", fmt.Errorf("upload scan for job %s: %w", jobID, err)
	}
	signed, err := a.signObjectURL(a.cfg.SupabaseBucket, bucketPath, 24*3600)
	if err != nil {
		return "", fmt.Errorf("sign scan url for job %s: %w", jobID, err)
	}
	return signed, nil
}

// signObjectURL performs a direct REST call to sign objects with fresh
// headers; the storage client's cached auth has proven unreliable here.
func (a *Archive) signObjectURL(bucket, objectPath string, expiresIn int) (string, error) {
	signURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", strings.TrimRight(a.cfg.SupabaseURL, "/"), bucket, objectPath)
	body := map[string]int{"expiresIn": expiresIn}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return "", fmt.Errorf("encode sign body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, signURL, buf)
	if err != nil {
		return "", fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.SupabaseServiceKey)
	req.Header.Set("apikey", a.cfg.SupabaseServiceKey)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request signed url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("create signed url: status %d", resp.StatusCode)
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}

	path := signed.SignedURL
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasPrefix(path, "/storage/v1/") {
		path = "/storage/v1" + path
	}
	return strings.TrimRight(a.cfg.SupabaseURL, "/") + path, nil
}
