package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DataDir       string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
	IntakeTable        string

	WorkerConcurrency int
	JobTimeoutSeconds int

	OCRLanguages []string
	CVDebugVis   bool

	ApproveScoreThreshold int
	ReviewScoreThreshold  int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "scans"),
		IntakeTable:        getenv("SUPABASE_INTAKE_TABLE", "intake_jobs"),

		WorkerConcurrency: getenvInt("WORKER_CONCURRENCY", 4),
		JobTimeoutSeconds: getenvInt("JOB_TIMEOUT_SECONDS", 120),

		CVDebugVis: getenvBool("CV_DEBUG_VIS", false),

		ApproveScoreThreshold: getenvInt("APPROVE_SCORE_THRESHOLD", 75),
		ReviewScoreThreshold:  getenvInt("REVIEW_SCORE_THRESHOLD", 40),
	}
	if langs := os.Getenv("OCR_LANGUAGES"); langs != "" {
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				cfg.OCRLanguages = append(cfg.OCRLanguages, l)
			}
		}
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}
