package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"docintake/internal/config"
	"docintake/internal/core/intake"
	"docintake/internal/core/job"
	"docintake/internal/logger"
	"docintake/internal/ocr"
	"docintake/internal/persist"
	rds "docintake/internal/platform/redis"
	tasks "docintake/internal/platform/tasks"
	"docintake/internal/server"
	"docintake/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[docintake] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Redis client: created once, shared by the job store and the queue.
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	taskClient := tasks.New(redisSvc)
	defer taskClient.Close()

	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{tasks.QueueIntake: 1},
	})

	// Core services
	jobSvc := job.NewService(redisSvc)
	runner := ocr.NewRunner(ocr.NewTesseractEngine(cfg.OCRLanguages...))
	sink := persist.NewSink(cfg)
	archive := persist.NewArchive(cfg)
	intakeSvc := intake.NewService(cfg, jobSvc, taskClient, runner, sink, archive)

	// Worker pool: N handlers competing on one queue, each owning a job
	// exclusively from dequeue to terminal state.
	mux := worker.NewMux()
	mux.HandleFunc(intake.TaskTypeIntake, intakeSvc.HandleTask)

	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName:   "Docintake Engine",
		BodyLimit: 12 * 1024 * 1024,
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Serve stored uploads from DATA_DIR under /files
	app.Static("/files", cfg.DataDir)

	deps := server.Dependencies{
		Job:    jobSvc,
		Intake: intakeSvc,
		Redis:  redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
