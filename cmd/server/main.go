package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/meetscribe/meetscribe/internal/cleanup"
	"github.com/meetscribe/meetscribe/internal/config"
	"github.com/meetscribe/meetscribe/internal/handlers"
	"github.com/meetscribe/meetscribe/internal/llm"
	"github.com/meetscribe/meetscribe/internal/minutes"
	"github.com/meetscribe/meetscribe/internal/queue"
	"github.com/meetscribe/meetscribe/internal/remap"
	"github.com/meetscribe/meetscribe/internal/storage"
	"github.com/meetscribe/meetscribe/internal/transcribe"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	logBuffer := &LogBuffer{lines: make([]string, 0, 1000)}
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Println("Initializing components...")
	log.Printf("Transcription method: %s", cfg.Transcription.Method)

	provider, err := transcribe.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize transcription provider: %v", err)
	}
	pipeline := transcribe.NewPipeline(cfg, provider)

	chatter, err := llm.NewChatter(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize chat client: %v", err)
	}
	minutesSvc := minutes.NewService(chatter, cfg.Storage.OutputDir)
	remapper := remap.NewRemapper(chatter)

	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive mirroring is optional and depends on local credentials.
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
			driveClient = nil
		} else {
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	workerPool := queue.NewWorkerPool(cfg, pipeline, minutesSvc, remapper, localStorage, driveClient, db)
	workerPool.Start()

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	uploadHandler := handlers.NewUploadHandler(workerPool, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB)
	jobsHandler := handlers.NewJobsHandler(workerPool, db)
	progressHandler := handlers.NewProgressHandler(workerPool)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"method":  cfg.Transcription.Method,
			"version": "1.0.0",
		})
	})

	app.Post("/upload", uploadHandler.Handle)
	app.Get("/jobs/:id", jobsHandler.Status)
	app.Get("/ws/jobs/:id", websocket.New(progressHandler.Handle))
	app.Get("/transcripts", jobsHandler.List)
	app.Get("/transcripts/:id/text", jobsHandler.Text)

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /upload                - Upload meeting recording")
	log.Println("   GET  /jobs/:id              - Job status and artifacts")
	log.Println("   GET  /ws/jobs/:id           - WebSocket progress stream")
	log.Println("   GET  /transcripts           - List finished transcripts")
	log.Println("   GET  /transcripts/:id/text  - Get transcript text")
	log.Println("   GET  /logs                  - View server logs")
	log.Println("   GET  /health                - Health check")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures recent log lines in memory for the /logs endpoint.
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}
	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
