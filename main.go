package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"irisai/analyzer"
	"irisai/config"
	"irisai/embedding"
	"irisai/ingest"
	"irisai/rag"
	"irisai/server"
	"irisai/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.HasValidAPI() {
		config.PrintConfigInstructions()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "publish":
			runPublisher(ctx, cfg)
			return
		default:
			log.Printf("unknown argument: %s", os.Args[1])
			log.Println("usage: irisai [publish]")
			return
		}
	}

	store := storage.NewStore(cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(shutdownCtx); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()
	log.Printf("Vector store initialized: %s (%s)", cfg.Store, store.Name())

	embedder := embedding.NewEmbedder(cfg)
	frameAnalyzer := analyzer.NewAnalyzer(cfg)
	pipeline := ingest.NewPipeline(store, embedder, frameAnalyzer)

	consumer := ingest.NewConsumer(cfg, pipeline)
	defer consumer.Close()
	if err := consumer.Ping(ctx); err != nil {
		log.Printf("Warning: Redis not available: %v (frame ingestion disabled)", err)
	} else {
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Frame consumer stopped: %v", err)
			}
		}()
	}

	engine := rag.NewEngine(store, embedder, rag.NewSynthesizer(cfg), cfg.TopK)
	srv := server.New(engine, store)
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
	log.Println("Shutting down services...")
}

func runPublisher(ctx context.Context, cfg *config.Config) {
	pub := ingest.NewPublisher(cfg, 5*time.Second)
	defer pub.Close()
	if err := pub.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("publisher failed: %v", err)
	}
}
