package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/zgai/chatlibrary/config"
	"github.com/zgai/chatlibrary/internal/api/handlers"
	"github.com/zgai/chatlibrary/internal/api/middleware"
	"github.com/zgai/chatlibrary/internal/api/routes"
	"github.com/zgai/chatlibrary/internal/auth"
	"github.com/zgai/chatlibrary/internal/cache"
	"github.com/zgai/chatlibrary/internal/chunker"
	"github.com/zgai/chatlibrary/internal/logger"
	"github.com/zgai/chatlibrary/internal/providers/embed"
	"github.com/zgai/chatlibrary/internal/providers/extract"
	"github.com/zgai/chatlibrary/internal/providers/llm"
	pgrepo "github.com/zgai/chatlibrary/internal/repositories/postgres"
	"github.com/zgai/chatlibrary/internal/services"
	"github.com/zgai/chatlibrary/internal/storage"
	"github.com/zgai/chatlibrary/internal/vectorstore"
	"github.com/zgai/chatlibrary/internal/vectorstore/pgvec"
	"github.com/zgai/chatlibrary/internal/vectorstore/qdrant"
	"github.com/zgai/chatlibrary/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	app := config.LoadApp()

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	log.Info("postgres connected")

	issuer, err := auth.NewTokenIssuer(os.Getenv("JWT_SECRET"), 24*time.Hour)
	if err != nil {
		log.WithError(err).Fatal("jwt init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Capability providers
	embedder := embed.NewOllama(embed.OllamaConfig{
		BaseURL: os.Getenv("OLLAMA_URL"),
		Model:   os.Getenv("EMBED_MODEL"),
	})

	var provider llm.Provider
	switch app.LLMBackend {
	case "vertex":
		provider, err = llm.NewVertexGemini(ctx,
			os.Getenv("VERTEX_PROJECT_ID"), os.Getenv("VERTEX_LOCATION"), os.Getenv("VERTEX_MODEL"), 10)
		if err != nil {
			log.WithError(err).Fatal("vertex init failed")
		}
	default:
		provider = llm.NewOllama(llm.OllamaConfig{
			BaseURL: os.Getenv("OLLAMA_URL"),
			Model:   os.Getenv("CHAT_MODEL"),
		})
	}
	defer provider.Close()

	var store vectorstore.Store
	switch app.VectorBackend {
	case "pgvector":
		store, err = pgvec.New(config.PostgresDB, embedder, app.EmbedDimension)
		if err != nil {
			log.WithError(err).Fatal("pgvector init failed")
		}
	default:
		qs := qdrant.New(qdrant.Config{
			URL:        os.Getenv("QDRANT_URL"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: os.Getenv("QDRANT_COLLECTION"),
		}, embedder)
		if err := qs.Init(ctx, app.EmbedDimension); err != nil {
			log.WithError(err).Fatal("qdrant init failed")
		}
		store = qs
	}

	var retrieval cache.RetrievalCache
	if app.CacheBackend == "redis" {
		if err := config.InitRedis(); err != nil {
			log.WithError(err).Fatal("redis init failed")
		}
		log.Info("redis connected")
		retrieval = cache.NewRedisCache(config.RedisClient, 10*time.Minute)
	} else {
		retrieval = cache.NewMemoryCache(app.CacheCapacity)
	}

	var uploader storage.Uploader
	if app.StorageKind == "gcs" {
		gcs, err := storage.NewGCS(ctx, os.Getenv("GCS_BUCKET"))
		if err != nil {
			log.WithError(err).Fatal("gcs init failed")
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		uploader, err = storage.NewLocalDisk(app.UploadDir)
		if err != nil {
			log.WithError(err).Fatal("upload dir init failed")
		}
	}

	tika := extract.NewTika(os.Getenv("TIKA_URL"), 60*time.Second)
	registry := extract.NewRegistry(tika)
	registry.Register("txt", extract.PlainText{})
	registry.Register("md", extract.PlainText{})
	registry.Register("html", extract.HTML{})
	registry.Register("htm", extract.HTML{})
	registry.Register("xlsx", extract.Spreadsheet{})
	registry.Register("xls", extract.Spreadsheet{})

	// Repositories and services
	docRepo := pgrepo.NewDocumentRepo(config.PostgresDB)
	chunkRepo := pgrepo.NewChunkRepo(config.PostgresDB)
	convoRepo := pgrepo.NewConversationRepo(config.PostgresDB)
	userRepo := pgrepo.NewUserRepo(config.PostgresDB)

	pool := &workers.IngestPool{
		NumWorkers: app.Workers,
		QueueSize:  app.QueueSize,
		Logger:     log,
	}

	docSvc := services.NewDocumentService(
		docRepo, chunkRepo, uploader, registry, chunker.NewTokenSplitter(app.ChunkTokens),
		store, pool.Enqueue, log, app.AllowedExtensions, embedder.Name(),
	)
	pool.Process = docSvc.ProcessDocument
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("worker pool start failed")
	}

	chatSvc := services.NewChatService(convoRepo, retrieval, store, provider, log, app.TopK, app.Threshold)
	userSvc := services.NewUserService(userRepo, issuer)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Issuer:   issuer,
		User:     handlers.NewUserHandler(userSvc),
		Document: handlers.NewDocumentHandler(docSvc, app.MaxUploadBytes),
		Chat:     handlers.NewChatHandler(chatSvc),
		WS:       handlers.NewWSHandler(chatSvc),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()
	log.WithField("port", port).Info("server started")

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	// Drain in-flight ingestion before exiting so no document is stuck in
	// PROCESSING.
	pool.Shutdown()
}
