package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AlexLuu1/Memento/config"
	"github.com/AlexLuu1/Memento/controller"
	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/services"
	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/goerr/v2"
)

const shutdownTimeout = 10 * time.Second

// components are the pieces shared by both commands.
type components struct {
	chroma   chromago.Client
	store    services.MemoryStore
	uploads  *services.Uploads
	gemini   *services.GeminiClient
	memories services.MemoryService
}

func setup(ctx context.Context, cfg *config.Config) (*components, *slog.Logger, error) {
	logger := logging.New(cfg.LogLevel, os.Stdout)
	logging.SetDefault(logger)

	chroma, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.ChromaURL))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create chroma client", goerr.V("url", cfg.ChromaURL))
	}

	collection, err := services.GetOrCreateCollection(ctx, chroma, cfg.Collection)
	if err != nil {
		_ = chroma.Close()
		return nil, nil, err
	}
	logger.Info("connected to chroma", "url", cfg.ChromaURL, "collection", cfg.Collection)

	gemini, err := services.NewGeminiClient(ctx, cfg.GeminiAPIKey,
		services.WithChatModel(cfg.ChatModel),
		services.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		_ = chroma.Close()
		return nil, nil, err
	}

	uploads, err := services.NewUploads(cfg.UploadsDir)
	if err != nil {
		_ = chroma.Close()
		return nil, nil, err
	}

	store := services.NewChromaMemoryStore(collection, services.NewGeminiEmbedder(gemini))
	memories := services.NewMemoryService(store, services.NewGeminiCaptioner(gemini), uploads, cfg.Timeout)

	return &components{
		chroma:   chroma,
		store:    store,
		uploads:  uploads,
		gemini:   gemini,
		memories: memories,
	}, logger, nil
}

func (c *components) close(logger *slog.Logger) {
	if err := c.chroma.Close(); err != nil {
		logger.Warn("failed to close chroma client", "error", err)
	}
}

func serve(ctx context.Context, cfg *config.Config, watch bool) error {
	app, logger, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close(logger)
	ctx = logging.With(ctx, logger)

	transcriber, err := services.NewWhisperTranscriber(cfg.GroqAPIKey, cfg.TranscriptionModel)
	if err != nil {
		return err
	}
	synthesizer, err := services.NewOpenAISynthesizer(cfg.OpenAIAPIKey, cfg.SpeechModel, cfg.SpeechVoice, app.uploads)
	if err != nil {
		return err
	}

	pipeline := services.NewPipeline(transcriber, app.store, services.NewGeminiChatModel(app.gemini), synthesizer,
		services.WithRetrievalLimit(int(cfg.RetrievalLimit)),
		services.WithCallTimeout(cfg.Timeout),
	)
	conversations := services.NewConversationService(pipeline, services.NewSessionRegistry(int(cfg.HistoryLimit)))

	if watch {
		backfill := services.NewCaptionBackfill(app.store, app.memories, app.uploads)
		go func() {
			if err := backfill.WatchDirectory(ctx); err != nil {
				logger.Error("uploads watcher stopped", "error", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := controller.NewRouter(controller.RouterConfig{
		Memories:      app.memories,
		Conversations: conversations,
		UploadsDir:    app.uploads.Dir,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", "http://localhost:"+cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerr.Wrap(err, "server failed", goerr.V("port", cfg.Port))
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down server")
	}
	return nil
}

func backfill(ctx context.Context, cfg *config.Config) error {
	app, logger, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close(logger)

	n, err := services.NewCaptionBackfill(app.store, app.memories, app.uploads).ScanAndCaption(logging.With(ctx, logger))
	if err != nil {
		return err
	}
	logger.Info("captioned memories", "count", n)
	return nil
}
