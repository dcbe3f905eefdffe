package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"gemini-chat/handler"
	"gemini-chat/internal/app"
	"gemini-chat/internal/config"
)

func main() {
	ctx := context.Background()

	logger := app.NewLogger(os.Stdout, true)
	slog.SetDefault(logger)

	// ---- Configuration ----
	cfg, err := config.Load(config.New(), os.Getenv("GEMINI_CHAT_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if cfg.Gemini.APIKey == "" && cfg.KeyParameterName() == "" {
		slog.Warn("API_KEY is not set; every chat request will fail until it is")
	}

	// ---- AWS SDK clients ----
	clients, err := app.LoadAWS(ctx, cfg)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	replyService, err := app.NewReplyService(cfg, clients, logger)
	if err != nil {
		slog.Error("failed to create reply service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(replyService,
		handler.WithLogger(logger),
		handler.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
