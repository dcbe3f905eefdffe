package cli

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gemini-chat/handler"
	"gemini-chat/internal/app"
	"gemini-chat/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the /api/chat backend",
		Long: `Run the chat backend as a plain HTTP server.

The Gemini key comes from API_KEY, or from SSM when PARAM_PREFIX is set.
Set EXCHANGE_TABLE to log request outcomes to DynamoDB.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringP("port", "p", "", "listen port (default 8080)")
	_ = opts.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	logger := app.NewLogger(cmd.OutOrStdout(), true)
	slog.SetDefault(logger)
	cfg := opts.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Gemini.APIKey == "" && cfg.KeyParameterName() == "" {
		slog.Warn("API_KEY is not set; every chat request will fail until it is")
	}

	clients, err := app.LoadAWS(ctx, cfg)
	if err != nil {
		slog.Error("Failed to load AWS config", "err", err)
		return err
	}
	svc, err := app.NewReplyService(cfg, clients, logger)
	if err != nil {
		slog.Error("Failed to create reply service", "err", err)
		return err
	}
	h, err := handler.NewHandler(svc,
		handler.WithLogger(logger),
		handler.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
	if err != nil {
		return err
	}

	slog.Info("Starting server",
		"port", cfg.Server.Port,
		"model", svc.Model(),
		"exchange_log", cfg.AWS.ExchangeTable != "",
	)
	err = server.Run(ctx, net.JoinHostPort("", cfg.Server.Port), server.NewRouter(h, cfg.Server.AllowedOrigins))
	if err != nil {
		slog.Error("Server stopped", "err", err)
	}
	return err
}
