package cli

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"gemini-chat/internal/app"
	"gemini-chat/internal/chatapi"
	"gemini-chat/internal/conversation"
	"gemini-chat/internal/tui"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the chat window (default)",
		Long: `Open the full-screen chat window.

Messages go to the backend's /api/chat endpoint. Press ctrl+g to show the
deployment guide and esc to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions) error {
	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if path := opts.cfg.Client.LogFile; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := app.NewLogger(logOut, false)

	client, err := chatapi.NewClient(opts.cfg.Client.BackendURL, chatapi.WithTimeout(opts.cfg.Client.Timeout))
	if err != nil {
		return err
	}
	logger.Info("chat window starting", "backend", client.URL())

	var p *tea.Program
	ctrl, err := conversation.NewController(client,
		conversation.WithLogger(logger),
		conversation.WithOnChange(func() {
			if p != nil {
				p.Send(tui.ChangedMsg{})
			}
		}),
	)
	if err != nil {
		return err
	}

	p = tea.NewProgram(tui.New(cmd.Context(), ctrl),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat window: %w", err)
	}
	return nil
}
