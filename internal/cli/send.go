package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gemini-chat/internal/app"
	"gemini-chat/internal/chatapi"
	"gemini-chat/internal/conversation"
)

var errBackendUnavailable = errors.New("chat backend did not answer")

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message and print the reply",
		Long: `Send a single message to the backend and print the reply.

With no arguments the message is read from standard input. The command
prints the same notice as the chat window when the backend fails, and
exits non-zero.`,
		Example: `  gemini-chat send "What is the capital of France?"
  echo "hello" | gemini-chat send`,
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if len(args) == 0 {
				in, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read message: %w", err)
				}
				message = string(in)
			}
			return runSend(cmd, opts, message)
		},
	}
}

func runSend(cmd *cobra.Command, opts *rootOptions, message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.New("message must not be empty")
	}

	client, err := chatapi.NewClient(opts.cfg.Client.BackendURL, chatapi.WithTimeout(opts.cfg.Client.Timeout))
	if err != nil {
		return err
	}
	ctrl, err := conversation.NewController(client,
		conversation.WithLogger(app.NewLogger(cmd.ErrOrStderr(), false)),
	)
	if err != nil {
		return err
	}

	ctrl.Send(cmd.Context(), message)
	msgs := ctrl.Messages()
	reply := msgs[len(msgs)-1].Content
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	if reply == conversation.FallbackReply {
		return errBackendUnavailable
	}
	return nil
}
