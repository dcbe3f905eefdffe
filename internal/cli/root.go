// Package cli implements the gemini-chat command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"gemini-chat/internal/config"
)

// rootOptions is shared by every subcommand. cfg is filled in by the
// persistent pre-run hook.
type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "gemini-chat",
		Short: "Chat with Google Gemini from the terminal",
		Long: `gemini-chat is a small chat bot backed by Google Gemini.

Run it without arguments to open the chat window. Use 'gemini-chat serve'
to run the /api/chat backend yourself and 'gemini-chat guide' to see how to
deploy it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.load,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default ~/.gemini-chat/config.yaml)")
	flags.StringP("backend", "b", "", "chat backend base URL (default http://localhost:8080)")
	_ = opts.v.BindPFlag("client.backend_url", flags.Lookup("backend"))

	cmd.AddCommand(
		newChatCmd(opts),
		newSendCmd(opts),
		newServeCmd(opts),
		newGuideCmd(),
		newExchangesCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load(*cobra.Command, []string) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	cfg, err := config.Load(o.v, o.cfgFile)
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}
