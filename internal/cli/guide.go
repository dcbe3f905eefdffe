package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gemini-chat/internal/guide"
)

func newGuideCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Print the deployment guide",
		Args:  cobra.NoArgs,
		// The guide is static and needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), guide.Render(width))
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 72, "wrap width, 0 disables wrapping")
	return cmd
}
