package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hpkotak/mindful/internal/repl"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with Mindful.
Replies stream as they are written. Press Ctrl+C to stop a reply.

Type 'exit' or 'quit' to end the session. Ctrl+D also works.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newAssembler(cfg)
	if err != nil {
		return err
	}
	return repl.Run(commandContext(cmd), a, ioIn, ioOut)
}
