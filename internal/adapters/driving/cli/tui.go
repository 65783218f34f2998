package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/adapters/driving/tui"
	"github.com/custodia-labs/bpa/internal/core/domain"
)

var (
	chatRole         string
	chatUser         string
	chatSession      string
	chatConversation string
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Launch the interactive terminal chat.

Every answer continues the same conversation and lists its sources.

Controls:
  Enter     - Send question
  Ctrl+N    - Start a new conversation
  PgUp/PgDn - Scroll transcript
  Esc       - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatRole, "role", "student", "caller role: public, student or staff")
	chatCmd.Flags().StringVar(&chatUser, "user", "", "authenticated user id")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "anonymous session id")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "conversation id to continue")
	chatCmd.MarkFlagsMutuallyExclusive("user", "session")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if answerService == nil {
		return notConfigured("answer")
	}

	role, err := domain.ParseAccessRole(chatRole)
	if err != nil {
		return err
	}
	owner, _ := resolveOwner(chatUser, chatSession)

	app, err := tui.NewApp(&tui.Ports{Answer: answerService}, tui.Session{
		Owner:          owner,
		Role:           role,
		ConversationID: chatConversation,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
