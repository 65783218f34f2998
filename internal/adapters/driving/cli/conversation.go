package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

var (
	conversationUser    string
	conversationSession string
	conversationJSON    bool
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Manage your conversations",
	Long: `List, show and delete conversations. Every command is scoped to the owner
given by --user or --session; other owners' conversations are not found.`,
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runConversationList,
}

var conversationShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation with its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationShow,
}

var conversationDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationDelete,
}

func init() {
	conversationCmd.PersistentFlags().StringVar(&conversationUser, "user", "", "authenticated user id")
	conversationCmd.PersistentFlags().StringVar(&conversationSession, "session", "", "anonymous session id")
	conversationCmd.MarkFlagsMutuallyExclusive("user", "session")
	conversationListCmd.Flags().BoolVar(&conversationJSON, "json", false, "output as JSON")
	conversationShowCmd.Flags().BoolVar(&conversationJSON, "json", false, "output as JSON")

	conversationCmd.AddCommand(conversationListCmd)
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationDeleteCmd)
	rootCmd.AddCommand(conversationCmd)
}

func conversationOwner() (domain.Owner, error) {
	switch {
	case conversationUser != "":
		return domain.AuthenticatedUser(conversationUser), nil
	case conversationSession != "":
		return domain.AnonymousSession(conversationSession), nil
	default:
		return domain.Owner{}, errors.New("--user or --session is required")
	}
}

func runConversationList(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return notConfigured("conversation")
	}
	owner, err := conversationOwner()
	if err != nil {
		return err
	}

	convs, err := conversationService.List(cmd.Context(), owner)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if conversationJSON {
		if convs == nil {
			convs = []domain.ConversationSummary{}
		}
		return outputJSON(cmd, convs)
	}

	if len(convs) == 0 {
		cmd.Println("No conversations found.")
		return nil
	}

	cmd.Println(heading("Conversations:"))
	cmd.Println()
	for i := range convs {
		c := &convs[i]
		cmd.Printf("  %s  %d messages  role %s  updated %s\n",
			c.ID, c.MessageCount, c.Role, c.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runConversationShow(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return notConfigured("conversation")
	}
	owner, err := conversationOwner()
	if err != nil {
		return err
	}

	conv, err := conversationService.Get(cmd.Context(), args[0], owner)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", args[0])
		}
		return fmt.Errorf("failed to get conversation: %w", err)
	}

	if conversationJSON {
		return outputJSON(cmd, conv)
	}

	cmd.Println(heading("Conversation " + conv.ID))
	cmd.Printf("Role: %s  Created: %s\n", conv.Role, conv.CreatedAt.Format("2006-01-02 15:04"))
	cmd.Println()
	for _, m := range conv.Messages {
		cmd.Printf("%s %s\n", headingStyle.Render(string(m.Sender)+":"), m.Text)
	}
	return nil
}

func runConversationDelete(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return notConfigured("conversation")
	}
	owner, err := conversationOwner()
	if err != nil {
		return err
	}

	if err := conversationService.Delete(cmd.Context(), args[0], owner); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", args[0])
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	cmd.Printf("Deleted conversation %s\n", args[0])
	return nil
}
