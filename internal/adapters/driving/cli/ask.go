package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

var (
	askRole         string
	askConversation string
	askUser         string
	askSession      string
	askJSON         bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from ingested documents",
	Long: `Retrieve the fragments visible to your role, compress them and synthesise
a cited answer. Answers continue a conversation when --conversation is given.

Without --user or --session a new anonymous session is started and its id
is printed so the conversation can be continued.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askRole, "role", "student", "caller role: public, student or staff")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "conversation id to continue")
	askCmd.Flags().StringVar(&askUser, "user", "", "authenticated user id")
	askCmd.Flags().StringVar(&askSession, "session", "", "anonymous session id")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.MarkFlagsMutuallyExclusive("user", "session")
	rootCmd.AddCommand(askCmd)
}

// resolveOwner picks the conversation owner. It returns the generated
// session id when neither a user nor a session was given.
func resolveOwner(user, session string) (domain.Owner, string) {
	switch {
	case user != "":
		return domain.AuthenticatedUser(user), ""
	case session != "":
		return domain.AnonymousSession(session), ""
	default:
		id := uuid.New().String()
		return domain.AnonymousSession(id), id
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return notConfigured("answer")
	}

	role, err := domain.ParseAccessRole(askRole)
	if err != nil {
		return err
	}
	query := strings.Join(args, " ")
	owner, generated := resolveOwner(askUser, askSession)

	answer := answerService.AnswerQuery(cmd.Context(), domain.AnswerRequest{
		Query:          query,
		Role:           role,
		ConversationID: askConversation,
		Owner:          owner,
	})

	if askJSON {
		if err := outputJSON(cmd, answer); err != nil {
			return err
		}
	} else {
		outputAnswer(cmd, answer)
		if generated != "" {
			cmd.Println(muted(fmt.Sprintf("Session: %s (continue with --session %s --conversation %s)",
				generated, generated, answer.ConversationID)))
		}
	}

	if answer.Meta.Error {
		return errors.New(answer.Meta.Message)
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Answer)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println(heading("Sources:"))
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s\n", i+1, formatCitation(c))
		}
	}

	cmd.Println()
	cmd.Println(muted(fmt.Sprintf("Role: %s  Sources: %d  Conversation: %s",
		answer.Meta.RoleUsed, answer.Meta.SourceCount, answer.ConversationID)))
}

func formatCitation(c domain.Citation) string {
	var b strings.Builder
	b.WriteString(c.Title)
	if c.Page > 0 {
		fmt.Fprintf(&b, ", page %d", c.Page)
	}
	if c.URL != "" {
		fmt.Fprintf(&b, " (%s)", c.URL)
	}
	return b.String()
}
