package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var errChecksFailed = errors.New("one or more checks failed")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and external services",
	Long: `Validate the settings, then ping the embedding service, the LLM and the
vector index and report each result.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	healthy := true

	if settingsService != nil {
		if err := settingsService.Validate(); err != nil {
			healthy = false
			cmd.Printf("%-10s %s %v\n", "settings", failStyle.Render("FAIL"), err)
		} else {
			cmd.Printf("%-10s %s\n", "settings", okStyle.Render("OK"))
		}
	}

	if healthService == nil {
		return notConfigured("health")
	}

	for _, status := range healthService.Check(cmd.Context()) {
		if status.Err != nil {
			healthy = false
			cmd.Printf("%-10s %s %s: %v\n", status.Name, failStyle.Render("FAIL"), status.Detail, status.Err)
			continue
		}
		cmd.Printf("%-10s %s %s\n", status.Name, okStyle.Render("OK"), status.Detail)
	}

	if !healthy {
		return errChecksFailed
	}
	return nil
}
