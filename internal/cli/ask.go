package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfierros/routina/internal/advisor"
	"github.com/mfierros/routina/internal/assistant"
	"github.com/mfierros/routina/internal/metrics"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a single question",
	Long: `Ask the skincare assistant one question and print the reply. Current
selections are part of the conversation context.

Examples:
  routina ask "What order do I apply serum and moisturizer?"
  routina ask --web-search "Is niacinamide safe with retinol?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "Generate a routine from the selected products",
	Long: `Generate a personalized AM/PM routine built from the currently selected
products. Select products first with 'routina select' or the chat TUI.`,
	RunE: runRoutine,
}

func init() {
	askCmd.Flags().BoolVar(&searchFlag, "web-search", false, "augment the question with web search results")
	routineCmd.Flags().BoolVar(&searchFlag, "web-search", false, "augment the routine with web search results")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if _, err := loadSession(cmd.Context()); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	adv := newAdvisor()
	defer printTimings(adv)
	reply, err := adv.Send(cmd.Context(), args[0])
	if err != nil {
		return renderAssistantError(err)
	}

	fmt.Println(reply)
	return nil
}

func runRoutine(cmd *cobra.Command, args []string) error {
	if _, err := loadSession(cmd.Context()); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	adv := newAdvisor()
	defer printTimings(adv)
	reply, err := adv.GenerateRoutine(cmd.Context())
	if errors.Is(err, advisor.ErrNoSelections) {
		fmt.Println(advisor.NoSelectionsReply)
		return nil
	}
	if err != nil {
		return renderAssistantError(err)
	}

	fmt.Println(reply)
	return nil
}

// printTimings writes the session's operation timings to stderr under
// --verbose. Timings go to stderr so the reply stays pipeable.
func printTimings(adv *advisor.Advisor) {
	if !verbose {
		return
	}
	snap := adv.Metrics()
	for _, op := range []struct {
		name string
		stat *metrics.OperationSnapshot
	}{
		{"catalog load", snap.CatalogLoad},
		{"web search", snap.WebSearch},
		{"completion", snap.Completion},
	} {
		if op.stat == nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "%s: %d call(s), avg %.0f ms, %d failed\n",
			op.name, op.stat.Count, op.stat.AvgTimeMs, op.stat.Failures)
	}
}

// assistantErrorText renders a failed completion as a readable message.
// Upstream statuses are surfaced so the user can tell a 429 from an outage.
func assistantErrorText(err error) string {
	var callErr *assistant.CallError
	if errors.As(err, &callErr) {
		if callErr.Status != 0 {
			return fmt.Sprintf("assistant unavailable (HTTP %d)", callErr.Status)
		}
		return "assistant unreachable: " + callErr.Detail
	}
	return err.Error()
}

func renderAssistantError(err error) error {
	return errors.New(assistantErrorText(err))
}
