package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/assessment"
	"github.com/hpkotak/mindful/internal/logging"
	"github.com/hpkotak/mindful/internal/repl"
	"github.com/hpkotak/mindful/internal/setup"
)

const assessDisclaimer = "This assessment is not a diagnostic tool. If you are experiencing severe symptoms, please consult with a mental health professional."

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Take a short wellbeing check-in",
	Long: `Answer ten multiple-choice questions about mood, anxiety, energy,
connection and thoughts. Mindful scores them and suggests next steps.

Answers are not stored or sent anywhere.`,
	Args: cobra.NoArgs,
	RunE: runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	pr := setup.NewPrompter(ioIn, ioOut)

	_, _ = fmt.Fprintln(ioOut, "Mindful Check-in")
	_, _ = fmt.Fprintln(ioOut, "================")
	_, _ = fmt.Fprintln(ioOut, assessDisclaimer)

	answers := assessment.Answers{}
	for i, q := range assessment.Questions {
		labels := make([]string, len(q.Options))
		for j, o := range q.Options {
			labels[j] = o.Label
		}
		title := fmt.Sprintf("%d/%d. %s", i+1, len(assessment.Questions), q.Text)

		for {
			n, err := pr.Choose(title, labels, 0)
			if errors.Is(err, setup.ErrNoInput) {
				return fmt.Errorf("check-in ended before question %d", i+1)
			}
			if err != nil {
				_, _ = fmt.Fprintf(ioOut, "Please enter a number from 1 to %d.\n", len(labels))
				continue
			}
			answers[q.ID] = q.Options[n].Value
			break
		}
	}

	res := assessment.Score(answers)
	logging.L().Info("assessment completed",
		zap.Stringer("severity", res.Severity),
		zap.Int("score", res.OverallScore),
		zap.Int("risk_factors", len(res.RiskFactors)),
	)
	printAssessment(ioOut, res)
	return nil
}

func printAssessment(out io.Writer, res assessment.Result) {
	_, _ = fmt.Fprintln(out, "\nYour results")
	_, _ = fmt.Fprintln(out, "------------")
	_, _ = fmt.Fprintf(out, "  Overall: %d/%d (%s)\n", res.OverallScore, assessment.MaxScore(), res.Severity)
	_, _ = fmt.Fprintf(out, "  Primary area of concern: %s\n", res.PrimaryConcern.Concern())
	if len(res.RiskFactors) > 0 {
		_, _ = fmt.Fprintf(out, "  Key factors: %s\n", strings.Join(res.RiskFactors, ", "))
	}

	_, _ = fmt.Fprintln(out, "\n  Category breakdown:")
	for _, c := range assessment.Categories {
		_, _ = fmt.Fprintf(out, "    %-9s %.2f\n", c, res.CategoryScores[c])
	}

	_, _ = fmt.Fprintf(out, "\n  %s\n", res.SuggestedApproach)
	if res.NeedsCrisisSupport() {
		_, _ = fmt.Fprintf(out, "\n%s\n", repl.CrisisNotice)
	}
	_, _ = fmt.Fprintln(out, "\nWhen you're ready to talk it through, run: mindful chat")
}
