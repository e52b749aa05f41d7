package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"dockagent/internal/conversation"
	"dockagent/internal/reviewer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:   "dockagent",
		Short: "Evidence-based Dockerfile generation for Python services",
	}
	configPath string
	reportPath string
	dbPath     string
	verbose    bool

	jsonOutput bool
	answers    []string
	outputPath string
)

// Exit codes beyond 1 tell scripts why no artifact was produced.
const (
	exitRefused       = 2
	exitNeedsAnswers  = 3
	exitReviewFailure = 4
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "dockagent.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "", "Write the JSON run report to this path")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Record finished sessions in this SQLite database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the analyzer snapshot as JSON")
	generateCmd.Flags().StringArrayVarP(&answers, "answer", "a", nil, "Clarification answer as id=value (repeatable)")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the Dockerfile to this path instead of stdout")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(reviewCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a repository and report what would be generated",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		defer logger.Sync()
		ctx := context.Background()

		o, err := newOrchestrator(cfg, logger)
		if err != nil {
			log.Fatalf("Failed to set up analysis: %v", err)
		}
		o.SetRepoPath(args[0])
		snap, err := o.RunAnalysis(ctx)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		action := o.EvaluateNextAction()

		if jsonOutput {
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				log.Fatalf("Failed to encode snapshot: %v", err)
			}
			fmt.Println(string(data))
		} else {
			fmt.Println(renderSnapshot(snap))
			fmt.Println(renderAction(action, o.State().Confidence(), o.State().ConfidenceSource()))
			if qs := o.State().PendingQuestions(); len(qs) > 0 {
				fmt.Println(renderQuestions(qs))
			}
		}

		finishSession(ctx, cfg, logger, o, action)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Generate a Dockerfile when the evidence makes it safe",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		given, err := parseAnswers(answers)
		if err != nil {
			log.Fatalf("Invalid --answer: %v", err)
		}

		cfg, logger := loadConfig()
		defer logger.Sync()
		ctx := context.Background()

		o, err := newOrchestrator(cfg, logger)
		if err != nil {
			log.Fatalf("Failed to set up analysis: %v", err)
		}
		o.SetRepoPath(args[0])
		snap, err := o.RunAnalysis(ctx)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		fmt.Fprintln(os.Stderr, renderSnapshot(snap))

		action := o.EvaluateNextAction()
		if action == conversation.ActionNeedsClarification && len(given) > 0 {
			if err := o.SubmitClarificationAnswers(given); err != nil {
				log.Fatalf("Failed to submit answers: %v", err)
			}
			action = o.EvaluateNextAction()
		} else if ids := unusedAnswers(action, given); len(ids) > 0 {
			logger.Warn("clarification answers ignored: no question is pending",
				zap.String("action", string(action)),
				zap.Strings("ids", ids))
		}
		fmt.Fprintln(os.Stderr, renderAction(action, o.State().Confidence(), o.State().ConfidenceSource()))

		switch action {
		case conversation.ActionNeedsClarification:
			fmt.Fprintln(os.Stderr, renderQuestions(o.State().PendingQuestions()))
			finishSession(ctx, cfg, logger, o, action)
			os.Exit(exitNeedsAnswers)
		case conversation.ActionRefused:
			fmt.Fprintln(os.Stderr, renderReasons("Generation refused:", refusalReasons(o.State(), action)))
			finishSession(ctx, cfg, logger, o, action)
			os.Exit(exitRefused)
		}

		out, err := o.RunGeneration()
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
		action = o.EvaluateNextAction()
		finishSession(ctx, cfg, logger, o, action)

		if out.Status == conversation.StatusRefused {
			fmt.Fprintln(os.Stderr, renderReasons("Generation refused:", out.Reasons))
			os.Exit(exitRefused)
		}
		for _, w := range out.Warnings {
			fmt.Fprintln(os.Stderr, warningStyle.Render("! "+w))
		}

		if outputPath != "" {
			if err := os.WriteFile(outputPath, []byte(out.Dockerfile), 0644); err != nil {
				log.Fatalf("Failed to write %s: %v", outputPath, err)
			}
			fmt.Fprintln(os.Stderr, successStyle.Render("Dockerfile written to "+outputPath))
		} else {
			fmt.Print(out.Dockerfile)
		}

		if out.Review != nil {
			fmt.Fprintln(os.Stderr, renderReview(*out.Review))
			if !out.Review.Passed {
				os.Exit(exitReviewFailure)
			}
		}
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review [dockerfile]",
	Short: "Statically review an existing Dockerfile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read %s: %v", args[0], err)
		}
		rep := reviewer.New().Review(string(data))
		fmt.Println(renderReview(rep))
		if !rep.Passed {
			os.Exit(exitReviewFailure)
		}
	},
}

// unusedAnswers lists the answer ids that will not be submitted because the
// session is not waiting for clarification.
func unusedAnswers(action conversation.Action, given map[string]string) []string {
	if action == conversation.ActionNeedsClarification || len(given) == 0 {
		return nil
	}
	ids := make([]string, 0, len(given))
	for id := range given {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func parseAnswers(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, r := range raw {
		id, value, ok := strings.Cut(r, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("%q is not id=value", r)
		}
		out[id] = strings.TrimSpace(value)
	}
	return out, nil
}
