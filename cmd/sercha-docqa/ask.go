package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

var askCmd = &cobra.Command{
	Use:   "ask [doc-id] [question]",
	Short: "Ask a question about a document",
	Long: `Answers a question about an indexed document. Without a question an
interactive session starts; each line is a follow-up in the same conversation.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAsk,
}

// askSession reuses a stored conversation
var askSession string

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Session ID to continue")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		sessionID := askSession

		ask := func(question string) error {
			answer, err := a.ask.Ask(ctx, driving.AskRequest{
				DocumentID: documentID,
				Question:   question,
				SessionID:  sessionID,
			})
			if err != nil {
				return fmt.Errorf("failed to answer: %s: %w", domain.UserMessage(err), err)
			}
			sessionID = answer.SessionID
			printAnswer(cmd, answer)
			return nil
		}

		if len(args) == 2 {
			return ask(args[1])
		}

		cmd.Println("Type a question, or an empty line to quit.")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			cmd.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				return nil
			}
			if err := ask(question); err != nil {
				cmd.PrintErrln(err)
			}
		}
	})
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			cmd.Printf("  [%d] page %d (score %.3f)\n", i+1, src.Page, src.Score)
			cmd.Printf("      %s\n", strings.ReplaceAll(src.Preview, "\n", " "))
		}
	}
	cmd.Printf("\nSession: %s\n", answer.SessionID)
}
