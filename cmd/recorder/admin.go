package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/its-ammu/ai-interview-bot/internal/backend"
)

func newQuestionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "Generate a list of interview questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}

			questions, err := client.GenerateQuestions(cmd.Context())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error generating questions. Please try again.")
				return err
			}

			out := cmd.OutOrStdout()
			for i, q := range questions {
				fmt.Fprintf(out, "%d. %s\n", i+1, q)
			}
			return nil
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question and print its answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}

			answer, err := client.CheckAnswer(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Sorry, I encountered an error processing your question.")
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func newCandidateCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "candidate <id>",
		Short: "Show a candidate's tests and recorded answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}

			candidate, err := client.Candidate(cmd.Context(), args[0])
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error loading candidate details. Please try again.")
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(candidate)
			}

			printCandidate(cmd.OutOrStdout(), candidate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw candidate record")

	return cmd
}

func printCandidate(w io.Writer, c *backend.Candidate) {
	fmt.Fprintf(w, "%s (%s)\n", c.Name, c.Position)
	fmt.Fprintf(w, "Score: %s\n", scoreText(c.Score))
	fmt.Fprintf(w, "Feedback: %s\n", c.FeedbackStatus)

	for _, test := range c.Tests {
		fmt.Fprintf(w, "\n[%d] %s (%s)\n", test.ID, test.Title, test.Status)
		for _, q := range test.Questions {
			fmt.Fprintf(w, "  Q%d: %s\n", q.ID, q.Question)
			if q.Answer == "" {
				fmt.Fprintln(w, "      No answer recorded")
				continue
			}
			fmt.Fprintf(w, "      Answer: %s\n", q.Answer)
			fmt.Fprintf(w, "      Score: %s\n", scoreText(q.Score))
			if q.Feedback != "" {
				fmt.Fprintf(w, "      Feedback: %s\n", q.Feedback)
			}
		}
	}
}

func scoreText(score *float64) string {
	return (&backend.Feedback{Score: score}).ScoreText()
}

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <test-id>",
		Short: "Mark a test as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.newClient()
			if err != nil {
				return err
			}

			if err := client.CompleteTest(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Test %s completed\n", args[0])
			return nil
		},
	}
}
