package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question using RAG",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		llm, err := buildLLM(cfg.LLM)
		if err != nil {
			return err
		}
		svc, _, closeStore, err := buildRAG(ctx, cfg, llm, slog.Default())
		if err != nil {
			return err
		}
		defer closeStore()

		answer, err := svc.ProcessQuery(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
