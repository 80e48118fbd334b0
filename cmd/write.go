package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"ai_blog_writer/server"
)

var writeJSONOut bool

var writeCmd = &cobra.Command{
	Use:   "write <topic>",
	Short: "Write one blog post from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")
		llm, err := buildLLM(cfg.LLM)
		if err != nil {
			return err
		}
		refiner, err := buildRefiner(cfg, llm, slog.Default())
		if err != nil {
			return err
		}
		res, err := refiner.Refine(cmd.Context(), topic)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if writeJSONOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(server.NewBlogResponse(res.Topic, res))
		}
		fmt.Fprintln(out, res.Content)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "iterations=%d approved=%t tokens=%d model=%s\n",
			res.Iterations, res.Approved, res.Usage.TotalTokens, res.Model)
		for i, fb := range res.EditorFeedback {
			fmt.Fprintf(out, "feedback[%d]: %s\n", i+1, fb)
		}
		return nil
	},
}

func init() {
	writeCmd.Flags().BoolVar(&writeJSONOut, "json", false, "print the API response JSON instead of plain text")
	rootCmd.AddCommand(writeCmd)
}
