package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ai_blog_writer/rag"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the default Q&A documents into the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		embedder, err := buildEmbedder(cfg.Embedding)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(ctx, cfg, embedder)
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := rag.Seed(ctx, store, nil, slog.Default())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
