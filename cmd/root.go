package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"ai_blog_writer/config"
)

var version = "0.1.0"

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "blogwriter",
	Short: "AI blog writer with an editor in the loop",
	Long: `Writes short blog posts with a writer/editor refinement loop: a draft is generated,
reviewed by an editor prompt and revised until the editor approves or the iteration cap
is reached. Also answers questions with retrieval over a small vector store.

Configuration is read from --config (or ./config.yaml) and BLOGWRITER_* environment
variables, e.g. BLOGWRITER_LLM_PROVIDER=mock.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		newLogger(cfg.Log, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
