// Package commands implements the scrollfollow CLI.
package commands

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/livetemplate/scrollfollow/internal/config"
)

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "scrollfollow",
		Short: "Markdown preview with section-synchronized scrolling",
		Long: `scrollfollow splits a markdown file into heading-aligned sections and
keeps each section matched with its block group in the rendered preview.

Commands:
  serve     Serve a live preview that scrolls with the source
  sections  List the sections of a file
  match     Check that source sections and preview groups agree`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			config.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().StringP("config", "c", "", "Config file (default: scrollfollow.yaml next to the document)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log every event")

	root.AddCommand(serveCmd())
	root.AddCommand(sectionsCmd())
	root.AddCommand(matchCmd())
	root.AddCommand(versionCmd(version))
	return root
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scrollfollow version %s\n", version)
		},
	}
}

// loadConfig reads --config, or looks next to the document.
func loadConfig(cmd *cobra.Command, docPath string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromDir(filepath.Dir(docPath))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
