package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "soulsync",
	Short: "Local mood tracking, peer matching and a supportive companion",
	Long: `soulsync runs a local daemon that keeps your mood history, matches you
with peers who feel the same way, hosts an anonymous support wall and
connects you to an AI companion.

Start the daemon with "soulsync start", then use the other commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.Version = version

	rootCmd.AddCommand(
		startCmd,
		stopCmd,
		statusCmd,
		moodCmd,
		interestsCmd,
		postCmd,
		wallCmd,
		likeCmd,
		peersCmd,
		chatCmd,
		profileCmd,
		configCmd,
		dataCmd,
	)
}

func main() {
	if os.Getenv("NO_COLOR") != "" {
		noColor = true
	}
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
