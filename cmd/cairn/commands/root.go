package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cairn",
	Short: "Cairn - Stigmergic swarm coordinator",
	Long: `Cairn coordinates a swarm of particle agents that share discoveries
through a stigmergic field: every task cycle deposits a trail signature
other agents sense and steer towards.

Agents move with particle-swarm dynamics (inertia, personal best, global
best, trail attraction), switch behavioural roles as their energy rises
and falls, and can mirror everything into Redis for inspection and
multi-process visibility.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
