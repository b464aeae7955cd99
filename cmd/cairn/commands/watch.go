package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cairnlabs/cairn/internal/printer"
)

var (
	watchConfigPath string
	watchInstance   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream trail deposits in real time",
	Long: `Subscribe to the Redis trail-event channel and print every trail
signature the swarm deposits, as it happens. Requires a 'redis' block in
cairn.yml. Stop with Ctrl+C.

Examples:
  # Watch the default instance
  cairn watch

  # Watch a specific instance
  cairn watch --name prod`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchConfigPath, "config", "c", "cairn.yml", "Path to configuration file")
	watchCmd.Flags().StringVar(&watchInstance, "name", "", "Instance name (defaults to $CAIRN_INSTANCE, then 'default')")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openStore(watchConfigPath, watchInstance)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	subscription, err := store.SubscribeTrailEvents(ctx)
	if err != nil {
		return printer.Error("Cannot subscribe to trail events", err.Error(), []string{
			"Check that Redis is reachable at the configured url",
		})
	}
	defer subscription.Close()

	printer.Step("Watching trail deposits (Ctrl+C to stop)...\n\n")

	for {
		select {
		case <-ctx.Done():
			printer.Println("\nStopped.")
			return nil

		case trail, ok := <-subscription.Events():
			if !ok {
				return nil
			}
			success := ""
			if succeeded, isBool := trail.Data["task_success"].(bool); isBool && !succeeded {
				success = "  [task failed]"
			}
			printer.Printf("%s  %s  %-8s at %v  value=%.3f relevance=%.3f%s\n",
				trail.Timestamp.Format("15:04:05"),
				shortID(trail.EmittingNodeID),
				trail.RoleAtEmission,
				trail.PositionAtEmission,
				trail.ValueProposition,
				trail.RelevanceScore,
				success)

		case err, ok := <-subscription.Errors():
			if !ok {
				return nil
			}
			printer.Warning("subscription error: %v\n", err)
		}
	}
}
