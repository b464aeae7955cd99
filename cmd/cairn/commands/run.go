package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cairnlabs/cairn/internal/config"
	"github.com/cairnlabs/cairn/internal/coordinator"
	"github.com/cairnlabs/cairn/internal/instance"
	"github.com/cairnlabs/cairn/internal/observability"
	"github.com/cairnlabs/cairn/internal/printer"
)

var (
	runConfigPath string
	runInstance   string
	runCycles     int
	runTaskType   string
	runPurpose    []string
	runIntensity  float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run swarm cycles in the foreground",
	Long: `Run a fixed number of swarm sweeps and print a summary.

Each sweep executes one task cycle on every configured agent: agents move
through the shared space, deposit trail signatures into the stigmergic
field, and adjust their roles based on energy. With --purpose, a purpose
vector pulse is issued before the first sweep.

Examples:
  # Ten heartbeat sweeps
  cairn run --cycles 10

  # Drive a specific task type under a purpose pulse
  cairn run --cycles 5 --task analyze --purpose stabilize --purpose explore`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "cairn.yml", "Path to configuration file")
	runCmd.Flags().StringVar(&runInstance, "name", "", "Instance name (defaults to $CAIRN_INSTANCE, then 'default')")
	runCmd.Flags().IntVarP(&runCycles, "cycles", "n", 1, "Number of sweeps to run")
	runCmd.Flags().StringVarP(&runTaskType, "task", "t", "heartbeat", "Task type to dispatch each sweep")
	runCmd.Flags().StringArrayVar(&runPurpose, "purpose", nil, "Symbolic purpose targets (repeatable)")
	runCmd.Flags().Float64Var(&runIntensity, "intensity", 1.0, "Purpose pulse intensity")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runCycles < 1 {
		return printer.Error("Invalid cycle count", fmt.Sprintf("--cycles must be at least 1, got %d", runCycles), nil)
	}

	instanceName, err := instance.Resolve(runInstance)
	if err != nil {
		return err
	}

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return printer.Error("Configuration error", err.Error(), []string{
			"Run 'cairn init' to create a new cairn.yml",
			fmt.Sprintf("Check that %s exists and is valid YAML", runConfigPath),
		})
	}

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "cairn",
	})
	defer observability.Sync(logger)

	coord, store, err := coordinator.Build(cfg, coordinator.BuildOptions{
		InstanceName: instanceName,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if len(runPurpose) > 0 {
		pulse := coord.SetPurpose(runPurpose, runIntensity)
		printer.Step("Purpose pulse %s issued: %v\n", pulse.VectorID[:8], pulse.SymbolicTargets)
	}

	printer.Step("Running %d sweep(s) of task '%s' on %d agent(s)\n", runCycles, runTaskType, len(coord.AgentNames()))

	for i := 0; i < runCycles; i++ {
		if err := coord.Sweep(ctx, runTaskType); err != nil {
			if ctx.Err() != nil {
				printer.Warning("Interrupted after %d sweep(s)\n", i)
				break
			}
			return fmt.Errorf("sweep %d failed: %w", i+1, err)
		}
	}

	printSummary(coord)
	return nil
}

func printSummary(coord *coordinator.Coordinator) {
	health := coord.Health()

	printer.Success("Completed %d cycle(s), %d failed task(s)\n", health.CyclesCompleted, health.FailedTasks)
	printer.Printf("  Agents:      %d active / %d total\n", health.ActiveAgents, health.TotalAgents)
	printer.Printf("  Mean energy: %.3f\n", health.MeanEnergy)
	printer.Printf("  Field cells: %d\n", health.FieldCells)
	if gb := health.GlobalBest; gb != nil {
		printer.Printf("  Global best: %s (resonance %.4f)\n", gb.NodeID, gb.ResonanceScore)
	}
}
