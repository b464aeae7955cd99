package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cairnlabs/cairn/internal/coordinator"
	"github.com/cairnlabs/cairn/internal/printer"
	swarmpkg "github.com/cairnlabs/cairn/pkg/swarm"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of a running swarm",
	Long: `Query a running cairnd daemon's health endpoint and display swarm
metrics: agent activity, role distribution, mean energy and the current
global best.

Examples:
  # Query the default local daemon
  cairn status

  # Query a daemon on another host
  cairn status --addr http://swarm-host:8080`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "Base address of the cairnd health server")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusAddr + "/healthz")
	if err != nil {
		return printer.Error("Cannot reach swarm daemon", err.Error(), []string{
			"Check that cairnd is running",
			fmt.Sprintf("Check that the daemon is listening at %s", statusAddr),
		})
	}
	defer resp.Body.Close()

	var health coordinator.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}

	if health.Status == "healthy" {
		printer.Success("Swarm is healthy\n")
	} else {
		printer.Warning("Swarm is %s: %s\n", health.Status, health.Error)
	}
	if health.Redis != "" {
		printer.Printf("  Redis:  %s\n", health.Redis)
	}

	swarm := health.Swarm
	printer.Printf("  Cycles: %d completed, %d failed task(s)\n", swarm.CyclesCompleted, swarm.FailedTasks)
	printer.Printf("  Energy: %.3f mean across %d agent(s) (%d active)\n",
		swarm.MeanEnergy, swarm.TotalAgents, swarm.ActiveAgents)
	printer.Printf("  Field:  %d occupied cell(s)\n", swarm.FieldCells)
	if gb := swarm.GlobalBest; gb != nil {
		printer.Printf("  Best:   %s at %v (resonance %.4f)\n", gb.NodeID, gb.Position, gb.ResonanceScore)
	}

	if len(swarm.RoleDistribution) > 0 {
		printer.Println()
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Role", "Agents")
		for _, role := range swarmpkg.KnownRoles {
			if count, ok := swarm.RoleDistribution[role]; ok {
				if err := table.Append(string(role), fmt.Sprintf("%d", count)); err != nil {
					return err
				}
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	return nil
}
