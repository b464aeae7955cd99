package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/cairnlabs/cairn/internal/config"
	"github.com/cairnlabs/cairn/internal/instance"
	"github.com/cairnlabs/cairn/internal/printer"
	"github.com/cairnlabs/cairn/pkg/swarm"
)

var (
	fieldConfigPath string
	fieldInstance   string
	fieldAt         string
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Inspect the Redis-mirrored stigmergic field",
	Long: `Inspect trail signatures recorded in the Redis field mirror.

Requires a 'redis' block in cairn.yml. Positions are given as
comma-separated coordinates and are rounded into the cell they belong to.

Examples:
  # Trails in the cell containing the origin
  cairn field --at 0,0,0

  # Another instance's field
  cairn field --name prod --at 1.5,-2,0`,
	RunE: runField,
}

func init() {
	fieldCmd.Flags().StringVarP(&fieldConfigPath, "config", "c", "cairn.yml", "Path to configuration file")
	fieldCmd.Flags().StringVar(&fieldInstance, "name", "", "Instance name (defaults to $CAIRN_INSTANCE, then 'default')")
	fieldCmd.Flags().StringVar(&fieldAt, "at", "", "Position to inspect, comma-separated (required)")
	fieldCmd.MarkFlagRequired("at")
	rootCmd.AddCommand(fieldCmd)
}

func runField(cmd *cobra.Command, args []string) error {
	position, err := parsePosition(fieldAt)
	if err != nil {
		return printer.Error("Invalid position", err.Error(), []string{
			"Pass coordinates as comma-separated numbers, e.g. --at 1.5,-2,0",
		})
	}

	store, err := openStore(fieldConfigPath, fieldInstance)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	trails, err := store.CellTrails(ctx, position)
	if err != nil {
		return fmt.Errorf("failed to read cell trails: %w", err)
	}

	if len(trails) == 0 {
		printer.Info("No trails recorded in the cell containing %v\n", position)
		return nil
	}

	printer.Info("%d trail(s) in the cell containing %v (newest first):\n\n", len(trails), position)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Trail", "Node", "Role", "Value", "Relevance", "Age")
	for _, trail := range trails {
		if err := table.Append(
			shortID(trail.ID),
			shortID(trail.EmittingNodeID),
			string(trail.RoleAtEmission),
			fmt.Sprintf("%.3f", trail.ValueProposition),
			fmt.Sprintf("%.3f", trail.RelevanceScore),
			trail.Timestamp.Format("15:04:05"),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// openStore loads the config and opens the Redis mirror, failing with a
// helpful message when the config has no redis block.
func openStore(configPath, explicitInstance string) (*swarm.Store, error) {
	instanceName, err := instance.Resolve(explicitInstance)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error("Configuration error", err.Error(), []string{
			"Run 'cairn init' to create a new cairn.yml",
		})
	}
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		return nil, printer.Error("Redis mirror not configured",
			"This command reads the Redis field mirror, but cairn.yml has no 'redis' block.",
			[]string{"Add a 'redis:' section with a 'url' to cairn.yml"})
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return swarm.NewStore(redisOpts, instanceName, swarm.StoreConfig{
		Resolution:   cfg.Swarm.Resolution,
		CellCapacity: cfg.Swarm.CellCapacity,
	})
}

func parsePosition(raw string) (swarm.Position, error) {
	parts := strings.Split(raw, ",")
	position := make(swarm.Position, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a number", strings.TrimSpace(part))
		}
		position = append(position, v)
	}
	return position, nil
}

func shortID(id string) string {
	if len(id) > 13 {
		return id[:13]
	}
	return id
}
