// Package scaffold creates the initial cairn.yml for a new project.
package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/cairnlabs/cairn/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFile is the name of the configuration file cairn init creates.
const ConfigFile = "cairn.yml"

// Initialize creates the cairn project structure in the current directory.
// If force is true, an existing cairn.yml is removed first.
func Initialize(force bool) error {
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	content, err := templatesFS.ReadFile("templates/cairn.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read cairn.yml template: %w", err)
	}

	if err := os.WriteFile(ConfigFile, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFile, err)
	}

	return validateCreatedFile()
}

// handleForce removes the existing config if --force was specified
func handleForce() error {
	if _, err := os.Stat(ConfigFile); err == nil {
		fmt.Printf("⚠️  Removing existing %s...\n", ConfigFile)
		if err := os.Remove(ConfigFile); err != nil {
			return fmt.Errorf("failed to remove %s: %w", ConfigFile, err)
		}
	}
	return nil
}

// validateCreatedFile parses the file we just wrote through the real config
// loader, so a broken template never survives init.
func validateCreatedFile() error {
	if _, err := config.Load(ConfigFile); err != nil {
		return fmt.Errorf("created %s is not a valid configuration: %w", ConfigFile, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized cairn project!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", ConfigFile)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Customize %s to add your own agents and routing rules\n", ConfigFile)
	fmt.Println("  2. Run 'cairn run --cycles 10' to drive the swarm")
	fmt.Println("  3. Run 'cairn status' to inspect swarm health")
}
