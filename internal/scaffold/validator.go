package scaffold

import (
	"fmt"
	"os"
)

// CheckExisting checks whether cairn.yml already exists.
// Returns an error if it does, nil otherwise.
func CheckExisting() error {
	if _, err := os.Stat(ConfigFile); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'cairn init --force' to reinitialize (this will overwrite existing configuration)", ConfigFile)
	}
	return nil
}
