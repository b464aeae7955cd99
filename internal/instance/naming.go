// Package instance handles cairn instance naming. The instance name
// namespaces every Redis key a swarm writes, so multiple swarms can share
// one Redis without stepping on each other.
package instance

import (
	"fmt"
	"os"
	"regexp"
)

const (
	// DefaultName is used when neither the flag nor the environment names
	// an instance.
	DefaultName = "default"

	// EnvName is the environment variable consulted when no explicit
	// instance name is given.
	EnvName = "CAIRN_INSTANCE"

	// MaxNameLength is the maximum length for an instance name (DNS-compatible)
	MaxNameLength = 63
)

// NamePattern is the regex pattern for valid instance names.
// Must be DNS-compatible: lowercase alphanumeric, hyphens allowed (but not
// at start/end).
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName checks if an instance name is valid according to DNS naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// Resolve picks the effective instance name: the explicit value if given,
// then $CAIRN_INSTANCE, then the default. The result is always validated.
func Resolve(explicit string) (string, error) {
	name := explicit
	if name == "" {
		name = os.Getenv(EnvName)
	}
	if name == "" {
		name = DefaultName
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
