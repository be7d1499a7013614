//go:build !windows

package osutils

import "github.com/rs/zerolog"

// IsAdmin reports false on platforms without Windows token queries.
func IsAdmin() bool { return false }

// EnsureFirewallRule is a no-op off Windows.
func EnsureFirewallRule(port int, log zerolog.Logger) error {
	return nil
}
