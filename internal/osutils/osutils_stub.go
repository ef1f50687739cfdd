//go:build !windows

package osutils

import "log/slog"

// IsAdmin reports false outside Windows.
func IsAdmin() bool { return false }

// EnsureFirewallRule does nothing outside Windows.
func EnsureFirewallRule(r FirewallRule, logger *slog.Logger) error {
	if logger != nil {
		logger.Debug("firewall rules are only managed on Windows", "rule", r.Name)
	}
	return nil
}
