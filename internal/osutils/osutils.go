// Package osutils holds OS administration helpers used by the server.
package osutils

import (
	"fmt"
	"strings"
)

// FirewallRule allows inbound traffic to one local port.
type FirewallRule struct {
	Name     string
	Port     int
	Protocol string // TCP or UDP
}

// script returns the PowerShell command replacing any rule of the same
// name with r.
func (r FirewallRule) script() string {
	name := strings.ReplaceAll(r.Name, "'", "''")
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; "+
			"New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol %s -Action Allow -Profile Any",
		name, name, r.Port, strings.ToUpper(r.Protocol),
	)
}

// matches reports whether netsh output describes r as an allow rule.
func (r FirewallRule) matches(netshOutput string) bool {
	return strings.Contains(netshOutput, r.Name) &&
		strings.Contains(netshOutput, fmt.Sprint(r.Port)) &&
		strings.Contains(netshOutput, "Allow") &&
		strings.Contains(strings.ToUpper(netshOutput), strings.ToUpper(r.Protocol))
}
