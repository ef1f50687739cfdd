//go:build windows

package osutils

import (
	"fmt"
	"log/slog"
	"os/exec"

	"golang.org/x/sys/windows"
)

// IsAdmin reports whether the process token is a member of the
// Administrators group.
func IsAdmin() bool {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	return err == nil && member
}

// EnsureFirewallRule creates r unless an allow rule of that name and port
// already exists. Without elevation it asks for it through UAC and returns
// without waiting for the user.
func EnsureFirewallRule(r FirewallRule, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "firewall", "rule", r.Name, "port", r.Port, "protocol", r.Protocol)

	out, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+r.Name).CombinedOutput()
	if err == nil && r.matches(string(out)) {
		logger.Debug("rule present")
		return nil
	}

	script := r.script()
	if IsAdmin() {
		if out, err := exec.Command("powershell", "-NoProfile", "-Command", script).CombinedOutput(); err != nil {
			return fmt.Errorf("osutils: create firewall rule: %w (%s)", err, out)
		}
		logger.Info("rule created")
		return nil
	}

	logger.Info("requesting elevation to create rule")
	verb, _ := windows.UTF16PtrFromString("runas")
	exe, _ := windows.UTF16PtrFromString("powershell.exe")
	args, _ := windows.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", script))
	if err := windows.ShellExecute(0, verb, exe, args, nil, windows.SW_HIDE); err != nil {
		return fmt.Errorf("osutils: elevate: %w", err)
	}
	return nil
}
