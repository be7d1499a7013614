//go:build windows

package osutils

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
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
	if err != nil {
		return false
	}

	return member
}

// EnsureFirewallRule checks if a firewall rule for the event stream port
// exists, and if not, attempts to create it using PowerShell with admin
// elevation.
func EnsureFirewallRule(port int, log zerolog.Logger) error {
	ruleName := "Scanbridge Event Stream"

	log.Info().Str("rule", ruleName).Int("port", port).Msg("checking firewall rule")

	// 1. Check if rule already exists AND matches the port
	checkCmd := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+ruleName)
	output, err := checkCmd.CombinedOutput()
	outputStr := string(output)

	if err == nil && strings.Contains(outputStr, ruleName) {
		// Rule exists, check if port matches
		portStr := fmt.Sprintf("%d", port)
		if strings.Contains(outputStr, portStr) && strings.Contains(outputStr, "Allow") {
			log.Info().Str("rule", ruleName).Msg("firewall rule already present")
			return nil
		}
		log.Info().Str("rule", ruleName).Msg("firewall rule mismatch, updating")
	} else {
		log.Info().Str("rule", ruleName).Msg("firewall rule not found, creating")
	}

	// 2. Prepare PowerShell command to create the rule. No -Program
	// restriction so the port stays open if the binary path changes.
	psCommand := fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Any",
		ruleName, ruleName, port,
	)

	// 3. Execute with RunAs verb to trigger UAC if not already admin
	if !IsAdmin() {
		log.Info().Msg("requesting UAC elevation for firewall rule")

		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", psCommand))

		var showCmd int32 = 0 // SW_HIDE

		err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, showCmd)
		if err != nil {
			return fmt.Errorf("failed to launch elevated powershell via ShellExecute: %w", err)
		}
		log.Info().Msg("UAC prompt requested")
	} else {
		cmd := exec.Command("powershell", "-NoProfile", "-Command", psCommand)
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("failed to create firewall rule: %w (output: %s)", err, string(output))
		}
		log.Info().Int("port", port).Msg("firewall rule applied")
	}

	return nil
}
