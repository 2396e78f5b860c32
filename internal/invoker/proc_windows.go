//go:build windows

package invoker

import "os/exec"

// setProcessGroup is a no-op on Windows; exec.CommandContext kills the process.
func setProcessGroup(cmd *exec.Cmd) {}
