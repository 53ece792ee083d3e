//go:build !unix

package toolrunner

import "os/exec"

// killProcessGroup keeps the default behaviour: only the direct child is killed.
func killProcessGroup(cmd *exec.Cmd) {}
