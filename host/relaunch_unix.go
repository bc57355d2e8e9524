//go:build unix

package host

import (
	"os"
	"syscall"
)

// relaunch replaces the running image, keeping the PID, the terminal and
// the environment. The old D-Bus connection closes with the exec.
func relaunch(exe string, args []string) error {
	argv := append([]string{exe}, args...)
	return syscall.Exec(exe, argv, os.Environ())
}
