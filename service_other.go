//go:build !windows

// Stubs for service functions on non-Windows platforms. Unattended
// operation on these platforms uses the watch command under systemd or
// similar instead of a service manager integration.
package main

// HandleServiceCommand is a no-op on non-Windows platforms.
// Returns false to indicate no service command was handled.
func HandleServiceCommand(args []string) bool {
	return false
}
