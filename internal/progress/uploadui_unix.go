//go:build !windows

package progress

import "os"

// enableVirtualTerminal does nothing outside Windows; ANSI works natively.
func enableVirtualTerminal(*os.File) {}
