package codes

import (
	"fmt"
	"syscall"
)

// ErrorCodes maps conventional process exit statuses to their descriptions
var ErrorCodes = map[int]string{
	0:   "Success",
	1:   "General failure",
	2:   "Misuse of command or invalid arguments",
	126: "Command found but not executable",
	127: "Command not found",
	128: "Invalid exit argument",
}

// GetErrorMessage returns the description for a given exit code.
// Codes above 128 are reported as the signal that terminated the process.
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	if code > 128 && code < 128+65 {
		sig := syscall.Signal(code - 128)
		return fmt.Sprintf("Terminated by signal %d (%s)", int(sig), sig.String())
	}

	return "Unknown error"
}
