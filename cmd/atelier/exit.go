package main

import "fmt"

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code    int
	message string
}

func (e exitError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.message
}

func newExitError(code int, format string, args ...any) exitError {
	return exitError{code: code, message: fmt.Sprintf(format, args...)}
}
