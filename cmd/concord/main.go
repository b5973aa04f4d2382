package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes.
const (
	ExitSuccess  = 0 // Consolidation succeeded
	ExitRejected = 1 // The submission was rejected
	ExitError    = 2 // Configuration or runtime error
)

// RejectedError indicates that the engine ran but refused the submission.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string { return "submission rejected: " + e.Err.Error() }

func (e *RejectedError) Unwrap() error { return e.Err }

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var rejected *RejectedError
		if errors.As(err, &rejected) {
			os.Exit(ExitRejected)
		}
		os.Exit(ExitError)
	}
}
