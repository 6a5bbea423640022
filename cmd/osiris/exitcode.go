package main

import (
	goerrors "errors"

	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Exit codes per the core's external-interface contract: 0 success, 2
// usage/argument error, 3 validation error, 4 truncation/warning, 5
// remote transport/timeout, 1 any other internal error.
const (
	exitSuccess      = 0
	exitInternal     = 1
	exitUsage        = 2
	exitValidation   = 3
	exitTruncation   = 4
	exitRemoteFailed = 5
)

// exitCodeFor classifies err into one of the contract's exit codes by
// walking its error chain for the typed errors package/errors defines.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}

	var validationErr *streamyerrors.ValidationError
	if goerrors.As(err, &validationErr) {
		return exitValidation
	}

	var remoteErr *streamyerrors.RemoteError
	if goerrors.As(err, &remoteErr) {
		switch remoteErr.Code {
		case "RemoteTimeout", "RemoteTransportLost":
			return exitRemoteFailed
		}
		return exitInternal
	}

	var aiopErr *streamyerrors.AIOPError
	if goerrors.As(err, &aiopErr) {
		if aiopErr.Code == "TruncationApplied" {
			return exitTruncation
		}
		return exitInternal
	}

	var usageErr *usageError
	if goerrors.As(err, &usageErr) {
		return exitUsage
	}

	return exitInternal
}

// usageError marks a CLI argument/flag misuse, distinct from a
// validation failure against an OML document.
type usageError struct{ message string }

func newUsageError(message string) error { return &usageError{message: message} }

func (e *usageError) Error() string { return e.message }
