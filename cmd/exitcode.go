package cmd

import (
	"errors"
	"io/fs"

	"github.com/sal0-h/snoonu-smart-dispatch/core/dispatch"
	"github.com/sal0-h/snoonu-smart-dispatch/internal/dataset"
)

// Exit codes: 0 success, 1 unreadable input, 2 invalid strategy, 3 internal
// error.
const (
	ExitOK       = 0
	ExitInput    = 1
	ExitStrategy = 2
	ExitInternal = 3
)

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var schema *dataset.SchemaError
	var unknown dispatch.ErrUnknownStrategy
	switch {
	case errors.As(err, &schema),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, dataset.ErrUnknownDataset):
		return ExitInput
	case errors.As(err, &unknown):
		return ExitStrategy
	}
	return ExitInternal
}
