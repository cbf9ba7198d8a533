package cmd

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sal0-h/snoonu-smart-dispatch/core/dispatch"
	"github.com/sal0-h/snoonu-smart-dispatch/internal/dataset"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitInput, ExitCode(&dataset.SchemaError{File: "orders.csv", Detail: "missing column"}))
	assert.Equal(t, ExitInput, ExitCode(fmt.Errorf("open: %w", fs.ErrNotExist)))
	assert.Equal(t, ExitInput, ExitCode(fmt.Errorf("%w %q", dataset.ErrUnknownDataset, "nope")))
	assert.Equal(t, ExitStrategy, ExitCode(dispatch.ErrUnknownStrategy{Name: "bogus"}))
	assert.Equal(t, ExitInternal, ExitCode(fmt.Errorf("boom")))
}
