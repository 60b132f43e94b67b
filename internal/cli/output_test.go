package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktoolai/taskai/internal/model"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))

	// Caller-fixable: validation and lookup both exit 1.
	assert.Equal(t, ExitValidation, GetExitCode(model.ErrCycleDetected("a", "b")))
	assert.Equal(t, ExitValidation, GetExitCode(model.ErrNoActivePlan()))
	assert.Equal(t, ExitValidation, GetExitCode(model.ErrTaskNotFound("t")))

	assert.Equal(t, ExitEnvironment, GetExitCode(model.ErrNotInitialized()))
	assert.Equal(t, ExitEnvironment, GetExitCode(model.ErrLockTimeout()))
	assert.Equal(t, ExitEnvironment, GetExitCode(fmt.Errorf("unclassified")))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]string{"plan": "p1"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestPrintJSONError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSONError(&buf, model.ErrTaskNotFound("t1")))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TASK_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "task not found", resp.Error.Message)
	assert.Equal(t, "t1", resp.Error.EntityID)
}

func TestPrintJSONError_PlainError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSONError(&buf, fmt.Errorf("disk full")))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "STORAGE_ERROR", resp.Error.Code)
	assert.Equal(t, "disk full", resp.Error.Message)
}

func TestVerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"enabled", true, "opened store at /tmp/x\n"},
		{"disabled", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			verboseLog(&buf, &RootOptions{Verbose: tt.verbose}, "opened store at %s", "/tmp/x")
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
