package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCommand_Text(t *testing.T) {
	out, err := runCommand(t, "log", "p-1", "--db", seedDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "ADD_ELEMENT")
	assert.Contains(t, out, "MOVE_ELEMENT")
	assert.Contains(t, out, "2 action(s)")
}

func TestLogCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "log", "p-1", "--db", seedDB(t))
	require.NoError(t, err)

	status, entries := decodeResponse[[]LogEntry](t, out)
	assert.Equal(t, "ok", status)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "ADD_ELEMENT", entries[0].Type)
	assert.Equal(t, int64(2), entries[1].Seq)
	assert.Equal(t, "MOVE_ELEMENT", entries[1].Type)
}

func TestLogCommand_AfterFilter(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "log", "p-1", "--db", seedDB(t), "--after", "1")
	require.NoError(t, err)

	_, entries := decodeResponse[[]LogEntry](t, out)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Seq)
}

func TestLogCommand_UnknownProject(t *testing.T) {
	_, err := runCommand(t, "log", "ghost", "--db", seedDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
