package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayCommand_Text(t *testing.T) {
	out, err := runCommand(t, "replay", "--db", seedDB(t))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Project: p-1")
	assert.Contains(t, out, "All projects verified deterministic")
}

func TestReplayCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "replay", "--db", seedDB(t))
	require.NoError(t, err)

	status, result := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "ok", status)
	assert.True(t, result.AllDeterministic)
	require.Len(t, result.Projects, 1)
	assert.Equal(t, "p-1", result.Projects[0].ProjectID)
	assert.Equal(t, 2, result.Projects[0].Actions)
	assert.Equal(t, 1, result.Projects[0].Elements)
	assert.Equal(t, int64(2), result.Projects[0].LastSeq)
	assert.True(t, result.Projects[0].Deterministic)
}

func TestReplayCommand_SpecificProject(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "replay", "--db", seedDB(t), "--project", "p-1")
	require.NoError(t, err)

	_, result := decodeResponse[ReplayResult](t, out)
	require.Len(t, result.Projects, 1)
	assert.Equal(t, "p-1", result.Projects[0].ProjectID)
}

func TestReplayCommand_EmptyDatabase(t *testing.T) {
	path := t.TempDir() + "/empty.db"
	out, err := runCommand(t, "replay", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No projects found")
}

func TestReplayCommand_RequiresDB(t *testing.T) {
	_, err := runCommand(t, "replay")
	assert.Error(t, err)
}
