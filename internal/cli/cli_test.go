package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kinetichq/kinetic/internal/scene"
	"github.com/kinetichq/kinetic/internal/store"
	"github.com/kinetichq/kinetic/internal/testutil"
)

// seedDB creates a database with project "p-1" holding two actions and
// returns its path.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kinetic.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.CreateProject(t.Context(), "p-1", "Seeded"))
	for seq, action := range []scene.Action{
		testutil.AddRect("el-1", 0, 0, 10, 10),
		testutil.Move("el-1", 5, 5),
	} {
		action.ServerSequence = int64(seq + 1)
		require.NoError(t, st.AppendAction(t.Context(), "p-1", action))
	}
	return path
}

// runCommand executes the root command with args and captures stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse unmarshals a CLIResponse whose data is re-decoded
// into T.
func decodeResponse[T any](t *testing.T, output string) (string, T) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	var data T
	if len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, &data))
	}
	return resp.Status, data
}
