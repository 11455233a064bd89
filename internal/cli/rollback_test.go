package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetichq/kinetic/internal/store"
	"github.com/kinetichq/kinetic/internal/testutil"
)

func TestRollbackCommand_TruncatesLog(t *testing.T) {
	db := seedDB(t)

	// Checkpoint at seq 2, then append a later action.
	_, err := runCommand(t, "snapshot", "p-1", "--db", db)
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	action := testutil.SetFill("el-1", "#f00")
	action.ServerSequence = 3
	require.NoError(t, st.AppendAction(t.Context(), "p-1", action))
	st.Close()

	out, err := runCommand(t, "rollback", "p-1", "--db", db, "--to-version", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "restored to v2")

	st, err = store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	_, lastSeq, err := st.Materialize(t.Context(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), lastSeq)
}

func TestRollbackCommand_UnknownVersion(t *testing.T) {
	_, err := runCommand(t, "rollback", "p-1", "--db", seedDB(t), "--to-version", "9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRollbackCommand_RequiresVersion(t *testing.T) {
	_, err := runCommand(t, "rollback", "p-1", "--db", seedDB(t))
	assert.Error(t, err)
}
