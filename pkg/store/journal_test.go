package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-swap/pkg/types"
)

func TestJournalSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "executions.json")

	j, err := Open(path)
	require.NoError(t, err)
	assert.Zero(t, j.Count())

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exec := types.SwapExecution{
		ID:        "a",
		Wallet:    "0xAA",
		Status:    types.StatusGating,
		CreatedAt: created,
	}
	require.NoError(t, j.Save(exec))

	exec.Status = types.StatusSubmitted
	exec.TxHash = "0xabc"
	require.NoError(t, j.Save(exec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())

	got, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, got.Status)
	assert.Equal(t, "0xabc", got.TxHash)
	assert.True(t, created.Equal(got.CreatedAt))

	_, err = reopened.Get("missing")
	assert.Error(t, err)
}

func TestJournalListByWallet(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "executions.json"))
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.Save(types.SwapExecution{ID: "1", Wallet: "0xAA", CreatedAt: base}))
	require.NoError(t, j.Save(types.SwapExecution{ID: "2", Wallet: "0xaa", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, j.Save(types.SwapExecution{ID: "3", Wallet: "0xBB", CreatedAt: base.Add(2 * time.Hour)}))

	list := j.ListByWallet("0xAA")
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].ID)
	assert.Equal(t, "1", list[1].ID)

	assert.Len(t, j.ListByWallet(""), 3)
}

func TestJournalRecover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.json")
	j, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, j.Save(types.SwapExecution{ID: "gating", Status: types.StatusGating}))
	require.NoError(t, j.Save(types.SwapExecution{ID: "submitting", Status: types.StatusSubmitting}))
	require.NoError(t, j.Save(types.SwapExecution{ID: "done", Status: types.StatusSubmitted}))

	reopened, err := Open(path)
	require.NoError(t, err)

	recovered, err := reopened.Recover()
	require.NoError(t, err)
	require.Len(t, recovered, 2)
	assert.Equal(t, "gating", recovered[0].ID)
	assert.Equal(t, types.StatusFailed, recovered[0].Status)
	assert.Equal(t, types.StepGating, recovered[0].FailedStep)
	assert.Equal(t, InterruptedReason, recovered[1].Error)

	done, err := reopened.Get("done")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, done.Status)

	again, err := reopened.Recover()
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path)
	assert.Error(t, err)
}
