package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	runID := uuid.New()

	t.Run("SaveAndOpen", func(t *testing.T) {
		info, err := store.Save(ctx, runID, "invoice.xlsx",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			strings.NewReader("workbook bytes"))
		require.NoError(t, err)
		assert.Equal(t, runID, info.RunID)
		assert.Equal(t, "invoice.xlsx", info.Name)
		assert.Equal(t, int64(len("workbook bytes")), info.Size)

		r, err := store.Open(ctx, runID, "invoice.xlsx")
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "workbook bytes", string(data))
	})

	t.Run("List", func(t *testing.T) {
		_, err := store.Save(ctx, runID, "summary.csv", "text/csv", strings.NewReader("a,b\n"))
		require.NoError(t, err)

		files, err := store.List(ctx, runID)
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("ListEmptyRun", func(t *testing.T) {
		files, err := store.List(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, runID, "summary.csv"))
		files, err := store.List(ctx, runID)
		require.NoError(t, err)
		assert.Len(t, files, 1)

		_, err = store.Open(ctx, runID, "summary.csv")
		assert.Error(t, err)
	})

	t.Run("SanitizesNames", func(t *testing.T) {
		info, err := store.Save(ctx, runID, "../escape.csv", "text/csv", strings.NewReader("x"))
		require.NoError(t, err)
		assert.NotContains(t, info.Path, "..")
	})
}
