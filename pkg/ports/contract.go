package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalStoreContract runs a suite of tests to verify that a JournalStore implementation
// adheres to the defined interface contract.
func RunJournalStoreContract(t *testing.T, store JournalStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	record := func(id string, offset time.Duration) domain.LoadRecord {
		return domain.LoadRecord{
			ID:        id,
			Source:    domain.SourceFiles,
			Items:     1,
			First:     "scan1.dcm",
			MonoSlice: true,
			Slices:    1,
			Outcome:   domain.OutcomeSuccess,
			StartedAt: base.Add(offset),
			EndedAt:   base.Add(offset + time.Second),
		}
	}

	t.Run("Append and Get", func(t *testing.T) {
		rec := record(prefix+"-a", 0)
		require.NoError(t, store.Append(ctx, rec), "Append should not return error")

		loaded, err := store.Get(ctx, rec.ID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, rec.First, loaded.First)
		assert.Equal(t, rec.Outcome, loaded.Outcome)
		assert.True(t, loaded.MonoSlice)
		assert.True(t, rec.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+prefix)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("List most recent first", func(t *testing.T) {
		older := record(prefix+"-older", time.Minute)
		newer := record(prefix+"-newer", 2*time.Minute)
		require.NoError(t, store.Append(ctx, older))
		require.NoError(t, store.Append(ctx, newer))

		records, err := store.List(ctx, 0)
		require.NoError(t, err)

		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		require.Contains(t, ids, older.ID)
		require.Contains(t, ids, newer.ID)
		assert.Less(t, indexOf(ids, newer.ID), indexOf(ids, older.ID), "newer records come first")
	})

	t.Run("List with limit", func(t *testing.T) {
		records, err := store.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
