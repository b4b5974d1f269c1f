package memory_test

import (
	"testing"
	"time"

	"github.com/aretw0/loadkit/pkg/adapters/memory"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
	contract "github.com/aretw0/loadkit/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLoader_Contract(t *testing.T) {
	items := []domain.Item{
		{Name: "slice-1", Filename: "slice-1.dcm", Data: []byte("one")},
		{Name: "slice-2", Filename: "slice-2.dcm", Data: []byte("two")},
	}

	contract.BackendContractTest(t,
		func() ports.Backend { return memory.NewLoader() },
		items, 2,
		domain.Item{Name: "empty"},
	)
}

func TestMemoryLoader_EmptyBuffer(t *testing.T) {
	for _, item := range []domain.Item{
		{Name: "nothing"},
		{Name: "zero-length", Data: []byte{}},
	} {
		t.Run(item.Name, func(t *testing.T) {
			rec := contract.NewRecorder()
			memory.NewLoader().Load([]domain.Item{item}, domain.RequestOptions{}, rec.Hooks())
			rec.Wait(t, time.Second)

			require.Len(t, rec.Errors, 1)
			assert.Empty(t, rec.Slices)
			var le *domain.LoadError
			require.ErrorAs(t, rec.Errors[0], &le)
			assert.Equal(t, "EmptyBufferError", le.Name())
			assert.ErrorIs(t, rec.Errors[0], domain.ErrUnsupportedSource)
		})
	}
}

func TestMemoryLoader_Name(t *testing.T) {
	assert.Equal(t, "memory", memory.NewLoader().Name())
}
