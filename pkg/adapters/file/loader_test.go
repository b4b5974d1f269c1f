package file_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/loadkit/pkg/adapters/file"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
	contract "github.com/aretw0/loadkit/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestFileLoader_Contract(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.dcm": "a", "b.dcm": "b"})
	items := domain.ItemsFromNames([]string{filepath.Join(dir, "a.dcm"), filepath.Join(dir, "b.dcm")})

	contract.BackendContractTest(t,
		func() ports.Backend { return file.NewLoader() },
		items, 2,
		domain.Item{Name: filepath.Join(dir, "missing.dcm")},
	)
}

func TestFileLoader_NotFound(t *testing.T) {
	rec := contract.NewRecorder()
	file.NewLoader().Load(domain.ItemsFromNames([]string{"/definitely/not/here.dcm"}), domain.RequestOptions{}, rec.Hooks())
	rec.Wait(t, time.Second)

	require.Len(t, rec.Errors, 1)
	var le *domain.LoadError
	require.ErrorAs(t, rec.Errors[0], &le)
	assert.Equal(t, "NotFoundError", le.Name())
}

func TestFileLoader_Root(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.dcm": "a"})

	t.Run("Relative names resolve inside root", func(t *testing.T) {
		rec := contract.NewRecorder()
		file.NewLoader(file.WithRoot(dir)).Load(domain.ItemsFromNames([]string{"a.dcm"}), domain.RequestOptions{}, rec.Hooks())
		rec.Wait(t, time.Second)
		require.Len(t, rec.Slices, 1)
		assert.Equal(t, "a", string(rec.Slices[0].Raw))
	})

	t.Run("Dot segments are cleaned", func(t *testing.T) {
		rec := contract.NewRecorder()
		file.NewLoader(file.WithRoot(dir)).Load(domain.ItemsFromNames([]string{"./sub/../a.dcm"}), domain.RequestOptions{}, rec.Hooks())
		rec.Wait(t, time.Second)
		require.Len(t, rec.Slices, 1)
	})

	for _, name := range []string{"../etc/passwd", filepath.Join(dir, "a.dcm"), "sub/../../a.dcm"} {
		t.Run("Escaping root is rejected: "+name, func(t *testing.T) {
			rec := contract.NewRecorder()
			file.NewLoader(file.WithRoot(dir)).Load(domain.ItemsFromNames([]string{name}), domain.RequestOptions{}, rec.Hooks())
			rec.Wait(t, time.Second)
			require.Len(t, rec.Errors, 1)
			assert.ErrorIs(t, rec.Errors[0], file.ErrOutsideRoot)
			assert.Empty(t, rec.Slices)
		})
	}
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, file.CheckName("series/a.dcm"))
	assert.NoError(t, file.CheckName("./a.dcm"))
	assert.ErrorIs(t, file.CheckName("/etc/passwd"), file.ErrOutsideRoot)
	assert.ErrorIs(t, file.CheckName("../a.dcm"), file.ErrOutsideRoot)
}

func TestConfined(t *testing.T) {
	assert.ErrorIs(t, file.Confined("", []string{"a.dcm"}), file.ErrNoRoot)
	assert.NoError(t, file.Confined("/data", []string{"a.dcm", "series/b.dcm"}))
	assert.ErrorIs(t, file.Confined("/data", []string{"a.dcm", "../b.dcm"}), file.ErrOutsideRoot)
}
