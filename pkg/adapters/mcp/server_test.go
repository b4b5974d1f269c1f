package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/testutils"
	"github.com/aretw0/loadkit/pkg/adapters/file"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(`["a","b"]`))
	assert.Equal(t, []string{"a", "b"}, splitList(" a , b ,"))
	assert.Nil(t, splitList(""))
}

func TestLoadURLs_Wait(t *testing.T) {
	srv := testutils.ImageServer(t, testutils.PNG(t, 3, 3), "Authorization", "Bearer ok")
	ctl := loadkit.New()
	s := NewServer(ctl)

	resp, err := s.handleLoadURLs(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"urls":    `["` + srv.URL + `/a.png", "` + srv.URL + `/b.png"]`,
		"headers": `[{"name":"Authorization","value":"Bearer ok"}]`,
		"wait":    true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Record)
	assert.Equal(t, domain.OutcomeSuccess, resp.Record.Outcome)
	assert.Equal(t, 2, resp.Record.Slices)
	assert.False(t, resp.Record.MonoSlice)
	assert.NotEmpty(t, resp.Record.ID)
}

func TestLoadURLs_BackendError(t *testing.T) {
	srv := testutils.ImageServer(t, testutils.PNG(t, 3, 3), "Authorization", "Bearer ok")
	s := NewServer(loadkit.New())

	resp, err := s.handleLoadURLs(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"urls": srv.URL + "/a.png",
		"wait": true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeError, resp.Record.Outcome)
	assert.Contains(t, resp.Record.Message, "HTTPError: ")
}

func TestLoadURLs_Rejected(t *testing.T) {
	s := NewServer(loadkit.New())

	_, err := s.handleLoadURLs(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"urls": ""})
	assert.ErrorIs(t, err, domain.ErrEmptyRequest)

	_, err = s.handleLoadURLs(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"urls":    "http://x/a.dcm",
		"headers": "{",
	})
	assert.Error(t, err)
}

func TestLoadFiles_NoWait(t *testing.T) {
	ctl := loadkit.New(loadkit.WithFileRoot(t.TempDir()))
	s := NewServer(ctl)

	resp, err := s.handleLoadFiles(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"paths": "missing.dcm",
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Record)
	<-ctl.AbortLoad()
}

func TestLoadFiles_Confined(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string][]byte{"a.png": testutils.PNG(t, 2, 2)})

	_, err := NewServer(loadkit.New()).handleLoadFiles(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"paths": dir + "/a.png",
	})
	assert.ErrorIs(t, err, file.ErrNoRoot)

	s := NewServer(loadkit.New(loadkit.WithFileRoot(dir)))
	_, err = s.handleLoadFiles(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"paths": `["a.png", "../a.png"]`,
	})
	assert.ErrorIs(t, err, file.ErrOutsideRoot)

	resp, err := s.handleLoadFiles(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"paths": "a.png",
		"wait":  true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, resp.Record.Outcome)
	assert.Equal(t, 1, resp.Record.Slices)
}

func TestAbort_Idle(t *testing.T) {
	s := NewServer(loadkit.New())
	resp, err := s.handleAbort(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, resp.Acknowledged)
}
