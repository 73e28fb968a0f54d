package source

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasindex/nasindex/internal/smbfs"
	"github.com/nasindex/nasindex/internal/vault"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	v, err := vault.Open(dir)
	require.NoError(t, err)
	client := smbfs.NewClient(0)
	m, err := Open(filepath.Join(dir, "nas_connection.json"), v, client)
	require.NoError(t, err)
	return m, dir
}

func TestAddSourcePersistsEncrypted(t *testing.T) {
	m, dir := newTestManager(t)
	e := Entry{Host: "nas01", Share: "media", Username: "bob", Password: "s3cret", Label: "media"}

	_, err := m.AddSource(context.Background(), e)
	// registration against a nonexistent host fails; the entry must still persist.
	assert.Error(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "nas_connection.json"))
	require.NoError(t, err)
	var ff fileFormat
	require.NoError(t, json.Unmarshal(raw, &ff))
	require.Len(t, ff.Sources, 1)
	assert.NotEqual(t, "s3cret", ff.Sources[0].Password)
	assert.True(t, vault.IsEncrypted(ff.Sources[0].Password))
}

func TestAddSourceDuplicateRejected(t *testing.T) {
	m, _ := newTestManager(t)
	e := Entry{Host: "nas01", Share: "media", Username: "bob", Password: "s3cret", Label: "media"}
	_, _ = m.AddSource(context.Background(), e)

	_, err := m.AddSource(context.Background(), e)
	require.Error(t, err)
}

func TestListSourcesDecrypted(t *testing.T) {
	m, _ := newTestManager(t)
	e := Entry{Host: "nas01", Share: "media", Username: "bob", Password: "s3cret", Label: "media"}
	_, _ = m.AddSource(context.Background(), e)

	list := m.ListSources()
	require.Len(t, list, 1)
	assert.Equal(t, "s3cret", list[0].Password)
}

type stubPurger struct {
	calledLabel string
	count       int
	err         error
}

func (s *stubPurger) PurgeByLabelPrefix(ctx context.Context, label string) (int, error) {
	s.calledLabel = label
	return s.count, s.err
}

func TestRemoveSourceCascades(t *testing.T) {
	m, _ := newTestManager(t)
	e := Entry{Host: "nas01", Share: "media", Username: "bob", Password: "s3cret", Label: "media"}
	_, _ = m.AddSource(context.Background(), e)

	purger := &stubPurger{count: 42}
	res, err := m.RemoveSource(context.Background(), e.ID(), purger)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 42, res.DeletedCount)
	assert.Equal(t, "media", purger.calledLabel)
	assert.Empty(t, m.ListSources())
}

func TestRemoveSourceNotFound(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.RemoveSource(context.Background(), "nope/nope", &stubPurger{})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestPlaintextAutoMigration(t *testing.T) {
	dir := t.TempDir()
	v, err := vault.Open(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "nas_connection.json")
	legacy := fileFormat{Sources: []Entry{{Host: "nas01", Share: "media", Username: "bob", Password: "plainpass", Label: "media"}}}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	client := smbfs.NewClient(0)
	m, err := Open(path, v, client)
	require.NoError(t, err)

	list := m.ListSources()
	require.Len(t, list, 1)
	assert.Equal(t, "plainpass", list[0].Password)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var ff fileFormat
	require.NoError(t, json.Unmarshal(raw, &ff))
	assert.True(t, vault.IsEncrypted(ff.Sources[0].Password))
}

func TestValidateLabel(t *testing.T) {
	assert.NoError(t, ValidateLabel("media"))
	assert.Error(t, ValidateLabel(""))
	assert.Error(t, ValidateLabel("a/b"))
}
