package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alvmarrod/harvester/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *config.Store {
	t.Helper()
	s, err := config.NewStore(filepath.Join(t.TempDir(), "configs"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoadListDelete(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	cfg := config.Default()
	cfg.Name = "新闻"
	cfg.URLOnePage = "https://example.com/?a=1&b=2"
	require.NoError(t, s.Save("news", cfg))
	require.NoError(t, s.Save("blog", config.Default()))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"blog", "news"}, names)

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "news.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "新闻")
	assert.Contains(t, string(raw), "a=1&b=2")

	loaded, err := s.Load("news")
	require.NoError(t, err)
	assert.Equal(t, cfg.URLOnePage, loaded.URLOnePage)
	assert.Equal(t, "新闻", loaded.Name)

	require.NoError(t, s.Delete("news"))
	assert.ErrorIs(t, s.Delete("news"), config.ErrNotFound)

	_, err = s.Load("news")
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestStore_InvalidName(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, s.Save(name, config.Default()), config.ErrInvalidName, name)
	}
}

func TestStore_EnsureDefault(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	created, err := s.EnsureDefault()
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureDefault()
	require.NoError(t, err)
	assert.False(t, created)

	cfg, err := s.Load("default")
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.DelayMin)
}

func TestStore_ImportYAML(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: site
url_onepage: https://example.com/
url_multi_page: https://example.com/p/{}
url_multi_page_stop: 4
delay_min: 5
delay_max: 6
url_list_config:
  target_list_container:
    name: ul
    class: news
  target_list_item:
    name: li
    title: {name: a, attr: text}
    link: {name: a, attr: href}
headers:
  Referer: https://example.com/
`), 0644))

	name, err := s.Import(path, "")
	require.NoError(t, err)
	assert.Equal(t, "site", name)

	cfg, err := s.Load("site")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.StopPage)
	assert.Equal(t, "news", cfg.List.Container.Class)
	assert.Equal(t, "https://example.com/", cfg.Header().Get("Referer"))
}

func TestStore_ImportRejectsInvalid(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"delay_min": 9, "delay_max": 1}`), 0644))

	_, err := s.Import(path, "bad")
	assert.Error(t, err)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
