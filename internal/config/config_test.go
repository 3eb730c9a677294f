package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/harvester/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "name": "news",
  "base_url": "https://example.com",
  "url_onepage": "https://example.com/list.html",
  "url_multi_page": "https://example.com/list_{}.html",
  "url_multi_page_start": 1,
  "url_multi_page_stop": 3,
  "url_list_config": {
    "target_list_container": {"name": "div", "class": "", "id": "list"},
    "target_list_item": {
      "name": "li",
      "title": {"name": "a", "attr": "text"},
      "link": {"name": "a", "attr": "href"}
    }
  },
  "article_config": {
    "target_container": {"name": "div", "class": "content"},
    "target_text_item": {"name": "p", "attr": "text"}
  },
  "delay_min": 0,
  "delay_max": 10,
  "headers": {"user-agent": "test-agent", "x-token": "abc"},
  "use_jsonl": true,
  "jsonl_config": {"file_prefix": "", "max_entries": 2, "base_path": "out"}
}`

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "news", cfg.Name)
	assert.Equal(t, "list", cfg.List.Container.ID)
	assert.Equal(t, "content", cfg.Article.Container.Class)
	assert.Equal(t, 0, cfg.DelayMin, "explicit zero is kept")
	assert.Equal(t, 10, cfg.DelayMax)
	assert.Equal(t, "news", cfg.Output.FilePrefix, "prefix falls back to the name")
	assert.Equal(t, 2, cfg.Output.MaxEntries)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.False(t, cfg.KeepEmptyLinks)

	h := cfg.Header()
	assert.Equal(t, "test-agent", h.Get("User-Agent"))
	assert.Equal(t, []string{"abc"}, h["X-Token"])
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(`{"name": "bare", "url_onepage": "u", "url_multi_page": "u/{}"}`))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.StartPage)
	assert.Equal(t, config.MaxPage, cfg.StopPage)
	assert.Equal(t, 1000, cfg.DelayMin)
	assert.Equal(t, 3000, cfg.DelayMax)
	assert.Equal(t, "li", cfg.List.Item.Name)
	assert.Equal(t, "href", cfg.List.Item.Link.Attr)
	assert.Equal(t, "p", cfg.Article.TextItem.Name)
	assert.Equal(t, 5000, cfg.Output.MaxEntries)
	assert.Equal(t, "output", cfg.Output.BasePath)
	assert.False(t, cfg.UseJSONL)
	assert.Zero(t, cfg.RequestTimeoutMs, "timeout stays unset")
	assert.Equal(t, config.DefaultRequestTimeout, cfg.RequestTimeout())
}

func TestParse_HeadersReplaceDefaults(t *testing.T) {
	t.Parallel()

	doc := []byte(`{"url_onepage": "u", "url_multi_page": "u/{}", "headers": {"user-agent": "MyBot/1.0", "accept-language": "en"}}`)
	for i := 0; i < 100; i++ {
		cfg, err := config.Parse(doc)
		require.NoError(t, err)

		require.Equal(t, map[string]string{
			"User-Agent":      "MyBot/1.0",
			"Accept-Language": "en",
		}, cfg.Headers)
		require.Equal(t, []string{"MyBot/1.0"}, cfg.Header().Values("User-Agent"))
	}
}

func TestParse_HeaderDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(`{"url_onepage": "u", "url_multi_page": "u/{}"}`))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Headers, cfg.Headers)

	cfg, err = config.Parse([]byte(`{"url_onepage": "u", "url_multi_page": "u/{}", "headers": {}}`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Header().Get("User-Agent"), "an empty map drops the default agent")
}

func TestHeader_CaseCollisions(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Headers = map[string]string{"x-token": "lower", "X-TOKEN": "upper", "X-Token": "canonical"}

	for i := 0; i < 50; i++ {
		require.Equal(t, []string{"lower"}, cfg.Header().Values("X-Token"))
	}
}

func TestValidate_DelayBound(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte(`{"delay_min": 500, "delay_max": 100}`))
	require.Error(t, err)

	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "delay_max", verr.Field)

	cfg := config.Default()
	cfg.DelayMin, cfg.DelayMax = 100, 100
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*config.CrawlConfig)
		field string
	}{
		{"negative delay", func(c *config.CrawlConfig) { c.DelayMin = -1 }, "delay_min"},
		{"stop before start", func(c *config.CrawlConfig) { c.StartPage, c.StopPage = 5, 2 }, "url_multi_page_stop"},
		{"template without placeholder", func(c *config.CrawlConfig) { c.URLMultiPage = "https://example.com/list" }, "url_multi_page"},
		{"negative timeout", func(c *config.CrawlConfig) { c.RequestTimeoutMs = -5 }, "request_timeout_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.edit(cfg)

			var verr *config.ValidationError
			require.True(t, errors.As(cfg.Validate(), &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRequireURLs(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.Error(t, cfg.RequireURLs())

	cfg.URLOnePage = "https://example.com/"
	assert.Error(t, cfg.RequireURLs())

	cfg.URLMultiPage = "https://example.com/{}"
	assert.NoError(t, cfg.RequireURLs())
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.URLOnePage = "https://example.com/index.html"
	cfg.StartPage = 1

	for _, tmpl := range []string{
		"https://example.com/index_{}.html",
		"https://example.com/index_{0}.html",
		"https://example.com/index_{page}.html",
		"https://example.com/index_%d.html",
	} {
		cfg.URLMultiPage = tmpl
		assert.Equal(t, "https://example.com/index.html", cfg.PageURL(1))
		assert.Equal(t, "https://example.com/index_7.html", cfg.PageURL(7), tmpl)
	}
}

func TestClone(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cp := cfg.Clone()
	cp.Headers["X-New"] = "1"
	cp.Name = "changed"

	assert.NotContains(t, cfg.Headers, "X-New")
	assert.Equal(t, "default", cfg.Name)
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
