package selector_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/harvester/internal/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<!DOCTYPE html>
<html>
<body>
	<div class="sidebar"><ul><li><a href="/ad">Ad</a></li></ul></div>
	<div id="news" class="list main">
		<ul>
			<li class="entry"><a href="/a/1.html" title="First">  One  </a></li>
			<li class="entry hot"><a href="/a/2.html">Two <script>var x;</script></a></li>
			<li><a>No link</a></li>
		</ul>
	</div>
</body>
</html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestElementStrategy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, selector.ByTag, selector.Element{Name: "div"}.Strategy())
	assert.Equal(t, selector.ByClass, selector.Element{Name: "div", Class: "list"}.Strategy())
	assert.Equal(t, selector.ByID, selector.Element{Name: "div", Class: "list", ID: "news"}.Strategy())
	assert.Equal(t, selector.ByTag, selector.Element{Name: "div", Class: "  "}.Strategy())
}

func TestContainer(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, listPage)

	t.Run("by id", func(t *testing.T) {
		t.Parallel()
		c := selector.Container(doc.Selection, selector.Element{Name: "div", ID: "news"})
		require.Equal(t, 1, c.Length())
		assert.Equal(t, "news", c.AttrOr("id", ""))
	})

	t.Run("id wins over class", func(t *testing.T) {
		t.Parallel()
		c := selector.Container(doc.Selection, selector.Element{Name: "div", Class: "sidebar", ID: "news"})
		assert.Equal(t, "news", c.AttrOr("id", ""))
	})

	t.Run("by class tokens", func(t *testing.T) {
		t.Parallel()
		c := selector.Container(doc.Selection, selector.Element{Name: "div", Class: "main list"})
		assert.Equal(t, "news", c.AttrOr("id", ""))
	})

	t.Run("tag only is the root", func(t *testing.T) {
		t.Parallel()
		c := selector.Container(doc.Selection, selector.Element{Name: "div"})
		assert.Equal(t, doc.Selection, c)
	})

	t.Run("missing container is empty", func(t *testing.T) {
		t.Parallel()
		c := selector.Container(doc.Selection, selector.Element{Name: "section", ID: "nope"})
		assert.Equal(t, 0, c.Length())
		assert.Equal(t, 0, selector.Items(c, selector.Element{Name: "li"}).Length())
	})
}

func TestItems(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, listPage)
	container := selector.Container(doc.Selection, selector.Element{Name: "div", ID: "news"})

	all := selector.Items(container, selector.Element{Name: "li"})
	assert.Equal(t, 3, all.Length())

	entries := selector.Items(container, selector.Element{Name: "li", Class: "entry"})
	assert.Equal(t, 2, entries.Length())

	hot := selector.Items(container, selector.Element{Name: "li", Class: "hot"})
	assert.Equal(t, 1, hot.Length())

	// Recomputed on each call against the current DOM.
	container.Find("li.hot").Remove()
	assert.Equal(t, 1, selector.Items(container, selector.Element{Name: "li", Class: "entry"}).Length())
}

func TestFieldExtract(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, listPage)
	container := selector.Container(doc.Selection, selector.Element{Name: "div", ID: "news"})
	items := selector.Items(container, selector.Element{Name: "li"})

	title := selector.Field{Name: "a", Attr: "text"}
	link := selector.Field{Name: "a", Attr: "href"}

	value, ok := title.Extract(items.Eq(0))
	require.True(t, ok)
	assert.Equal(t, "One", value)

	value, ok = title.Extract(items.Eq(1))
	require.True(t, ok)
	assert.Equal(t, "Two", value, "script content is not visible text")

	value, ok = link.Extract(items.Eq(0))
	require.True(t, ok)
	assert.Equal(t, "/a/1.html", value)

	value, ok = link.Extract(items.Eq(2))
	assert.True(t, ok, "element exists even though the attribute does not")
	assert.Empty(t, value)
	assert.False(t, link.Has(items.Eq(2)))

	_, ok = selector.Field{Name: "img", Attr: "src"}.Extract(items.Eq(0))
	assert.False(t, ok)

	value, ok = selector.Field{Name: "a", Attr: "title"}.Extract(items.Eq(0))
	require.True(t, ok)
	assert.Equal(t, "First", value)
}

func TestFieldExtract_ScopeIsTheTag(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, `<div><a href="/x">X</a></div>`)
	anchor := doc.Find("a")

	value, ok := selector.Field{Name: "a", Attr: "href"}.Extract(anchor)
	require.True(t, ok)
	assert.Equal(t, "/x", value)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "div#main", selector.Describe(selector.Element{Name: "div", ID: "main"}))
	assert.Equal(t, "ul.news.list", selector.Describe(selector.Element{Name: "ul", Class: "news list"}))
	assert.Equal(t, "*", selector.Describe(selector.Element{}))
}
