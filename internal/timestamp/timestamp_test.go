package timestamp_test

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/harvester/internal/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d.Selection
}

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"iso date time", "Posted 2023-05-15 10:30:00 by admin", "2023-05-15 10:30:00"},
		{"iso date time without seconds", "2023-05-15 10:30", "2023-05-15 10:30:00"},
		{"iso single digits", "2023-5-7 9:05", "2023-05-07 09:05:00"},
		{"iso T", "at 2023-05-15T10:30:00Z", "2023-05-15 10:30:00"},
		{"iso T with offset", "2023-05-15T10:30:00+08:00", "2023-05-15 10:30:00"},
		{"iso T milliseconds", "2023-05-15T10:30:00.123Z", "2023-05-15 10:30:00"},
		{"slash date time", "2023/05/15 10:30:00", "2023-05-15 10:30:00"},
		{"localized date time", "2023年5月15日 10:30", "2023-05-15 10:30:00"},
		{"localized date time no space", "2023年05月15日10:30:45", "2023-05-15 10:30:45"},
		{"iso date", "2023-05-15", "2023-05-15 08:07:06"},
		{"slash date single digits", "2023/5/1", "2023-05-01 08:07:06"},
		{"dotted date", "2023.5.1", "2023-05-01 08:07:06"},
		{"localized date", "发布时间：2023年5月15日", "2023-05-15 08:07:06"},
		{"partial month day", "5月15日 更新", "2024-05-15 08:07:06"},
		{"partial month day time", "更新于 5月15日 10:30", "2024-05-15 10:30:00"},
		{"partial month day time no space", "5月15日10:30:45", "2024-05-15 10:30:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := timestamp.Extract(tt.text, fixedNow)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NoDate(t *testing.T) {
	t.Parallel()

	_, ok := timestamp.Extract("nothing to see here, call 555-1234", fixedNow)
	assert.False(t, ok)

	_, ok = timestamp.Extract("", fixedNow)
	assert.False(t, ok)
}

func TestExtract_InvalidDateFallsThrough(t *testing.T) {
	t.Parallel()

	// The first candidate is not a real date; a later pattern still matches.
	got, ok := timestamp.Extract("2023-13-45 and 2023年1月2日", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2023-01-02 08:07:06", got)
}

func TestExtract_LeapDayWithoutYear(t *testing.T) {
	t.Parallel()

	got, ok := timestamp.Extract("2月29日", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2024-02-29 08:07:06", got)

	nonLeap := time.Date(2023, 6, 1, 8, 9, 10, 0, time.UTC)
	for _, text := range []string{"2月29日", "2月29日 10:30"} {
		got, ok = timestamp.Extract(text, nonLeap)
		assert.False(t, ok, "%s resolved to %s", text, got)
	}

	got, ok = timestamp.Extract("2月28日", nonLeap)
	require.True(t, ok)
	assert.Equal(t, "2023-02-28 08:09:10", got)
}

func TestParse(t *testing.T) {
	t.Parallel()

	got, ok := timestamp.Parse("Mon, 15 May 2023 10:30:00 GMT", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2023-05-15 10:30:00", got.Format(timestamp.Layout))

	got, ok = timestamp.Parse("2023-05-15T10:30:00+0800", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2023-05-15 10:30:00", got.Format(timestamp.Layout))

	// secondary extraction path
	got, ok = timestamp.Parse("2023 . 5 . 15 - 7:08", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2023-05-15 07:08:00", got.Format(timestamp.Layout))

	got, ok = timestamp.Parse("2023_05_15", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2023-05-15 08:07:06", got.Format(timestamp.Layout))

	_, ok = timestamp.Parse("2023-02-30", fixedNow)
	assert.False(t, ok)

	_, ok = timestamp.Parse("   ", fixedNow)
	assert.False(t, ok)
}

func TestInfer_DatetimeAttribute(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body>
		<p>Copyright 2019-01-01</p>
		<time datetime="2023-05-15T10:30:00+08:00">May 15</time>
	</body></html>`)

	assert.Equal(t, "2023-05-15 10:30:00", timestamp.Infer(root, fixedNow))
}

func TestInfer_MetaTag(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><head>
		<meta property="article:published_time" content="2022-11-02T06:00:00Z">
	</head><body><p>2019-01-01</p></body></html>`)

	assert.Equal(t, "2022-11-02 06:00:00", timestamp.Infer(root, fixedNow))
}

func TestInfer_ClassText(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body>
		<p>Related: 2010-01-01</p>
		<div class="info"><span class="publish-date">发布于 2023年5月15日 10:30</span></div>
	</body></html>`)

	assert.Equal(t, "2023-05-15 10:30:00", timestamp.Infer(root, fixedNow))
}

func TestInfer_UnparseableTimeElementFallsThrough(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body>
		<time>yesterday</time>
		<p>Updated 2021/7/4 18:00</p>
	</body></html>`)

	assert.Equal(t, "2021-07-04 18:00:00", timestamp.Infer(root, fixedNow))
}

func TestInfer_WholePageText(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body><article><p>Written 2023-05-15 10:30:00.</p></article></body></html>`)
	assert.Equal(t, "2023-05-15 10:30:00", timestamp.Infer(root, fixedNow))
}

func TestInfer_IgnoresScripts(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body><script>var built = "2001-01-01 00:00:00";</script><p>plain</p></body></html>`)
	assert.Equal(t, fixedNow.Format(timestamp.Layout), timestamp.Infer(root, fixedNow))
}

func TestInfer_FallsBackToWallClock(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body><p>no dates at all</p></body></html>`)

	before := time.Now().Truncate(time.Second)
	got := timestamp.Infer(root, time.Now())
	after := time.Now()

	parsed, err := time.ParseInLocation(timestamp.Layout, got, time.Local)
	require.NoError(t, err)
	assert.False(t, parsed.Before(before))
	assert.False(t, parsed.After(after))
}

func TestInfer_LocalizedDateUsesWallClockTime(t *testing.T) {
	t.Parallel()

	root := doc(t, `<html><body><p>2023年5月15日</p></body></html>`)

	now := time.Now()
	got := timestamp.Infer(root, now)

	require.True(t, strings.HasPrefix(got, "2023-05-15 "))
	assert.Equal(t, now.Format("15:04:05"), strings.TrimPrefix(got, "2023-05-15 "))
}
