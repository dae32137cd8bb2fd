package kurs

import (
	"context"
	_ "embed"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/kursrates/storage/types"
	"github.com/sig-0/kursrates/summary"
)

//go:embed testdata/page.html
var testPage string

var testCapturedAt = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func newPageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)

		_, _ = w.Write([]byte(body))
	}))

	t.Cleanup(srv.Close)

	return srv
}

func newTestProvider(url string, opts ...Option) *Provider {
	opts = append(opts, withClock(func() time.Time {
		return testCapturedAt
	}))

	return NewProvider(url, time.Second*5, cron.Every(time.Hour*24), opts...)
}

func TestExtractTokens(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(testPage))
	require.NoError(t, err)

	assert.Equal(
		t,
		[]string{"512,30", " 511.95 ", "0", ""},
		ExtractTokens(doc, DefaultPurchaseSelector),
	)

	assert.Equal(
		t,
		[]string{"514,90", "515.40", "n/a", "513,5"},
		ExtractTokens(doc, DefaultSaleSelector),
	)

	assert.Empty(t, ExtractTokens(doc, ".missing"))
}

func TestProvider_Tokens(t *testing.T) {
	t.Parallel()

	t.Run("page loaded", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusOK, testPage)

		tokens, err := newTestProvider(srv.URL).Tokens(context.Background())
		require.NoError(t, err)

		assert.Len(t, tokens.Purchase, 4)
		assert.Len(t, tokens.Sale, 4)
	})

	t.Run("invalid status code", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusServiceUnavailable, "")

		_, err := newTestProvider(srv.URL).Tokens(context.Background())
		assert.ErrorContains(t, err, "invalid status code")
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusOK, testPage)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestProvider(srv.URL).Tokens(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProvider_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("zero included", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusOK, testPage)

		s, err := newTestProvider(srv.URL).Fetch(context.Background())
		require.NoError(t, err)
		require.NotNil(t, s)

		assert.Equal(t, types.SourceKurs, s.Source)
		assert.Equal(t, testCapturedAt, s.CapturedAt)

		require.True(t, s.Purchase.Found)
		assert.Equal(t, 512.3, *s.Purchase.Max)
		assert.Equal(t, 0.0, *s.Purchase.Min)

		require.True(t, s.Sale.Found)
		assert.Equal(t, 515.4, *s.Sale.Max)
		assert.Equal(t, 513.5, *s.Sale.Min)
	})

	t.Run("zero excluded", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusOK, testPage)

		p := newTestProvider(
			srv.URL,
			WithAggregator(summary.NewAggregator(summary.WithExcludeZero(true))),
			WithSource("almaty"),
		)

		s, err := p.Fetch(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "almaty", p.Name())
		assert.Equal(t, types.Source("almaty"), s.Source)

		require.True(t, s.Purchase.Found)
		assert.Equal(t, 512.3, *s.Purchase.Max)
		assert.Equal(t, 512.0, *s.Purchase.Min)
	})

	t.Run("no matching cells", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusOK, "<html><body><p>maintenance</p></body></html>")

		s, err := newTestProvider(srv.URL).Fetch(context.Background())
		require.NoError(t, err)

		assert.False(t, s.Purchase.Found)
		assert.False(t, s.Sale.Found)
	})

	t.Run("custom selectors", func(t *testing.T) {
		t.Parallel()

		page := `<table>
			<tr><td class="buy">470,1</td><td class="sell">472,4</td></tr>
			<tr><td class="buy">469,8</td><td class="sell">n/a</td></tr>
		</table>`

		srv := newPageServer(t, http.StatusOK, page)

		s, err := newTestProvider(srv.URL, WithSelectors("td.buy", "td.sell")).
			Fetch(context.Background())
		require.NoError(t, err)

		require.True(t, s.Purchase.Found)
		assert.Equal(t, 470.1, *s.Purchase.Max)
		assert.Equal(t, 469.8, *s.Purchase.Min)

		require.True(t, s.Sale.Found)
		assert.Equal(t, 472.4, *s.Sale.Max)
		assert.Equal(t, 472.4, *s.Sale.Min)
	})

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()

		srv := newPageServer(t, http.StatusNotFound, "")

		s, err := newTestProvider(srv.URL).Fetch(context.Background())
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}
