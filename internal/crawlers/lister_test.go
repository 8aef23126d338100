package crawlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher 按URL返回预设响应
type stubFetcher struct {
	pages map[string]*Page
	errs  map[string]error
	calls []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: make(map[string]*Page),
		errs:  make(map[string]error),
	}
}

func (s *stubFetcher) set(url string, status int, body string) {
	s.pages[url] = &Page{URL: url, StatusCode: status, Body: []byte(body)}
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	s.calls = append(s.calls, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if page, ok := s.pages[url]; ok {
		return page, nil
	}
	return &Page{URL: url, StatusCode: http.StatusNotFound, Body: []byte("Not Found")}, nil
}

const topPage = `<html><body>
<h2 id="books-yesterday">Top 100 EBooks yesterday</h2>
<ol>
  <li><a href="/ebooks/1342">Pride and Prejudice by Jane Austen (1234)</a></li>
  <li><a href="/ebooks/11">Alice's Adventures in Wonderland (987)</a></li>
  <li><a href="/ebooks/84/">Frankenstein (800)</a></li>
</ol>
<h2 id="authors-yesterday">Top 100 Authors yesterday</h2>
<ol>
  <li><a href="/ebooks/author/68">Austen, Jane</a></li>
</ol>
</body></html>`

func TestParseIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		selector string
		want     []string
	}{
		{
			name: "单个列表项",
			html: `<ol><li><a href="/ebooks/84">x</a></li></ol>`,
			want: []string{"84"},
		},
		{
			name: "只取第一个ol, 保持文档顺序",
			html: topPage,
			want: []string{"1342", "11", "84"},
		},
		{
			name:     "选择器指定列表",
			html:     topPage,
			selector: "h2#authors-yesterday + ol",
			want:     []string{"68"},
		},
		{
			name: "去掉查询串和片段",
			html: `<ol><li><a href="https://www.gutenberg.org/ebooks/2701?lang=en#top">Moby Dick</a></li></ol>`,
			want: []string{"2701"},
		},
		{
			name: "每项只取第一个链接",
			html: `<ol><li><span><a href="/ebooks/5">a</a></span> <a href="/ebooks/6">b</a></li></ol>`,
			want: []string{"5"},
		},
		{
			name: "不含路径分隔符的链接",
			html: `<ol><li><a href="1661">Sherlock</a></li></ol>`,
			want: []string{"1661"},
		},
		{
			name: "忽略嵌套列表中的li",
			html: `<ol><li><a href="/ebooks/1">a</a><ol><li><a href="/ebooks/2">b</a></li></ol></li></ol>`,
			want: []string{"1"},
		},
		{
			name: "空列表",
			html: `<ol></ol>`,
			want: []string{},
		},
		{
			name: "重复标识保留",
			html: `<ol><li><a href="/ebooks/7">a</a></li><li><a href="/ebooks/7">a</a></li></ol>`,
			want: []string{"7", "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := ParseIdentifiers([]byte(tt.html), tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids.Strings())
		})
	}
}

func TestParseIdentifiers_ListNotFound(t *testing.T) {
	_, err := ParseIdentifiers([]byte(`<html><body><ul><li><a href="/ebooks/1">x</a></li></ul></body></html>`), "")
	assert.ErrorIs(t, err, ErrListNotFound)

	_, err = ParseIdentifiers([]byte(topPage), "h2#missing + ol")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestParseIdentifiers_InvalidSelector(t *testing.T) {
	_, err := ParseIdentifiers([]byte(topPage), "ol[")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrListNotFound), "非法选择器不应报告为找不到列表")
	assert.Error(t, ValidateSelector("ol["))
	assert.NoError(t, ValidateSelector("h2#books-last1 + ol"))
}

func TestParseIdentifiers_SkipsItemsWithoutLink(t *testing.T) {
	html := `<ol>
<li><a href="/ebooks/1">one</a></li>
<li>no link here</li>
<li><a name="anchor">anchor only</a></li>
<li><a href="/">root</a></li>
<li><a href="/ebooks/2">two</a></li>
</ol>`

	ids, err := ParseIdentifiers([]byte(html), "")

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, []string{"1", "2"}, ids.Strings())
	require.Len(t, extractionErr.Problems, 3)
	assert.Equal(t, 1, extractionErr.Problems[0].Index)
	assert.Equal(t, "no link here", extractionErr.Problems[0].Text)
	assert.Equal(t, 2, extractionErr.Problems[1].Index)
	assert.Equal(t, 3, extractionErr.Problems[2].Index)
	assert.Contains(t, extractionErr.Error(), "3 个列表项")
}

func TestIdentifierLister_ListTopIdentifiers(t *testing.T) {
	const indexURL = "https://www.gutenberg.org/browse/scores/top"

	t.Run("按文档顺序返回", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.set(indexURL, http.StatusOK, topPage)

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL})
		ids, err := lister.ListTopIdentifiers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"1342", "11", "84"}, ids.Strings())
		assert.Equal(t, []string{indexURL}, fetcher.calls)
	})

	t.Run("非2xx返回空列表且无错误", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.set(indexURL, http.StatusServiceUnavailable, topPage)

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL})
		ids, err := lister.ListTopIdentifiers(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})

	t.Run("传输层错误", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.errs[indexURL] = errors.New("dial tcp: connection refused")

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL})
		_, err := lister.ListTopIdentifiers(context.Background())
		assert.Error(t, err)
	})

	t.Run("找不到列表", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.set(indexURL, http.StatusOK, `<html><p>maintenance</p></html>`)

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL})
		_, err := lister.ListTopIdentifiers(context.Background())
		assert.ErrorIs(t, err, ErrListNotFound)
	})

	t.Run("limit截断", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.set(indexURL, http.StatusOK, topPage)

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL, Limit: 2})
		ids, err := lister.ListTopIdentifiers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"1342", "11"}, ids.Strings())
	})

	t.Run("跳过的列表项默认不是错误", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.set(indexURL, http.StatusOK, `<ol><li>x</li><li><a href="/ebooks/9">y</a></li></ol>`)

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL})
		result, err := lister.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"9"}, result.Identifiers.Strings())
		require.NotNil(t, result.Skipped)
		assert.Len(t, result.Skipped.Problems, 1)
	})

	t.Run("strict模式返回ExtractionError和部分列表", func(t *testing.T) {
		fetcher := newStubFetcher()
		fetcher.set(indexURL, http.StatusOK, `<ol><li>x</li><li><a href="/ebooks/9">y</a></li></ol>`)

		lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: indexURL, Strict: true})
		ids, err := lister.ListTopIdentifiers(context.Background())
		var extractionErr *ExtractionError
		assert.ErrorAs(t, err, &extractionErr)
		assert.Equal(t, []string{"9"}, ids.Strings())
	})
}

func TestIdentifierLister_WithStaticFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><ol><li><a href="/ebooks/84">Frankenstein</a></li></ol></body></html>`)
	}))
	defer server.Close()

	fetcher := NewStaticFetcher(StaticFetcherConfig{Timeout: 5 * time.Second}, nil)
	lister := NewIdentifierLister(fetcher, ListerConfig{IndexURL: server.URL + "/browse/scores/top"})

	ids, err := lister.ListTopIdentifiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.IdentifierList{"84"}, ids)
}
