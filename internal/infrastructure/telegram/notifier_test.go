package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PolicyDigest/internal/digest"
	"PolicyDigest/internal/domain"
)

type sent struct {
	path    string
	text    string
	mode    string
	replyTo string
}

func telegramServer(t *testing.T, status int) (*httptest.Server, *[]sent) {
	t.Helper()
	var (
		mu       sync.Mutex
		messages []sent
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		messages = append(messages, sent{
			path:    r.URL.Path,
			text:    r.PostForm.Get("text"),
			mode:    r.PostForm.Get("parse_mode"),
			replyTo: r.PostForm.Get("reply_to_message_id"),
		})
		id := len(messages) + 40
		mu.Unlock()

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d}}`, id)
	}))
	t.Cleanup(server.Close)
	return server, &messages
}

func digestWith(n int) domain.Digest {
	items := make([]domain.Article, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.Article{
			Title:  fmt.Sprintf("창업 지원 공고 %03d <신규>", i),
			URL:    fmt.Sprintf("https://b.example/view?id=%d&x=1", i),
			Source: domain.SourceBizinfo,
			Date:   "2026-10-13",
		})
	}
	return domain.Digest{
		GeneratedAt: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		Categories:  domain.Categorized{domain.CategoryNew: items},
	}
}

func TestPublishDigestRepliesWithFullListing(t *testing.T) {
	server, messages := telegramServer(t, http.StatusOK)

	n := NewNotifier("token", "chat", server.URL, digest.DefaultLimits(), 0, nil)
	require.NoError(t, n.PublishDigest(context.Background(), digestWith(2)))

	require.Len(t, *messages, 2)
	main, full := (*messages)[0], (*messages)[1]
	assert.Equal(t, "/bottoken/sendMessage", main.path)
	assert.Equal(t, "HTML", main.mode)
	assert.Empty(t, main.replyTo)
	assert.Contains(t, main.text, `<a href="https://b.example/view?id=0&amp;x=1">창업 지원 공고 000 &lt;신규&gt;</a>`)
	assert.Equal(t, "41", full.replyTo)
	assert.Contains(t, full.text, "<b>전체 목록</b> (2건)")
}

func TestPublishDigestChunksLongListing(t *testing.T) {
	server, messages := telegramServer(t, http.StatusOK)

	n := NewNotifier("token", "chat", server.URL, digest.DefaultLimits(), 0, nil)
	require.NoError(t, n.PublishDigest(context.Background(), digestWith(80)))

	require.Greater(t, len(*messages), 2)
	for _, m := range (*messages)[1:] {
		assert.Equal(t, "41", m.replyTo)
		assert.LessOrEqual(t, len([]rune(m.text)), maxMessageRunes)
	}
	var joined strings.Builder
	for _, m := range (*messages)[1:] {
		joined.WriteString(m.text)
	}
	assert.Contains(t, joined.String(), "id=79&amp;x=1")
}

func TestPublishDigestReportsAPIError(t *testing.T) {
	server, _ := telegramServer(t, http.StatusBadRequest)

	n := NewNotifier("token", "chat", server.URL, nil, 0, nil)
	err := n.PublishDigest(context.Background(), digestWith(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPublishDigestMisconfigured(t *testing.T) {
	n := NewNotifier("", "chat", "", nil, 0, nil)
	assert.False(t, n.Configured())
	assert.NoError(t, n.PublishDigest(context.Background(), domain.Digest{}))
	assert.Error(t, n.PublishDigest(context.Background(), digestWith(1)))
}
