package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PolicyDigest/internal/domain"
)

var generatedAt = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func sampleDigest(newCount int) domain.Digest {
	categories := domain.Categorized{
		domain.CategoryUrgent: {{
			Title: "예비창업패키지 <추가>", URL: "https://k/1", Source: domain.SourceKStartup,
			Date: "2026-10-01", Deadline: "2026-10-17", Category: domain.CategoryUrgent,
		}},
		domain.CategoryNews: {{
			Title: "중기부 정책 브리핑", URL: "https://n/1", Source: domain.SourceNaver,
			Date: "2026-10-13", Category: domain.CategoryNews,
		}},
	}
	for i := 0; i < newCount; i++ {
		categories[domain.CategoryNew] = append(categories[domain.CategoryNew], domain.Article{
			Title: fmt.Sprintf("공고 %d", i), URL: fmt.Sprintf("https://b/%d", i), Source: domain.SourceBizinfo,
			Date: "2026-10-10", Deadline: "2026-11-30", Category: domain.CategoryNew,
		})
	}
	return domain.Digest{GeneratedAt: generatedAt, Categories: categories}
}

func TestMainRendersSectionsInDisplayOrder(t *testing.T) {
	f := Formatter{Style: Slack, Limits: DefaultLimits()}
	text := f.Main(sampleDigest(2))

	urgent := strings.Index(text, "*🔥 마감 임박* (1건)")
	fresh := strings.Index(text, "*📋 신규 공고* (2건)")
	news := strings.Index(text, "*📰 정책 동향* (1건)")
	require.True(t, urgent >= 0 && fresh >= 0 && news >= 0, text)
	assert.True(t, urgent < fresh && fresh < news)

	assert.Contains(t, text, "2026.10.14")
	assert.Contains(t, text, "• <https://k/1|예비창업패키지 &lt;추가&gt;>")
	assert.Contains(t, text, "  └ K-Startup | 마감 10.17 (D-3)")
	assert.Contains(t, text, "  └ 기업마당 | 마감 11.30 | 등록 10.10")
	assert.Contains(t, text, "  └ 네이버뉴스 | 10.13")
	assert.Contains(t, text, "총 *4건* 표시 (전체 4건)")
	assert.NotContains(t, text, "스레드에서 전체")
}

func TestMainCapsCategoriesAndReportsOverflow(t *testing.T) {
	f := Formatter{Style: Slack, Limits: DefaultLimits()}
	text := f.Main(sampleDigest(13))

	assert.Equal(t, 10, strings.Count(text, "<https://b/"))
	assert.Contains(t, text, "_…외 3건 (스레드에서 전체 확인)_")
	assert.Contains(t, text, "총 *12건* 표시 (전체 15건)")
	assert.Contains(t, text, threadPrompt)

	full := f.Full(sampleDigest(13))
	assert.Equal(t, 13, strings.Count(full, "<https://b/"))
	assert.Contains(t, full, "*전체 목록* (15건)")
}

func TestTelegramStyleEscapesHTML(t *testing.T) {
	f := Formatter{Style: TelegramHTML, Limits: DefaultLimits()}
	text := f.Main(sampleDigest(0))

	assert.Contains(t, text, `<a href="https://k/1">예비창업패키지 &lt;추가&gt;</a>`)
	assert.Contains(t, text, "<b>🔥 마감 임박</b> (1건)")
}

func TestTitleWidthTruncatesByCells(t *testing.T) {
	f := Formatter{Style: Slack, TitleWidth: 9}
	d := domain.Digest{GeneratedAt: generatedAt, Categories: domain.Categorized{
		domain.CategoryNew: {{Title: "청년창업사관학교 모집", URL: "https://x/1", Source: domain.SourceKISED, Date: "2026-10-10"}},
	}}

	assert.Contains(t, f.Main(d), "<https://x/1|청년창업…>")
}

func TestSplitKeepsLinesIntact(t *testing.T) {
	text := strings.Repeat("가나다라마\n", 10)

	chunks := Split(text, 20)
	require.Len(t, chunks, 4)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 20)
		assert.False(t, strings.HasSuffix(chunk, "\n"))
	}
	assert.Equal(t, strings.TrimRight(text, "\n"), strings.Join(chunks, "\n"))

	assert.Equal(t, []string{"short"}, Split("short", 4096))
	assert.Equal(t, []string{"abcd", "ef"}, Split("abcdef", 4))
}
