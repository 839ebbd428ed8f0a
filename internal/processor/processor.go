package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/newsdailyhq/NewsDaily/internal/collector"
)

// Article 是写入存储层前的统一结构，Identity 由 URL 推导
type Article struct {
	Identity    string
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt time.Time
	RawData     map[string]any
}

// SimpleProcessor 做最基础的数据清洗与 Identity 生成。
// now 可注入，方便测试 publishedAt 缺失时的兜底逻辑
type SimpleProcessor struct {
	now func() time.Time
}

func NewSimpleProcessor() *SimpleProcessor {
	return &SimpleProcessor{now: time.Now}
}

func (p *SimpleProcessor) Process(items []collector.RawArticle) []Article {
	out := make([]Article, 0, len(items))
	seen := make(map[string]struct{})

	for _, it := range items {
		// 没有 URL 的记录推不出 Identity，collector 已经丢弃，这里再兜一次底
		if it.URL == "" {
			continue
		}

		id := hashURL(it.URL)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		source := strings.TrimSpace(it.SourceName)
		if source == "" {
			source = "unknown"
		}

		out = append(out, Article{
			Identity:    id,
			Title:       strings.TrimSpace(it.Title),
			Description: strings.TrimSpace(it.Description),
			URL:         it.URL,
			SourceName:  source,
			PublishedAt: p.parsePublishedAt(it.PublishedAt),
			RawData: map[string]any{
				"published_at_raw": it.PublishedAt,
			},
		})
	}

	return out
}

// parsePublishedAt 解析 RFC3339 时间戳；缺失或格式非法时退回当前时间，
// 保证入库后排序与匹配不会碰到零值
func (p *SimpleProcessor) parsePublishedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return p.now()
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
