package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	enrichMaxWorkers   = 5
	enrichMaxBodyBytes = 1 << 20 // 1MB
	enrichTimeout      = 8 * time.Second
)

// DescriptionEnricher 在描述缺失时抓取文章页面，从 meta 标签补全介绍。
// 失败只记日志不报错：补全是尽力而为，不能拖垮整轮采集。
type DescriptionEnricher struct {
	Client *http.Client
}

func NewDescriptionEnricher() *DescriptionEnricher {
	return &DescriptionEnricher{
		Client: &http.Client{Timeout: enrichTimeout},
	}
}

// Enrich 返回新切片，原切片不被修改；只处理 Description 为空的记录
func (e *DescriptionEnricher) Enrich(ctx context.Context, items []RawArticle) []RawArticle {
	out := make([]RawArticle, len(items))
	copy(out, items)

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, enrichMaxWorkers)
	)

	for i := range out {
		if strings.TrimSpace(out[i].Description) != "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			desc, err := e.fetchDescription(ctx, out[idx].URL)
			if err != nil {
				log.Printf("enrich %s failed: %v", out[idx].URL, err)
				return
			}
			if desc != "" {
				out[idx].Description = desc
			}
		}(i)
	}
	wg.Wait()

	return out
}

func (e *DescriptionEnricher) fetchDescription(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, enrichMaxBodyBytes))
	if err != nil {
		return "", err
	}

	return extractDescription(body)
}

// extractDescription 依次尝试 og:description 与 meta description
func extractDescription(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range []string{
		`meta[property="og:description"]`,
		`meta[name="description"]`,
	} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok && strings.TrimSpace(val) != "" {
				return strings.TrimSpace(val), nil
			}
		}
	}
	return "", nil
}
