package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	newsAPIMaxResponseBytes = 1 << 20 // 1MB
	newsAPIDefaultTimeout   = 15 * time.Second
	newsAPIDefaultPageSize  = 50
)

// NewsAPIFetcher 调用 NewsAPI top-headlines 接口拉取一页头条。
// 无状态：每次 Fetch 是一次独立的网络调用，失败只影响本轮采集。
type NewsAPIFetcher struct {
	Endpoint string
	APIKey   string
	Language string
	Country  string
	PageSize int
	Timeout  time.Duration
}

func NewNewsAPIFetcher(endpoint, apiKey, language, country string, pageSize int, timeout time.Duration) *NewsAPIFetcher {
	if pageSize <= 0 {
		pageSize = newsAPIDefaultPageSize
	}
	if timeout <= 0 {
		timeout = newsAPIDefaultTimeout
	}
	return &NewsAPIFetcher{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Language: language,
		Country:  country,
		PageSize: pageSize,
		Timeout:  timeout,
	}
}

func (f *NewsAPIFetcher) Name() string {
	return "newsapi_top_headlines"
}

// 对应 NewsAPI /v2/top-headlines 的响应结构
type newsAPIResp struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (f *NewsAPIFetcher) Fetch(ctx context.Context) ([]RawArticle, error) {
	if f.APIKey == "" {
		return nil, fmt.Errorf("newsapi: api key not configured")
	}

	log.Printf("fetch NewsAPI top headlines (country=%s pageSize=%d)...", f.Country, f.PageSize)

	params := url.Values{}
	params.Set("apiKey", f.APIKey)
	params.Set("language", f.Language)
	params.Set("country", f.Country)
	params.Set("pageSize", strconv.Itoa(f.PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: build request: %w", err)
	}

	client := &http.Client{Timeout: f.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: fetch top headlines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi: unexpected status %d", resp.StatusCode)
	}

	var data newsAPIResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, newsAPIMaxResponseBytes)).Decode(&data); err != nil {
		return nil, fmt.Errorf("newsapi: decode response: %w", err)
	}

	// NewsAPI 在 2xx 下也可能在 body 里报错（status=error）
	if data.Status != "ok" {
		return nil, fmt.Errorf("newsapi: api error %s: %s", data.Code, data.Message)
	}

	results := make([]RawArticle, 0, len(data.Articles))
	dropped := 0
	for _, a := range data.Articles {
		// 没有 URL 的记录无法去重，直接丢弃
		if a.URL == "" {
			dropped++
			continue
		}
		results = append(results, RawArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	// 空结果是合法返回（比如冷门地区没有头条），不算错误
	log.Printf("newsapi: got %d articles (%d dropped without url)", len(results), dropped)
	return results, nil
}
