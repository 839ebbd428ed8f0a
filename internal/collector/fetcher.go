package collector

import "context"

// RawArticle 是新闻源返回的原始记录，未做任何清洗；
// PublishedAt 原样保留字符串，解析与兜底放在 processor
type RawArticle struct {
	Title       string
	Description string
	URL         string
	SourceName  string
	PublishedAt string
}

// Fetcher 抽象一次分页拉取
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]RawArticle, error)
}
