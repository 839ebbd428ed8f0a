package main

import (
	"context"
	"log"
	"os"

	"github.com/newsdailyhq/NewsDaily/internal/collector"
	"github.com/newsdailyhq/NewsDaily/internal/config"
	"github.com/newsdailyhq/NewsDaily/internal/ingest"
	"github.com/newsdailyhq/NewsDaily/internal/processor"
	"github.com/newsdailyhq/NewsDaily/internal/storage"
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集
func main() {
	cfg := config.Load()

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	fetcher := collector.NewNewsAPIFetcher(
		cfg.NewsAPIEndpoint, cfg.NewsAPIKey,
		cfg.NewsLanguage, cfg.NewsCountry,
		cfg.NewsPageSize, cfg.FetchTimeout,
	)

	var enricher ingest.Enricher
	if cfg.EnrichDescriptions {
		enricher = collector.NewDescriptionEnricher()
	}

	job := ingest.New(fetcher, enricher, processor.NewSimpleProcessor(), store)

	sum := job.Run(context.Background())
	if sum.Err != nil {
		log.Printf("collect failed: %v", sum.Err)
		os.Exit(1)
	}
	log.Printf("collect done, fetched=%d inserted=%d updated=%d", sum.Fetched, sum.Inserted, sum.Updated)
}
