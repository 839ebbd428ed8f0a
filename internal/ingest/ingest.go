package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/newsdailyhq/NewsDaily/internal/collector"
	"github.com/newsdailyhq/NewsDaily/internal/processor"
)

// ErrCycleInFlight 表示上一轮采集还没结束，本次触发被跳过（不排队）
var ErrCycleInFlight = errors.New("ingest: cycle already in flight")

// Summary 是一轮采集的结果，交给调度方打日志
type Summary struct {
	Fetched  int
	Inserted int
	Updated  int
	Duration time.Duration
	Skipped  bool
	Err      error
}

// Enricher 可选：在入库前补全缺失字段（如抓取页面补描述）
type Enricher interface {
	Enrich(ctx context.Context, items []collector.RawArticle) []collector.RawArticle
}

// Store 是 Job 需要的最小写接口
type Store interface {
	UpsertMany(items []processor.Article) (inserted, updated int, err error)
}

// Job 串起一轮 拉取 → 清洗 → 入库；任何一步失败都只记在 Summary 里，
// 不往外抛 panic，也不影响并发中的查询
type Job struct {
	fetcher   collector.Fetcher
	enricher  Enricher // 可为 nil
	processor *processor.SimpleProcessor
	store     Store

	mu sync.Mutex
}

func New(f collector.Fetcher, e Enricher, p *processor.SimpleProcessor, store Store) *Job {
	return &Job{
		fetcher:   f,
		enricher:  e,
		processor: p,
		store:     store,
	}
}

// Run 执行一轮采集。同一时刻只允许一轮在跑：抢不到锁直接返回 Skipped，
// 防止重叠的两轮对同一批 Identity 互相踩踏
func (j *Job) Run(ctx context.Context) Summary {
	if !j.mu.TryLock() {
		log.Printf("ingest: skip trigger, previous cycle still running")
		return Summary{Skipped: true, Err: ErrCycleInFlight}
	}
	defer j.mu.Unlock()

	start := time.Now()

	items, err := j.fetcher.Fetch(ctx)
	if err != nil {
		log.Printf("ingest: fetch from %s failed: %v", j.fetcher.Name(), err)
		return Summary{Duration: time.Since(start), Err: err}
	}

	if j.enricher != nil {
		items = j.enricher.Enrich(ctx, items)
	}

	articles := j.processor.Process(items)

	inserted, updated, err := j.store.UpsertMany(articles)
	if err != nil {
		log.Printf("ingest: persist batch failed: %v", err)
		return Summary{Fetched: len(items), Duration: time.Since(start), Err: err}
	}

	sum := Summary{
		Fetched:  len(items),
		Inserted: inserted,
		Updated:  updated,
		Duration: time.Since(start),
	}
	log.Printf("ingest: cycle done, fetched=%d inserted=%d updated=%d took=%v",
		sum.Fetched, sum.Inserted, sum.Updated, sum.Duration.Round(time.Millisecond))
	return sum
}
