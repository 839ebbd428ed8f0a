package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/newsdailyhq/NewsDaily/internal/ingest"
	"github.com/robfig/cron/v3"
)

// Runner 是调度器需要的最小接口；重叠触发的互斥由 Job 自己负责
type Runner interface {
	Run(ctx context.Context) ingest.Summary
}

type Scheduler struct {
	cron *cron.Cron
	job  Runner
	wg   sync.WaitGroup
}

func New(spec string, job Runner) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron: c,
		job:  job,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}

	return s, nil
}

// Start 启动即在后台执行首轮采集，随后按 cron 周期触发
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()
	}()
	s.cron.Start()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发采集
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start collect job...")

	sum := s.job.Run(context.Background())
	switch {
	case sum.Skipped:
		log.Println("collect job skipped: previous cycle still running")
	case sum.Err != nil:
		// 采集失败是常态（网络抖动、源站故障），记日志等下一轮即可
		log.Printf("collect job failed after %v: %v", sum.Duration.Round(time.Millisecond), sum.Err)
	default:
		log.Printf("collect job done, fetched=%d inserted=%d updated=%d", sum.Fetched, sum.Inserted, sum.Updated)
	}
}

// Stop 不再发出新触发，并在 ctx 允许的时间内等待在途的一轮结束；
// 超时返回 ctx 的错误，在途任务各自收尾，不会把存储锁留在持有状态
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-stopped.Done()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
