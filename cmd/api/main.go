package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsdailyhq/NewsDaily/internal/api"
	"github.com/newsdailyhq/NewsDaily/internal/collector"
	"github.com/newsdailyhq/NewsDaily/internal/config"
	"github.com/newsdailyhq/NewsDaily/internal/ingest"
	"github.com/newsdailyhq/NewsDaily/internal/processor"
	"github.com/newsdailyhq/NewsDaily/internal/query"
	"github.com/newsdailyhq/NewsDaily/internal/scheduler"
	"github.com/newsdailyhq/NewsDaily/internal/storage"
)

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

	s, err := scheduler.New(cfg.CronSpec, job)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	// API
	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（探活路径仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(query.NewService(store))
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Printf("starting api server at %s ...", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exit: %v", err)
		}
	}()

	// 收到退出信号后：先停 HTTP，再停调度器并给在途采集一点收尾时间
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := s.Stop(shutdownCtx); err != nil {
		log.Printf("scheduler stop: %v (abandoning in-flight cycle)", err)
	}
	log.Println("bye")
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// 仅当配置了 APP_BASIC_USER / APP_BASIC_PASS 时启用。
// /health 与 /healthz 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
