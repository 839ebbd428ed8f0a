package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	// CronSpec 控制采集周期，robfig/cron 语法；默认每 24 小时一轮
	CronSpec string

	// NewsAPI 相关配置，密钥只能来自环境变量
	NewsAPIKey      string
	NewsAPIEndpoint string
	NewsLanguage    string
	NewsCountry     string
	NewsPageSize    int
	FetchTimeout    time.Duration

	// 是否在描述缺失时抓取文章页面补全 og:description
	EnrichDescriptions bool

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=newsdaily password=newsdaily dbname=newsdaily port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:    getEnv("CRON_SPEC", "@every 24h"),

		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		NewsAPIEndpoint: getEnv("NEWS_API_ENDPOINT", "https://newsapi.org/v2/top-headlines"),
		NewsLanguage:    getEnv("NEWS_LANGUAGE", "en"),
		NewsCountry:     getEnv("NEWS_COUNTRY", "us"),
		NewsPageSize:    getEnvInt("NEWS_PAGE_SIZE", 50),
		FetchTimeout:    time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,

		EnrichDescriptions: getEnv("ENRICH_DESCRIPTIONS", "") == "true",

		BasicAuthUser: os.Getenv("APP_BASIC_USER"),
		BasicAuthPass: os.Getenv("APP_BASIC_PASS"),
	}

	// 不打印密钥本身，只提示是否已配置
	log.Printf("config loaded: port=%s cron=%s endpoint=%s pageSize=%d apiKeySet=%v",
		cfg.AppPort, cfg.CronSpec, cfg.NewsAPIEndpoint, cfg.NewsPageSize, cfg.NewsAPIKey != "")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}
