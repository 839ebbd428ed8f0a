package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/newsdailyhq/NewsDaily/internal/processor"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// News 对应 news 表；Identity 是 URL 的 sha1，作为稳定的去重键，
// 不使用自增 ID（自增键无法跨采集轮次识别同一篇文章）
type News struct {
	Identity    string    `gorm:"primaryKey;size:40" json:"identity"`
	Title       string    `gorm:"size:512" json:"title"`
	Description string    `gorm:"size:2048" json:"description"`
	URL         string    `gorm:"size:1024;uniqueIndex" json:"url"`
	SourceName  string    `gorm:"size:128;index" json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	// IngestedAt 由存储层在首次插入时赋值，后续更新保持不变，
	// 是 "最新 N 条" 的排序键
	IngestedAt time.Time         `gorm:"index" json:"ingestedAt"`
	ExtraData  datatypes.JSONMap `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (News) TableName() string {
	return "news"
}

const (
	defaultListLimit = 20
	maxListLimit     = 100

	listCacheTTL = 5 * time.Minute
	genCacheKey  = "news:gen"
)

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
	}

	s := &Store{DB: db, Redis: rdb}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB 基于已打开的 gorm 连接创建 Store，不带缓存；供测试使用
func NewStoreWithDB(db *gorm.DB) (*Store, error) {
	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	return s.DB.AutoMigrate(&News{})
}

// Upsert 写入单篇文章，语义与 UpsertMany 的单元素批次一致
func (s *Store) Upsert(item processor.Article) error {
	_, _, err := s.UpsertMany([]processor.Article{item})
	return err
}

// UpsertMany 以 Identity 为幂等键批量写入：不存在则插入并打上 IngestedAt，
// 已存在只更新可变字段，IngestedAt 保持首见时间。整批在一个事务里，
// 读者要么看到完整的一批，要么一条都看不到。
func (s *Store) UpsertMany(items []processor.Article) (inserted, updated int, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	now := time.Now().UTC()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			title := truncateRunesDB(toValidUTF8(it.Title), 512)
			description := truncateRunesDB(toValidUTF8(it.Description), 2048)

			var existing News
			findErr := tx.Where("identity = ?", it.Identity).First(&existing).Error
			switch {
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				n := &News{
					Identity:    it.Identity,
					Title:       title,
					Description: description,
					URL:         it.URL,
					SourceName:  it.SourceName,
					PublishedAt: it.PublishedAt,
					IngestedAt:  now,
					ExtraData:   datatypes.JSONMap(it.RawData),
				}
				if createErr := tx.Create(n).Error; createErr != nil {
					return createErr
				}
				inserted++
			case findErr != nil:
				return findErr
			default:
				if updErr := tx.Model(&News{}).Where("identity = ?", it.Identity).Updates(map[string]any{
					"title":        title,
					"description":  description,
					"source_name":  it.SourceName,
					"published_at": it.PublishedAt,
					"extra_data":   datatypes.JSONMap(it.RawData),
				}).Error; updErr != nil {
					return updErr
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.bumpGeneration()
	return inserted, updated, nil
}

// MostRecent 返回最新入库的 limit 条，按 IngestedAt 倒序，
// 相同入库时间按 Identity 倒序保证结果确定
func (s *Store) MostRecent(limit int) ([]News, error) {
	return s.list("", limit)
}

// Search 在标题与描述上做大小写不敏感的子串匹配，排序与 MostRecent 一致；
// 空关键词等价于 MostRecent
func (s *Store) Search(substring string, limit int) ([]News, error) {
	return s.list(substring, limit)
}

func (s *Store) list(q string, limit int) ([]News, error) {
	limit = clampLimit(limit)
	ctx := context.Background()

	cacheKey := fmt.Sprintf("news:list:%d:%s:%d", s.generation(ctx), q, limit)
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []News
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	db := s.DB.Model(&News{})
	if q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		db = db.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	var list []News
	if err := db.Order("ingested_at DESC").Order("identity DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// generation/bumpGeneration 用一个 Redis 计数器给缓存 key 加代数：
// 每次批量写入后代数 +1，旧代的缓存条目自然失效，不需要通配符删除
func (s *Store) generation(ctx context.Context) int64 {
	if s.Redis == nil {
		return 0
	}
	gen, err := s.Redis.Get(ctx, genCacheKey).Int64()
	if err != nil {
		return 0
	}
	return gen
}

func (s *Store) bumpGeneration() {
	if s.Redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Redis.Incr(ctx, genCacheKey).Err(); err != nil {
		log.Printf("warn: bump cache generation failed: %v", err)
	}
}

// clampLimit 把调用方给的 limit 收敛到安全范围：非正数用默认值，
// 上限封顶，防止一次查询拖回整张表
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// escapeLike 转义 LIKE 的通配符，关键词里的 % 和 _ 按字面量匹配
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
