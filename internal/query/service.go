package query

import (
	"errors"
	"strings"

	"github.com/newsdailyhq/NewsDaily/internal/storage"
)

// ErrInvalidLimit 表示调用方传了负数 limit，属于参数错误而非服务故障
var ErrInvalidLimit = errors.New("query: limit must not be negative")

const defaultLimit = 20

// Store 是查询侧需要的最小读接口
type Store interface {
	MostRecent(limit int) ([]storage.News, error)
	Search(substring string, limit int) ([]storage.News, error)
}

// Service 是存储层之上的薄读适配：只做参数校验和分派，不掺业务逻辑
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List 按关键词与条数返回文章：关键词去掉首尾空白，全空白视为未提供；
// limit 为 0 用默认值，负数拒绝
func (s *Service) List(q string, limit int) ([]storage.News, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = defaultLimit
	}

	q = strings.TrimSpace(q)
	if q == "" {
		return s.store.MostRecent(limit)
	}
	return s.store.Search(q, limit)
}
