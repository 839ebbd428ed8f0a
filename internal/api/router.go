package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsdailyhq/NewsDaily/internal/query"
	"github.com/newsdailyhq/NewsDaily/internal/storage"
)

type Server struct {
	svc *query.Service
}

func NewServer(svc *query.Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	// /healthz 是老部署脚本探活用的路径，和 /health 等价
	r.GET("/health", s.health)
	r.GET("/healthz", s.health)

	r.GET("/articles", s.listArticles)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// articleView 是对外的文章视图，内部字段（identity、extra_data 等）不外露
type articleView struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

func (s *Server) listArticles(c *gin.Context) {
	q := c.Query("q")

	// limit 缺失或不是数字时用默认值；负数交给服务层拒绝
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := s.svc.List(q, limit)
	if errors.Is(err, query.ErrInvalidLimit) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "invalid_request",
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		// 存储故障对查询方是 "暂时不可用"，和参数错误区分开
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "store_unavailable",
			"message": "article store temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    toViews(items),
	})
}

func toViews(items []storage.News) []articleView {
	views := make([]articleView, 0, len(items))
	for _, n := range items {
		views = append(views, articleView{
			Title:       n.Title,
			Description: n.Description,
			URL:         n.URL,
			Source:      n.SourceName,
			PublishedAt: n.PublishedAt,
		})
	}
	return views
}
