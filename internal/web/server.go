package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server 暴露本次抓取进度与结果的只读 HTTP 接口，
// 供外部观察长时间运行的批量任务。
type Server struct {
	addr      string
	pool      *fetcher.Pool
	startedAt time.Time
	router    *gin.Engine
	httpSrv   *http.Server
}

func NewServer(addr string, pool *fetcher.Pool) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:      addr,
		pool:      pool,
		startedAt: time.Now(),
		router:    router,
	}
	api := router.Group("/api/fetch")
	api.GET("/progress", s.handleProgress)
	api.GET("/summary", s.handleSummary)
	api.GET("/outcomes", s.handleOutcomes)
	return s
}

// Start 在后台启动服务；监听失败只记日志，不影响抓取本身。
func (s *Server) Start() {
	s.httpSrv = &http.Server{Addr: s.addr, Handler: s.router}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warnf("[web] 状态服务退出: %v", err)
		}
	}()
	logger.Infof("[web] 状态服务已启动: %s", s.addr)
}

func (s *Server) Shutdown(ctx context.Context) {
	if s.httpSrv == nil {
		return
	}
	_ = s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleProgress(c *gin.Context) {
	done, total := s.pool.Progress()
	c.JSON(http.StatusOK, gin.H{
		"done":            done,
		"total":           total,
		"running":         done < total,
		"elapsed_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	counts := map[string]int{}
	for _, o := range s.pool.Outcomes() {
		counts[o.Status.String()]++
	}
	done, total := s.pool.Progress()
	c.JSON(http.StatusOK, gin.H{
		"done":     done,
		"total":    total,
		"statuses": counts,
	})
}

func (s *Server) handleOutcomes(c *gin.Context) {
	outcomes := s.pool.Outcomes()
	items := make([]gin.H, 0, len(outcomes))
	for _, o := range outcomes {
		item := gin.H{
			"symbol":   o.Symbol,
			"status":   o.Status.String(),
			"records":  o.Records,
			"attempts": o.Attempts,
		}
		if o.Err != nil {
			item["error"] = o.Err.Error()
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": items})
}
