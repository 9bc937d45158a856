package server

import (
	"context"
	"net/http"

	"SocialChat/config"

	"github.com/gin-gonic/gin"
)

// Server 对 http.Server 的轻量封装。
// 这里集中管理启动和优雅关闭，避免调用方直接操作底层对象。
type Server struct {
	httpServer *http.Server
}

// SetGinMode 需要在构建路由之前调用，否则 gin 会打印 debug 路由表
func SetGinMode(cfg config.ServerConfig) {
	mode := cfg.GinMode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
}

// New 把路由包装成 HTTP Server。
// 超时用于限制慢连接；/ws 升级后连接被接管，不受 ReadTimeout/WriteTimeout 约束。
func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Addr 监听地址
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start 启动 HTTP 监听。
// 正常优雅关闭时会返回 http.ErrServerClosed，调用方应将其视为正常退出。
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown 执行优雅停机。
// 调用方需要传入带超时的 ctx，以防止无限等待。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
