package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-lobby/pkg/config"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"github.com/lk2023060901/xdooria-lobby/pkg/sentry"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/middleware"
	"github.com/lk2023060901/xdooria-lobby/pkg/web/validator"
)

// Server Web 服务
type Server struct {
	engine  *gin.Engine
	config  *Config
	logger  logger.Logger
	started atomic.Bool
	addr    atomic.Value
}

// Option 服务选项
type Option func(*options)

type options struct {
	reporter    *sentry.Client
	middlewares []gin.HandlerFunc
}

// WithReporter panic 与 5xx 上报到 Sentry
func WithReporter(r *sentry.Client) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithMiddleware 在基础中间件之后追加全局中间件
func WithMiddleware(mw ...gin.HandlerFunc) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

// NewServer 创建 Web 服务并挂载 request-id、追踪、访问日志与恢复中间件
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	gin.SetMode(merged.Mode)
	validator.Init()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(merged.ServiceName),
		middleware.Logger(l.Named("web.access")),
		middleware.Recovery(l.Named("web.recovery"), o.reporter),
	)
	engine.Use(o.middlewares...)

	return &Server{
		engine: engine,
		config: merged,
		logger: l.Named("web.server"),
	}, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	if v, ok := s.addr.Load().(string); ok {
		return v
	}
	return ""
}

// Run 监听直到 ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return errors.Wrap(err, "web: listen")
	}
	s.addr.Store(ln.Addr().String())

	srv := &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.config.EnableTLS {
			s.logger.Info("starting https server", "addr", ln.Addr().String())
			errCh <- srv.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
			return
		}
		s.logger.Info("starting http server", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "web: serve")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("http server exited")
	return nil
}
