package app

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-lobby/pkg/logger"
	"golang.org/x/sync/errgroup"
)

var ErrAppAlreadyRunning = errors.New("application is already running")

// Application 应用生命周期接口
type Application interface {
	Run(ctx context.Context) error
	Shutdown() error
}

// Server 阻塞运行直到 ctx 结束的服务（如 HTTP 服务器）
type Server interface {
	Run(ctx context.Context) error
}

// Closer 资源清理接口（DB、Redis、Tracer 等）
type Closer interface {
	Close() error
}

// BaseApp Application 的基础实现
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer

	mu      sync.Mutex
	cancel  context.CancelFunc
	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建 BaseApp
func NewBaseApp(l logger.Logger, opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &BaseApp{
		opts:   o,
		logger: l.Named("app"),
	}
}

// AppendServer 添加服务器
func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加资源清理组件，关闭时按逆序执行
func (a *BaseApp) AppendCloser(c ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, c...)
}

// Run 启动所有服务并阻塞，收到 SIGINT/SIGTERM、ctx 结束或任一服务出错时退出
func (a *BaseApp) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	info := GetInfo()
	fmt.Println(info.String())
	a.logger.Info("application starting",
		"name", a.opts.Name,
		"id", a.opts.ID,
		"version", info.Version,
		"commit", info.GitCommit,
		"go_version", info.GoVersion,
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("server exited with error", "error", err)
	}

	if shutdownErr := a.Shutdown(); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown 取消运行上下文并逆序关闭所有 Closer，可重复调用
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	cancel := a.cancel
	closers := append([]Closer(nil), a.closers...)
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.logger.Info("application shutting down")

	done := make(chan error, 1)
	go func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				a.logger.Error("failed to close component", "error", err)
				errs = errors.CombineErrors(errs, err)
			}
		}
		done <- errs
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("shutdown timeout, forcing exit", "timeout", a.opts.StopTimeout)
		err = errors.New("shutdown timeout")
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return err
}
