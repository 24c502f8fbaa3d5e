package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"battleroom/server"
)

// BattleRoom 入口：加载配置，启动 HTTP + WebSocket 服务，并初始化房间目录与大厅
func main() {
	var (
		cfgPath string
		addr    string
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config, defaults are used when empty")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides server.addr, e.g. :8080")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.Server.LogFile, cfg.Server.LogLevel, cfg.Server.LogStderr); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	d := server.NewDirectory(cfg, server.RealScheduler)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS(d))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig(d))
	mux.HandleFunc("/admin/rooms", server.HandleRooms(d))
	mux.HandleFunc("/admin/rooms/close", server.HandleCloseRoom(d))
	mux.HandleFunc("/metrics", server.HandleMetrics(d))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	// 优雅退出（Ctrl+C）
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server.Log.Infof("BattleRoom listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		server.Log.Info("Shutting down...")
		d.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		server.Log.Errorf("server: %v", err)
	}
	server.Log.Info("Exiting")
}
