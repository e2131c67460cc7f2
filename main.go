package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"capsulearena/geom"
	"capsulearena/server"
)

// CapsuleArena 入口：启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	var (
		addr      string
		logPath   string
		debug     bool
		scenePath string
		tickMs    int
		sentryDSN string
		statsAddr string
	)
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&logPath, "log", "app.log", "log file path")
	flag.BoolVar(&debug, "debug", false, "debug level logging")
	flag.StringVar(&scenePath, "scene", "", "scene JSON file (default: built-in scene)")
	flag.IntVar(&tickMs, "tick", 1000/server.TicksPerSecond, "room tick interval in ms")
	flag.StringVar(&sentryDSN, "sentry-dsn", "", "report tick panics to sentry")
	flag.StringVar(&statsAddr, "statsview", "", "runtime stats viewer address, e.g. localhost:18066")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(logPath, debug); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
			server.Log.Fatalf("sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if statsAddr != "" {
		// 必须在 statsview.New() 之前设置
		viewer.SetConfiguration(viewer.WithAddr(statsAddr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	scene := geom.DefaultScene()
	if scenePath != "" {
		s, err := geom.LoadScene(scenePath)
		if err != nil {
			server.Log.Fatalf("scene: %v", err)
		}
		scene = s
	}

	cfg := server.DefaultRoomConfig()
	cfg.TickMs = tickMs
	rm := server.GetRoomManager()
	if err := rm.Configure(scene, server.DefaultSpawn(), cfg); err != nil {
		server.Log.Fatalf("config: %v", err)
	}
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom("room-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("web")))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig)
	mux.HandleFunc("/metrics", server.HandleMetrics)
	mux.HandleFunc("/schema", server.HandleSchema)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		server.Log.Infof("CapsuleArena listening on %s; open http://localhost%v/", addr, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnw("http shutdown", "err", err)
	}
	rm.Shutdown()
}
