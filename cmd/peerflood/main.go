// Package main 提供 peerflood 命令行节点
//
// 节点启动后从标准输入读取命令：
//
//	search <id>            发起搜索
//	provide <id> <json>    提供数据
//	unprovide <id>         撤销提供
//	peers                  列出邻居
//	quit                   退出
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-peerflood"
	"github.com/dep2p/go-peerflood/config"
	"github.com/dep2p/go-peerflood/internal/util/logger"
)

var log = logger.Logger("cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖（「这次运行」想怎么跑）
//   JSON 配置文件：节点的固定配置
//
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
var (
	configFile  = flag.String("config", "", "配置文件路径")
	listenAddr  = flag.String("listen", "", "监听地址（默认 0.0.0.0:9099）")
	connectTo   = flag.String("connect", "", "启动后拨号的节点（逗号分隔 host:port）")
	metricsAddr = flag.String("metrics", "", "Prometheus 指标端点地址（如 127.0.0.1:9100）")
	logFile     = flag.String("log", "", "日志文件路径")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告: %v，日志输出到 stderr\n", err)
	}
	defer closeLog()

	node, err := peerflood.New(peerflood.WithConfig(cfg), peerflood.WithRuntimeMetrics())
	if err != nil {
		return fmt.Errorf("创建节点失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := node.Start(ctx); err != nil {
		return err
	}

	c := newConsole(node, os.Stdout)
	if err := c.watch(); err != nil {
		return err
	}

	if err := node.Listen(ctx, ""); err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	fmt.Printf("节点 %s 已启动（公网可达: %v）\n", node.ID(), node.IsPublic())

	for _, addr := range splitAndTrim(*connectTo, ",") {
		if err := node.Connect(ctx, addr); err != nil {
			fmt.Printf("连接 %s 失败: %v\n", addr, err)
		}
	}

	if cfg.Metrics.ListenAddr != "" {
		srv := serveMetrics(cfg.Metrics.ListenAddr, node)
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// 标准输入结束或收到退出命令/信号时关闭
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.repl(os.Stdin)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-signals:
	case <-done:
	}

	fmt.Println("正在关闭节点...")
	return nil
}

// loadConfig 合并配置文件、环境变量与命令行参数
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	applyEnvOverrides(cfg, os.Getenv)

	if *listenAddr != "" {
		cfg.Transport.ListenAddr = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.Metrics.ListenAddr = *metricsAddr
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging 应用日志级别与格式，并按需切换到日志文件
func setupLogging(cfg config.LogConfig) (func(), error) {
	logger.Apply(cfg.Level, cfg.Format)
	if cfg.File == "" {
		return func() {}, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return func() {}, fmt.Errorf("打开日志文件失败: %w", err)
	}
	logger.SetOutput(file)
	return func() {
		logger.SetOutput(os.Stderr)
		_ = file.Close()
	}, nil
}

// serveMetrics 暴露 Prometheus 指标端点
func serveMetrics(addr string, node *peerflood.Node) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(node.Metrics(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("指标端点退出", "addr", addr, "err", err)
		}
	}()
	log.Info("指标端点已启动", "addr", addr)
	return srv
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
