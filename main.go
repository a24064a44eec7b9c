package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"huay-server/common"
	"huay-server/common/logger"
	"huay-server/internal/config"
	"huay-server/internal/controller/api"
	infmysql "huay-server/internal/infra/mysql"
	infredis "huay-server/internal/infra/redis"
	"huay-server/internal/service"
	"huay-server/internal/wallet"
	"huay-server/internal/worker"
	_ "huay-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置：Nacos 优先，本地文件兜底
	cfg, err := config.Load(rootCtx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新：目前支持日志级别动态调整，开关/阈值走 config.GetThreshold
	if err := config.StartWatch(rootCtx, func(oldCfg, newCfg *config.Config) {
		config.Set(newCfg)
		if newCfg.Server.LogLevel != "" {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// MySQL：业务写路径全部走 master
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)

	// Redis：幂等锁/期号互斥锁/结果缓存；未配置时相关路径自动降级
	infredis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infredis.Ping(rootCtx, 2*time.Second); err != nil {
		logger.Warn("redis ping failed", zap.Error(err))
	}

	// 钱包账本：默认对接钱包服务 HTTP API，本地联调可切内存实现
	var ledger wallet.Ledger
	if cfg.Wallet.UseMock || cfg.Wallet.BaseURL == "" {
		logger.Warn("wallet: using in-memory mock ledger")
		ledger = wallet.NewMock()
	} else {
		ledger = wallet.NewHTTPLedger(cfg.Wallet.BaseURL, os.Getenv("WALLET_API_KEY"))
	}

	// 服务装配并注入控制器
	settleSvc := service.NewSettlementService(ledger)
	api.BetSvc = service.NewBetService(ledger)
	api.SettleSvc = settleSvc
	api.ReviseSvc = service.NewReviseService(ledger, settleSvc)
	api.DrawSvc = service.NewDrawService()
	api.ConfigSvc = service.NewConfigService()
	api.ReportSvc = service.NewReportService()

	// 后台任务：Outbox 分发、封盘指令消费、派彩补偿重试
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(rootCtx, &wg)
	worker.StartInboxConsumer(rootCtx, &wg, func(c context.Context, drawID, traceID string) error {
		return api.DrawSvc.CloseDraw(c, drawID, traceID)
	})
	worker.StartCreditRetry(rootCtx, &wg, ledger)

	// Prometheus 指标端口（与业务端口分离）
	if cfg.Observability.EnableProm {
		promAddr := cfg.Observability.PromAddr
		if promAddr == "" {
			promAddr = ":9090"
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(promAddr, mux); err != nil {
				logger.Warn("metrics server exited", zap.Error(err))
			}
		}()
	}

	// HTTP 服务
	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}
	beego.BConfig.CopyRequestBody = true
	go func() {
		logger.Info("http server starting", zap.Int("port", beego.BConfig.Listen.HTTPPort))
		beego.Run()
	}()

	// 优雅退出：先停后台任务，再放行进程退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	common.Printf("[Main] 收到退出信号 %v，开始优雅退出", sig)

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("background workers stopped")
	case <-time.After(10 * time.Second):
		logger.Warn("background workers stop timeout")
	}
}
