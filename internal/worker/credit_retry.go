package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"huay-server/common/logger"
	infmysql "huay-server/internal/infra/mysql"
	"huay-server/internal/model"
	"huay-server/internal/wallet"

	decimal "github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 派彩补偿 worker：结算时钱包上账失败的注单落在 credit_task，
// 这里周期扫描重试。幂等键与结算时一致（bet_line_id@version），重复上账安全。

const creditMaxRetry = 10

// StartCreditRetry 启动派彩补偿 worker，支持通过 ctx 优雅退出
func StartCreditRetry(ctx context.Context, wg *sync.WaitGroup, w wallet.Ledger) {
	if w == nil {
		return
	}
	wg.Add(1)
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCreditRetryOnce(ctx, w)
			}
		}
	}()
}

func runCreditRetryOnce(ctx context.Context, w wallet.Ledger) {
	db := infmysql.SQLX()
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	tasks, err := model.ListPendingCreditTasks(c, db, 100)
	cancel()
	if err != nil {
		logger.Warn("credit retry: list pending failed", zap.Error(err))
		return
	}
	for _, t := range tasks {
		idemKey := fmt.Sprintf("%d@%d", t.BetLineID, t.ResultVersion)
		_, werr := w.Credit(ctx, t.MemberID, decimal.NewFromFloat(t.Amount), idemKey)
		if wallet.Applied(werr) {
			if err := model.MarkCreditTaskDone(ctx, db, t.ID); err != nil {
				logger.Warn("credit retry: mark done failed", zap.Int64("id", t.ID), zap.Error(err))
			} else {
				logger.Info("credit retry: payout delivered",
					zap.Int64("bet_line_id", t.BetLineID),
					zap.Int64("member_id", t.MemberID),
					zap.Float64("amount", t.Amount))
			}
			continue
		}
		if err := model.MarkCreditTaskFailed(ctx, db, t.ID, werr.Error(), creditMaxRetry); err != nil {
			logger.Warn("credit retry: mark failed failed", zap.Int64("id", t.ID), zap.Error(err))
		}
	}
}
