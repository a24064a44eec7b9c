package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SettlementLog 结算日志表（防止同一结果版本重复结算）
// 唯一索引 (draw_id, result_version)：结算重放时插入冲突即表示本版本已结清
type SettlementLog struct {
	ID            int64   `db:"id"`
	DrawID        string  `db:"draw_id"`
	ResultVersion int     `db:"result_version"`
	TotalLines    int     `db:"total_lines"`    // 本次结算处理注单数
	WonLines      int     `db:"won_lines"`      // 中奖注单数
	TotalPayout   float64 `db:"total_payout"`   // 总派彩金额
	Operator      string  `db:"operator"`       // 操作人
	TraceID       string  `db:"trace_id"`       // 链路追踪ID
	CreatedAt     int64   `db:"created_at"`     // 创建时间（13位毫秒时间戳）
}

// CreateSettlementLog 创建结算日志（利用唯一索引防止重复结算）
// 返回唯一键冲突错误说明该期该版本已经结算过
func CreateSettlementLog(ctx context.Context, exec sqlx.ExtContext, log *SettlementLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO settlement_log (draw_id, result_version, total_lines, won_lines, total_payout, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.DrawID, log.ResultVersion, log.TotalLines, log.WonLines, log.TotalPayout, log.Operator, log.TraceID, log.CreatedAt)
	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id
	return nil
}

// GetSettlementLog 查询某期某版本的结算日志
func GetSettlementLog(ctx context.Context, exec sqlx.ExtContext, drawID string, version int) (*SettlementLog, error) {
	sqlStr := `SELECT id, draw_id, result_version, total_lines, won_lines, total_payout, operator, trace_id, created_at
	           FROM settlement_log WHERE draw_id = ? AND result_version = ? LIMIT 1`

	var log SettlementLog
	if err := sqlx.GetContext(ctx, exec, &log, sqlStr, drawID, version); err != nil {
		return nil, err
	}
	return &log, nil
}
