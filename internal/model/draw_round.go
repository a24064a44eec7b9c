package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DrawRound 对应 draw_round 表（一期开奖）
// status: 1=开放投注 2=已封盘 3=已录入开奖号码 4=已结算 5=改号冲正中
// result_version: 当前开奖结果版本号，0=未开奖；每次改号 +1，历史版本保留在 result_record
type DrawRound struct {
	ID            int64  `db:"id"`
	DrawID        string `db:"draw_id"`        // 期号（如 gov-2026-09-01）
	LotteryID     string `db:"lottery_id"`     // 彩种
	Name          string `db:"name"`           // 展示名（如 รัฐบาล 01/09/2026）
	OpenTime      int64  `db:"open_time"`      // 开盘时间（毫秒）
	CloseTime     int64  `db:"close_time"`     // 封盘时间（毫秒）
	Status        int8   `db:"status"`
	ResultVersion int    `db:"result_version"`
	TraceID       string `db:"trace_id"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

// Insert 创建一期
func (d *DrawRound) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO draw_round (draw_id, lottery_id, name, open_time, close_time, status, result_version, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr,
		d.DrawID, d.LotteryID, d.Name, d.OpenTime, d.CloseTime, d.Status, d.TraceID, now, now)
	return err
}

// GetDraw 查询一期（不加锁）
func GetDraw(ctx context.Context, exec sqlx.ExtContext, drawID string) (*DrawRound, error) {
	sqlStr := `SELECT id, draw_id, lottery_id, name, open_time, close_time, status, result_version, trace_id, created_at, updated_at
		FROM draw_round WHERE draw_id = ?`
	var d DrawRound
	if err := sqlx.GetContext(ctx, exec, &d, sqlStr, drawID); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDrawForUpdate 查询一期并加锁（投注校验窗口、结算/冲正校验状态都必须先锁期号行）
func GetDrawForUpdate(ctx context.Context, exec sqlx.ExtContext, drawID string) (*DrawRound, error) {
	sqlStr := `SELECT id, draw_id, lottery_id, name, open_time, close_time, status, result_version, trace_id, created_at, updated_at
		FROM draw_round WHERE draw_id = ? FOR UPDATE`
	var d DrawRound
	if err := sqlx.GetContext(ctx, exec, &d, sqlStr, drawID); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDrawStatus 更新期号状态
func UpdateDrawStatus(ctx context.Context, exec sqlx.ExtContext, drawID string, status int8) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE draw_round SET status = ?, updated_at = ? WHERE draw_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, status, now, drawID)
	return err
}

// BumpResultVersion 写入新结果版本号并更新状态（录入/改号时调用，需在事务内）
func BumpResultVersion(ctx context.Context, exec sqlx.ExtContext, drawID string, newVersion int, status int8) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE draw_round SET result_version = ?, status = ?, updated_at = ? WHERE draw_id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, newVersion, status, now, drawID)
	return err
}

// ListDrawsByLottery 按彩种列出期号（管理页）
func ListDrawsByLottery(ctx context.Context, db *sqlx.DB, lotteryID string, limit int) ([]DrawRound, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	sqlStr := `SELECT id, draw_id, lottery_id, name, open_time, close_time, status, result_version, trace_id, created_at, updated_at
		FROM draw_round WHERE lottery_id = ? ORDER BY open_time DESC LIMIT ?`
	var list []DrawRound
	if err := db.SelectContext(ctx, &list, sqlStr, lotteryID, limit); err != nil {
		return nil, err
	}
	return list, nil
}
