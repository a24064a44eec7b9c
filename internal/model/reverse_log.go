package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReverseLog 对应 reverse_log 表（冲正流水）
// 每回收一笔误派派彩写一行，记录钱包扣回前后余额；余额扣负时 after_balance 为负数，
// 这行就是该会员的应收凭证
type ReverseLog struct {
	ID            int64   `db:"id"`
	DrawID        string  `db:"draw_id"`
	BetLineID     int64   `db:"bet_line_id"`
	MemberID      int64   `db:"member_id"`
	ResultVersion int     `db:"result_version"` // 被冲正的结果版本
	Amount        float64 `db:"amount"`         // 回收金额（= 原派彩）
	BeforeBalance float64 `db:"before_balance"`
	AfterBalance  float64 `db:"after_balance"`
	TraceID       string  `db:"trace_id"`
	CreatedAt     int64   `db:"created_at"`
}

// Insert 写入一条冲正流水
func (r *ReverseLog) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO reverse_log (draw_id, bet_line_id, member_id, result_version, amount, before_balance, after_balance, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr,
		r.DrawID, r.BetLineID, r.MemberID, r.ResultVersion, r.Amount, r.BeforeBalance, r.AfterBalance, r.TraceID, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.ID = id
	return nil
}

// SumReversedByDrawVersion 统计某期某版本已回收总额（对账：应与该版本误派总额一致）
func SumReversedByDrawVersion(ctx context.Context, exec sqlx.ExtContext, drawID string, version int) (float64, error) {
	sqlStr := "SELECT COALESCE(SUM(amount), 0) FROM reverse_log WHERE draw_id = ? AND result_version = ?"
	var total float64
	if err := sqlx.GetContext(ctx, exec, &total, sqlStr, drawID, version); err != nil {
		return 0, err
	}
	return total, nil
}

// ListReverseLogs 某期冲正流水（审计页）
func ListReverseLogs(ctx context.Context, db *sqlx.DB, drawID string) ([]ReverseLog, error) {
	sqlStr := `SELECT id, draw_id, bet_line_id, member_id, result_version, amount, before_balance, after_balance, trace_id, created_at
		FROM reverse_log WHERE draw_id = ? ORDER BY id DESC`
	var list []ReverseLog
	if err := db.SelectContext(ctx, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}
