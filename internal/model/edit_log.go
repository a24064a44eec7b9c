package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// EditLog 对应 edit_log 表（改号审计）
// 一次改号一行，记录前后版本与前后号码全集，追加写入不可改
type EditLog struct {
	ID             int64   `db:"id"`
	DrawID         string  `db:"draw_id"`
	FromVersion    int     `db:"from_version"`
	ToVersion      int     `db:"to_version"`
	OldResults     string  `db:"old_results"` // 改号前全套号码(JSON)
	NewResults     string  `db:"new_results"` // 改号后全套号码(JSON)
	WinnersCount   int     `db:"winners_count"`   // 旧版本中奖注单数（待冲正）
	ReversedAmount float64 `db:"reversed_amount"` // 实际回收总额，按冲正流水回填
	Reason         string  `db:"reason"`          // 改号原因
	Operator       string  `db:"operator"`
	TraceID        string  `db:"trace_id"`
	CreatedAt      int64   `db:"created_at"`
}

// Insert 写入一条改号审计（需在改号事务内）
func (e *EditLog) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO edit_log (draw_id, from_version, to_version, old_results, new_results, winners_count, reversed_amount, reason, operator, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr,
		e.DrawID, e.FromVersion, e.ToVersion, e.OldResults, e.NewResults, e.WinnersCount, e.ReversedAmount, e.Reason, e.Operator, e.TraceID, now)
	return err
}

// UpdateEditLogReversedAmount 回填实际回收总额（取冲正流水汇总，清单清空或续跑后调用）
func UpdateEditLogReversedAmount(ctx context.Context, exec sqlx.ExtContext, drawID string, toVersion int, amount float64) error {
	sqlStr := "UPDATE edit_log SET reversed_amount = ? WHERE draw_id = ? AND to_version = ?"
	_, err := exec.ExecContext(ctx, sqlStr, amount, drawID, toVersion)
	return err
}

// ListEditLogs 某期改号历史（审计页）
func ListEditLogs(ctx context.Context, db *sqlx.DB, drawID string) ([]EditLog, error) {
	sqlStr := `SELECT id, draw_id, from_version, to_version, old_results, new_results, winners_count, reversed_amount, reason, operator, trace_id, created_at
		FROM edit_log WHERE draw_id = ? ORDER BY id DESC`
	var list []EditLog
	if err := db.SelectContext(ctx, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}
