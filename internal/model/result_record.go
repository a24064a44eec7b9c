package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ResultRecord 对应 result_record 表（开奖结果，按版本只增不改）
// 每个 (draw_id, option_type, version) 一行；改号生成 version+1 的整套新行，
// 历史版本永久保留，供审计与冲正对账回放
type ResultRecord struct {
	ID            int64  `db:"id"`
	DrawID        string `db:"draw_id"`
	OptionType    string `db:"option_type"`
	WinningNumber string `db:"winning_number"`
	Version       int    `db:"version"`
	SubmittedBy   string `db:"submitted_by"` // 录入操作员
	TraceID       string `db:"trace_id"`
	CreatedAt     int64  `db:"created_at"`
}

// InsertResultVersion 写入一个版本的整套开奖结果（需在录入/改号事务内）
func InsertResultVersion(ctx context.Context, exec sqlx.ExtContext, drawID string, version int, results map[string]string, submittedBy, traceID string) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO result_record (draw_id, option_type, winning_number, version, submitted_by, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for optionType, number := range results {
		if _, err := exec.ExecContext(ctx, sqlStr, drawID, optionType, number, version, submittedBy, traceID, now); err != nil {
			return err
		}
	}
	return nil
}

// GetResultsByVersion 取出某期某版本的全套结果，玩法编码 -> 中奖号码
func GetResultsByVersion(ctx context.Context, exec sqlx.ExtContext, drawID string, version int) (map[string]string, error) {
	sqlStr := `SELECT id, draw_id, option_type, winning_number, version, submitted_by, trace_id, created_at
		FROM result_record WHERE draw_id = ? AND version = ?`
	var rows []ResultRecord
	if err := sqlx.SelectContext(ctx, exec, &rows, sqlStr, drawID, version); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.OptionType] = r.WinningNumber
	}
	return out, nil
}

// ListResultHistory 某期全部版本的结果历史（审计页，按版本倒序）
func ListResultHistory(ctx context.Context, db *sqlx.DB, drawID string) ([]ResultRecord, error) {
	sqlStr := `SELECT id, draw_id, option_type, winning_number, version, submitted_by, trace_id, created_at
		FROM result_record WHERE draw_id = ? ORDER BY version DESC, option_type ASC`
	var list []ResultRecord
	if err := db.SelectContext(ctx, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}
