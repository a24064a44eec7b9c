package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReverseTask 对应 reverse_task 表（冲正工作清单）
// 改号事务内按旧版本中奖注单批量生成，之后逐条回收派彩并销账；
// 进程随时可死，重启后按 pending 续跑，清单清空前该期停留在冲正中状态
// status: 1=待处理 2=已完成 3=已搁置（重试耗尽，等人工介入后重置回 1）
type ReverseTask struct {
	ID            int64   `db:"id"`
	DrawID        string  `db:"draw_id"`
	BetLineID     int64   `db:"bet_line_id"`
	MemberID      int64   `db:"member_id"`
	ResultVersion int     `db:"result_version"` // 被冲正的结果版本
	Amount        float64 `db:"amount"`         // 应回收金额
	Status        int8    `db:"status"`
	RetryCount    int     `db:"retry_count"`
	LastError     string  `db:"last_error"`
	TraceID       string  `db:"trace_id"`
	CreatedAt     int64   `db:"created_at"`
	UpdatedAt     int64   `db:"updated_at"`
}

// BulkInsertReverseTasks 批量生成冲正任务（必须与版本切换同一事务）
func BulkInsertReverseTasks(ctx context.Context, exec sqlx.ExtContext, tasks []ReverseTask) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO reverse_task (draw_id, bet_line_id, member_id, result_version, amount, status, retry_count, last_error, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, 0, '', ?, ?, ?)`
	for i := range tasks {
		t := &tasks[i]
		if _, err := exec.ExecContext(ctx, sqlStr,
			t.DrawID, t.BetLineID, t.MemberID, t.ResultVersion, t.Amount, t.TraceID, now, now); err != nil {
			return err
		}
	}
	return nil
}

// ListPendingReverseTasks 查询某期待处理的冲正任务，按 id 升序
func ListPendingReverseTasks(ctx context.Context, exec sqlx.ExtContext, drawID string, limit int) ([]ReverseTask, error) {
	if limit <= 0 {
		limit = 200
	}
	sqlStr := `SELECT id, draw_id, bet_line_id, member_id, result_version, amount, status, retry_count, last_error, trace_id, created_at, updated_at
		FROM reverse_task WHERE draw_id = ? AND status = 1 ORDER BY id ASC LIMIT ?`
	var list []ReverseTask
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkReverseTaskDone 销账一条冲正任务
func MarkReverseTaskDone(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE reverse_task SET status = 2, updated_at = ? WHERE id = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, id)
	return err
}

// MarkReverseTaskFailed 记录失败；重试达到上限则搁置（status=3），否则留在 pending 继续重试
func MarkReverseTaskFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string, maxRetry int) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE reverse_task SET status = CASE WHEN retry_count + 1 >= ? THEN 3 ELSE 1 END,
		retry_count = retry_count + 1, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := exec.ExecContext(ctx, sqlStr, maxRetry, lastError, now, id)
	return err
}

// ResetParkedReverseTasks 人工处理后把搁置任务重置回待处理
func ResetParkedReverseTasks(ctx context.Context, exec sqlx.ExtContext, drawID string) (int64, error) {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE reverse_task SET status = 1, retry_count = 0, last_error = '', updated_at = ? WHERE draw_id = ? AND status = 3"
	res, err := exec.ExecContext(ctx, sqlStr, now, drawID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CountReverseTasks 统计某期各状态任务数：pending 待处理、parked 已搁置
func CountReverseTasks(ctx context.Context, exec sqlx.ExtContext, drawID string) (pending, parked int, err error) {
	sqlStr := `SELECT
		COALESCE(SUM(status = 1), 0) AS pending,
		COALESCE(SUM(status = 3), 0) AS parked
		FROM reverse_task WHERE draw_id = ?`
	row := struct {
		Pending int `db:"pending"`
		Parked  int `db:"parked"`
	}{}
	if err = sqlx.GetContext(ctx, exec, &row, sqlStr, drawID); err != nil {
		return 0, 0, err
	}
	return row.Pending, row.Parked, nil
}
