package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// CreditTask 对应 credit_task 表（派彩补偿清单）
// 结算或重结时钱包上账失败的注单落到这里，由后台 worker 重试；
// 注单在库内已是中奖状态，补偿只负责把钱补到账，幂等键不变所以重试安全
// status: 1=待补偿 2=已完成 3=已搁置
type CreditTask struct {
	ID            int64   `db:"id"`
	DrawID        string  `db:"draw_id"`
	BetLineID     int64   `db:"bet_line_id"`
	MemberID      int64   `db:"member_id"`
	ResultVersion int     `db:"result_version"`
	Amount        float64 `db:"amount"` // 应派彩金额
	Status        int8    `db:"status"`
	RetryCount    int     `db:"retry_count"`
	LastError     string  `db:"last_error"`
	TraceID       string  `db:"trace_id"`
	CreatedAt     int64   `db:"created_at"`
	UpdatedAt     int64   `db:"updated_at"`
}

// Insert 落一条派彩补偿任务
func (t *CreditTask) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO credit_task (draw_id, bet_line_id, member_id, result_version, amount, status, retry_count, last_error, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, 0, '', ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr,
		t.DrawID, t.BetLineID, t.MemberID, t.ResultVersion, t.Amount, t.TraceID, now, now)
	return err
}

// ListPendingCreditTasks 查询待补偿任务（跨期扫描，worker 用）
func ListPendingCreditTasks(ctx context.Context, exec sqlx.ExtContext, limit int) ([]CreditTask, error) {
	if limit <= 0 {
		limit = 100
	}
	sqlStr := `SELECT id, draw_id, bet_line_id, member_id, result_version, amount, status, retry_count, last_error, trace_id, created_at, updated_at
		FROM credit_task WHERE status = 1 ORDER BY id ASC LIMIT ?`
	var list []CreditTask
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkCreditTaskDone 补偿成功销账
func MarkCreditTaskDone(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE credit_task SET status = 2, updated_at = ? WHERE id = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, id)
	return err
}

// MarkCreditTaskFailed 记录失败，重试耗尽则搁置
func MarkCreditTaskFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string, maxRetry int) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE credit_task SET status = CASE WHEN retry_count + 1 >= ? THEN 3 ELSE 1 END,
		retry_count = retry_count + 1, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := exec.ExecContext(ctx, sqlStr, maxRetry, lastError, now, id)
	return err
}
