package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Outbox 对应 outbox 表（事务消息表）
// 购彩/结算/冲正的事件先与业务同事务落表，由调度器异步投递到 MQ
// status: 1=待发送 2=已发送 3=失败
type Outbox struct {
	ID         int64  `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"`     // 业务键（去重/幂等用）
	Payload    string `db:"payload"`     // 消息体(JSON字符串)
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// Insert 插入一条 Outbox 记录（状态默认 1）
func (o *Outbox) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := exec.ExecContext(ctx, sqlStr, o.Topic, o.BizKey, o.Payload, 1, 0, "", now, now)
	return err
}

// OutboxRow 是调度器扫描用的轻量投影
type OutboxRow struct {
	ID      int64  `db:"id"`
	Topic   string `db:"topic"`
	BizKey  string `db:"biz_key"`
	Payload string `db:"payload"`
}

// ListOutboxPending 查询待发送的 outbox 轻量投影
// 只取 retry_count < 10 的记录，避免坏消息无限重试
func ListOutboxPending(ctx context.Context, exec sqlx.ExtContext, limit int) ([]OutboxRow, error) {
	sqlStr := "SELECT id, topic, biz_key, payload FROM outbox WHERE status = ? AND retry_count < ? ORDER BY id ASC LIMIT ?"
	var list []OutboxRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, 1, 10, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent 标记一条 Outbox 为已发送
func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, 2, now, id)
	return err
}

// MarkOutboxFailed 记录投递失败；重试即将满 10 次则置为永久失败
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= 9 THEN 3 ELSE 1 END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, lastError, now, id)
	return err
}

// CreateOutbox 序列化 payload 并插入 outbox（调用方保证在业务事务内）
func CreateOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	o := &Outbox{Topic: topic, BizKey: bizKey, Payload: string(b)}
	return o.Insert(ctx, exec)
}
