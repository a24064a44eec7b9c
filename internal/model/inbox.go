package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Inbox 对应 inbox 表（消费幂等落库表）
// message_id+topic 唯一键天然去重，封盘指令等外部消息重复投递只落一次
type Inbox struct {
	ID        int64  `db:"id"`
	MessageID string `db:"message_id"`
	Topic     string `db:"topic"`
	Payload   string `db:"payload"`
	CreatedAt int64  `db:"created_at"`
}

// UpsertInbox 将消息按 message_id+topic 去重入库（已存在则不变更 processed_at）
func UpsertInbox(ctx context.Context, exec sqlx.ExtContext, messageID, topic, payload string, processedAtMs int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO inbox (message_id, topic, payload, processed_at, created_at) VALUES (?, ?, ?, ?, ?) ON DUPLICATE KEY UPDATE processed_at=processed_at"
	_, err := exec.ExecContext(ctx, sqlStr, messageID, topic, payload, processedAtMs, now)
	return err
}
