package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// BetGroup 对应 bet_group 表（一张彩票单/โพย，一次购彩落多注）
// status: 1=有效 2=已取消（仅限所属期号结算前撤单）
type BetGroup struct {
	ID             int64   `db:"id" json:"id"`
	PoyNo          string  `db:"poy_no" json:"poy_no"` // 彩票单号（可读单号）
	DrawID         string  `db:"draw_id" json:"draw_id"`
	MemberID       int64   `db:"member_id" json:"member_id"`
	LineCount      int     `db:"line_count" json:"line_count"`
	TotalStake     float64 `db:"total_stake" json:"total_stake"`
	Status         int8    `db:"status" json:"status"`
	IdempotencyKey string  `db:"idempotency_key" json:"-"`
	TraceID        string  `db:"trace_id" json:"trace_id"`
	CreatedAt      int64   `db:"created_at" json:"created_at"`
	UpdatedAt      int64   `db:"updated_at" json:"updated_at"`
}

// Insert 插入彩票单（需在购彩事务内）
func (g *BetGroup) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO bet_group (poy_no, draw_id, member_id, line_count, total_stake, status, idempotency_key, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr,
		g.PoyNo, g.DrawID, g.MemberID, g.LineCount, g.TotalStake, g.Status, g.IdempotencyKey, g.TraceID, now, now)
	return err
}

// GetPoy 按单号查询
func GetPoy(ctx context.Context, exec sqlx.ExtContext, poyNo string) (*BetGroup, error) {
	sqlStr := `SELECT id, poy_no, draw_id, member_id, line_count, total_stake, status, idempotency_key, trace_id, created_at, updated_at
		FROM bet_group WHERE poy_no = ?`
	var g BetGroup
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, poyNo); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetPoyForUpdate 按单号查询并加锁（撤单校验）
func GetPoyForUpdate(ctx context.Context, exec sqlx.ExtContext, poyNo string) (*BetGroup, error) {
	sqlStr := `SELECT id, poy_no, draw_id, member_id, line_count, total_stake, status, idempotency_key, trace_id, created_at, updated_at
		FROM bet_group WHERE poy_no = ? FOR UPDATE`
	var g BetGroup
	if err := sqlx.GetContext(ctx, exec, &g, sqlStr, poyNo); err != nil {
		return nil, err
	}
	return &g, nil
}

// CancelPoy 将彩票单置为已取消
func CancelPoy(ctx context.Context, exec sqlx.ExtContext, poyNo string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE bet_group SET status = 2, updated_at = ? WHERE poy_no = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, poyNo)
	return err
}

// ListPoysByDraw 本期彩票单列表（管理页分页）
func ListPoysByDraw(ctx context.Context, db *sqlx.DB, drawID string, offset, limit int) ([]BetGroup, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	sqlStr := `SELECT id, poy_no, draw_id, member_id, line_count, total_stake, status, idempotency_key, trace_id, created_at, updated_at
		FROM bet_group WHERE draw_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`
	var list []BetGroup
	if err := db.SelectContext(ctx, &list, sqlStr, drawID, limit, offset); err != nil {
		return nil, err
	}
	return list, nil
}
