package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// StakeAgg 对应 stake_agg 表（投注累计计数器）
// scope: 1=单号码累计（scope_key=玩法|号码） 2=单会员累计（scope_key=会员ID）
// 限额校验走这张表而不是扫 bet_line：购彩事务内对计数器行 FOR UPDATE，
// 并发下注对同一号码/同一会员天然串行，累计值不会超卖
type StakeAgg struct {
	ID         int64   `db:"id"`
	DrawID     string  `db:"draw_id"`
	Scope      int8    `db:"scope"`
	ScopeKey   string  `db:"scope_key"`
	TotalStake float64 `db:"total_stake"`
	CreatedAt  int64   `db:"created_at"`
	UpdatedAt  int64   `db:"updated_at"`
}

const (
	StakeScopeNumber int8 = 1
	StakeScopeMember int8 = 2
)

// EnsureAndLockStakeAgg 取出计数器行并加锁，行不存在则先插入零值行再锁
// 插入撞唯一键说明并发方已建行，回头再锁即可
func EnsureAndLockStakeAgg(ctx context.Context, exec sqlx.ExtContext, drawID string, scope int8, scopeKey string) (*StakeAgg, error) {
	lockSQL := `SELECT id, draw_id, scope, scope_key, total_stake, created_at, updated_at
		FROM stake_agg WHERE draw_id = ? AND scope = ? AND scope_key = ? FOR UPDATE`

	var agg StakeAgg
	err := sqlx.GetContext(ctx, exec, &agg, lockSQL, drawID, scope, scopeKey)
	if err == nil {
		return &agg, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UnixMilli()
	insSQL := `INSERT INTO stake_agg (draw_id, scope, scope_key, total_stake, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`
	if _, err = exec.ExecContext(ctx, insSQL, drawID, scope, scopeKey, now, now); err != nil && !IsDuplicateErr(err) {
		return nil, err
	}

	if err = sqlx.GetContext(ctx, exec, &agg, lockSQL, drawID, scope, scopeKey); err != nil {
		return nil, err
	}
	return &agg, nil
}

// AddStake 累加计数器（调用方需已持有该行锁）
func AddStake(ctx context.Context, exec sqlx.ExtContext, id int64, delta float64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE stake_agg SET total_stake = total_stake + ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, delta, now, id)
	return err
}
