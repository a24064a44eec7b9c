package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// BetLine 对应 bet_line 表（单注）
// status: 1=待结算 2=已中奖 3=未中奖 4=已取消
// multiplier 在下注时从匹配档位冻结到本行，之后配置怎么改都不影响已落地注单
// result_version_settled: 本注按哪个结果版本结算；0=未结算（冲正重开后清回 0）
// 注单永不物理删除，取消是终态状态而非删除
type BetLine struct {
	ID                   int64   `db:"id" json:"id"`
	PoyNo                string  `db:"poy_no" json:"poy_no"`     // 所属彩票单号
	DrawID               string  `db:"draw_id" json:"draw_id"`   // 期号
	MemberID             int64   `db:"member_id" json:"member_id"`
	OptionType           string  `db:"option_type" json:"option_type"` // 玩法编码
	Number               string  `db:"number" json:"number"`           // 投注号码
	Stake                float64 `db:"stake" json:"stake"`             // 注金
	Multiplier           float64 `db:"multiplier" json:"multiplier"`   // 下注时冻结的赔率
	Status               int8    `db:"status" json:"status"`
	ResultVersionSettled int     `db:"result_version_settled" json:"result_version_settled"`
	Payout               float64 `db:"payout" json:"payout"` // 派彩金额（未中/未结算为 0）
	TraceID              string  `db:"trace_id" json:"trace_id"`
	CreatedAt            int64   `db:"created_at" json:"created_at"`
	UpdatedAt            int64   `db:"updated_at" json:"updated_at"`
}

const betLineFields = `id, poy_no, draw_id, member_id, option_type, number, stake, multiplier,
	status, result_version_settled, payout, trace_id, created_at, updated_at`

// Insert 插入一注（需在购彩事务内）
func (l *BetLine) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO bet_line (poy_no, draw_id, member_id, option_type, number, stake, multiplier,
		status, result_version_settled, payout, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr,
		l.PoyNo, l.DrawID, l.MemberID, l.OptionType, l.Number, l.Stake, l.Multiplier,
		l.Status, l.TraceID, now, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.ID = id
	return nil
}

// ListPendingByDrawForUpdate 查询本期待结算注单并加锁，按 id 升序保证结算顺序确定
// 幂等保障之一：已按当前版本结算过的行状态不再是 pending，重复跑批自然跳过
func ListPendingByDrawForUpdate(ctx context.Context, exec sqlx.ExtContext, drawID string) ([]BetLine, error) {
	sqlStr := "SELECT " + betLineFields + ` FROM bet_line
		WHERE draw_id = ? AND status = 1 ORDER BY id ASC FOR UPDATE`
	var list []BetLine
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}

// ListWonByDrawVersion 查询某期按指定版本结算且已中奖的注单（冲正扫描）
func ListWonByDrawVersion(ctx context.Context, exec sqlx.ExtContext, drawID string, version int) ([]BetLine, error) {
	sqlStr := "SELECT " + betLineFields + ` FROM bet_line
		WHERE draw_id = ? AND status = 2 AND result_version_settled = ? ORDER BY id ASC`
	var list []BetLine
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID, version); err != nil {
		return nil, err
	}
	return list, nil
}

// ListLostByDrawVersion 查询某期按指定版本判负的注单（改号后可能翻中，需要重开）
func ListLostByDrawVersion(ctx context.Context, exec sqlx.ExtContext, drawID string, version int) ([]BetLine, error) {
	sqlStr := "SELECT " + betLineFields + ` FROM bet_line
		WHERE draw_id = ? AND status = 3 AND result_version_settled = ? ORDER BY id ASC`
	var list []BetLine
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, drawID, version); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkSettled 落结算结果：won=true 记中奖与派彩，否则记未中
func MarkSettled(ctx context.Context, exec sqlx.ExtContext, id int64, won bool, payout float64, version int) error {
	now := time.Now().UnixMilli()
	status := 3
	if won {
		status = 2
	} else {
		payout = 0
	}
	sqlStr := "UPDATE bet_line SET status = ?, payout = ?, result_version_settled = ?, updated_at = ? WHERE id = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, status, payout, version, now, id)
	return err
}

// ReopenLine 冲正重开：清结算版本与派彩，状态回待结算；赔率保持冻结值不动
func ReopenLine(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE bet_line SET status = 1, payout = 0, result_version_settled = 0, updated_at = ? WHERE id = ? AND status IN (2, 3)"
	_, err := exec.ExecContext(ctx, sqlStr, now, id)
	return err
}

// CancelLinesByPoy 撤单：整单注单置为已取消（仅限未结算）
func CancelLinesByPoy(ctx context.Context, exec sqlx.ExtContext, poyNo string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE bet_line SET status = 4, updated_at = ? WHERE poy_no = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, poyNo)
	return err
}

// ListLinesByPoy 查询一张彩票单的全部注单（明细页）
func ListLinesByPoy(ctx context.Context, exec sqlx.ExtContext, poyNo string) ([]BetLine, error) {
	sqlStr := "SELECT " + betLineFields + " FROM bet_line WHERE poy_no = ? ORDER BY id ASC"
	var list []BetLine
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, poyNo); err != nil {
		return nil, err
	}
	return list, nil
}

// NumberSummary 按 (玩法, 号码) 聚合的本期投注汇总（日报表页数据源）
type NumberSummary struct {
	OptionType string  `db:"option_type" json:"option_type"`
	Number     string  `db:"number" json:"number"`
	BetCount   int     `db:"bet_count" json:"bet_count"`
	TotalStake float64 `db:"total_stake" json:"total_stake"`
	TotalPaid  float64 `db:"total_paid" json:"total_paid"`
}

// SummarizeDrawByNumber 按 (玩法, 号码) 汇总本期有效注单
func SummarizeDrawByNumber(ctx context.Context, db *sqlx.DB, drawID string) ([]NumberSummary, error) {
	sqlStr := `SELECT option_type, number, COUNT(*) AS bet_count,
		COALESCE(SUM(stake), 0) AS total_stake, COALESCE(SUM(payout), 0) AS total_paid
		FROM bet_line WHERE draw_id = ? AND status != 4
		GROUP BY option_type, number
		ORDER BY option_type ASC, number ASC`
	var list []NumberSummary
	if err := db.SelectContext(ctx, &list, sqlStr, drawID); err != nil {
		return nil, err
	}
	return list, nil
}
