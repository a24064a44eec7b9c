package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// HuayConfig 对应 huay_config 表（赔率与限额档位配置）
// 说明：价格区间 [min_price, max_price] 按投注金额匹配档位；
// is_default=1 的行是该玩法的兜底配置，同一 (lottery_id, option_type) 最多一条生效的默认行；
// 分层档位（is_default=0）价格区间不得重叠。
// status: 1=生效 2=停用
type HuayConfig struct {
	ID                int64   `db:"id" json:"id"`
	LotteryID         string  `db:"lottery_id" json:"lottery_id"`                     // 彩种（government|yeekee|lao|hanoi...）
	OptionType        string  `db:"option_type" json:"option_type"`                   // 玩法编码
	MinPrice          float64 `db:"min_price" json:"min_price"`                       // 档位下限（含）
	MaxPrice          float64 `db:"max_price" json:"max_price"`                       // 档位上限（含）
	Multiplier        float64 `db:"multiplier" json:"multiplier"`                     // 赔率（派彩 = 注金 × 赔率）
	MaxStakePerNumber float64 `db:"max_stake_per_number" json:"max_stake_per_number"` // 单号码总注金上限
	MaxStakePerMember float64 `db:"max_stake_per_member" json:"max_stake_per_member"` // 单会员本期总注金上限
	IsDefault         int8    `db:"is_default" json:"is_default"`                     // 1=默认兜底配置
	Status            int8    `db:"status" json:"status"`
	EffectiveFrom     int64   `db:"effective_from" json:"effective_from"` // 生效起（毫秒，0=立即）
	EffectiveTo       int64   `db:"effective_to" json:"effective_to"`     // 生效止（毫秒，0=长期）
	CreatedAt         int64   `db:"created_at" json:"created_at"`
	UpdatedAt         int64   `db:"updated_at" json:"updated_at"`
}

// configFields 查询投影（列顺序与 SELECT 保持一致）
const configFields = `id, lottery_id, option_type, min_price, max_price, multiplier,
	max_stake_per_number, max_stake_per_member, is_default, status,
	effective_from, effective_to, created_at, updated_at`

// Insert 插入一条配置
func (c *HuayConfig) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO huay_config (lottery_id, option_type, min_price, max_price, multiplier,
		max_stake_per_number, max_stake_per_member, is_default, status,
		effective_from, effective_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, sqlStr,
		c.LotteryID, c.OptionType, c.MinPrice, c.MaxPrice, c.Multiplier,
		c.MaxStakePerNumber, c.MaxStakePerMember, c.IsDefault, c.Status,
		c.EffectiveFrom, c.EffectiveTo, now, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	c.ID = id
	return nil
}

// Update 按主键整行更新（配置编辑只影响后续投注，已落地注单的赔率已冻结在 bet_line 上）
func (c *HuayConfig) Update(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := `UPDATE huay_config SET min_price = ?, max_price = ?, multiplier = ?,
		max_stake_per_number = ?, max_stake_per_member = ?, is_default = ?, status = ?,
		effective_from = ?, effective_to = ?, updated_at = ?
		WHERE id = ?`
	_, err := exec.ExecContext(ctx, sqlStr,
		c.MinPrice, c.MaxPrice, c.Multiplier,
		c.MaxStakePerNumber, c.MaxStakePerMember, c.IsDefault, c.Status,
		c.EffectiveFrom, c.EffectiveTo, now, c.ID)
	return err
}

// DisableConfig 停用配置（不做物理删除，保留审计）
func DisableConfig(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE huay_config SET status = 2, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, now, id)
	return err
}

// GetConfigByID 按主键查询配置
func GetConfigByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*HuayConfig, error) {
	sqlStr := "SELECT " + configFields + " FROM huay_config WHERE id = ? LIMIT 1"
	var c HuayConfig
	if err := sqlx.GetContext(ctx, exec, &c, sqlStr, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActiveConfigs 查询某彩种某玩法当前生效的全部配置（档位 + 默认）
func ListActiveConfigs(ctx context.Context, exec sqlx.ExtContext, lotteryID, optionType string) ([]HuayConfig, error) {
	sqlStr := "SELECT " + configFields + ` FROM huay_config
		WHERE lottery_id = ? AND option_type = ? AND status = 1
		ORDER BY is_default ASC, min_price ASC`
	var list []HuayConfig
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, lotteryID, optionType); err != nil {
		return nil, err
	}
	return list, nil
}

// ListActiveConfigsForUpdate 同上但加锁，配置变更校验（区间重叠/重复默认）必须在事务内串行化
func ListActiveConfigsForUpdate(ctx context.Context, exec sqlx.ExtContext, lotteryID, optionType string) ([]HuayConfig, error) {
	sqlStr := "SELECT " + configFields + ` FROM huay_config
		WHERE lottery_id = ? AND option_type = ? AND status = 1
		ORDER BY is_default ASC, min_price ASC FOR UPDATE`
	var list []HuayConfig
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, lotteryID, optionType); err != nil {
		return nil, err
	}
	return list, nil
}

// ListConfigsByLottery 查询彩种全部配置（管理页列表，含停用）
func ListConfigsByLottery(ctx context.Context, db *sqlx.DB, lotteryID string) ([]HuayConfig, error) {
	sqlStr := "SELECT " + configFields + ` FROM huay_config
		WHERE lottery_id = ? ORDER BY option_type ASC, is_default ASC, min_price ASC`
	var list []HuayConfig
	if err := db.SelectContext(ctx, &list, sqlStr, lotteryID); err != nil {
		return nil, err
	}
	return list, nil
}

// ClearDefault 取消该玩法现有默认配置（设为普通档位前必须保证单默认不变量）
func ClearDefault(ctx context.Context, exec sqlx.ExtContext, lotteryID, optionType string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE huay_config SET is_default = 0, updated_at = ? WHERE lottery_id = ? AND option_type = ? AND is_default = 1 AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, lotteryID, optionType)
	return err
}

// MarkDefaultConfig 把一条生效配置置为默认档（调用前先 ClearDefault，同一事务内）
func MarkDefaultConfig(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE huay_config SET is_default = 1, updated_at = ? WHERE id = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, id)
	return err
}
