package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	infmysql "huay-server/internal/infra/mysql"
	"huay-server/internal/model"
	"huay-server/internal/rules"
)

// 处理赔率/限额配置业务逻辑

var (
	ErrInvalidRange     = errors.New("invalid price range")
	ErrDuplicateDefault = errors.New("default config already exists")
	ErrConfigMissing    = errors.New("no config matches the stake")
	ErrConfigNotFound   = errors.New("config not found")

	// ErrUnknownOption 复用玩法注册表的哨兵错误，控制层统一按 service 错误映射
	ErrUnknownOption = rules.ErrUnknownOption
)

// ConfigInput 配置写入参数
type ConfigInput struct {
	ID                int64 // 0=新建，>0=编辑
	LotteryID         string
	OptionType        string
	MinPrice          float64
	MaxPrice          float64
	Multiplier        float64
	MaxStakePerNumber float64
	MaxStakePerMember float64
	IsDefault         bool
	EffectiveFrom     int64
	EffectiveTo       int64
	TraceID           string
}

type ConfigService interface {
	SaveConfig(ctx context.Context, in ConfigInput) (int64, error)
	DisableConfig(ctx context.Context, id int64) error
	SetDefault(ctx context.Context, id int64, traceID string) error
	ListConfigs(ctx context.Context, lotteryID string) ([]model.HuayConfig, error)
}

type configService struct{}

func NewConfigService() ConfigService { return &configService{} }

// SaveConfig 新建或编辑一条配置
// 校验规则：
// 1. 玩法编码必须已注册
// 2. 区间下限 <= 上限，金额均为正
// 3. 分层档位之间价格区间不得重叠（默认档不参与重叠判断）
// 4. 同一 (彩种, 玩法) 最多一条生效默认档
// 编辑只影响后续投注：已落地注单的赔率在下注时已冻结
func (s *configService) SaveConfig(ctx context.Context, in ConfigInput) (int64, error) {
	if !rules.KnownOption(in.OptionType) {
		fmt.Printf("[Config] 未知玩法: option_type=%s, trace_id=%s\n", in.OptionType, in.TraceID)
		return 0, ErrUnknownOption
	}
	if in.MinPrice <= 0 || in.MaxPrice < in.MinPrice || in.Multiplier <= 0 {
		fmt.Printf("[Config] 区间或赔率非法: min=%.2f, max=%.2f, multiplier=%.2f, trace_id=%s\n",
			in.MinPrice, in.MaxPrice, in.Multiplier, in.TraceID)
		return 0, ErrInvalidRange
	}
	if in.EffectiveTo > 0 && in.EffectiveTo <= in.EffectiveFrom {
		return 0, ErrInvalidRange
	}

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	// 配置校验必须在锁内串行化，否则并发写入可能同时通过重叠检查
	existing, err := model.ListActiveConfigsForUpdate(txCtx, tx, in.LotteryID, in.OptionType)
	if err != nil {
		return 0, err
	}

	for _, c := range existing {
		if c.ID == in.ID {
			continue
		}
		if in.IsDefault {
			if c.IsDefault == 1 {
				fmt.Printf("[Config] 默认档已存在: lottery=%s, option_type=%s, existing_id=%d, trace_id=%s\n",
					in.LotteryID, in.OptionType, c.ID, in.TraceID)
				return 0, ErrDuplicateDefault
			}
			continue
		}
		if c.IsDefault == 1 {
			continue
		}
		// 区间重叠：max(minA, minB) <= min(maxA, maxB)
		if in.MinPrice <= c.MaxPrice && c.MinPrice <= in.MaxPrice {
			fmt.Printf("[Config] 档位区间重叠: new=[%.2f,%.2f], existing_id=%d [%.2f,%.2f], trace_id=%s\n",
				in.MinPrice, in.MaxPrice, c.ID, c.MinPrice, c.MaxPrice, in.TraceID)
			return 0, ErrInvalidRange
		}
	}

	cfg := &model.HuayConfig{
		ID:                in.ID,
		LotteryID:         in.LotteryID,
		OptionType:        in.OptionType,
		MinPrice:          in.MinPrice,
		MaxPrice:          in.MaxPrice,
		Multiplier:        in.Multiplier,
		MaxStakePerNumber: in.MaxStakePerNumber,
		MaxStakePerMember: in.MaxStakePerMember,
		Status:            1,
		EffectiveFrom:     in.EffectiveFrom,
		EffectiveTo:       in.EffectiveTo,
	}
	if in.IsDefault {
		cfg.IsDefault = 1
	}

	if in.ID > 0 {
		if err := cfg.Update(txCtx, tx); err != nil {
			return 0, err
		}
	} else {
		if err := cfg.Insert(txCtx, tx); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	fmt.Printf("[Config] 配置已保存: id=%d, lottery=%s, option_type=%s, range=[%.2f,%.2f], multiplier=%.2f, default=%v, trace_id=%s\n",
		cfg.ID, in.LotteryID, in.OptionType, in.MinPrice, in.MaxPrice, in.Multiplier, in.IsDefault, in.TraceID)
	return cfg.ID, nil
}

// DisableConfig 停用一条配置（软删，保留审计）
func (s *configService) DisableConfig(ctx context.Context, id int64) error {
	db := infmysql.SQLX()
	if _, err := model.GetConfigByID(ctx, db, id); err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrConfigNotFound
		}
		return err
	}
	return model.DisableConfig(ctx, db, id)
}

// SetDefault 把一条生效配置切为该 (彩种, 玩法) 的默认档
// 先清旧默认再置新默认，同一事务内完成，任何时刻最多一条默认档
func (s *configService) SetDefault(ctx context.Context, id int64, traceID string) error {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	cfg, err := model.GetConfigByID(txCtx, tx, id)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrConfigNotFound
		}
		return err
	}
	if cfg.Status != 1 {
		return ErrConfigNotFound
	}
	if err := model.ClearDefault(txCtx, tx, cfg.LotteryID, cfg.OptionType); err != nil {
		return err
	}
	if err := model.MarkDefaultConfig(txCtx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("[Config] 默认档已切换: id=%d, lottery=%s, option_type=%s, trace_id=%s\n",
		id, cfg.LotteryID, cfg.OptionType, traceID)
	return nil
}

// ListConfigs 彩种全部配置
func (s *configService) ListConfigs(ctx context.Context, lotteryID string) ([]model.HuayConfig, error) {
	return model.ListConfigsByLottery(ctx, infmysql.SQLX(), lotteryID)
}

// ResolveTier 按注金匹配赔率档位
// 先在分层档位（is_default=0）里按区间命中，命中不到落默认档；都没有返回 ErrConfigMissing
// 纯函数：调用方负责传入当前生效配置集，投注事务内用加锁版本读取
func ResolveTier(configs []model.HuayConfig, stake float64, nowMs int64) (*model.HuayConfig, error) {
	var fallback *model.HuayConfig
	for i := range configs {
		c := &configs[i]
		if c.Status != 1 {
			continue
		}
		if c.EffectiveFrom > 0 && nowMs < c.EffectiveFrom {
			continue
		}
		if c.EffectiveTo > 0 && nowMs > c.EffectiveTo {
			continue
		}
		if c.IsDefault == 1 {
			if fallback == nil {
				fallback = c
			}
			continue
		}
		if stake >= c.MinPrice && stake <= c.MaxPrice {
			return c, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrConfigMissing
}
