package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"huay-server/common/constant"
	chelper "huay-server/common/helper"
	infmysql "huay-server/internal/infra/mysql"
	infrds "huay-server/internal/infra/redis"
	"huay-server/internal/metrics"
	"huay-server/internal/model"
	"huay-server/internal/rules"
	"huay-server/internal/state"
	"huay-server/internal/wallet"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	decimal "github.com/shopspring/decimal"
)

// 处理购彩业务逻辑

const (
	// Redis 进行中锁 TTL：小于最短投注窗口，避免长时间阻塞重复请求
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：重复请求直接返回第一次成功结果，覆盖大多数短时重试窗口
	idemResultTTL = 1 * time.Minute
)

// 默认事务超时时间，防止长事务占用资源影响并发（上游已有 deadline 则沿用）
const defaultTxTimeout = 3 * time.Second

var (
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrInvalidStateBet   = errors.New("bet not allowed in current state")
	ErrBetWindowNotStart = errors.New("bet window not started")
	ErrBetWindowClosed   = errors.New("bet window closed")
	ErrLimitPerNumber    = errors.New("stake limit per number exceeded")
	ErrLimitPerMember    = errors.New("stake limit per member exceeded")
	ErrDrawNotFound      = errors.New("draw not found")
	ErrPoyNotFound       = errors.New("poy not found")
	ErrPoyNotCancellable = errors.New("poy not cancellable")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// PoyLineInput 单注入参
type PoyLineInput struct {
	OptionType string
	Number     string
	Stake      float64
}

// PlaceInput 购彩入参（一张彩票单多注，整单原子生效）
type PlaceInput struct {
	DrawID         string
	MemberID       int64
	Lines          []PoyLineInput
	IdempotencyKey string
	TraceID        string
}

type PlaceOutput struct {
	PoyNo        string  `json:"poy_no"`
	TotalStake   float64 `json:"total_stake"`
	RemainAmount string  `json:"remain_amount"`
}

type BetService interface {
	PlacePoy(ctx context.Context, in PlaceInput) (*PlaceOutput, error)
	CancelPoy(ctx context.Context, poyNo string, memberID int64, traceID string) error
}

type betService struct {
	Wallet wallet.Ledger
}

func NewBetService(w wallet.Ledger) BetService { return &betService{Wallet: w} }

// PlacePoy 购彩主流程：
// 1. 入参与号码格式校验
// 2. Redis 幂等快路径 + 进行中锁
// 3. 事务内锁期号行，校验状态与投注窗口
// 4. 占幂等键（冲突即重放，回源返回上次结果）
// 5. 逐注匹配赔率档位并冻结到注单
// 6. 锁号码/会员累计计数器做限额校验
// 7. 钱包整单扣款，落彩票单与注单，写 Outbox
func (s *betService) PlacePoy(ctx context.Context, in PlaceInput) (*PlaceOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPlace(result, len(in.Lines), start) }()

	if in.DrawID == "" || in.MemberID <= 0 || len(in.Lines) == 0 {
		return nil, errors.New("bad request")
	}

	totalDec := decimal.Zero
	for _, ln := range in.Lines {
		if err := rules.ValidateNumber(ln.OptionType, ln.Number); err != nil {
			fmt.Printf("[Place] 号码校验失败: option_type=%s, number=%s, error=%v, trace_id=%s\n",
				ln.OptionType, ln.Number, err, in.TraceID)
			return nil, err
		}
		stakeDec := decimal.NewFromFloat(ln.Stake)
		if stakeDec.LessThanOrEqual(decimal.Zero) {
			return nil, errors.New("stake must be positive")
		}
		totalDec = totalDec.Add(stakeDec)
	}

	fmt.Printf("[Place] 收到购彩请求: draw_id=%s, member_id=%d, lines=%d, total=%s, idem_key=%s, trace_id=%s\n",
		in.DrawID, in.MemberID, len(in.Lines), totalDec.String(), in.IdempotencyKey, in.TraceID)

	// Redis 快路径：已有结果缓存直接返回
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out PlaceOutput
			if json.Unmarshal(bs, &out) == nil {
				fmt.Printf("[Place] Redis 缓存命中: idem_key=%s, poy_no=%s, trace_id=%s\n",
					in.IdempotencyKey, out.PoyNo, in.TraceID)
				return &out, nil
			}
		}

		// 进行中锁，吸收瞬时重复；锁值唯一防止误删他人锁
		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out PlaceOutput
				if json.Unmarshal(bs, &out) == nil {
					return &out, nil
				}
			}
			fmt.Printf("[Place] 重复请求进行中: idem_key=%s, trace_id=%s\n", in.IdempotencyKey, in.TraceID)
			return nil, ErrDuplicateInFlight
		}
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			if _, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result(); err != nil {
				fmt.Printf("[Place] 释放幂等锁失败: idem_key=%s, error=%v, trace_id=%s\n",
					in.IdempotencyKey, err, in.TraceID)
			}
		}()
	}

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 锁期号行：投注窗口校验与封盘/结算在同一把行锁上互斥
	draw, err := model.GetDrawForUpdate(txCtx, tx, in.DrawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	if draw.Status != state.StatusOpen {
		fmt.Printf("[Place] 期号状态不允许投注: draw_id=%s, status=%s, trace_id=%s\n",
			in.DrawID, state.Name(draw.Status), in.TraceID)
		return nil, ErrInvalidStateBet
	}
	now := time.Now().UnixMilli()
	if now < draw.OpenTime {
		return nil, ErrBetWindowNotStart
	}
	if now > draw.CloseTime {
		fmt.Printf("[Place] 投注窗口已关闭: now=%d, close_time=%d, draw_id=%s, trace_id=%s\n",
			now, draw.CloseTime, in.DrawID, in.TraceID)
		return nil, ErrBetWindowClosed
	}

	poyNo := generatePoyNo(in.MemberID)

	// 幂等：先占幂等键，ref 记录 poy_no
	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "place_poy", Ref: poyNo}).Insert(txCtx, tx); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			_ = tx.Rollback()
			return s.replayPlace(ctx, in)
		}
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	// 逐注匹配档位，冻结赔率；按档位限额锁计数器
	type pricedLine struct {
		in         PoyLineInput
		multiplier float64
		cfg        *model.HuayConfig
	}
	priced := make([]pricedLine, 0, len(in.Lines))
	for _, ln := range in.Lines {
		cfgs, err := model.ListActiveConfigs(txCtx, tx, draw.LotteryID, ln.OptionType)
		if err != nil {
			return nil, err
		}
		tier, err := ResolveTier(cfgs, ln.Stake, now)
		if err != nil {
			fmt.Printf("[Place] 无匹配档位: option_type=%s, stake=%.2f, draw_id=%s, trace_id=%s\n",
				ln.OptionType, ln.Stake, in.DrawID, in.TraceID)
			return nil, err
		}
		priced = append(priced, pricedLine{in: ln, multiplier: tier.Multiplier, cfg: tier})
	}

	// 限额校验：单号码累计（计数器行锁串行化并发投注）
	for _, pl := range priced {
		if pl.cfg.MaxStakePerNumber <= 0 {
			continue
		}
		key := pl.in.OptionType + "|" + pl.in.Number
		agg, err := model.EnsureAndLockStakeAgg(txCtx, tx, in.DrawID, model.StakeScopeNumber, key)
		if err != nil {
			return nil, err
		}
		if agg.TotalStake+pl.in.Stake > pl.cfg.MaxStakePerNumber {
			fmt.Printf("[Place] 单号码限额超限: key=%s, current=%.2f, add=%.2f, limit=%.2f, trace_id=%s\n",
				key, agg.TotalStake, pl.in.Stake, pl.cfg.MaxStakePerNumber, in.TraceID)
			return nil, ErrLimitPerNumber
		}
		if err := model.AddStake(txCtx, tx, agg.ID, pl.in.Stake); err != nil {
			return nil, err
		}
	}

	// 限额校验：单会员本期累计（取整单各注中最严的会员限额）
	memberLimit := 0.0
	for _, pl := range priced {
		if pl.cfg.MaxStakePerMember > 0 && (memberLimit == 0 || pl.cfg.MaxStakePerMember < memberLimit) {
			memberLimit = pl.cfg.MaxStakePerMember
		}
	}
	if memberLimit > 0 {
		key := fmt.Sprintf("%d", in.MemberID)
		agg, err := model.EnsureAndLockStakeAgg(txCtx, tx, in.DrawID, model.StakeScopeMember, key)
		if err != nil {
			return nil, err
		}
		total, _ := totalDec.Float64()
		if agg.TotalStake+total > memberLimit {
			fmt.Printf("[Place] 单会员限额超限: member_id=%d, current=%.2f, add=%.2f, limit=%.2f, trace_id=%s\n",
				in.MemberID, agg.TotalStake, total, memberLimit, in.TraceID)
			return nil, ErrLimitPerMember
		}
		if err := model.AddStake(txCtx, tx, agg.ID, total); err != nil {
			return nil, err
		}
	}

	// 钱包整单扣款。幂等键派生自客户端幂等键：提交失败后重试会生成新单号，
	// 键若挂在单号上就会二次扣款
	bal, err := s.Wallet.Debit(ctx, in.MemberID, totalDec.Round(2), placeDebitKey(in.IdempotencyKey))
	if err != nil && !errors.Is(err, wallet.ErrAlreadyApplied) {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			fmt.Printf("[Place] 余额不足: member_id=%d, total=%s, trace_id=%s\n",
				in.MemberID, totalDec.String(), in.TraceID)
			return nil, ErrInsufficientFunds
		}
		fmt.Printf("[Place] 钱包扣款失败: member_id=%d, error=%v, trace_id=%s\n", in.MemberID, err, in.TraceID)
		return nil, err
	}

	// 落彩票单与注单
	group := &model.BetGroup{
		PoyNo:          poyNo,
		DrawID:         in.DrawID,
		MemberID:       in.MemberID,
		LineCount:      len(in.Lines),
		TotalStake:     totalDec.Round(2).InexactFloat64(),
		Status:         constant.PoyStatusActive,
		IdempotencyKey: in.IdempotencyKey,
		TraceID:        in.TraceID,
	}
	if err := group.Insert(txCtx, tx); err != nil {
		return nil, err
	}
	for _, pl := range priced {
		line := &model.BetLine{
			PoyNo:      poyNo,
			DrawID:     in.DrawID,
			MemberID:   in.MemberID,
			OptionType: pl.in.OptionType,
			Number:     strings.TrimSpace(pl.in.Number),
			Stake:      decimal.NewFromFloat(pl.in.Stake).Round(2).InexactFloat64(),
			Multiplier: pl.multiplier,
			Status:     constant.BetStatusPending,
			TraceID:    in.TraceID,
		}
		if err := line.Insert(txCtx, tx); err != nil {
			return nil, err
		}
	}

	if err := model.CreateOutbox(txCtx, tx, "poy_placed", poyNo, map[string]any{
		"event":     "poy_placed",
		"poy_no":    poyNo,
		"draw_id":   in.DrawID,
		"member_id": in.MemberID,
		"lines":          len(in.Lines),
		"total":          totalDec.Round(2).InexactFloat64(),
		"balance_change": constant.GetBalanceChangeTypeDesc(constant.BalanceChangeBet),
		"trace_id":       in.TraceID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Place] 提交事务失败: poy_no=%s, error=%v, trace_id=%s\n", poyNo, err, in.TraceID)
		return nil, err
	}

	result = "success"
	out := &PlaceOutput{PoyNo: poyNo, TotalStake: group.TotalStake}
	if bal != nil {
		out.RemainAmount = chelper.TrimDecimal(decimal.NewFromFloat(bal.After))
	}

	// 写 Redis 结果缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
		}
	}

	fmt.Printf("[Place] 购彩完成: poy_no=%s, draw_id=%s, member_id=%d, total=%.2f, trace_id=%s\n",
		poyNo, in.DrawID, in.MemberID, group.TotalStake, in.TraceID)
	return out, nil
}

// replayPlace 幂等键冲突时回源返回上次结果：先查 Redis，再按幂等键回数据库
func (s *betService) replayPlace(ctx context.Context, in PlaceInput) (*PlaceOutput, error) {
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out PlaceOutput
			if json.Unmarshal(bs, &out) == nil {
				return &out, nil
			}
		}
	}
	ref, err := model.SelectRefByIdemKey(ctx, infmysql.SQLX(), in.IdempotencyKey)
	if err != nil || ref == "" {
		return nil, fmt.Errorf("idempotency conflict, replay failed: %w", err)
	}
	g, err := model.GetPoy(ctx, infmysql.SQLX(), ref)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Place] 幂等重放，从数据库返回上次结果: poy_no=%s, trace_id=%s\n", ref, in.TraceID)
	return &PlaceOutput{PoyNo: g.PoyNo, TotalStake: g.TotalStake}, nil
}

// CancelPoy 封盘前撤单：整单退款并置终态，注单不物理删除
func (s *betService) CancelPoy(ctx context.Context, poyNo string, memberID int64, traceID string) error {
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

	g, err := model.GetPoyForUpdate(txCtx, tx, poyNo)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrPoyNotFound
		}
		return err
	}
	if g.MemberID != memberID {
		return ErrPoyNotFound
	}
	if g.Status != constant.PoyStatusActive {
		return ErrPoyNotCancellable
	}

	draw, err := model.GetDrawForUpdate(txCtx, tx, g.DrawID)
	if err != nil {
		return err
	}
	// 只允许开放期内撤单；封盘后注单进入结算管辖范围
	if draw.Status != state.StatusOpen || time.Now().UnixMilli() > draw.CloseTime {
		fmt.Printf("[Cancel] 期号已封盘，拒绝撤单: poy_no=%s, draw_status=%s, trace_id=%s\n",
			poyNo, state.Name(draw.Status), traceID)
		return ErrPoyNotCancellable
	}

	if err := model.CancelPoy(txCtx, tx, poyNo); err != nil {
		return err
	}
	if err := model.CancelLinesByPoy(txCtx, tx, poyNo); err != nil {
		return err
	}

	// 回冲号码/会员累计计数器，释放限额占用
	lines, err := model.ListLinesByPoy(txCtx, tx, poyNo)
	if err != nil {
		return err
	}
	for _, ln := range lines {
		key := ln.OptionType + "|" + ln.Number
		agg, err := model.EnsureAndLockStakeAgg(txCtx, tx, g.DrawID, model.StakeScopeNumber, key)
		if err != nil {
			return err
		}
		if err := model.AddStake(txCtx, tx, agg.ID, -ln.Stake); err != nil {
			return err
		}
	}
	memberKey := fmt.Sprintf("%d", memberID)
	agg, err := model.EnsureAndLockStakeAgg(txCtx, tx, g.DrawID, model.StakeScopeMember, memberKey)
	if err != nil {
		return err
	}
	if err := model.AddStake(txCtx, tx, agg.ID, -g.TotalStake); err != nil {
		return err
	}

	// 钱包退款（幂等键 = 单号@cancel，单号撤单时已落库，重试稳定）
	if _, err := s.Wallet.Credit(ctx, memberID, decimal.NewFromFloat(g.TotalStake).Round(2), cancelRefundKey(poyNo)); err != nil && !errors.Is(err, wallet.ErrAlreadyApplied) {
		fmt.Printf("[Cancel] 钱包退款失败: poy_no=%s, error=%v, trace_id=%s\n", poyNo, err, traceID)
		return err
	}

	if err := model.CreateOutbox(txCtx, tx, "poy_cancelled", poyNo, map[string]any{
		"event":     "poy_cancelled",
		"poy_no":    poyNo,
		"draw_id":   g.DrawID,
		"member_id":      memberID,
		"refund":         g.TotalStake,
		"balance_change": constant.GetBalanceChangeTypeDesc(constant.BalanceChangeRefund),
		"trace_id":       traceID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("[Cancel] 撤单完成: poy_no=%s, refund=%.2f, trace_id=%s\n", poyNo, g.TotalStake, traceID)
	return nil
}

// placeDebitKey 购彩扣款幂等键
// 必须派生自客户端幂等键而不是单号：单号每次尝试都重新生成，事务回滚后的重试
// 若换了键，钱包会把同一笔钱扣两次
func placeDebitKey(idemKey string) string { return idemKey + "@place" }

// cancelRefundKey 撤单退款幂等键
func cancelRefundKey(poyNo string) string { return poyNo + "@cancel" }

// generatePoyNo 生成可读的彩票单号
// 格式：HY{YYYYMMDDHHmmss}{会员ID后4位}{随机3位十六进制}
func generatePoyNo(memberID int64) string {
	now := time.Now()
	dateTime := now.Format("20060102150405")
	memberSuffix := fmt.Sprintf("%04d", memberID%10000)
	randomBytes := make([]byte, 2)
	rand.Read(randomBytes)
	randomHex := strings.ToUpper(hex.EncodeToString(randomBytes)[:3])
	return fmt.Sprintf("HY%s%s%s", dateTime, memberSuffix, randomHex)
}
