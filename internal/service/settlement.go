package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"huay-server/common/constant"
	infmysql "huay-server/internal/infra/mysql"
	infrds "huay-server/internal/infra/redis"
	"huay-server/internal/metrics"
	"huay-server/internal/model"
	"huay-server/internal/rules"
	"huay-server/internal/state"
	"huay-server/internal/wallet"

	"github.com/google/uuid"
	decimal "github.com/shopspring/decimal"
)

// 处理结算业务逻辑

const (
	// 期号互斥锁 TTL：覆盖一次全量结算的最坏耗时
	drawMutexTTL = 2 * time.Minute
)

var (
	ErrInvalidStateDraw = errors.New("operation not allowed in current draw state")
	ErrDrawBusy         = errors.New("draw is being settled or revised")
)

// SettleInput 结算入参
type SettleInput struct {
	DrawID   string
	Operator string
	TraceID  string
}

// SettlementReport 一次结算的汇总结果
type SettlementReport struct {
	DrawID         string  `json:"draw_id"`
	ResultVersion  int     `json:"result_version"`
	TotalLines     int     `json:"total_lines"`
	WonLines       int     `json:"won_lines"`
	TotalPayout    float64 `json:"total_payout"`
	CreditedLines  int     `json:"credited_lines"`
	DeferredLines  int     `json:"deferred_lines"` // 派彩失败转入补偿清单的注单数
	AlreadySettled bool    `json:"already_settled"`
}

type SettlementService interface {
	SettleDraw(ctx context.Context, in SettleInput) (*SettlementReport, error)
}

type settlementService struct {
	Wallet wallet.Ledger
}

func NewSettlementService(w wallet.Ledger) SettlementService {
	return &settlementService{Wallet: w}
}

// SettleDraw 按当前结果版本结算一期：
// 1. 期号互斥锁：同一期不允许并发结算，也不允许与改号冲正同时开跑
// 2. 事务内锁期号行并校验状态（已录入开奖号码，或冲正完成后的重结）
// 3. 结算日志唯一键 (draw_id, result_version) 兜底幂等：同版本重复结算直接返回
// 4. 待结算注单按 id 升序逐注判定输赢，派彩 = 注金 × 冻结赔率
// 5. 提交后逐个中奖注单上账，失败的落补偿清单由 worker 重试
func (s *settlementService) SettleDraw(ctx context.Context, in SettleInput) (*SettlementReport, error) {

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordSettle(resultLabel, start) }()

	fmt.Printf("[Settle] 收到结算请求: draw_id=%s, operator=%s, trace_id=%s\n",
		in.DrawID, in.Operator, in.TraceID)

	unlock, err := acquireDrawMutex(ctx, in.DrawID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	draw, err := model.GetDrawForUpdate(ctx, tx, in.DrawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	// 已录入开奖号码可结算；冲正清单清空后的重结从改号冲正中进入；
	// 已结算的期自环放行，由下方结算日志返回历史汇总
	settledStatus, err := state.Next(draw.Status, state.EvtSettle)
	if err != nil {
		fmt.Printf("[Settle] 期号状态不允许结算: draw_id=%s, status=%s, trace_id=%s\n",
			in.DrawID, state.Name(draw.Status), in.TraceID)
		return nil, ErrInvalidStateDraw
	}
	version := draw.ResultVersion
	if version <= 0 {
		return nil, ErrInvalidStateDraw
	}

	// 幂等兜底：同版本已有结算日志说明结清过，直接返回历史汇总
	if prev, err := model.GetSettlementLog(ctx, tx, in.DrawID, version); err == nil {
		fmt.Printf("[Settle] 本版本已结算，跳过: draw_id=%s, version=%d, trace_id=%s\n",
			in.DrawID, version, in.TraceID)
		resultLabel = "success_idempotent"
		return &SettlementReport{
			DrawID:         in.DrawID,
			ResultVersion:  version,
			TotalLines:     prev.TotalLines,
			WonLines:       prev.WonLines,
			TotalPayout:    prev.TotalPayout,
			AlreadySettled: true,
		}, nil
	}

	results, err := model.GetResultsByVersion(ctx, tx, in.DrawID, version)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no result records for draw %s version %d", in.DrawID, version)
	}

	lines, err := model.ListPendingByDrawForUpdate(ctx, tx, in.DrawID)
	if err != nil {
		return nil, err
	}
	fmt.Printf("[Settle] 找到 %d 注待结算: draw_id=%s, version=%d, trace_id=%s\n",
		len(lines), in.DrawID, version, in.TraceID)

	type winEntry struct {
		lineID   int64
		memberID int64
		payout   float64
	}
	var (
		winners     []winEntry
		totalPayout = decimal.Zero
	)
	for i := range lines {
		l := lines[i]
		won, payout := computeOutcome(&l, results)
		if err := model.MarkSettled(ctx, tx, l.ID, won, payout, version); err != nil {
			return nil, err
		}
		if won {
			winners = append(winners, winEntry{lineID: l.ID, memberID: l.MemberID, payout: payout})
			totalPayout = totalPayout.Add(decimal.NewFromFloat(payout))
		}
	}

	slog := &model.SettlementLog{
		DrawID:        in.DrawID,
		ResultVersion: version,
		TotalLines:    len(lines),
		WonLines:      len(winners),
		TotalPayout:   totalPayout.Round(2).InexactFloat64(),
		Operator:      in.Operator,
		TraceID:       in.TraceID,
	}
	if err := model.CreateSettlementLog(ctx, tx, slog); err != nil {
		if model.IsDuplicateErr(err) {
			fmt.Printf("[Settle] 结算日志已存在，跳过重复结算: draw_id=%s, version=%d, trace_id=%s\n",
				in.DrawID, version, in.TraceID)
			resultLabel = "success_idempotent"
			return &SettlementReport{DrawID: in.DrawID, ResultVersion: version, AlreadySettled: true}, nil
		}
		return nil, err
	}

	if err := model.UpdateDrawStatus(ctx, tx, in.DrawID, settledStatus); err != nil {
		return nil, err
	}

	if err := model.CreateOutbox(ctx, tx, "draw_settled", fmt.Sprintf("%s@%d", in.DrawID, version), map[string]any{
		"event":          "draw_settled",
		"draw_id":        in.DrawID,
		"result_version": version,
		"total_lines":    len(lines),
		"won_lines":      len(winners),
		"total_payout":   slog.TotalPayout,
		"balance_change": constant.GetBalanceChangeTypeDesc(constant.BalanceChangePayout),
		"trace_id":       in.TraceID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Settle] 提交事务失败: draw_id=%s, error=%v, trace_id=%s\n", in.DrawID, err, in.TraceID)
		return nil, err
	}

	// 派彩上账：注单状态已落库，上账失败只影响到账时点，补偿清单保证最终一致
	credited, deferred := 0, 0
	for _, w := range winners {
		idemKey := fmt.Sprintf("%d@%d", w.lineID, version)
		_, err := s.Wallet.Credit(ctx, w.memberID, decimal.NewFromFloat(w.payout), idemKey)
		if wallet.Applied(err) {
			credited++
			continue
		}
		fmt.Printf("[Settle] 派彩上账失败，转入补偿清单: bet_line_id=%d, member_id=%d, amount=%.2f, error=%v, trace_id=%s\n",
			w.lineID, w.memberID, w.payout, err, in.TraceID)
		task := &model.CreditTask{
			DrawID:        in.DrawID,
			BetLineID:     w.lineID,
			MemberID:      w.memberID,
			ResultVersion: version,
			Amount:        w.payout,
			TraceID:       in.TraceID,
		}
		if e := task.Insert(ctx, infmysql.SQLX()); e != nil {
			fmt.Printf("[Settle] 写补偿清单失败: bet_line_id=%d, error=%v, trace_id=%s\n", w.lineID, e, in.TraceID)
		}
		deferred++
	}
	metrics.RecordCreditDeferred(deferred)

	// 开奖汇总写入 Redis，供前端汇总页快速查询
	if r := infrds.Client(); r != nil {
		val := map[string]any{
			"draw_id":        in.DrawID,
			"result_version": version,
			"results":        results,
			"status":         state.StatusSettled,
			"total_lines":    len(lines),
			"won_lines":      len(winners),
			"total_payout":   slog.TotalPayout,
		}
		if b, e := json.Marshal(val); e == nil {
			_ = r.Set(ctx, infrds.DrawResultKey(in.DrawID), b, 10*time.Minute).Err()
		}
	}

	resultLabel = "success"
	fmt.Printf("[Settle] 结算完成: draw_id=%s, version=%d, total=%d, won=%d, payout=%.2f, credited=%d, deferred=%d, trace_id=%s\n",
		in.DrawID, version, len(lines), len(winners), slog.TotalPayout, credited, deferred, in.TraceID)

	return &SettlementReport{
		DrawID:        in.DrawID,
		ResultVersion: version,
		TotalLines:    len(lines),
		WonLines:      len(winners),
		TotalPayout:   slog.TotalPayout,
		CreditedLines: credited,
		DeferredLines: deferred,
	}, nil
}

// computeOutcome 判定单注输赢并计算派彩
// 派彩 = 注金 × 下注时冻结的赔率（两位小数四舍五入）；玩法没有对应开奖号码判负
func computeOutcome(l *model.BetLine, results map[string]string) (bool, float64) {
	winning, ok := results[l.OptionType]
	if !ok {
		return false, 0
	}
	if !rules.Match(l.OptionType, l.Number, winning) {
		return false, 0
	}
	payout := decimal.NewFromFloat(l.Stake).Mul(decimal.NewFromFloat(l.Multiplier)).Round(2)
	return true, payout.InexactFloat64()
}

// acquireDrawMutex 获取期号级互斥锁，返回释放函数
// 锁值唯一，Lua 脚本保证只释放自己持有的锁；Redis 不可用时放行，退化为数据库行锁兜底
func acquireDrawMutex(ctx context.Context, drawID string) (func(), error) {
	r := infrds.Client()
	if r == nil {
		return func() {}, nil
	}
	lockValue := uuid.New().String()
	lockKey := infrds.DrawMutexKey(drawID)
	ok, _ := r.SetNX(ctx, lockKey, lockValue, drawMutexTTL).Result()
	if !ok {
		return nil, ErrDrawBusy
	}
	return func() {
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		if _, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result(); err != nil {
			fmt.Printf("[Settle] 释放期号互斥锁失败: draw_id=%s, error=%v\n", drawID, err)
		}
	}, nil
}
