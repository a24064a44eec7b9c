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
	"huay-server/internal/metrics"
	"huay-server/internal/model"
	"huay-server/internal/rules"
	"huay-server/internal/state"
	"huay-server/internal/wallet"

	decimal "github.com/shopspring/decimal"
)

// 处理改号冲正业务逻辑
//
// 改号是结算后的补救流程，分三步走：
// 1. 切版本：新结果整套落库（version+1）、写改号审计、按旧版本中奖注单生成冲正清单，
//    同一事务内把期号切到冲正中状态。这一步提交后改号事实不可丢。
// 2. 清清单：逐条回收误派派彩（允许扣负）、写冲正流水、注单重开，成功一条销一条。
//    进程崩溃重启后按清单续跑；钱包幂等键保证重复回收不双扣。
// 3. 重结算：清单清空后按新版本重新结算。清单未清空前该期停在冲正中，不会带着
//    未回收的钱进入重结。

const reverseMaxRetry = 5

var (
	ErrInvalidStateRevise = errors.New("revise not allowed in current state")
	ErrResultUnchanged    = errors.New("revised result identical to current version")
	ErrReversalParked     = errors.New("reversal tasks parked, manual intervention required")
)

// ReviseInput 改号入参
type ReviseInput struct {
	DrawID    string
	ThreeTop  string
	TwoBottom string
	Reason    string
	Operator  string
	TraceID   string
}

// ReviseReport 一次改号冲正的汇总结果
type ReviseReport struct {
	DrawID        string            `json:"draw_id"`
	FromVersion   int               `json:"from_version"`
	ToVersion     int               `json:"to_version"`
	ReversedLines int               `json:"reversed_lines"`
	ReversedTotal float64           `json:"reversed_total"`
	ReopenedLost  int               `json:"reopened_lost"`
	PendingTasks  int               `json:"pending_tasks"`
	ParkedTasks   int               `json:"parked_tasks"`
	Resettlement  *SettlementReport `json:"resettlement,omitempty"`
}

type ReviseService interface {
	ReviseResult(ctx context.Context, in ReviseInput) (*ReviseReport, error)
	// ResumeReversal 续跑未完成的冲正：崩溃恢复或搁置任务人工处理后调用
	ResumeReversal(ctx context.Context, drawID string, resetParked bool, traceID string) (*ReviseReport, error)
}

type reviseService struct {
	Wallet wallet.Ledger
	Settle SettlementService
}

func NewReviseService(w wallet.Ledger, settle SettlementService) ReviseService {
	return &reviseService{Wallet: w, Settle: settle}
}

// ReviseResult 改号冲正主流程
func (s *reviseService) ReviseResult(ctx context.Context, in ReviseInput) (*ReviseReport, error) {

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordRevise(resultLabel, start) }()

	newResults, err := rules.DeriveResultSet(in.ThreeTop, in.TwoBottom)
	if err != nil {
		return nil, ErrBadRequest
	}
	if strings.TrimSpace(in.Reason) == "" {
		fmt.Printf("[Revise] 改号必须填写原因: draw_id=%s, trace_id=%s\n", in.DrawID, in.TraceID)
		return nil, ErrBadRequest
	}

	fmt.Printf("[Revise] 收到改号请求: draw_id=%s, three_top=%s, two_bottom=%s, operator=%s, trace_id=%s\n",
		in.DrawID, in.ThreeTop, in.TwoBottom, in.Operator, in.TraceID)

	unlock, err := acquireDrawMutex(ctx, in.DrawID)
	if err != nil {
		return nil, err
	}

	report, err := s.switchVersion(ctx, in, newResults)
	if err != nil {
		unlock()
		return nil, err
	}

	pending, parked, reversedTotal, err := s.drainReverseTasks(ctx, in.DrawID, in.TraceID)
	// 清单处理完（或搁置）即可释放互斥锁；重结算自己会再拿锁
	unlock()
	if err != nil {
		return nil, err
	}
	report.ReversedTotal = s.backfillReversedAmount(ctx, in.DrawID, report.FromVersion, report.ToVersion, reversedTotal)
	report.PendingTasks = pending
	report.ParkedTasks = parked
	if reversalsOutstanding(pending, parked) {
		fmt.Printf("[Revise] 冲正清单未清空（待处理 %d 条，搁置 %d 条），不进入重结算: draw_id=%s, trace_id=%s\n",
			pending, parked, in.DrawID, in.TraceID)
		resultLabel = "parked"
		return report, ErrReversalParked
	}

	rs, err := s.Settle.SettleDraw(ctx, SettleInput{DrawID: in.DrawID, Operator: in.Operator, TraceID: in.TraceID})
	if err != nil {
		return report, err
	}
	report.Resettlement = rs

	resultLabel = "success"
	fmt.Printf("[Revise] 改号冲正完成: draw_id=%s, %d -> %d, reversed=%d(%.2f), resettled=%d, trace_id=%s\n",
		in.DrawID, report.FromVersion, report.ToVersion, report.ReversedLines, report.ReversedTotal,
		rs.TotalLines, in.TraceID)
	return report, nil
}

// switchVersion 第一步：原子切换结果版本并生成冲正清单
func (s *reviseService) switchVersion(ctx context.Context, in ReviseInput, newResults map[string]string) (*ReviseReport, error) {
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
	// 只有已结算的期可以改号；冲正中说明上一次改号未走完，应走 ResumeReversal
	revisingStatus, err := state.Next(draw.Status, state.EvtRevise)
	if err != nil {
		fmt.Printf("[Revise] 期号状态不允许改号: draw_id=%s, status=%s, trace_id=%s\n",
			in.DrawID, state.Name(draw.Status), in.TraceID)
		return nil, ErrInvalidStateRevise
	}

	oldVersion := draw.ResultVersion
	newVersion := oldVersion + 1

	oldResults, err := model.GetResultsByVersion(ctx, tx, in.DrawID, oldVersion)
	if err != nil {
		return nil, err
	}
	if sameResults(oldResults, newResults) {
		return nil, ErrResultUnchanged
	}

	if err := model.InsertResultVersion(ctx, tx, in.DrawID, newVersion, newResults, in.Operator, in.TraceID); err != nil {
		return nil, err
	}

	// 旧版本中奖注单 -> 冲正清单（回收金额 = 当时派彩）
	wonLines, err := model.ListWonByDrawVersion(ctx, tx, in.DrawID, oldVersion)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.ReverseTask, 0, len(wonLines))
	toReverse := decimal.Zero
	for _, l := range wonLines {
		tasks = append(tasks, model.ReverseTask{
			DrawID:        in.DrawID,
			BetLineID:     l.ID,
			MemberID:      l.MemberID,
			ResultVersion: oldVersion,
			Amount:        l.Payout,
			TraceID:       in.TraceID,
		})
		toReverse = toReverse.Add(decimal.NewFromFloat(l.Payout))
	}
	if err := model.BulkInsertReverseTasks(ctx, tx, tasks); err != nil {
		return nil, err
	}

	oldJSON, _ := json.Marshal(oldResults)
	newJSON, _ := json.Marshal(newResults)
	edit := &model.EditLog{
		DrawID:       in.DrawID,
		FromVersion:  oldVersion,
		ToVersion:    newVersion,
		OldResults:   string(oldJSON),
		NewResults:   string(newJSON),
		WinnersCount: len(tasks),
		// 实际回收总额按冲正流水回填，清单没清空前不写死数字
		ReversedAmount: 0,
		Reason:         in.Reason,
		Operator:       in.Operator,
		TraceID:        in.TraceID,
	}
	if err := edit.Insert(ctx, tx); err != nil {
		return nil, err
	}

	// 旧版本判负注单没有资金往来；只重开新结果下能中奖的，其余注单维持原判不动
	lostLines, err := model.ListLostByDrawVersion(ctx, tx, in.DrawID, oldVersion)
	if err != nil {
		return nil, err
	}
	reopened := 0
	for i := range lostLines {
		if won, _ := computeOutcome(&lostLines[i], newResults); !won {
			continue
		}
		if err := model.ReopenLine(ctx, tx, lostLines[i].ID); err != nil {
			return nil, err
		}
		reopened++
	}

	if err := model.BumpResultVersion(ctx, tx, in.DrawID, newVersion, revisingStatus); err != nil {
		return nil, err
	}
	if err := model.CreateOutbox(ctx, tx, "result_revised", fmt.Sprintf("%s@%d", in.DrawID, newVersion), map[string]any{
		"event":          "result_revised",
		"draw_id":        in.DrawID,
		"from_version":   oldVersion,
		"to_version":     newVersion,
		"reason":         in.Reason,
		"operator":       in.Operator,
		"balance_change": constant.GetBalanceChangeTypeDesc(constant.BalanceChangeReverse),
		"trace_id":       in.TraceID,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Revise] 版本切换提交失败: draw_id=%s, error=%v, trace_id=%s\n", in.DrawID, err, in.TraceID)
		return nil, err
	}

	fmt.Printf("[Revise] 版本已切换: draw_id=%s, %d -> %d, reverse_tasks=%d, to_reverse=%.2f, reopened_lost=%d, trace_id=%s\n",
		in.DrawID, oldVersion, newVersion, len(tasks), toReverse.Round(2).InexactFloat64(), reopened, in.TraceID)
	return &ReviseReport{
		DrawID:        in.DrawID,
		FromVersion:   oldVersion,
		ToVersion:     newVersion,
		ReversedLines: len(tasks),
		ReopenedLost:  reopened,
	}, nil
}

// drainReverseTasks 第二步：清空冲正清单
// 每条任务独立推进：钱包扣回（允许负余额）-> 冲正流水 -> 注单重开 -> 销账，
// 单条失败不阻塞其他任务。循环跑到清单里不再有待处理任务为止：
// 反复失败的任务每轮涨一次重试计数，到上限搁置，所以循环必然收敛，
// 退出时每条任务不是已销账就是已搁置，不存在半途遗留
func (s *reviseService) drainReverseTasks(ctx context.Context, drawID, traceID string) (pending, parked int, reversedTotal float64, err error) {
	db := infmysql.SQLX()
	totalDec := decimal.Zero

	for {
		tasks, err := model.ListPendingReverseTasks(ctx, db, drawID, 200)
		if err != nil {
			return 0, 0, 0, err
		}
		if len(tasks) == 0 {
			break
		}
		progressed := false
		for _, t := range tasks {
			idemKey := fmt.Sprintf("%d@reverse@%d", t.BetLineID, t.ResultVersion)
			bal, werr := s.Wallet.ForceDebit(ctx, t.MemberID, decimal.NewFromFloat(t.Amount), idemKey)
			if !wallet.Applied(werr) {
				fmt.Printf("[Revise] 回收派彩失败: bet_line_id=%d, member_id=%d, amount=%.2f, error=%v, trace_id=%s\n",
					t.BetLineID, t.MemberID, t.Amount, werr, traceID)
				if e := model.MarkReverseTaskFailed(ctx, db, t.ID, werr.Error(), reverseMaxRetry); e != nil {
					return 0, 0, 0, e
				}
				continue
			}

			tx, err := db.BeginTxx(ctx, nil)
			if err != nil {
				return 0, 0, 0, err
			}
			rlog := &model.ReverseLog{
				DrawID:        t.DrawID,
				BetLineID:     t.BetLineID,
				MemberID:      t.MemberID,
				ResultVersion: t.ResultVersion,
				Amount:        t.Amount,
				TraceID:       traceID,
			}
			if bal != nil {
				rlog.BeforeBalance = bal.Before
				rlog.AfterBalance = bal.After
			}
			if err := rlog.Insert(ctx, tx); err != nil {
				_ = tx.Rollback()
				return 0, 0, 0, err
			}
			if err := model.ReopenLine(ctx, tx, t.BetLineID); err != nil {
				_ = tx.Rollback()
				return 0, 0, 0, err
			}
			if err := model.MarkReverseTaskDone(ctx, tx, t.ID); err != nil {
				_ = tx.Rollback()
				return 0, 0, 0, err
			}
			if err := tx.Commit(); err != nil {
				return 0, 0, 0, err
			}
			totalDec = totalDec.Add(decimal.NewFromFloat(t.Amount))
			progressed = true
			if bal != nil && bal.After < 0 {
				fmt.Printf("[Revise] 会员余额扣负挂账: member_id=%d, after=%.2f, bet_line_id=%d, trace_id=%s\n",
					t.MemberID, bal.After, t.BetLineID, traceID)
			}
		}
		if !progressed {
			// 整批都失败时稍等再进下一轮，等待重试计数把任务推向搁置
			select {
			case <-ctx.Done():
				return 0, 0, 0, ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
	}

	pending, parked, err = model.CountReverseTasks(ctx, db, drawID)
	if err != nil {
		return 0, 0, 0, err
	}
	metrics.SetReverseParked(parked)
	return pending, parked, totalDec.Round(2).InexactFloat64(), nil
}

// reversalsOutstanding 冲正清单是否还有未销账任务
// 待处理和搁置只要有一个非零就不允许进入重结算，否则误派的钱没收完就重结了
func reversalsOutstanding(pending, parked int) bool { return pending+parked > 0 }

// backfillReversedAmount 按冲正流水回填改号审计里的实际回收总额
// 以 reverse_log 汇总为准：崩溃续跑时本轮增量不等于累计值，搁置时只记已收部分
func (s *reviseService) backfillReversedAmount(ctx context.Context, drawID string, fromVersion, toVersion int, fallback float64) float64 {
	db := infmysql.SQLX()
	total, err := model.SumReversedByDrawVersion(ctx, db, drawID, fromVersion)
	if err != nil {
		fmt.Printf("[Revise] 汇总冲正流水失败: draw_id=%s, version=%d, error=%v\n", drawID, fromVersion, err)
		return fallback
	}
	if err := model.UpdateEditLogReversedAmount(ctx, db, drawID, toVersion, total); err != nil {
		fmt.Printf("[Revise] 回填改号审计回收总额失败: draw_id=%s, to_version=%d, error=%v\n", drawID, toVersion, err)
	}
	return total
}

// ResumeReversal 续跑冲正：清空剩余清单并完成重结算
// resetParked=true 时先把搁置任务重置回待处理（人工确认钱包恢复后使用）
func (s *reviseService) ResumeReversal(ctx context.Context, drawID string, resetParked bool, traceID string) (*ReviseReport, error) {
	unlock, err := acquireDrawMutex(ctx, drawID)
	if err != nil {
		return nil, err
	}

	db := infmysql.SQLX()
	draw, err := model.GetDraw(ctx, db, drawID)
	if err != nil {
		unlock()
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	if draw.Status != state.StatusRevising {
		unlock()
		return nil, ErrInvalidStateRevise
	}

	if resetParked {
		n, err := model.ResetParkedReverseTasks(ctx, db, drawID)
		if err != nil {
			unlock()
			return nil, err
		}
		if n > 0 {
			fmt.Printf("[Revise] 已重置 %d 条搁置任务: draw_id=%s, trace_id=%s\n", n, drawID, traceID)
		}
	}

	pending, parked, reversedTotal, err := s.drainReverseTasks(ctx, drawID, traceID)
	unlock()
	if err != nil {
		return nil, err
	}

	report := &ReviseReport{
		DrawID:       drawID,
		FromVersion:  draw.ResultVersion - 1,
		ToVersion:    draw.ResultVersion,
		PendingTasks: pending,
		ParkedTasks:  parked,
	}
	report.ReversedTotal = s.backfillReversedAmount(ctx, drawID, report.FromVersion, report.ToVersion, reversedTotal)
	if reversalsOutstanding(pending, parked) {
		return report, ErrReversalParked
	}

	rs, err := s.Settle.SettleDraw(ctx, SettleInput{DrawID: drawID, Operator: "system", TraceID: traceID})
	if err != nil {
		return report, err
	}
	report.Resettlement = rs
	fmt.Printf("[Revise] 冲正续跑完成: draw_id=%s, version=%d, resettled=%d, trace_id=%s\n",
		drawID, draw.ResultVersion, rs.TotalLines, traceID)
	return report, nil
}

// sameResults 两套结果完全一致
func sameResults(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
