package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	infmysql "huay-server/internal/infra/mysql"
	infrds "huay-server/internal/infra/redis"
	"huay-server/internal/model"
	"huay-server/internal/rules"
	"huay-server/internal/state"
)

// 处理期号生命周期：建期、封盘、录入开奖号码

var (
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidStateSubmit  = errors.New("result submit not allowed in current state")
	ErrResultAlreadyExists = errors.New("result already submitted, use revise instead")
)

// CreateDrawInput 建期入参
type CreateDrawInput struct {
	DrawID    string
	LotteryID string
	Name      string
	OpenTime  int64 // 毫秒
	CloseTime int64 // 毫秒
	TraceID   string
}

// SubmitResultInput 录入开奖号码入参
// 管理员只录三字上与二字下，各玩法的开奖号码由规则推导
type SubmitResultInput struct {
	DrawID    string
	ThreeTop  string
	TwoBottom string
	Operator  string
	TraceID   string
}

type DrawService interface {
	CreateDraw(ctx context.Context, in CreateDrawInput) error
	CloseDraw(ctx context.Context, drawID, traceID string) error
	SubmitResult(ctx context.Context, in SubmitResultInput) error
	GetDraw(ctx context.Context, drawID string) (*model.DrawRound, error)
	ListDraws(ctx context.Context, lotteryID string, limit int) ([]model.DrawRound, error)
}

type drawService struct{}

func NewDrawService() DrawService { return &drawService{} }

// CreateDraw 创建一期，初始状态开放投注
func (s *drawService) CreateDraw(ctx context.Context, in CreateDrawInput) error {
	if in.DrawID == "" || in.LotteryID == "" || in.CloseTime <= in.OpenTime {
		return ErrBadRequest
	}
	d := &model.DrawRound{
		DrawID:    in.DrawID,
		LotteryID: in.LotteryID,
		Name:      in.Name,
		OpenTime:  in.OpenTime,
		CloseTime: in.CloseTime,
		Status:    state.StatusOpen,
		TraceID:   in.TraceID,
	}
	if err := d.Insert(ctx, infmysql.SQLX()); err != nil {
		if model.IsDuplicateErr(err) {
			// 建期幂等：期号唯一键冲突视为已创建
			fmt.Printf("[Draw] 期号已存在，跳过建期: draw_id=%s, trace_id=%s\n", in.DrawID, in.TraceID)
			return nil
		}
		return err
	}
	fmt.Printf("[Draw] 建期完成: draw_id=%s, lottery=%s, open=%d, close=%d, trace_id=%s\n",
		in.DrawID, in.LotteryID, in.OpenTime, in.CloseTime, in.TraceID)
	return nil
}

// CloseDraw 封盘：开放投注 -> 已封盘；封盘后投注与撤单都被拒绝
func (s *drawService) CloseDraw(ctx context.Context, drawID, traceID string) error {
	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	draw, err := model.GetDrawForUpdate(ctx, tx, drawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrDrawNotFound
		}
		return err
	}
	if draw.Status == state.StatusClosed {
		// 封盘幂等
		return nil
	}
	next, err := state.Next(draw.Status, state.EvtClose)
	if err != nil {
		return ErrInvalidStateDraw
	}
	if err := model.UpdateDrawStatus(ctx, tx, drawID, next); err != nil {
		return err
	}
	if err := model.CreateOutbox(ctx, tx, "draw_closed", drawID, map[string]any{
		"event":    "draw_closed",
		"draw_id":  drawID,
		"trace_id": traceID,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("[Draw] 封盘完成: draw_id=%s, trace_id=%s\n", drawID, traceID)
	return nil
}

// SubmitResult 录入开奖号码：已封盘 -> 已录入；结果版本从 0 置 1
// 首次录入后再要改号必须走冲正流程，这里拒绝覆盖
func (s *drawService) SubmitResult(ctx context.Context, in SubmitResultInput) error {
	results, err := rules.DeriveResultSet(in.ThreeTop, in.TwoBottom)
	if err != nil {
		fmt.Printf("[Draw] 开奖号码非法: three_top=%s, two_bottom=%s, error=%v, trace_id=%s\n",
			in.ThreeTop, in.TwoBottom, err, in.TraceID)
		return ErrBadRequest
	}

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	draw, err := model.GetDrawForUpdate(ctx, tx, in.DrawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return ErrDrawNotFound
		}
		return err
	}
	if draw.ResultVersion > 0 {
		fmt.Printf("[Draw] 已有开奖结果，拒绝覆盖: draw_id=%s, version=%d, trace_id=%s\n",
			in.DrawID, draw.ResultVersion, in.TraceID)
		return ErrResultAlreadyExists
	}
	next, err := state.Next(draw.Status, state.EvtSubmitResult)
	if err != nil {
		return ErrInvalidStateSubmit
	}

	if err := model.InsertResultVersion(ctx, tx, in.DrawID, 1, results, in.Operator, in.TraceID); err != nil {
		return err
	}
	if err := model.BumpResultVersion(ctx, tx, in.DrawID, 1, next); err != nil {
		return err
	}
	if err := model.CreateOutbox(ctx, tx, "result_submitted", in.DrawID, map[string]any{
		"event":      "result_submitted",
		"draw_id":    in.DrawID,
		"three_top":  in.ThreeTop,
		"two_bottom": in.TwoBottom,
		"version":    1,
		"operator":   in.Operator,
		"trace_id":   in.TraceID,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// 写结果缓存供查询页使用
	if r := infrds.Client(); r != nil {
		val := map[string]any{
			"draw_id":        in.DrawID,
			"result_version": 1,
			"results":        results,
			"status":         3,
		}
		if b, e := json.Marshal(val); e == nil {
			_ = r.Set(ctx, infrds.DrawResultKey(in.DrawID), b, 10*time.Minute).Err()
		}
	}

	fmt.Printf("[Draw] 开奖号码已录入: draw_id=%s, three_top=%s, two_bottom=%s, version=1, trace_id=%s\n",
		in.DrawID, in.ThreeTop, in.TwoBottom, in.TraceID)
	return nil
}

func (s *drawService) GetDraw(ctx context.Context, drawID string) (*model.DrawRound, error) {
	d, err := model.GetDraw(ctx, infmysql.SQLX(), drawID)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *drawService) ListDraws(ctx context.Context, lotteryID string, limit int) ([]model.DrawRound, error) {
	return model.ListDrawsByLottery(ctx, infmysql.SQLX(), lotteryID, limit)
}
