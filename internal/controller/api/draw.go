package api

import (
	"errors"
	"strings"

	helper "huay-server/internal/common/helper"
	"huay-server/internal/common/response"
	"huay-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// DrawSvc / SettleSvc 由 main 注入
var (
	DrawSvc   service.DrawService
	SettleSvc service.SettlementService
)

type DrawController struct{ beego.Controller }

// Create 建期：POST /api/draw/create
func (c *DrawController) Create() {
	traceID := helper.GetTraceID(c.Ctx)

	var in service.CreateDrawInput
	in.DrawID = strings.TrimSpace(c.GetString("draw_id"))
	in.LotteryID = strings.TrimSpace(c.GetString("lottery_id"))
	in.Name = strings.TrimSpace(c.GetString("name"))
	in.OpenTime, _ = c.GetInt64("open_time")
	in.CloseTime, _ = c.GetInt64("close_time")
	in.TraceID = traceID

	if in.DrawID == "" || in.LotteryID == "" || in.CloseTime <= in.OpenTime {
		response.BadRequest(&c.Controller, "draw_id/lottery_id/open_time/close_time required", traceID)
		return
	}
	if err := DrawSvc.CreateDraw(c.Ctx.Request.Context(), in); err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"draw_id": in.DrawID}, traceID)
}

// Close 封盘：POST /api/draw/close
func (c *DrawController) Close() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}
	if err := DrawSvc.CloseDraw(c.Ctx.Request.Context(), drawID, traceID); err != nil {
		switch {
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期号不存在", traceID)
		case errors.Is(err, service.ErrInvalidStateDraw):
			response.Conflict(&c.Controller, response.CodeInvalidStateDraw, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"draw_id": drawID}, traceID)
}

// SubmitResult 录入开奖号码：POST /api/draw/result
func (c *DrawController) SubmitResult() {
	traceID := helper.GetTraceID(c.Ctx)
	rp, ok, msg := helper.ParseAndValidateResult(c.Ctx, false)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	operator := getOperator(c.Ctx)
	err := DrawSvc.SubmitResult(c.Ctx.Request.Context(), service.SubmitResultInput{
		DrawID:    rp.DrawId,
		ThreeTop:  rp.ThreeTop,
		TwoBottom: rp.TwoBottom,
		Operator:  operator,
		TraceID:   traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期号不存在", traceID)
		case errors.Is(err, service.ErrResultAlreadyExists):
			response.Conflict(&c.Controller, response.CodeInvalidStateRevise, traceID)
		case errors.Is(err, service.ErrInvalidStateSubmit):
			response.Conflict(&c.Controller, response.CodeInvalidStateDraw, traceID)
		case errors.Is(err, service.ErrBadRequest):
			response.BadRequest(&c.Controller, "invalid result numbers", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"draw_id":        rp.DrawId,
		"result_version": 1,
	}, traceID)
}

// Settle 结算：POST /api/draw/settle
func (c *DrawController) Settle() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}

	report, err := SettleSvc.SettleDraw(c.Ctx.Request.Context(), service.SettleInput{
		DrawID:   drawID,
		Operator: getOperator(c.Ctx),
		TraceID:  traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期号不存在", traceID)
		case errors.Is(err, service.ErrDrawBusy):
			response.Conflict(&c.Controller, response.CodeDrawBusy, traceID)
		case errors.Is(err, service.ErrInvalidStateDraw):
			response.Conflict(&c.Controller, response.CodeInvalidStateDraw, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, report, traceID)
}

// Get 查询一期：GET /api/draw
func (c *DrawController) Get() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}
	d, err := DrawSvc.GetDraw(c.Ctx.Request.Context(), drawID)
	if err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			response.NotFound(&c.Controller, "期号不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, d, traceID)
}

// List 期号列表：GET /api/draw/list
func (c *DrawController) List() {
	traceID := helper.GetTraceID(c.Ctx)
	lotteryID := strings.TrimSpace(c.GetString("lottery_id"))
	if lotteryID == "" {
		response.BadRequest(&c.Controller, "lottery_id required", traceID)
		return
	}
	limit, _ := c.GetInt("limit", 20)
	list, err := DrawSvc.ListDraws(c.Ctx.Request.Context(), lotteryID, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, list, traceID)
}

// getOperator 从认证中间件注入的数据取操作员，缺省 admin
func getOperator(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("admin_user"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "admin"
}
