package api

import (
	"errors"
	"strings"

	helper "huay-server/internal/common/helper"
	"huay-server/internal/common/response"
	"huay-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// ReviseSvc 由 main 注入
var ReviseSvc service.ReviseService

type ReviseController struct{ beego.Controller }

// Revise 改号冲正：POST /api/draw/revise
// 返回 200 时附带冲正与重结算汇总；冲正任务搁置时返回 202，清单信息在 data 中
func (c *ReviseController) Revise() {
	traceID := helper.GetTraceID(c.Ctx)
	rp, ok, msg := helper.ParseAndValidateResult(c.Ctx, true)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	report, err := ReviseSvc.ReviseResult(c.Ctx.Request.Context(), service.ReviseInput{
		DrawID:    rp.DrawId,
		ThreeTop:  rp.ThreeTop,
		TwoBottom: rp.TwoBottom,
		Reason:    rp.Reason,
		Operator:  getOperator(c.Ctx),
		TraceID:   traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReversalParked):
			// 改号事实已落库，冲正部分完成；客户端稍后调用 resume 续跑
			c.Ctx.Output.SetStatus(202)
			response.Success(&c.Controller, report, traceID)
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期号不存在", traceID)
		case errors.Is(err, service.ErrDrawBusy):
			response.Conflict(&c.Controller, response.CodeDrawBusy, traceID)
		case errors.Is(err, service.ErrInvalidStateRevise):
			response.Conflict(&c.Controller, response.CodeInvalidStateRevise, traceID)
		case errors.Is(err, service.ErrResultUnchanged):
			response.BadRequest(&c.Controller, "新结果与当前版本一致", traceID)
		case errors.Is(err, service.ErrBadRequest):
			response.BadRequest(&c.Controller, "invalid revise request", traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, report, traceID)
}

// Resume 冲正续跑：POST /api/draw/revise/resume
// 崩溃恢复或搁置任务人工处理后调用；reset_parked=1 先重置搁置任务
func (c *ReviseController) Resume() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}
	resetParked, _ := c.GetBool("reset_parked", false)

	report, err := ReviseSvc.ResumeReversal(c.Ctx.Request.Context(), drawID, resetParked, traceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReversalParked):
			c.Ctx.Output.SetStatus(202)
			response.Success(&c.Controller, report, traceID)
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期号不存在", traceID)
		case errors.Is(err, service.ErrDrawBusy):
			response.Conflict(&c.Controller, response.CodeDrawBusy, traceID)
		case errors.Is(err, service.ErrInvalidStateRevise):
			response.Conflict(&c.Controller, response.CodeInvalidStateRevise, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, report, traceID)
}
