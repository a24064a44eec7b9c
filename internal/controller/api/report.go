package api

import (
	"errors"
	"strings"

	helper "huay-server/internal/common/helper"
	"huay-server/internal/common/response"
	"huay-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// ReportSvc 由 main 注入
var ReportSvc service.ReportService

type ReportController struct{ beego.Controller }

// DrawSummary 一期汇总：GET /api/report/draw
func (c *ReportController) DrawSummary() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}
	out, err := ReportSvc.GetDrawSummary(c.Ctx.Request.Context(), drawID)
	if err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			response.NotFound(&c.Controller, "期号不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// PoyDetail 彩票单明细：GET /api/report/poy
func (c *ReportController) PoyDetail() {
	traceID := helper.GetTraceID(c.Ctx)
	poyNo := strings.TrimSpace(c.GetString("poy_no"))
	if poyNo == "" {
		response.BadRequest(&c.Controller, "poy_no required", traceID)
		return
	}
	out, err := ReportSvc.GetPoyDetail(c.Ctx.Request.Context(), poyNo)
	if err != nil {
		if errors.Is(err, service.ErrPoyNotFound) {
			response.NotFound(&c.Controller, "彩票单不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// AuditTrail 审计记录：GET /api/report/audit
func (c *ReportController) AuditTrail() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}
	out, err := ReportSvc.GetAuditTrail(c.Ctx.Request.Context(), drawID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// MemberPoys 会员购彩记录：GET /api/report/member_poys
func (c *ReportController) MemberPoys() {
	traceID := helper.GetTraceID(c.Ctx)
	memberID, err := c.GetInt64("member_id")
	if err != nil || memberID <= 0 {
		response.BadRequest(&c.Controller, "member_id required", traceID)
		return
	}
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	offset, _ := c.GetUint64("offset", 0)
	limit, _ := c.GetUint64("limit", 20)

	list, err := ReportSvc.ListMemberPoys(c.Ctx.Request.Context(), memberID, drawID, uint(offset), uint(limit))
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, list, traceID)
}

// DrawResult 开奖结果快查：GET /api/report/result
func (c *ReportController) DrawResult() {
	traceID := helper.GetTraceID(c.Ctx)
	drawID := strings.TrimSpace(c.GetString("draw_id"))
	if drawID == "" {
		response.BadRequest(&c.Controller, "draw_id required", traceID)
		return
	}
	out, err := ReportSvc.GetDrawResultCached(c.Ctx.Request.Context(), drawID)
	if err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			response.NotFound(&c.Controller, "期号不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}
