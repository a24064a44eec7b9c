package api

import (
	"errors"
	"strconv"
	"strings"

	helper "huay-server/internal/common/helper"
	"huay-server/internal/common/response"
	"huay-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

// BetSvc 由 main 注入（服务持有钱包客户端等外部依赖）
var BetSvc service.BetService

type BetController struct{ beego.Controller }

// Place 处理购彩接口：POST /api/poy
/*
	幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证同一业务请求只生效一次。
	使用约定：
	- 同一张彩票单的所有重试传相同的 idempotency_key；
	- 业务语义不同（期号/会员/注单内容不同）的请求必须使用不同的 key。
	服务端幂等保证（多层防护）：
	1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
	2) MySQL 唯一键：事务内先插入 idempotency_keys(idempotency_key)，已存在则返回首次请求的结果；
	3) 结果缓存：首次成功结果写入 Redis 短期缓存，后续重复直接读缓存快速返回。
*/
func (c *BetController) Place() {
	// 解析入参与基本格式校验，业务校验在 service 层
	pp, ok, msg := helper.ParseAndValidatePlace(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	lines := make([]service.PoyLineInput, 0, len(pp.Lines))
	for _, ln := range pp.Lines {
		lines = append(lines, service.PoyLineInput{
			OptionType: ln.OptionType,
			Number:     ln.Number,
			Stake:      ln.Stake,
		})
	}

	out, err := BetSvc.PlacePoy(c.Ctx.Request.Context(), service.PlaceInput{
		DrawID:         pp.DrawId,
		MemberID:       pp.MemberId,
		Lines:          lines,
		IdempotencyKey: pp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		switch {
		case errors.Is(err, service.ErrDuplicateInFlight):
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
		case errors.Is(err, service.ErrDrawNotFound):
			response.NotFound(&c.Controller, "期号不存在", traceID)
		case errors.Is(err, service.ErrInvalidStateBet):
			response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
		case errors.Is(err, service.ErrBetWindowNotStart):
			response.Conflict(&c.Controller, response.CodeBetWindowNotStart, traceID)
		case errors.Is(err, service.ErrBetWindowClosed):
			response.Conflict(&c.Controller, response.CodeBetWindowClosed, traceID)
		case errors.Is(err, service.ErrLimitPerNumber):
			response.Conflict(&c.Controller, response.CodeLimitPerNumber, traceID)
		case errors.Is(err, service.ErrLimitPerMember):
			response.Conflict(&c.Controller, response.CodeLimitPerMember, traceID)
		case errors.Is(err, service.ErrConfigMissing):
			response.Conflict(&c.Controller, response.CodeConfigMissing, traceID)
		case errors.Is(err, service.ErrInsufficientFunds):
			response.Error(&c.Controller, 400, response.CodeInsufficientBalance, traceID)
		default:
			errMsg := err.Error()
			if strings.Contains(errMsg, "invalid number") ||
				strings.Contains(errMsg, "unknown option") ||
				strings.Contains(errMsg, "stake must be positive") ||
				strings.Contains(errMsg, "bad request") {
				response.BadRequest(&c.Controller, errMsg, traceID)
				return
			}
			response.InternalError(&c.Controller, traceID)
		}
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"poy_no":        out.PoyNo,
		"total_stake":   out.TotalStake,
		"remain_amount": out.RemainAmount,
	}, traceID)
}

// Cancel 处理撤单接口：POST /api/poy/cancel
// 仅限封盘前，整单退款
func (c *BetController) Cancel() {
	traceID := helper.GetTraceID(c.Ctx)
	poyNo := strings.TrimSpace(c.GetString("poy_no"))
	memberStr := strings.TrimSpace(c.GetString("member_id"))
	if poyNo == "" || memberStr == "" {
		response.BadRequest(&c.Controller, "poy_no and member_id required", traceID)
		return
	}
	memberID, err := strconv.ParseInt(memberStr, 10, 64)
	if err != nil || memberID <= 0 {
		response.BadRequest(&c.Controller, "member_id must be positive integer", traceID)
		return
	}

	if err := BetSvc.CancelPoy(c.Ctx.Request.Context(), poyNo, memberID, traceID); err != nil {
		switch {
		case errors.Is(err, service.ErrPoyNotFound):
			response.NotFound(&c.Controller, "彩票单不存在", traceID)
		case errors.Is(err, service.ErrPoyNotCancellable):
			response.Conflict(&c.Controller, response.CodePoyNotCancellable, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"poy_no": poyNo}, traceID)
}
