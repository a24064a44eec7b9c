package api

import (
	"encoding/json"
	"errors"
	"strings"

	helper "huay-server/internal/common/helper"
	"huay-server/internal/common/response"
	"huay-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// ConfigSvc 由 main 注入
var ConfigSvc service.ConfigService

type ConfigController struct{ beego.Controller }

// configReq 配置保存入参
type configReq struct {
	ID                int64   `json:"id"`
	LotteryID         string  `json:"lottery_id"`
	OptionType        string  `json:"option_type"`
	MinPrice          float64 `json:"min_price"`
	MaxPrice          float64 `json:"max_price"`
	Multiplier        float64 `json:"multiplier"`
	MaxStakePerNumber float64 `json:"max_stake_per_number"`
	MaxStakePerMember float64 `json:"max_stake_per_member"`
	IsDefault         bool    `json:"is_default"`
	EffectiveFrom     int64   `json:"effective_from"`
	EffectiveTo       int64   `json:"effective_to"`
}

// Save 新建/编辑配置：POST /api/config
func (c *ConfigController) Save() {
	traceID := helper.GetTraceID(c.Ctx)

	var req configReq
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		response.BadRequest(&c.Controller, "invalid json body", traceID)
		return
	}
	if strings.TrimSpace(req.LotteryID) == "" || strings.TrimSpace(req.OptionType) == "" {
		response.BadRequest(&c.Controller, "lottery_id and option_type required", traceID)
		return
	}

	id, err := ConfigSvc.SaveConfig(c.Ctx.Request.Context(), service.ConfigInput{
		ID:                req.ID,
		LotteryID:         strings.TrimSpace(req.LotteryID),
		OptionType:        strings.TrimSpace(req.OptionType),
		MinPrice:          req.MinPrice,
		MaxPrice:          req.MaxPrice,
		Multiplier:        req.Multiplier,
		MaxStakePerNumber: req.MaxStakePerNumber,
		MaxStakePerMember: req.MaxStakePerMember,
		IsDefault:         req.IsDefault,
		EffectiveFrom:     req.EffectiveFrom,
		EffectiveTo:       req.EffectiveTo,
		TraceID:           traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownOption):
			response.BadRequest(&c.Controller, "unknown option_type", traceID)
		case errors.Is(err, service.ErrInvalidRange):
			response.Conflict(&c.Controller, response.CodeInvalidRange, traceID)
		case errors.Is(err, service.ErrDuplicateDefault):
			response.Conflict(&c.Controller, response.CodeDuplicateDefault, traceID)
		default:
			response.InternalError(&c.Controller, traceID)
		}
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"id": id}, traceID)
}

// Disable 停用配置：POST /api/config/disable
func (c *ConfigController) Disable() {
	traceID := helper.GetTraceID(c.Ctx)
	id, err := c.GetInt64("id")
	if err != nil || id <= 0 {
		response.BadRequest(&c.Controller, "id required", traceID)
		return
	}
	if err := ConfigSvc.DisableConfig(c.Ctx.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrConfigNotFound) {
			response.NotFound(&c.Controller, "config not found", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"id": id}, traceID)
}

// SetDefault 切换默认档：POST /api/config/default
func (c *ConfigController) SetDefault() {
	traceID := helper.GetTraceID(c.Ctx)
	id, err := c.GetInt64("id")
	if err != nil || id <= 0 {
		response.BadRequest(&c.Controller, "id required", traceID)
		return
	}
	if err := ConfigSvc.SetDefault(c.Ctx.Request.Context(), id, traceID); err != nil {
		if errors.Is(err, service.ErrConfigNotFound) {
			response.NotFound(&c.Controller, "config not found", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{"id": id}, traceID)
}

// List 配置列表：GET /api/config/list
func (c *ConfigController) List() {
	traceID := helper.GetTraceID(c.Ctx)
	lotteryID := strings.TrimSpace(c.GetString("lottery_id"))
	if lotteryID == "" {
		response.BadRequest(&c.Controller, "lottery_id required", traceID)
		return
	}
	list, err := ConfigSvc.ListConfigs(c.Ctx.Request.Context(), lotteryID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, list, traceID)
}
