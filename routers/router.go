package routers

import (
	"huay-server/internal/controller/api"
	"huay-server/internal/metrics"
	"huay-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// init 注册HTTP路由与全局过滤器
// CORS/限流/管理员认证过滤器在请求时读取配置自行决定是否生效，
// 因此这里无条件注册，配置热更新后无需重启即可切换开关。
func init() {
	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理
	beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 会员 API ==========

	// 购彩与撤单：限流保护
	beego.InsertFilter("/api/poy", beego.BeforeExec, middleware.RateLimitFilter)
	beego.InsertFilter("/api/poy/*", beego.BeforeExec, middleware.RateLimitFilter)
	beego.Router("/api/poy", &api.BetController{}, "post:Place")
	beego.Router("/api/poy/cancel", &api.BetController{}, "post:Cancel")

	// 查询接口：开放读
	beego.Router("/api/draw", &api.DrawController{}, "get:Get")
	beego.Router("/api/draw/list", &api.DrawController{}, "get:List")
	beego.Router("/api/report/draw", &api.ReportController{}, "get:DrawSummary")
	beego.Router("/api/report/poy", &api.ReportController{}, "get:PoyDetail")
	beego.Router("/api/report/audit", &api.ReportController{}, "get:AuditTrail")
	beego.Router("/api/report/member_poys", &api.ReportController{}, "get:MemberPoys")
	beego.Router("/api/report/result", &api.ReportController{}, "get:DrawResult")

	// ========== 管理 API（管理员认证） ==========

	// 赔率与限额配置
	beego.InsertFilter("/api/config", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.InsertFilter("/api/config/*", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/config", &api.ConfigController{}, "post:Save")
	beego.Router("/api/config/disable", &api.ConfigController{}, "post:Disable")
	beego.Router("/api/config/default", &api.ConfigController{}, "post:SetDefault")
	beego.Router("/api/config/list", &api.ConfigController{}, "get:List")

	// 期号生命周期：建期/封盘/录入开奖/结算
	for _, p := range []string{
		"/api/draw/create", "/api/draw/close", "/api/draw/result",
		"/api/draw/settle", "/api/draw/revise", "/api/draw/revise/resume",
	} {
		beego.InsertFilter(p, beego.BeforeExec, middleware.AdminAuthFilter)
	}
	beego.Router("/api/draw/create", &api.DrawController{}, "post:Create")
	beego.Router("/api/draw/close", &api.DrawController{}, "post:Close")
	beego.Router("/api/draw/result", &api.DrawController{}, "post:SubmitResult")
	beego.Router("/api/draw/settle", &api.DrawController{}, "post:Settle")

	// 改号冲正
	beego.Router("/api/draw/revise", &api.ReviseController{}, "post:Revise")
	beego.Router("/api/draw/revise/resume", &api.ReviseController{}, "post:Resume")
}
