package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// 纯数字号码校验（1~3 位，具体位数由玩法规则在服务层校验）
var numberRe = regexp.MustCompile(`^[0-9]{1,3}$`)

// IsNumberFormat 判断投注号码格式
func IsNumberFormat(s string) bool {
	return numberRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// -------- Place helpers --------

// PlaceLineParsed 单注入参
type PlaceLineParsed struct {
	OptionType string  `json:"option_type"`
	Number     string  `json:"number"`
	Stake      float64 `json:"stake"`
}

// PlaceParsed 购彩入参（与控制器/服务层解耦）
type PlaceParsed struct {
	DrawId         string            `json:"draw_id"`
	MemberId       int64             `json:"member_id"`
	Lines          []PlaceLineParsed `json:"lines"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// ParsePlaceFromJSON 解析 JSON 到 PlaceParsed。失败返回 false 与错误消息。
func ParsePlaceFromJSON(ctx *beegocontext.Context) (PlaceParsed, bool, string) {
	var out PlaceParsed
	if err := json.NewDecoder(jsonBodyReader(ctx)).Decode(&out); err != nil {
		return PlaceParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ValidatePlace 对购彩入参做强校验（格式级；档位/限额等业务校验在服务层）
func ValidatePlace(in *PlaceParsed) (bool, string) {
	if strings.TrimSpace(in.DrawId) == "" || in.MemberId <= 0 || len(in.Lines) == 0 || strings.TrimSpace(in.IdempotencyKey) == "" {
		return false, "missing required fields: draw_id/member_id/lines/idempotency_key"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.DrawId) > 64 || len(in.IdempotencyKey) > 64 {
		return false, "invalid request"
	}
	if len(in.Lines) > 200 {
		return false, "too many lines in one poy"
	}
	for i := range in.Lines {
		ln := &in.Lines[i]
		if strings.TrimSpace(ln.OptionType) == "" || len(ln.OptionType) > 32 {
			return false, "invalid option_type"
		}
		if !IsNumberFormat(ln.Number) {
			return false, "number must be 1-3 digits"
		}
		if ln.Stake <= 0 {
			return false, "stake must be positive"
		}
	}
	return true, ""
}

// ParseAndValidatePlace 解析并校验购彩入参（购彩接口只接受 JSON，多注结构无法走表单）
func ParseAndValidatePlace(ctx *beegocontext.Context) (PlaceParsed, bool, string) {
	if !IsJSONContentType(ctx.Input.Header("Content-Type")) {
		return PlaceParsed{}, false, "content-type must be application/json"
	}
	out, ok, msg := ParsePlaceFromJSON(ctx)
	if !ok {
		return PlaceParsed{}, false, msg
	}
	if ok, msg := ValidatePlace(&out); !ok {
		return PlaceParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Result helpers --------

var (
	threeDigitRe = regexp.MustCompile(`^[0-9]{3}$`)
	twoDigitRe   = regexp.MustCompile(`^[0-9]{2}$`)
)

// ResultParsed 录入/改号入参
type ResultParsed struct {
	DrawId    string `json:"draw_id"`
	ThreeTop  string `json:"three_top"`
	TwoBottom string `json:"two_bottom"`
	Reason    string `json:"reason"` // 改号时必填
}

// ParseAndValidateResult 解析并校验开奖号码入参
// requireReason=true 用于改号接口（改号必须留痕原因）
func ParseAndValidateResult(ctx *beegocontext.Context, requireReason bool) (ResultParsed, bool, string) {
	var out ResultParsed
	if IsJSONContentType(ctx.Input.Header("Content-Type")) {
		if err := json.NewDecoder(jsonBodyReader(ctx)).Decode(&out); err != nil {
			return ResultParsed{}, false, "invalid json body"
		}
	} else {
		out.DrawId = ctx.Input.Query("draw_id")
		out.ThreeTop = ctx.Input.Query("three_top")
		out.TwoBottom = ctx.Input.Query("two_bottom")
		out.Reason = ctx.Input.Query("reason")
	}

	out.DrawId = strings.TrimSpace(out.DrawId)
	out.ThreeTop = strings.TrimSpace(out.ThreeTop)
	out.TwoBottom = strings.TrimSpace(out.TwoBottom)
	out.Reason = strings.TrimSpace(out.Reason)

	if out.DrawId == "" || len(out.DrawId) > 64 {
		return ResultParsed{}, false, "draw_id required"
	}
	if !threeDigitRe.MatchString(out.ThreeTop) {
		return ResultParsed{}, false, "three_top must be 3 digits"
	}
	if !twoDigitRe.MatchString(out.TwoBottom) {
		return ResultParsed{}, false, "two_bottom must be 2 digits"
	}
	if requireReason {
		if out.Reason == "" {
			return ResultParsed{}, false, "reason required for revise"
		}
		if len(out.Reason) > 255 {
			return ResultParsed{}, false, "reason too long"
		}
	}
	return out, true, ""
}
