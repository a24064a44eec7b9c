package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"huay-server/common/logger"

	pkgerr "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// 钱包 HTTP 客户端超时配置
const (
	walletTimeout = 5 * time.Second
	maxAttempts   = 3 // 网络类错误重试次数（幂等键保证重试安全）
)

// 全局优化的HTTP客户端，支持连接复用
var walletClient = &fasthttp.Client{
	ReadTimeout:                   walletTimeout,
	WriteTimeout:                  walletTimeout,
	MaxIdleConnDuration:           90 * time.Second,
	MaxConnsPerHost:               100,
	MaxConnWaitTimeout:            3 * time.Second,
	DisableHeaderNamesNormalizing: true,
}

// HTTPLedger 通过钱包服务 HTTP API 实现 Ledger 契约
type HTTPLedger struct {
	BaseURL string // 形如 http://wallet-svc:8080
	APIKey  string // 服务间调用凭证
}

// NewHTTPLedger 构造 HTTP 钱包客户端
func NewHTTPLedger(baseURL, apiKey string) *HTTPLedger {
	return &HTTPLedger{BaseURL: baseURL, APIKey: apiKey}
}

// 钱包服务请求/响应体（snake_case 与钱包侧约定一致）
type walletReq struct {
	MemberID       int64  `json:"member_id"`
	Amount         string `json:"amount"` // 字符串金额，避免浮点精度问题
	IdempotencyKey string `json:"idempotency_key"`
	AllowNegative  bool   `json:"allow_negative,omitempty"`
}

type walletResp struct {
	Code    int    `json:"code"` // 0=成功 1=幂等重放 2007=余额不足
	Message string `json:"message"`
	Data    struct {
		MemberID      int64   `json:"member_id"`
		BalanceBefore float64 `json:"balance_before"`
		BalanceAfter  float64 `json:"balance_after"`
	} `json:"data"`
}

const (
	walletCodeOK             = 0
	walletCodeReplayed       = 1
	walletCodeInsufficient   = 2007
)

func (c *HTTPLedger) Credit(ctx context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error) {
	return c.call(ctx, "/api/wallet/credit", walletReq{
		MemberID: memberID, Amount: amount.StringFixed(2), IdempotencyKey: idemKey,
	})
}

func (c *HTTPLedger) Debit(ctx context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error) {
	return c.call(ctx, "/api/wallet/debit", walletReq{
		MemberID: memberID, Amount: amount.StringFixed(2), IdempotencyKey: idemKey,
	})
}

func (c *HTTPLedger) ForceDebit(ctx context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error) {
	return c.call(ctx, "/api/wallet/debit", walletReq{
		MemberID: memberID, Amount: amount.StringFixed(2), IdempotencyKey: idemKey,
		AllowNegative: true,
	})
}

// call 发起一次钱包调用；网络类错误带退避重试，业务错误直接返回
func (c *HTTPLedger) call(ctx context.Context, path string, body walletReq) (*Balance, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerr.WithStack(err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		respBytes, status, err := c.doTimeout(payload, c.BaseURL+path)
		if err != nil {
			lastErr = err
			logger.Warn("wallet call failed, will retry",
				zap.String("path", path),
				zap.String("idem_key", body.IdempotencyKey),
				zap.Int("attempt", attempt),
				zap.Error(err))
			// 退避：100ms, 200ms
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}
		if status != 200 {
			lastErr = fmt.Errorf("wallet http status %d", status)
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}

		var out walletResp
		if err := json.Unmarshal(respBytes, &out); err != nil {
			return nil, pkgerr.WithStack(err)
		}
		bal := &Balance{MemberID: out.Data.MemberID, Before: out.Data.BalanceBefore, After: out.Data.BalanceAfter}
		switch out.Code {
		case walletCodeOK:
			return bal, nil
		case walletCodeReplayed:
			return bal, ErrAlreadyApplied
		case walletCodeInsufficient:
			return nil, ErrInsufficientFunds
		default:
			return nil, fmt.Errorf("wallet error: code=%d message=%s", out.Code, out.Message)
		}
	}
	return nil, lastErr
}

// doTimeout 复用连接的单次 POST
func (c *HTTPLedger) doTimeout(requestBody []byte, requestURI string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()

	req.SetRequestURI(requestURI)
	req.Header.SetMethod("POST")
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	req.SetBody(requestBody)

	err := walletClient.DoTimeout(req, resp, walletTimeout)

	var respBytes []byte
	statusCode := 0
	if err == nil {
		respBytes = append(respBytes, resp.Body()...)
		statusCode = resp.StatusCode()
	}

	return respBytes, statusCode, pkgerr.WithStack(err)
}
