package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// 钱包服务是独立部署的外部协作方，会员余额归它所有。
// 这里只建模结算/冲正所依赖的契约：带幂等键的原子加扣款。

// Balance 单次账变后的余额快照
type Balance struct {
	MemberID int64   `json:"member_id"`
	Before   float64 `json:"balance_before"`
	After    float64 `json:"balance_after"`
}

// Ledger 余额账本契约
// 所有调用以 idempotencyKey 保证重放安全：同一个键重复提交只生效一次，
// 重放时返回首次生效的余额快照并带 ErrAlreadyApplied。
type Ledger interface {
	// Credit 加款（派彩）
	Credit(ctx context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error)
	// Debit 扣款（购彩/撤单场景），余额不足返回 ErrInsufficientFunds
	Debit(ctx context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error)
	// ForceDebit 冲正专用扣款：允许把余额扣成负数。
	// 改号冲正必须回收已派彩金额，即使会员已把钱提走；负余额挂账由运营追收。
	ForceDebit(ctx context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error)
}

var (
	// ErrAlreadyApplied 幂等键已生效过；返回值中的余额快照为首次生效时的快照
	ErrAlreadyApplied = errors.New("wallet: idempotency key already applied")
	// ErrInsufficientFunds 余额不足（仅普通 Debit 会返回）
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
)

// Applied 判断调用是否已生效（首次成功或幂等重放都算生效）
func Applied(err error) bool {
	return err == nil || errors.Is(err, ErrAlreadyApplied)
}
