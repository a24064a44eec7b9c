package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Mock 内存钱包，测试用。
// 行为与真实钱包契约一致：按幂等键去重，重放返回首次快照 + ErrAlreadyApplied。
type Mock struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal
	applied  map[string]*Balance

	// FailKeys 中的幂等键调用一次性失败（模拟网络/钱包故障），命中后自动移除
	FailKeys map[string]error

	// Calls 记录实际生效的调用次数（重放不计入）
	Calls int
}

// NewMock 构造内存钱包
func NewMock() *Mock {
	return &Mock{
		balances: make(map[int64]decimal.Decimal),
		applied:  make(map[string]*Balance),
		FailKeys: make(map[string]error),
	}
}

// SetBalance 预置会员余额
func (m *Mock) SetBalance(memberID int64, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[memberID] = decimal.NewFromFloat(v)
}

// BalanceOf 读取会员当前余额
func (m *Mock) BalanceOf(memberID int64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, _ := m.balances[memberID].Float64()
	return f
}

func (m *Mock) Credit(_ context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error) {
	return m.apply(memberID, amount, idemKey, false)
}

func (m *Mock) Debit(_ context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error) {
	return m.apply(memberID, amount.Neg(), idemKey, false)
}

func (m *Mock) ForceDebit(_ context.Context, memberID int64, amount decimal.Decimal, idemKey string) (*Balance, error) {
	return m.apply(memberID, amount.Neg(), idemKey, true)
}

func (m *Mock) apply(memberID int64, delta decimal.Decimal, idemKey string, allowNegative bool) (*Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.applied[idemKey]; ok {
		return prev, ErrAlreadyApplied
	}
	if err, ok := m.FailKeys[idemKey]; ok {
		delete(m.FailKeys, idemKey)
		return nil, err
	}

	before := m.balances[memberID]
	after := before.Add(delta)
	if after.IsNegative() && !allowNegative {
		return nil, ErrInsufficientFunds
	}
	m.balances[memberID] = after

	bf, _ := before.Round(2).Float64()
	af, _ := after.Round(2).Float64()
	bal := &Balance{MemberID: memberID, Before: bf, After: af}
	m.applied[idemKey] = bal
	m.Calls++
	return bal, nil
}
