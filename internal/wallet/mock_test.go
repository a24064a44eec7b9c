package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockDebitCredit(t *testing.T) {
	m := NewMock()
	m.SetBalance(7, 100)
	ctx := context.Background()

	bal, err := m.Debit(ctx, 7, decimal.NewFromInt(40), "k1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, bal.Before)
	assert.Equal(t, 60.0, bal.After)

	bal, err = m.Credit(ctx, 7, decimal.NewFromInt(15), "k2")
	require.NoError(t, err)
	assert.Equal(t, 75.0, bal.After)
	assert.Equal(t, 75.0, m.BalanceOf(7))
}

func TestMockIdempotentReplay(t *testing.T) {
	m := NewMock()
	m.SetBalance(7, 100)
	ctx := context.Background()

	first, err := m.Debit(ctx, 7, decimal.NewFromInt(40), "same-key")
	require.NoError(t, err)

	// 同一个幂等键重放：余额不再变化，返回首次快照并带哨兵错误
	replay, err := m.Debit(ctx, 7, decimal.NewFromInt(40), "same-key")
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, first.After, replay.After)
	assert.Equal(t, 60.0, m.BalanceOf(7))
	assert.Equal(t, 1, m.Calls)

	assert.True(t, Applied(err))
}

func TestMockInsufficientFunds(t *testing.T) {
	m := NewMock()
	m.SetBalance(7, 30)
	ctx := context.Background()

	_, err := m.Debit(ctx, 7, decimal.NewFromInt(40), "k1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 30.0, m.BalanceOf(7))
	assert.False(t, Applied(err))
}

func TestMockForceDebitAllowsNegative(t *testing.T) {
	m := NewMock()
	m.SetBalance(7, 30)
	ctx := context.Background()

	// 冲正回收允许扣负，负余额挂账
	bal, err := m.ForceDebit(ctx, 7, decimal.NewFromInt(100), "reverse-key")
	require.NoError(t, err)
	assert.Equal(t, -70.0, bal.After)
	assert.Equal(t, -70.0, m.BalanceOf(7))
}

func TestMockFailKeys(t *testing.T) {
	m := NewMock()
	m.SetBalance(7, 100)
	ctx := context.Background()

	boom := errors.New("wallet down")
	m.FailKeys["k1"] = boom

	_, err := m.Debit(ctx, 7, decimal.NewFromInt(10), "k1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 100.0, m.BalanceOf(7))

	// 故障注入一次性生效，重试成功
	bal, err := m.Debit(ctx, 7, decimal.NewFromInt(10), "k1")
	require.NoError(t, err)
	assert.Equal(t, 90.0, bal.After)
}
