package service

import (
	"context"
	"errors"
	"testing"

	"huay-server/internal/wallet"

	decimal "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPlaceDebitKeyDerivedFromClientKey(t *testing.T) {
	assert.Equal(t, "idem-abc@place", placeDebitKey("idem-abc"))

	// 单号每次尝试都重新生成，扣款键不跟着变
	a := generatePoyNo(10001)
	b := generatePoyNo(10001)
	assert.NotEqual(t, a, b)
	assert.Equal(t, placeDebitKey("idem-abc"), placeDebitKey("idem-abc"))

	assert.Equal(t, "HY123@cancel", cancelRefundKey("HY123"))
}

func TestPlaceDebitReplaySafeAcrossRetries(t *testing.T) {
	// 模拟事务提交失败后的客户端重试：幂等键不变，钱包只扣一次
	m := wallet.NewMock()
	m.SetBalance(1, 500)

	key := placeDebitKey("idem-retry-1")
	bal, err := m.Debit(context.Background(), 1, decimal.NewFromFloat(200), key)
	assert.NoError(t, err)
	assert.Equal(t, 300.0, bal.After)

	_, err = m.Debit(context.Background(), 1, decimal.NewFromFloat(200), key)
	assert.True(t, errors.Is(err, wallet.ErrAlreadyApplied))
	assert.Equal(t, 1, m.Calls)
	assert.Equal(t, 300.0, m.BalanceOf(1))
}
