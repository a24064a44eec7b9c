package service

import (
	"testing"

	"huay-server/internal/model"
	"huay-server/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tier(id int64, min, max, multiplier float64) model.HuayConfig {
	return model.HuayConfig{
		ID: id, LotteryID: "government", OptionType: rules.OptionTengBon3,
		MinPrice: min, MaxPrice: max, Multiplier: multiplier, Status: 1,
	}
}

func TestResolveTierPicksMatchingRange(t *testing.T) {
	configs := []model.HuayConfig{
		tier(1, 1, 100, 900),
		tier(2, 101, 1000, 850),
	}

	got, err := ResolveTier(configs, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	got, err = ResolveTier(configs, 500, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)

	// 区间边界含两端
	got, err = ResolveTier(configs, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	got, err = ResolveTier(configs, 101, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestResolveTierFallsBackToDefault(t *testing.T) {
	def := tier(9, 0.01, 999999, 800)
	def.IsDefault = 1
	configs := []model.HuayConfig{tier(1, 1, 100, 900), def}

	got, err := ResolveTier(configs, 5000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)

	// 分层档命中优先于默认档
	got, err = ResolveTier(configs, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestResolveTierNoMatch(t *testing.T) {
	configs := []model.HuayConfig{tier(1, 1, 100, 900)}
	_, err := ResolveTier(configs, 5000, 0)
	assert.ErrorIs(t, err, ErrConfigMissing)

	_, err = ResolveTier(nil, 10, 0)
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestResolveTierSkipsDisabledAndExpired(t *testing.T) {
	disabled := tier(1, 1, 100, 900)
	disabled.Status = 2
	notYet := tier(2, 1, 100, 880)
	notYet.EffectiveFrom = 2000
	expired := tier(3, 1, 100, 870)
	expired.EffectiveTo = 500
	live := tier(4, 1, 100, 860)
	live.EffectiveFrom = 100
	live.EffectiveTo = 9000

	configs := []model.HuayConfig{disabled, notYet, expired, live}
	got, err := ResolveTier(configs, 50, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.ID)
}

func TestResolveTierExpiredDefaultIgnored(t *testing.T) {
	def := tier(9, 0.01, 999999, 800)
	def.IsDefault = 1
	def.EffectiveTo = 500
	configs := []model.HuayConfig{def}
	_, err := ResolveTier(configs, 10, 1000)
	assert.ErrorIs(t, err, ErrConfigMissing)
}
