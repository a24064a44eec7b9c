package service

import (
	"testing"

	"huay-server/internal/model"
	"huay-server/internal/rules"

	"github.com/stretchr/testify/assert"
)

func line(optionType, number string, stake, multiplier float64) *model.BetLine {
	return &model.BetLine{OptionType: optionType, Number: number, Stake: stake, Multiplier: multiplier}
}

func TestComputeOutcomeWin(t *testing.T) {
	results, err := rules.DeriveResultSet("481", "26")
	assert.NoError(t, err)

	won, payout := computeOutcome(line(rules.OptionTengBon3, "481", 100, 900), results)
	assert.True(t, won)
	assert.Equal(t, 90000.0, payout)

	won, payout = computeOutcome(line(rules.OptionTode3, "148", 20, 150), results)
	assert.True(t, won)
	assert.Equal(t, 3000.0, payout)

	won, payout = computeOutcome(line(rules.OptionWingLang, "6", 10, 4.2), results)
	assert.True(t, won)
	assert.Equal(t, 42.0, payout)

	// 三上直选 100 注 850 倍率
	results123, err := rules.DeriveResultSet("123", "45")
	assert.NoError(t, err)
	won, payout = computeOutcome(line(rules.OptionTengBon3, "123", 100, 850), results123)
	assert.True(t, won)
	assert.Equal(t, 85000.0, payout)
}

func TestComputeOutcomeLose(t *testing.T) {
	results, _ := rules.DeriveResultSet("481", "26")

	won, payout := computeOutcome(line(rules.OptionTengBon3, "148", 100, 900), results)
	assert.False(t, won)
	assert.Zero(t, payout)

	won, payout = computeOutcome(line(rules.OptionWingBon, "5", 10, 3.2), results)
	assert.False(t, won)
	assert.Zero(t, payout)
}

func TestComputeOutcomeRoundsPayout(t *testing.T) {
	results, _ := rules.DeriveResultSet("481", "26")

	// 10.55 × 3.33 = 35.1315 -> 35.13
	won, payout := computeOutcome(line(rules.OptionTengLang2, "26", 10.55, 3.33), results)
	assert.True(t, won)
	assert.Equal(t, 35.13, payout)
}

func TestComputeOutcomeMissingOptionLoses(t *testing.T) {
	// 结果集中没有该玩法对应号码时判负，不派彩
	results := map[string]string{rules.OptionTengBon3: "481"}
	won, payout := computeOutcome(line(rules.OptionTengLang2, "26", 10, 4), results)
	assert.False(t, won)
	assert.Zero(t, payout)
}

func TestSameResults(t *testing.T) {
	a, _ := rules.DeriveResultSet("481", "26")
	b, _ := rules.DeriveResultSet("481", "26")
	assert.True(t, sameResults(a, b))

	c, _ := rules.DeriveResultSet("481", "27")
	assert.False(t, sameResults(a, c))

	d, _ := rules.DeriveResultSet("482", "26")
	assert.False(t, sameResults(a, d))

	assert.False(t, sameResults(a, map[string]string{}))
}
