package service

import (
	"testing"

	"huay-server/internal/rules"

	"github.com/stretchr/testify/assert"
)

func TestReversalsOutstanding(t *testing.T) {
	assert.False(t, reversalsOutstanding(0, 0))

	// 任务失败但还没到搁置线：pending 非零同样拦住重结算，
	// 否则这条任务会被甩在 pending 里永远没人回收
	assert.True(t, reversalsOutstanding(1, 0))
	assert.True(t, reversalsOutstanding(0, 1))
	assert.True(t, reversalsOutstanding(2, 3))
}

func TestReopenOnlyLinesWinningUnderNewResult(t *testing.T) {
	oldResults, err := rules.DeriveResultSet("481", "26")
	assert.NoError(t, err)
	newResults, err := rules.DeriveResultSet("123", "45")
	assert.NoError(t, err)

	// 旧版本判负、新号码下能中奖：需要重开重结
	affected := line(rules.OptionTengBon3, "123", 100, 850)
	if won, _ := computeOutcome(affected, oldResults); won {
		t.Fatal("line should lose under old result")
	}
	won, _ := computeOutcome(affected, newResults)
	assert.True(t, won)

	// 两个版本下都不中：维持原判，不重开
	untouched := line(rules.OptionTengBon3, "999", 100, 850)
	won, _ = computeOutcome(untouched, oldResults)
	assert.False(t, won)
	won, _ = computeOutcome(untouched, newResults)
	assert.False(t, won)
}
