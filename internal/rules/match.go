package rules

import (
	"errors"
	"regexp"
	"sort"
	"strings"
)

// 玩法类型（入库与对外 JSON 统一使用这些小写编码）
const (
	OptionTengBon3  = "teng_bon_3"  // 3ตัวบน 三字直选
	OptionTode3     = "tode_3"      // โต๊ด 三字组选（任意排列）
	OptionTengBon2  = "teng_bon_2"  // 2ตัวบน 二字上
	OptionTengLang2 = "teng_lang_2" // 2ตัวล่าง 二字下
	OptionWingBon   = "wing_bon"    // วิ่งบน 上跑（单数字命中三字上任一位）
	OptionWingLang  = "wing_lang"   // วิ่งล่าง 下跑（单数字命中二字下任一位）
)

// Matcher 判断投注号码是否命中该玩法的开奖号码
// betNumber 为会员投注的号码，winning 为该玩法对应的开奖号码
type Matcher func(betNumber, winning string) bool

// 每种玩法一个匹配谓词，新增玩法通过 Register 挂载
var registry = map[string]Matcher{
	OptionTengBon3:  matchExact,
	OptionTode3:     matchTode,
	OptionTengBon2:  matchExact,
	OptionTengLang2: matchExact,
	OptionWingBon:   matchWing,
	OptionWingLang:  matchWing,
}

// 每种玩法的号码位数要求（投注入参校验用）
var numberLen = map[string]int{
	OptionTengBon3:  3,
	OptionTode3:     3,
	OptionTengBon2:  2,
	OptionTengLang2: 2,
	OptionWingBon:   1,
	OptionWingLang:  1,
}

var (
	ErrUnknownOption = errors.New("unknown option type")

	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

// Register 挂载或覆盖一个玩法的匹配谓词
func Register(optionType string, wantLen int, m Matcher) {
	registry[optionType] = m
	numberLen[optionType] = wantLen
}

// ForOption 取玩法的匹配谓词
func ForOption(optionType string) (Matcher, bool) {
	m, ok := registry[optionType]
	return m, ok
}

// KnownOption 判断玩法编码是否已注册
func KnownOption(optionType string) bool {
	_, ok := registry[optionType]
	return ok
}

// Options 返回全部已注册玩法编码（字典序）
func Options() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidateNumber 校验投注号码：纯数字且位数匹配玩法要求
func ValidateNumber(optionType, number string) error {
	want, ok := numberLen[optionType]
	if !ok {
		return ErrUnknownOption
	}
	n := strings.TrimSpace(number)
	if len(n) != want || !digitsRe.MatchString(n) {
		return errors.New("invalid number for " + optionType)
	}
	return nil
}

// Match 判断投注是否命中；未注册玩法一律判负，由上游在录入时拦截
func Match(optionType, betNumber, winning string) bool {
	m, ok := registry[optionType]
	if !ok {
		return false
	}
	return m(strings.TrimSpace(betNumber), strings.TrimSpace(winning))
}

// matchExact 直选：号码完全一致
func matchExact(betNumber, winning string) bool {
	return betNumber != "" && betNumber == winning
}

// matchTode 组选：位数相同且数字多重集一致（"123" 命中 "321"/"213"...）
func matchTode(betNumber, winning string) bool {
	if len(betNumber) != len(winning) || betNumber == "" {
		return false
	}
	return sortDigits(betNumber) == sortDigits(winning)
}

// matchWing 跑号：单个数字出现在开奖号码的任一位
func matchWing(betNumber, winning string) bool {
	if len(betNumber) != 1 || winning == "" {
		return false
	}
	return strings.Contains(winning, betNumber)
}

func sortDigits(s string) string {
	b := []byte(s)
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b)
}

// DeriveResultSet 由管理员录入的三字上/二字下号码推导各玩法的开奖号码
// 三字直选/组选/上跑取 threeTop，二字上取 threeTop 末两位，二字下/下跑取 twoBottom
func DeriveResultSet(threeTop, twoBottom string) (map[string]string, error) {
	threeTop = strings.TrimSpace(threeTop)
	twoBottom = strings.TrimSpace(twoBottom)
	if len(threeTop) != 3 || !digitsRe.MatchString(threeTop) {
		return nil, errors.New("three_top must be 3 digits")
	}
	if len(twoBottom) != 2 || !digitsRe.MatchString(twoBottom) {
		return nil, errors.New("two_bottom must be 2 digits")
	}
	return map[string]string{
		OptionTengBon3:  threeTop,
		OptionTode3:     threeTop,
		OptionTengBon2:  threeTop[1:],
		OptionTengLang2: twoBottom,
		OptionWingBon:   threeTop,
		OptionWingLang:  twoBottom,
	}, nil
}
