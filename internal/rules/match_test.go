package rules

import (
	"testing"
)

func TestDeriveResultSet(t *testing.T) {
	rs, err := DeriveResultSet("481", "26")
	if err != nil {
		t.Fatalf("derive error: %v", err)
	}
	want := map[string]string{
		OptionTengBon3:  "481",
		OptionTode3:     "481",
		OptionTengBon2:  "81",
		OptionTengLang2: "26",
		OptionWingBon:   "481",
		OptionWingLang:  "26",
	}
	for k, v := range want {
		if rs[k] != v {
			t.Fatalf("option %s: got %s want %s", k, rs[k], v)
		}
	}
}

func TestDeriveResultSetRejectsBadInput(t *testing.T) {
	cases := [][2]string{
		{"48", "26"},   // three_top 位数不足
		{"4811", "26"}, // three_top 位数超长
		{"48a", "26"},  // 非数字
		{"481", "2"},   // two_bottom 位数不足
		{"481", "2x"},  // 非数字
		{"", ""},
	}
	for _, c := range cases {
		if _, err := DeriveResultSet(c[0], c[1]); err == nil {
			t.Fatalf("expected error for three_top=%q two_bottom=%q", c[0], c[1])
		}
	}
}

func TestMatchExact(t *testing.T) {
	if !Match(OptionTengBon3, "481", "481") {
		t.Fatal("teng_bon_3 exact should win")
	}
	if Match(OptionTengBon3, "148", "481") {
		t.Fatal("teng_bon_3 permutation should lose")
	}
	if !Match(OptionTengLang2, "26", "26") {
		t.Fatal("teng_lang_2 exact should win")
	}
	if Match(OptionTengBon2, "18", "81") {
		t.Fatal("teng_bon_2 reversed should lose")
	}
}

func TestMatchTode(t *testing.T) {
	for _, bet := range []string{"481", "148", "814", "841", "418", "184"} {
		if !Match(OptionTode3, bet, "481") {
			t.Fatalf("tode_3 %s vs 481 should win", bet)
		}
	}
	if Match(OptionTode3, "482", "481") {
		t.Fatal("tode_3 different digits should lose")
	}
	// 多重集必须一致：112 与 122 不同
	if Match(OptionTode3, "112", "122") {
		t.Fatal("tode_3 multiset mismatch should lose")
	}
	if !Match(OptionTode3, "211", "112") {
		t.Fatal("tode_3 same multiset should win")
	}
}

func TestMatchWing(t *testing.T) {
	if !Match(OptionWingBon, "4", "481") {
		t.Fatal("wing_bon digit present should win")
	}
	if Match(OptionWingBon, "5", "481") {
		t.Fatal("wing_bon digit absent should lose")
	}
	if !Match(OptionWingLang, "6", "26") {
		t.Fatal("wing_lang digit present should win")
	}
	if Match(OptionWingLang, "26", "26") {
		t.Fatal("wing bets must be a single digit")
	}
}

func TestMatchUnknownOption(t *testing.T) {
	if Match("no_such_option", "1", "1") {
		t.Fatal("unknown option must lose")
	}
}

func TestValidateNumber(t *testing.T) {
	ok := [][2]string{
		{OptionTengBon3, "000"},
		{OptionTode3, "987"},
		{OptionTengBon2, "00"},
		{OptionTengLang2, "26"},
		{OptionWingBon, "7"},
		{OptionWingLang, "0"},
	}
	for _, c := range ok {
		if err := ValidateNumber(c[0], c[1]); err != nil {
			t.Fatalf("%s %s should validate: %v", c[0], c[1], err)
		}
	}
	bad := [][2]string{
		{OptionTengBon3, "48"},
		{OptionTengBon3, "4812"},
		{OptionTengBon2, "2"},
		{OptionWingBon, "12"},
		{OptionWingBon, "a"},
		{OptionTengLang2, "-1"},
	}
	for _, c := range bad {
		if err := ValidateNumber(c[0], c[1]); err == nil {
			t.Fatalf("%s %s should be rejected", c[0], c[1])
		}
	}
	if err := ValidateNumber("no_such_option", "123"); err != ErrUnknownOption {
		t.Fatalf("want ErrUnknownOption, got %v", err)
	}
}

func TestRegisterCustomOption(t *testing.T) {
	Register("teng_lang_3", 3, func(bet, winning string) bool { return bet == winning })
	defer func() {
		delete(registry, "teng_lang_3")
		delete(numberLen, "teng_lang_3")
	}()

	if !KnownOption("teng_lang_3") {
		t.Fatal("registered option should be known")
	}
	if err := ValidateNumber("teng_lang_3", "123"); err != nil {
		t.Fatalf("registered option should validate: %v", err)
	}
	if !Match("teng_lang_3", "123", "123") {
		t.Fatal("registered matcher should be used")
	}
}
