package helper

import (
	"testing"
)

func TestIsMoneyFormat(t *testing.T) {
	ok := []string{"0", "1", "10", "10.5", "10.55", "999999.99", " 20 "}
	for _, s := range ok {
		if !IsMoneyFormat(s) {
			t.Fatalf("%q should be valid money", s)
		}
	}
	bad := []string{"", "-1", "01", "1.", "1.555", "1,000", "abc", "0x10"}
	for _, s := range bad {
		if IsMoneyFormat(s) {
			t.Fatalf("%q should be rejected", s)
		}
	}
}

func TestIsNumberFormat(t *testing.T) {
	ok := []string{"0", "26", "481", " 7 "}
	for _, s := range ok {
		if !IsNumberFormat(s) {
			t.Fatalf("%q should be valid number", s)
		}
	}
	bad := []string{"", "4811", "-1", "4a", "4.1"}
	for _, s := range bad {
		if IsNumberFormat(s) {
			t.Fatalf("%q should be rejected", s)
		}
	}
}

func TestValidatePlace(t *testing.T) {
	valid := PlaceParsed{
		DrawId:         "huay-20260901",
		MemberId:       1001,
		IdempotencyKey: "idem-1",
		Lines: []PlaceLineParsed{
			{OptionType: "teng_bon_3", Number: "481", Stake: 100},
			{OptionType: "wing_lang", Number: "6", Stake: 10},
		},
	}
	if ok, msg := ValidatePlace(&valid); !ok {
		t.Fatalf("valid place rejected: %s", msg)
	}

	missingKey := valid
	missingKey.IdempotencyKey = ""
	if ok, _ := ValidatePlace(&missingKey); ok {
		t.Fatal("missing idempotency_key should be rejected")
	}

	badStake := valid
	badStake.Lines = []PlaceLineParsed{{OptionType: "teng_bon_3", Number: "481", Stake: 0}}
	if ok, _ := ValidatePlace(&badStake); ok {
		t.Fatal("zero stake should be rejected")
	}

	badNumber := valid
	badNumber.Lines = []PlaceLineParsed{{OptionType: "teng_bon_3", Number: "4811", Stake: 10}}
	if ok, _ := ValidatePlace(&badNumber); ok {
		t.Fatal("4-digit number should be rejected")
	}

	tooMany := valid
	tooMany.Lines = make([]PlaceLineParsed, 201)
	for i := range tooMany.Lines {
		tooMany.Lines[i] = PlaceLineParsed{OptionType: "wing_bon", Number: "1", Stake: 1}
	}
	if ok, _ := ValidatePlace(&tooMany); ok {
		t.Fatal("more than 200 lines should be rejected")
	}
}
