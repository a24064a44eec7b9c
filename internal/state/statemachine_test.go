package state

import "testing"

func TestHappyPath(t *testing.T) {
	cur := StatusOpen
	steps := []struct {
		evt  string
		want int8
	}{
		{EvtClose, StatusClosed},
		{EvtSubmitResult, StatusResulted},
		{EvtSettle, StatusSettled},
		{EvtRevise, StatusRevising},
		{EvtSettle, StatusSettled},
	}
	for _, s := range steps {
		next, err := Next(cur, s.evt)
		if err != nil {
			t.Fatalf("%s --%s-->: %v", Name(cur), s.evt, err)
		}
		if next != s.want {
			t.Fatalf("%s --%s--> got %s want %s", Name(cur), s.evt, Name(next), Name(s.want))
		}
		cur = next
	}
}

func TestInvalidTransitions(t *testing.T) {
	bad := []struct {
		cur int8
		evt string
	}{
		{StatusOpen, EvtSettle},
		{StatusOpen, EvtSubmitResult},
		{StatusClosed, EvtClose},
		{StatusClosed, EvtSettle},
		{StatusResulted, EvtSubmitResult},
		{StatusResulted, EvtRevise}, // 改号必须在结算之后
		{StatusSettled, EvtClose},
		{StatusSettled, EvtSubmitResult},
		{StatusRevising, EvtRevise}, // 冲正未走完不能再次改号
	}
	for _, c := range bad {
		if _, err := Next(c.cur, c.evt); err == nil {
			t.Fatalf("%s --%s--> should be rejected", Name(c.cur), c.evt)
		}
	}
}

func TestSettleOnSettledIsSelfTransition(t *testing.T) {
	// 已结算的期允许再次收到 settle：状态原地不动，由结算日志返回历史汇总
	next, err := Next(StatusSettled, EvtSettle)
	if err != nil {
		t.Fatalf("settled --settle-->: %v", err)
	}
	if next != StatusSettled {
		t.Fatalf("got %s want settled", Name(next))
	}
}

func TestRevisionDoneReturnsToSettled(t *testing.T) {
	next, err := Next(StatusRevising, EvtRevisionDone)
	if err != nil {
		t.Fatalf("revision_done: %v", err)
	}
	if next != StatusSettled {
		t.Fatalf("got %s want settled", Name(next))
	}
}

func TestCanAndName(t *testing.T) {
	if !Can(StatusOpen, EvtClose) {
		t.Fatal("open should accept close")
	}
	if Can(StatusOpen, EvtRevise) {
		t.Fatal("open should not accept revise")
	}
	if Name(99) != "unknown" {
		t.Fatal("unknown status name")
	}
}
