package state

import (
	"fmt"

	"huay-server/common/constant"
)

// 期号状态：码值唯一出处是 common/constant，这里只是带类型的别名
const (
	StatusOpen     int8 = constant.DrawStatusOpen     // 开放投注
	StatusClosed   int8 = constant.DrawStatusClosed   // 已封盘
	StatusResulted int8 = constant.DrawStatusResulted // 已录入开奖号码
	StatusSettled  int8 = constant.DrawStatusSettled  // 已结算
	StatusRevising int8 = constant.DrawStatusRevising // 改号冲正中
)

// 期号事件
const (
	EvtClose        = "close"
	EvtSubmitResult = "submit_result"
	EvtSettle       = "settle"
	EvtRevise       = "revise"
	EvtRevisionDone = "revision_done"
)

var names = map[int8]string{
	StatusOpen:     "open",
	StatusClosed:   "closed",
	StatusResulted: "resulted",
	StatusSettled:  "settled",
	StatusRevising: "revising",
}

// Name 返回状态码的可读名，未知状态返回 unknown
func Name(s int8) string {
	if n, ok := names[s]; ok {
		return n
	}
	return "unknown"
}

// Next 根据当前状态与事件计算下一个状态，非法转换报错
// 改号（revise）仅允许在已结算后发起；冲正清单清空后重结算回到 settled
func Next(cur int8, evt string) (int8, error) {
	switch cur {
	case StatusOpen:
		if evt == EvtClose {
			return StatusClosed, nil
		}
	case StatusClosed:
		if evt == EvtSubmitResult {
			return StatusResulted, nil
		}
	case StatusResulted:
		if evt == EvtSettle {
			return StatusSettled, nil
		}
	case StatusSettled:
		if evt == EvtRevise {
			return StatusRevising, nil
		}
		// 重复结算请求放行为自环，结算日志唯一键兜底返回历史汇总
		if evt == EvtSettle {
			return StatusSettled, nil
		}
	case StatusRevising:
		// 冲正中的期号允许直接重结算（冲正清单清空后）
		if evt == EvtSettle || evt == EvtRevisionDone {
			return StatusSettled, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", Name(cur), evt)
}

// Can 判断当前状态下能否触发事件
func Can(cur int8, evt string) bool {
	_, err := Next(cur, evt)
	return err == nil
}
