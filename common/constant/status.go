package constant

// 注单状态（bet_line.status）
const (
	BetStatusPending   = 1 // 待结算
	BetStatusWon       = 2 // 已中奖
	BetStatusLost      = 3 // 未中奖
	BetStatusCancelled = 4 // 已取消（终态，不参与结算）
)

// 彩票单状态（bet_group.status）
const (
	PoyStatusActive    = 1 // 有效
	PoyStatusCancelled = 2 // 已取消（结算前撤单）
)

// 期号状态（draw_round.status）
const (
	DrawStatusOpen     = 1 // 开放投注
	DrawStatusClosed   = 2 // 已封盘
	DrawStatusResulted = 3 // 已录入开奖号码
	DrawStatusSettled  = 4 // 已结算
	DrawStatusRevising = 5 // 改号冲正中
)

// 赔率配置状态（huay_config.status）
const (
	ConfigStatusActive   = 1 // 生效
	ConfigStatusDisabled = 2 // 停用
)

// 冲正/补发任务状态（reverse_task / credit_task.status）
const (
	TaskStatusPending = 1 // 待处理
	TaskStatusDone    = 2 // 已完成
	TaskStatusParked  = 3 // 重试耗尽，人工介入
)

// BetStatusDesc 注单状态描述（对外 JSON 统一小写字符串）
var BetStatusDesc = map[int8]string{
	BetStatusPending:   "pending",
	BetStatusWon:       "won",
	BetStatusLost:      "lost",
	BetStatusCancelled: "cancelled",
}

// BetStatusString 返回注单状态字符串（未知返回空串）
func BetStatusString(s int8) string { return BetStatusDesc[s] }
