package common

import (
	"time"
)

// 获取某天的0点0分0秒的时间戳（泰国时区，开奖日期按曼谷时间归属）
func GetDataTimeUnix(input time.Time) int64 {
	location, _ := time.LoadLocation("Asia/Bangkok")

	year, month, day := input.In(location).Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, location)

	return midnight.Unix()
}

// 获取当天 00:00:00 和 第二天 00:00:00
func GetTodayRange(t time.Time) (start, end int64) {
	loc, _ := time.LoadLocation("Asia/Bangkok")
	year, month, day := t.In(loc).Date()

	startTime := time.Date(year, month, day, 0, 0, 0, 0, loc)
	endTime := startTime.AddDate(0, 0, 1) // +1 天

	return startTime.Unix(), endTime.Unix()
}

// 获取当月第一天 00:00:00 和 下个月第一天 00:00:00（报表月汇总用）
func GetMonthRange(t time.Time) (start, end int64) {
	loc, _ := time.LoadLocation("Asia/Bangkok")
	t = t.In(loc)

	year, month, _ := t.Date()
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	nextMonth := firstDay.AddDate(0, 1, 0)

	return firstDay.Unix(), nextMonth.Unix()
}

// ParseDrawDate 解析 yyyy-MM-dd 的期号日期（曼谷时区），失败返回零值
func ParseDrawDate(s string) time.Time {
	loc, _ := time.LoadLocation("Asia/Bangkok")
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
