package period

import "time"

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// Clock 时钟抽象，所有“今天”判断都经过它，测试时可注入固定时间
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock 固定时钟，测试用
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// Window 连续的日历周期（周或月），Start/End 均为当天零点，闭区间
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Key 周期身份标识，跨年度扫描去重用
func (w Window) Key() string {
	return w.Start.Format(DateLayout) + "|" + w.End.Format(DateLayout)
}

// StartDate 起始日期字符串
func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate 结束日期字符串
func (w Window) EndDate() string {
	return w.End.Format(DateLayout)
}

// Contains 判断日期是否落在周期内
func (w Window) Contains(t time.Time) bool {
	d := Normalize(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Normalize 归一化到当天零点（本地时区）
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart 返回 date 所在或之前最近的周日（周以周日为首日）
func WeekStart(date time.Time) time.Time {
	d := Normalize(date)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekEnd 返回所在周的周六
func WeekEnd(date time.Time) time.Time {
	return WeekStart(date).AddDate(0, 0, 6)
}

// WeekOf 返回 date 所在的周窗口
func WeekOf(date time.Time) Window {
	start := WeekStart(date)
	return Window{Start: start, End: start.AddDate(0, 0, 6)}
}

// MonthStart 返回所在月的 1 号
func MonthStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// MonthEnd 返回所在月的最后一天
func MonthEnd(date time.Time) time.Time {
	return MonthStart(date).AddDate(0, 1, -1)
}

// MonthOf 返回 date 所在的月窗口
func MonthOf(date time.Time) Window {
	return Window{Start: MonthStart(date), End: MonthEnd(date)}
}

// IsPast 判断周期是否已完整结束（严格早于 today）。
// 包含 today 或在未来的周期数据不完整，不允许生成汇总。
func IsPast(w Window, today time.Time) bool {
	return w.End.Before(Normalize(today))
}

// LastElapsedWeek 返回 today 之前最近一个完整结束的周
func LastElapsedWeek(today time.Time) Window {
	w := WeekOf(today)
	return Window{Start: w.Start.AddDate(0, 0, -7), End: w.End.AddDate(0, 0, -7)}
}

// LastElapsedMonth 返回 today 之前最近一个完整结束的月
func LastElapsedMonth(today time.Time) Window {
	prev := MonthStart(today).AddDate(0, -1, 0)
	return MonthOf(prev)
}

// IsWeeklyTriggerDay 周提醒只在周一触发
func IsWeeklyTriggerDay(today time.Time) bool {
	return today.Weekday() == time.Monday
}

// IsMonthlyTriggerDay 月提醒只在每月 1 号触发
func IsMonthlyTriggerDay(today time.Time) bool {
	return today.Day() == 1
}

// ParseDate 解析 YYYY-MM-DD（本地时区）
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}
