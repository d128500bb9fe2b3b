package repository

import (
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/period"
)

// YearRange 返回某年的日期闭区间 [YYYY-01-01, YYYY-12-31]。
// 聚合器按年扫描源记录时用它构造查询范围。
func YearRange(year int) (startDate string, endDate string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}

// PrevDay 返回给定日期前一天的 YYYY-MM-DD
func PrevDay(date string) (string, error) {
	t, err := period.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("解析日期失败: %w", err)
	}
	return t.AddDate(0, 0, -1).Format(period.DateLayout), nil
}
