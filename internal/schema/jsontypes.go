package schema

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONArray 用于在 TEXT 列中存储 JSON 字符串数组
type JSONArray []string

// Value 实现 driver.Valuer 接口
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return "[]", nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = make(JSONArray, 0)
		return nil
	}

	if len(bytes) == 0 {
		*j = make(JSONArray, 0)
		return nil
	}

	return json.Unmarshal(bytes, j)
}
