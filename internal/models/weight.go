package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const weightPlaces = 3

// Weight 重量类型（克，保留 3 位小数）
type Weight struct {
	decimal.Decimal
}

// NewWeight 从 decimal 创建重量
func NewWeight(grams decimal.Decimal) Weight {
	return Weight{Decimal: grams.Round(weightPlaces)}
}

// MarshalJSON 输出 3 位小数的字符串
func (w Weight) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Decimal.Round(weightPlaces).StringFixed(weightPlaces))
}

// UnmarshalJSON 解析重量（字符串或数字）
func (w *Weight) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		w.Decimal = d.Round(weightPlaces)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	w.Decimal = d.Round(weightPlaces)
	return nil
}

// Value 用于数据库写入
func (w Weight) Value() (driver.Value, error) {
	return w.Decimal.Round(weightPlaces).Value()
}

// Scan 用于数据库读取
func (w *Weight) Scan(value interface{}) error {
	if err := w.Decimal.Scan(value); err != nil {
		return err
	}
	w.Decimal = w.Decimal.Round(weightPlaces)
	return nil
}

// String 返回 3 位小数格式
func (w Weight) String() string {
	return w.Decimal.Round(weightPlaces).StringFixed(weightPlaces)
}
