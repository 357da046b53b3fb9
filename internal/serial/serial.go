// Package serial 序列号规则：前缀校验、序号补零、续号计算与二维码模式判定。
// 该包只包含纯函数，数据库扫描与并发保护由 service.SerialAllocator 负责。
package serial

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bullion-next/internal/constants"

	"github.com/shopspring/decimal"
)

const (
	// MaxPrefixLength 前缀最大长度
	MaxPrefixLength = 4
	// MinLabelLength 可打印标签的最短长度
	MinLabelLength = 3
	// DefaultMaxQuantity 单次分配数量上限
	DefaultMaxQuantity = 10000
)

var (
	ErrInvalidPrefix       = errors.New("invalid serial prefix")
	ErrInvalidQuantity     = errors.New("invalid serial quantity")
	ErrInvalidCode         = errors.New("invalid serial code")
	ErrDuplicateSerialCode = errors.New("serial code already exists")
	ErrUnknownProductLine  = errors.New("unknown product line")
)

// singleQRWeightThreshold 单位重量低于该值时整批共用一个二维码
var singleQRWeightThreshold = decimal.NewFromInt(constants.QRSingleWeightMark)

// ProductLine 产品线，序号位数是产品线的固定属性
type ProductLine struct {
	Name   string
	Digits int
}

// QRMode 批次二维码模式
type QRMode string

const (
	QRModeSingle  QRMode = constants.QRModeSingle
	QRModePerUnit QRMode = constants.QRModePerUnit
)

// AllocationState 批次续号状态（按需计算，不落库）
type AllocationState struct {
	Prefix        string `json:"prefix"`
	LastNumber    int    `json:"last_number"`
	NextNumber    int    `json:"next_number"`
	TotalExisting int    `json:"total_existing"`
}

// DefaultLines 内置产品线
func DefaultLines() map[string]ProductLine {
	return map[string]ProductLine{
		constants.ProductLineStandard: {Name: constants.ProductLineStandard, Digits: 6},
		constants.ProductLineGram:     {Name: constants.ProductLineGram, Digits: 5},
	}
}

// BuildLines 合并配置中的产品线位数，仅接受 5 或 6 位
func BuildLines(configured map[string]int) map[string]ProductLine {
	lines := DefaultLines()
	for name, digits := range configured {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" || (digits != 5 && digits != 6) {
			continue
		}
		lines[normalized] = ProductLine{Name: normalized, Digits: digits}
	}
	return lines
}

// ResolveLine 按名称查找产品线，空名称回退到 standard
func ResolveLine(lines map[string]ProductLine, name string) (ProductLine, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		normalized = constants.ProductLineStandard
	}
	line, ok := lines[normalized]
	if !ok {
		return ProductLine{}, fmt.Errorf("%w: %s", ErrUnknownProductLine, name)
	}
	return line, nil
}

// NormalizePrefix 校验并规范化前缀：大写字母数字，0-4 位
func NormalizePrefix(raw string) (string, error) {
	prefix := strings.ToUpper(strings.TrimSpace(raw))
	if len(prefix) > MaxPrefixLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidPrefix, MaxPrefixLength)
	}
	if !isAlphanumeric(prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrefix, raw)
	}
	return prefix, nil
}

// ValidateExplicitCode 校验显式指定的序列号，原样返回（仅去除首尾空白）
func ValidateExplicitCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	if !isAlphanumeric(code) {
		return "", fmt.Errorf("%w: %q is not alphanumeric", ErrInvalidCode, code)
	}
	if IsAllZero(code) {
		return "", fmt.Errorf("%w: %q is all zero", ErrInvalidCode, code)
	}
	return code, nil
}

// ValidateQuantity 校验分配数量
func ValidateQuantity(quantity, max int) error {
	if max <= 0 {
		max = DefaultMaxQuantity
	}
	if quantity <= 0 || quantity > max {
		return fmt.Errorf("%w: %d (allowed 1-%d)", ErrInvalidQuantity, quantity, max)
	}
	return nil
}

// IsAllZero 判断是否全部由字符 0 组成（未设置的哨兵值）
func IsAllZero(code string) bool {
	if code == "" {
		return false
	}
	return strings.Trim(code, "0") == ""
}

// LabelProblem 返回标签不可打印的原因，可打印时返回空字符串
func LabelProblem(code string) string {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == "":
		return constants.LabelReasonEmpty
	case IsAllZero(trimmed):
		return constants.LabelReasonAllZero
	case len([]rune(trimmed)) < MinLabelLength:
		return constants.LabelReasonTooShort
	}
	return ""
}

// Format 生成补零后的序列号
func Format(prefix string, number int, line ProductLine) string {
	return fmt.Sprintf("%s%0*d", prefix, line.Digits, number)
}

// Suffix 解析序列号中前缀之后的数字部分
func Suffix(prefix, code string) (int, bool) {
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	rest := code[len(prefix):]
	if rest == "" || !isDigits(rest) {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxSuffix 扫描同前缀序列号，返回最大序号与参与计算的数量
func MaxSuffix(prefix string, codes []string) (last int, matched int) {
	for _, code := range codes {
		n, ok := Suffix(prefix, code)
		if !ok {
			continue
		}
		matched++
		if n > last {
			last = n
		}
	}
	return last, matched
}

// State 根据已有序列号计算续号状态
func State(prefix string, codes []string) AllocationState {
	return MergeState(prefix, 0, 0, codes)
}

// MergeState 在已聚合的最大序号与数量之上，再合并需逐个解析的候选序列号
func MergeState(prefix string, last, matched int, codes []string) AllocationState {
	if l, m := MaxSuffix(prefix, codes); m > 0 {
		matched += m
		if l > last {
			last = l
		}
	}
	return AllocationState{
		Prefix:        prefix,
		LastNumber:    last,
		NextNumber:    last + 1,
		TotalExisting: matched,
	}
}

// Sequence 从 last+1 开始生成 quantity 个连续序列号
func Sequence(prefix string, last, quantity int, line ProductLine) []string {
	if quantity <= 0 {
		return nil
	}
	codes := make([]string, 0, quantity)
	for i := 1; i <= quantity; i++ {
		codes = append(codes, Format(prefix, last+i, line))
	}
	return codes
}

// Capacity 判断该产品线在给定起点下是否还能容纳 quantity 个序号
func Capacity(last, quantity int, line ProductLine) bool {
	limit := 1
	for i := 0; i < line.Digits; i++ {
		limit *= 10
	}
	return last+quantity < limit
}

// ResolveQRMode 按单位重量判定二维码模式，仅在批次创建时调用一次
func ResolveQRMode(unitWeight decimal.Decimal) QRMode {
	if unitWeight.LessThan(singleQRWeightThreshold) {
		return QRModeSingle
	}
	return QRModePerUnit
}

func isAlphanumeric(value string) bool {
	for _, r := range value {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
