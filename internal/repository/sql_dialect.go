package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// prefixMatchCondition 构建区分大小写的前缀匹配条件，兼容 sqlite 与 postgres。
func prefixMatchCondition(db *gorm.DB, column, prefix string) (string, string) {
	return prefixMatchConditionByDialect(dbDialectName(db), column, prefix)
}

func prefixMatchConditionByDialect(dialect, column, prefix string) (string, string) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		// postgres 的 LIKE 区分大小写
		return fmt.Sprintf("%s LIKE ?", column), escapeLike(prefix) + "%"
	default:
		// sqlite 的 LIKE 对 ASCII 不区分大小写，改用 GLOB
		return fmt.Sprintf("%s GLOB ?", column), escapeGlob(prefix) + "*"
	}
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return replacer.Replace(value)
}

func escapeGlob(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
