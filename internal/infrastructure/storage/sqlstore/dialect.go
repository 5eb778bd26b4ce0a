package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect 不同数据库之间的差异
type Dialect struct {
	Name string
	// Numbered 占位符为 $1..$n（postgres），否则为 ?
	Numbered bool
	// NoLimit 只有 OFFSET 时使用的 LIMIT 值
	NoLimit string
	// IsUniqueViolation 判断唯一约束冲突
	IsUniqueViolation func(error) bool
	// Schema 建表语句，按 ; 分隔逐条执行
	Schema string
}

// rebind 把 ? 改写为方言占位符
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) statements() []string {
	var out []string
	for _, s := range strings.Split(d.Schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
