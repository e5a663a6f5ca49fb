package querysql

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/roach88/relq/internal/queryir"
	"github.com/roach88/relq/internal/sqlerr"
)

// CheckComposable verifies that raw SQL can be nested as a subquery: after
// leading whitespace and comments it must start with SELECT or WITH followed
// by whitespace or a comment.
func CheckComposable(sql string) error {
	rest := skipLeadingComments(sql)
	for _, keyword := range []string{"SELECT", "WITH"} {
		if len(rest) < len(keyword) || !strings.EqualFold(rest[:len(keyword)], keyword) {
			continue
		}
		after := rest[len(keyword):]
		if after == "" {
			break
		}
		r := rune(after[0])
		if unicode.IsSpace(r) || strings.HasPrefix(after, "--") || strings.HasPrefix(after, "/*") {
			return nil
		}
	}
	return sqlerr.NewUnsafeRawSQL(sql)
}

// skipLeadingComments drops whitespace, -- line comments and /* */ block
// comments from the front of sql. An unterminated block comment swallows the
// rest of the text.
func skipLeadingComments(sql string) string {
	for {
		sql = strings.TrimLeftFunc(sql, unicode.IsSpace)
		switch {
		case strings.HasPrefix(sql, "--"):
			i := strings.IndexByte(sql, '\n')
			if i < 0 {
				return ""
			}
			sql = sql[i+1:]
		case strings.HasPrefix(sql, "/*"):
			i := strings.Index(sql[2:], "*/")
			if i < 0 {
				return ""
			}
			sql = sql[i+4:]
		default:
			return sql
		}
	}
}

// substituteArgs replaces the positional placeholders {0}, {1}, ... of a raw
// SQL source with its rendered arguments. {{ and }} escape literal braces.
func substituteArgs(b *commandBuilder, raw *queryir.FromSQL) (string, error) {
	rendered := make([]string, len(raw.Args))
	for i, arg := range raw.Args {
		rendered[i] = b.capture(func() { b.value(arg) })
	}
	if b.err != nil {
		return "", b.err
	}

	var out strings.Builder
	sql := raw.SQL
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '{' && i+1 < len(sql) && sql[i+1] == '{':
			out.WriteByte('{')
			i++
		case c == '}' && i+1 < len(sql) && sql[i+1] == '}':
			out.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(sql[i:], '}')
			if end < 0 {
				return "", errors.Newf("raw SQL: unterminated placeholder at offset %d", i)
			}
			n, err := strconv.Atoi(sql[i+1 : i+end])
			if err != nil {
				return "", errors.Wrapf(err, "raw SQL: bad placeholder %q", sql[i:i+end+1])
			}
			if n < 0 || n >= len(rendered) {
				return "", errors.Newf("raw SQL: placeholder {%d} has no argument (%d given)", n, len(rendered))
			}
			out.WriteString(rendered[n])
			i += end
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), nil
}
