package judge

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	lua "github.com/yuin/gopher-lua"
)

// renderResult formats a method's return value for comparison against the
// expected output. Top-level strings render raw; everything else renders in
// JSON-like notation so bracketed expected outputs line up.
func renderResult(v lua.LValue) string {
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return renderValue(v)
}

func renderValue(v lua.LValue) string {
	switch val := v.(type) {
	case *lua.LNilType:
		return "nil"
	case lua.LBool:
		if bool(val) {
			return "true"
		}
		return "false"
	case lua.LNumber:
		return formatNumber(float64(val))
	case lua.LString:
		return strconv.Quote(string(val))
	case *lua.LTable:
		return renderTable(val)
	default:
		return v.String()
	}
}

// renderTable treats tables with a sequence part as arrays and everything
// else as string-keyed objects with sorted keys. An empty table is an empty
// array.
func renderTable(tbl *lua.LTable) string {
	n := tbl.MaxN()
	if n > 0 {
		var sb strings.Builder
		sb.WriteByte('[')
		for i := 1; i <= n; i++ {
			if i > 1 {
				sb.WriteByte(',')
			}
			sb.WriteString(renderValue(tbl.RawGetInt(i)))
		}
		sb.WriteByte(']')
		return sb.String()
	}
	entries := make(map[string]string)
	tbl.ForEach(func(k, v lua.LValue) {
		entries[renderKey(k)] = renderValue(v)
	})
	if len(entries) == 0 {
		return "[]"
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(entries[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

func renderKey(k lua.LValue) string {
	if n, ok := k.(lua.LNumber); ok {
		return formatNumber(float64(n))
	}
	return k.String()
}

// formatNumber prints integral floats without a fractional part, so that
// a Lua 9.0 compares equal to an expected "9".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// normalize strips every whitespace rune so comparisons ignore formatting
// differences between candidate output and expected output.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
