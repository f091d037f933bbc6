package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// parseCaseInput turns a test case input string into call arguments.
//
// Two shapes are accepted. Named-assignment inputs bind values to the
// declared parameter names and may appear in any order:
//
//	nums = [2, 7, 11, 15], target = 9
//
// Positional inputs list literal values in parameter order:
//
//	[2, 7, 11, 15], 9
//
// A positional input that fails to parse as literals degrades to a single
// raw-string argument. Named inputs do not degrade; a bad literal is a parse
// error for the case.
func parseCaseInput(L *lua.LState, input string, params []string) ([]lua.LValue, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}
	if isNamedInput(trimmed) {
		return parseNamedInput(L, trimmed, params)
	}
	return parsePositionalInput(L, trimmed), nil
}

// isNamedInput reports whether the input uses name=value assignments. An
// equals sign at the top nesting level marks it; equals signs inside
// brackets or quotes do not. An input that opens with a bracket is always
// positional, even if an assignment follows later, so that malformed mixes
// like "[1, 2], k = 3" reach the positional raw-string fallback.
func isNamedInput(input string) bool {
	if strings.HasPrefix(strings.TrimSpace(input), "[") {
		return false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(input); i++ {
		c := input[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		case '=':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func parseNamedInput(L *lua.LState, input string, params []string) ([]lua.LValue, error) {
	bound := make(map[string]lua.LValue)
	for _, part := range splitTopLevel(input) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := topLevelIndex(part, '=')
		if eq < 0 {
			return nil, fmt.Errorf("expected name=value, got %q", part)
		}
		name := strings.TrimSpace(part[:eq])
		literal := strings.TrimSpace(part[eq+1:])
		value, err := parseLiteral(L, literal)
		if err != nil {
			return nil, fmt.Errorf("value for %s: %v", name, err)
		}
		bound[name] = value
	}
	args := make([]lua.LValue, 0, len(params))
	for _, name := range params {
		value, ok := bound[name]
		if !ok {
			return nil, fmt.Errorf("missing value for parameter %s", name)
		}
		args = append(args, value)
	}
	return args, nil
}

func parsePositionalInput(L *lua.LState, input string) []lua.LValue {
	// multi-line positional inputs are one value per line
	normalized := strings.ReplaceAll(strings.TrimSpace(input), "\n", ",")
	parts := splitTopLevel(normalized)
	args := make([]lua.LValue, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := parseLiteral(L, part)
		if err != nil {
			// not literal data; hand the raw input through as one string
			return []lua.LValue{lua.LString(input)}
		}
		args = append(args, value)
	}
	return args
}

// parseLiteral decodes one JSON-style literal into a Lua value.
// Single-quoted strings are accepted alongside double-quoted ones.
func parseLiteral(L *lua.LState, literal string) (lua.LValue, error) {
	if len(literal) >= 2 && literal[0] == '\'' && literal[len(literal)-1] == '\'' {
		return lua.LString(literal[1 : len(literal)-1]), nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(literal), &decoded); err != nil {
		return lua.LNil, fmt.Errorf("invalid literal %q", literal)
	}
	return toLuaValue(L, decoded), nil
}

// toLuaValue converts a decoded JSON value into its Lua counterpart.
// Arrays become sequence tables, objects become string-keyed tables.
func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLuaValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLuaValue(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// splitTopLevel splits on commas that are not nested inside brackets,
// braces, parentheses or quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// topLevelIndex finds the first occurrence of c outside nesting and quotes,
// or -1.
func topLevelIndex(s string, c byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		default:
			if ch == c && depth == 0 {
				return i
			}
		}
	}
	return -1
}
