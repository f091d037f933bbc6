package judge

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestDiscoverMethodsOrderAndForms(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution._setup() end
function Solution.twoSum(nums, target) return {} end
function Solution:count(self_arg) return 0 end
Solution.late = function(x) return x end
`
	decls, err := discoverMethods(source)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
	}
	want := []string{"_setup", "twoSum", "count", "late"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	if !decls[2].NeedsSelf {
		t.Fatalf("expected colon method to need self")
	}
	if !reflect.DeepEqual(decls[1].Params, []string{"nums", "target"}) {
		t.Fatalf("expected param names, got %v", decls[1].Params)
	}
	first, ok := firstPublic(decls)
	if !ok || first.Name != "twoSum" {
		t.Fatalf("expected twoSum as first public, got %+v", first)
	}
}

func TestDiscoverMethodsDotSelf(t *testing.T) {
	t.Parallel()
	decls, err := discoverMethods(`
Solution = {}
function Solution.run(self, n) return n end
`)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(decls) != 1 {
		t.Fatalf("expected 1 method, got %d", len(decls))
	}
	if !decls[0].NeedsSelf {
		t.Fatalf("expected explicit self to be detected")
	}
	if !reflect.DeepEqual(decls[0].Params, []string{"n"}) {
		t.Fatalf("expected self stripped from params, got %v", decls[0].Params)
	}
}

func TestIsNamedInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "named", input: "nums = [1, 2], target = 3", want: true},
		{name: "positional-array", input: "[1, 2, 3]", want: false},
		{name: "equals-inside-string", input: `"a=b"`, want: false},
		{name: "equals-inside-brackets", input: "[1, 2]", want: false},
		{name: "bracket-then-assignment", input: "[1, 2], k = 3", want: false},
		{name: "plain", input: "42", want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isNamedInput(tt.input); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseCaseInputBracketWithAssignment(t *testing.T) {
	t.Parallel()
	L := lua.NewState()
	defer L.Close()

	// opens with a bracket, so the assignment does not make it named; the
	// mix fails literal parsing and degrades to one raw-string argument
	args, err := parseCaseInput(L, "[1, 2], k = 3", []string{"nums", "k"})
	if err != nil {
		t.Fatalf("expected positional fallback, got error: %v", err)
	}
	if len(args) != 1 {
		t.Fatalf("expected one raw-string argument, got %d", len(args))
	}
	if got := lua.LVAsString(args[0]); got != "[1, 2], k = 3" {
		t.Fatalf("expected raw input passed through, got %q", got)
	}
}

func TestSplitTopLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "flat", input: "1,2,3", want: []string{"1", "2", "3"}},
		{name: "nested", input: "[1,2],3", want: []string{"[1,2]", "3"}},
		{name: "quoted", input: `"a,b",c`, want: []string{`"a,b"`, "c"}},
		{name: "single", input: "[1,[2,3]]", want: []string{"[1,[2,3]]"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := splitTopLevel(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRenderValue(t *testing.T) {
	t.Parallel()
	L := lua.NewState()
	defer L.Close()

	arr := L.NewTable()
	arr.Append(lua.LNumber(1))
	arr.Append(lua.LNumber(2))

	obj := L.NewTable()
	obj.RawSetString("b", lua.LNumber(2))
	obj.RawSetString("a", lua.LNumber(1))

	tests := []struct {
		name string
		v    lua.LValue
		want string
	}{
		{name: "nil", v: lua.LNil, want: "nil"},
		{name: "int-float", v: lua.LNumber(9), want: "9"},
		{name: "fraction", v: lua.LNumber(0.5), want: "0.5"},
		{name: "bool", v: lua.LTrue, want: "true"},
		{name: "nested-string", v: lua.LString("hi"), want: `"hi"`},
		{name: "array", v: arr, want: "[1,2]"},
		{name: "object-sorted", v: obj, want: "{a:1,b:2}"},
		{name: "empty", v: L.NewTable(), want: "[]"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := renderValue(tt.v); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if got := renderResult(lua.LString("raw text")); got != "raw text" {
		t.Fatalf("expected top-level string raw, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	if got := normalize("[0, 1]\n"); got != "[0,1]" {
		t.Fatalf("expected whitespace stripped, got %q", got)
	}
	if got := normalize(" a \t b "); got != "ab" {
		t.Fatalf("expected all whitespace stripped, got %q", got)
	}
}
