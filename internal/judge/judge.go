package judge

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const defaultTimeout = 5 * time.Second

// Config tunes the interpreter.
type Config struct {
	// Timeout bounds one whole execution, load and all cases included.
	Timeout time.Duration `yaml:"timeout"`
}

// Interpreter runs candidate Lua code. It is stateless and safe for
// concurrent use; every Execute call gets its own interpreter state.
type Interpreter struct {
	timeout time.Duration
}

func NewInterpreter(cfg Config) *Interpreter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Interpreter{timeout: timeout}
}

// Execute loads the candidate source once, locates the solving method and
// grades every test case. Load and method-lookup failures produce a single
// aggregate error entry; per-case failures only fail their own case.
func (j *Interpreter) Execute(ctx context.Context, code string, entry EntryPoint, cases []TestCase) Report {
	L, err := newSandboxState()
	if err != nil {
		return aggregateFailure(cases, fmt.Sprintf("Judge Error: %v", err))
	}
	defer L.Close()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(code); err != nil {
		return aggregateFailure(cases, fmt.Sprintf("Runtime Error: %v", err))
	}

	sol, ok := L.GetGlobal(solutionTable).(*lua.LTable)
	if !ok {
		return aggregateFailure(cases, "Solution table not found")
	}

	decls, err := discoverMethods(code)
	if err != nil {
		return aggregateFailure(cases, fmt.Sprintf("Runtime Error: %v", err))
	}
	method, params, needsSelf, err := resolveEntry(L, sol, entry, decls)
	if err != nil {
		return aggregateFailure(cases, err.Error())
	}

	report := Report{Total: len(cases), Cases: make([]CaseResult, 0, len(cases))}
	start := time.Now()
	for _, tc := range cases {
		report.Cases = append(report.Cases, j.runCase(L, sol, method, params, needsSelf, tc))
	}
	report.ElapsedSeconds = time.Since(start).Seconds()
	for _, cr := range report.Cases {
		if cr.Passed {
			report.Passed++
		}
	}
	return report
}

func (j *Interpreter) runCase(L *lua.LState, sol *lua.LTable, method string, params []string, needsSelf bool, tc TestCase) CaseResult {
	result := CaseResult{Input: tc.Input, Expected: tc.Expected}

	args, err := parseCaseInput(L, tc.Input, params)
	if err != nil {
		result.Error = fmt.Sprintf("Parse Error: %v", err)
		return result
	}
	if needsSelf {
		args = append([]lua.LValue{sol}, args...)
	}

	fn := L.GetField(sol, method)
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		result.Error = fmt.Sprintf("Runtime Error: %v", err)
		return result
	}
	ret := L.Get(-1)
	L.Pop(1)

	result.Actual = renderResult(ret)
	result.Passed = normalize(result.Actual) == normalize(tc.Expected)
	return result
}

// resolveEntry picks the method to call. A declared entry point wins; absent
// that, the first public method in source order is used. The method must
// exist as a function on the Solution table at runtime.
func resolveEntry(L *lua.LState, sol *lua.LTable, entry EntryPoint, decls []methodDecl) (string, []string, bool, error) {
	name := entry.Method
	params := entry.Params
	needsSelf := false

	if name == "" {
		decl, ok := firstPublic(decls)
		if !ok {
			return "", nil, false, fmt.Errorf("no public method found on %s", solutionTable)
		}
		name = decl.Name
		params = decl.Params
		needsSelf = decl.NeedsSelf
	} else {
		for _, d := range decls {
			if d.Name == name {
				if len(params) == 0 {
					params = d.Params
				}
				needsSelf = d.NeedsSelf
				break
			}
		}
	}

	if _, ok := L.GetField(sol, name).(*lua.LFunction); !ok {
		return "", nil, false, fmt.Errorf("method %s not found on %s", name, solutionTable)
	}
	return name, params, needsSelf, nil
}

func aggregateFailure(cases []TestCase, msg string) Report {
	return Report{
		Total: len(cases),
		Cases: []CaseResult{{Error: msg}},
	}
}
