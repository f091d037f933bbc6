package judge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// libraries opened in the candidate state. Anything touching the OS, the
// filesystem or code loading stays closed.
var openLibs = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// base-library globals stripped after opening: they load code or inspect
// environments, which candidate code has no business doing.
var strippedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"getfenv",
	"setfenv",
}

// prelude is loaded into every candidate state before the candidate source.
// It provides the container and combinatorics helpers candidates may call.
const prelude = `
heap = {}
heap.__index = heap

function heap.new(cmp)
    return setmetatable({items = {}, n = 0, cmp = cmp or function(a, b) return a < b end}, heap)
end

function heap:push(v)
    local n = self.n + 1
    self.n = n
    self.items[n] = v
    while n > 1 do
        local p = math.floor(n / 2)
        if self.cmp(self.items[n], self.items[p]) then
            self.items[n], self.items[p] = self.items[p], self.items[n]
            n = p
        else
            break
        end
    end
end

function heap:pop()
    if self.n == 0 then return nil end
    local top = self.items[1]
    self.items[1] = self.items[self.n]
    self.items[self.n] = nil
    self.n = self.n - 1
    local i = 1
    while true do
        local l, r, best = 2 * i, 2 * i + 1, i
        if l <= self.n and self.cmp(self.items[l], self.items[best]) then best = l end
        if r <= self.n and self.cmp(self.items[r], self.items[best]) then best = r end
        if best == i then break end
        self.items[i], self.items[best] = self.items[best], self.items[i]
        i = best
    end
    return top
end

function heap:peek()
    return self.items[1]
end

function heap:size()
    return self.n
end

deque = {}
deque.__index = deque

function deque.new()
    return setmetatable({first = 0, last = -1, items = {}}, deque)
end

function deque:pushleft(v)
    self.first = self.first - 1
    self.items[self.first] = v
end

function deque:pushright(v)
    self.last = self.last + 1
    self.items[self.last] = v
end

function deque:popleft()
    if self.first > self.last then return nil end
    local v = self.items[self.first]
    self.items[self.first] = nil
    self.first = self.first + 1
    return v
end

function deque:popright()
    if self.first > self.last then return nil end
    local v = self.items[self.last]
    self.items[self.last] = nil
    self.last = self.last - 1
    return v
end

function deque:size()
    return self.last - self.first + 1
end

function factorial(n)
    local r = 1
    for i = 2, n do r = r * i end
    return r
end

function binomial(n, k)
    if k < 0 or k > n then return 0 end
    local r = 1
    for i = 1, k do r = r * (n - k + i) / i end
    return r
end

function permutations(n, k)
    k = k or n
    local r = 1
    for i = n - k + 1, n do r = r * i end
    return r
end

combinations = binomial
`

// newSandboxState builds a fresh Lua state with only the whitelisted
// libraries and the helper prelude. Callers own closing it.
func newSandboxState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: 128,
		RegistrySize:  1024 * 20,
	})
	for _, lib := range openLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %s: %w", lib.name, err)
		}
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	// output is captured from return values, never from stdout
	L.SetGlobal("print", L.NewFunction(func(_ *lua.LState) int { return 0 }))
	if err := L.DoString(prelude); err != nil {
		L.Close()
		return nil, fmt.Errorf("load judge prelude: %w", err)
	}
	return L, nil
}
