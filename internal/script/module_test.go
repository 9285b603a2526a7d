package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/privatise/internal/privacy"
)

// prelude defines a class with private and public fields, a public method
// delegating to a private one, and a helper asserting private access fails.
const prelude = `
TestClass = {}
TestClass.__index = TestClass

function TestClass.new()
	local self = setmetatable({}, TestClass)
	self._privateInt = 1
	self._privateString = "test"
	self._privateFunction = function() return 123 end
	self.publicInt = 2
	self.publicString = "Hello"
	self.publicFunction = function() return "ABC" end
	return self
end

function TestClass:proxyFunction()
	return self:_internalProxyFunction()
end

function TestClass:_internalProxyFunction()
	return self._privateInt
end

function TestClass:directFunction()
	return self._privateString
end

function TestClass:getSelf()
	return self
end

function TestClass:bump()
	self._privateInt = self._privateInt + 1
end

function expect_private(fn)
	local ok, err = pcall(fn)
	assert(not ok, "expected private access to fail")
	assert(string.find(tostring(err), privacy.ERROR, 1, true), "unexpected error: " .. tostring(err))
end
`

func runScenario(t *testing.T, code string) {
	t.Helper()
	state := newTestState(t)
	if err := state.DoString(prelude); err != nil {
		t.Fatalf("prelude error = %v", err)
	}
	if err := state.DoString(code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
}

func TestModuleScenarios(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"public access", `
			local w = privatise(TestClass.new())
			assert(w.publicInt == 2)
			assert(w.publicString == "Hello")
			assert(w.publicFunction() == "ABC")
			assert(w:publicFunction() == "ABC")
		`},
		{"private access fails", `
			local w = privatise(TestClass.new())
			expect_private(function() return w._privateInt end)
			expect_private(function() return w._privateString end)
			expect_private(function() return w._privateFunction() end)
			expect_private(function() return w:_internalProxyFunction() end)
			expect_private(function() return w._missing end)
		`},
		{"private write fails", `
			local raw = TestClass.new()
			local w = privatise(raw)
			expect_private(function() w._privateInt = 5 end)
			expect_private(function() w._fresh = 5 end)
			expect_private(function() w:bump() end)
			assert(raw._privateInt == 1)
			assert(raw._fresh == nil)
			w.publicInt = 7
			assert(raw.publicInt == 7)
			assert(w.publicInt == 7)
		`},
		{"private not enumerable", `
			local k = privacy.keys(privatise(TestClass.new()))
			assert(#k == 3)
			assert(k[1] == "publicFunction" and k[2] == "publicInt" and k[3] == "publicString")
		`},
		{"private available internally", `
			local w = privatise(TestClass.new())
			assert(w:directFunction() == "test")
			assert(w:proxyFunction() == 1)
		`},
		{"stringify", `
			local w = privatise(TestClass.new())
			assert(privacy.json(w) == '{"publicInt":2,"publicString":"Hello"}', privacy.json(w))
			local fields = w.toJSON()
			assert(fields.publicInt == 2 and fields._privateInt == nil)
		`},
		{"instanceof", `
			local w = privatise(TestClass.new())
			assert(privacy.instanceof(w, TestClass))
			assert(privacy.instanceof(TestClass.new(), TestClass))
			assert(not privacy.instanceof({}, TestClass))
		`},
		{"assign", `
			local c = privacy.assign({}, privatise(TestClass.new()))
			assert(c.publicInt == 2)
			assert(c.publicString == "Hello")
			assert(c.publicFunction() == "ABC")
			assert(c._privateInt == nil)
			assert(c._privateString == nil)
			assert(c._privateFunction == nil)
		`},
		{"extended class", `
			ExtendedClass = setmetatable({}, {__index = TestClass})
			ExtendedClass.__index = ExtendedClass
			function ExtendedClass.new()
				local self = setmetatable(TestClass.new(), ExtendedClass)
				self.a = 1
				self._b = 2
				return self
			end

			local w = privatise(ExtendedClass.new())
			assert(w.a == 1)
			assert(w.publicInt == 2)
			assert(w.publicFunction() == "ABC")
			assert(w:proxyFunction() == 1)
			expect_private(function() return w._b end)
			expect_private(function() return w._privateInt end)
			assert(privacy.instanceof(w, ExtendedClass))
			assert(privacy.instanceof(w, TestClass))
		`},
		{"wrapped class", `
			local W = privatise(TestClass)
			for _, inst in ipairs({W.new(), W:new()}) do
				assert(inst.publicInt == 2)
				assert(inst.publicFunction() == "ABC")
				assert(inst:proxyFunction() == 1)
				expect_private(function() return inst._privateInt end)
				expect_private(function() return inst._privateFunction() end)
				assert(privacy.instanceof(inst, TestClass))
				assert(privacy.instanceof(inst, W))
			end
		`},
		{"static properties", `
			local S = {}
			S.__index = S
			S.version = 1
			function S._b() return 123 end
			function S.new()
				local self = setmetatable({}, S)
				self.a = S._b()
				return self
			end

			local W = privatise(S)
			local s = W.new()
			assert(s.a == 123)
			assert(W.version == 1)
			expect_private(function() return W._b() end)
			expect_private(function() W._c = 1 end)
		`},
		{"custom toJSON", `
			local C = {}
			C.__index = C
			function C.new()
				local self = setmetatable({}, C)
				self.a = 1
				self._b = 2
				return self
			end
			function C:toJSON()
				local out = {}
				for _, k in ipairs(privacy.keys(self)) do
					out[string.upper(k)] = self[k]
				end
				return out
			end

			assert(privacy.json(privatise(C.new())) == '{"A":1}')
		`},
		{"custom toJSON reads private as nil", `
			local C = {}
			C.__index = C
			function C:toJSON()
				return {a = self.a, b = self._b}
			end
			local w = privatise(setmetatable({a = 1, _b = 2}, C))
			assert(privacy.json(w) == '{"a":1}')
		`},
		{"custom toJSON returning self", `
			local C = {}
			C.__index = C
			function C:toJSON() return self end
			local w = privatise(setmetatable({a = 1, _b = 2}, C))
			assert(privacy.json(w) == '{"a":1}')
		`},
		{"nested proxies", `
			local w = privatise(TestClass.new())
			local p = setmetatable({}, {__index = w, __newindex = w})
			expect_private(function() return p._privateInt end)
			expect_private(function() return p._privateString end)
			expect_private(function() return p:_internalProxyFunction() end)
			assert(p.publicInt == 2)
			assert(p.publicString == "Hello")
			assert(p.publicFunction() == "ABC")
			assert(p:proxyFunction() == 1)
		`},
		{"facet does not escape", `
			local w = privatise(TestClass.new())
			local out = w:getSelf()
			assert(out == w)
			expect_private(function() return out._privateInt end)
		`},
		{"assigned function is not insider", `
			local w = privatise(TestClass.new())
			w.spy = function(self) return self._privateInt end
			expect_private(function() return w:spy() end)
			w.directFunction = function(self) return self._privateString end
			expect_private(function() return w:directFunction() end)
			assert(w:proxyFunction() == 1)
			w.spy = 5
			assert(w.spy == 5)
		`},
		{"function stored by a method is not insider", `
			local C = {}
			C.__index = C
			function C.new() return setmetatable({_secret = 42}, C) end
			function C:install() self.hook = function(s) return s._secret end end
			function C:callHook() return self:hook() end
			function C:remember() self.me = self end
			local o = privatise(C.new())
			o:install()
			expect_private(function() return o:hook() end)
			expect_private(function() return o:callHook() end)
			o:remember()
			assert(o.me == o)
			expect_private(function() return o.me._secret end)
		`},
		{"secret", `
			local o = privatise({_secret = 1, pub = 2})
			assert(o.pub == 2)
			expect_private(function() return o._secret end)
			assert(privacy.json(o) == '{"pub":2}')
			local k = privacy.keys(o)
			assert(#k == 1 and k[1] == "pub")
		`},
		{"constructor function", `
			local make = privatise(function(x) return {x = x, _y = x * 2} end)
			local o = make(3)
			assert(o.x == 3)
			expect_private(function() return o._y end)
		`},
		{"rewrap", `
			local w = privatise(TestClass.new())
			local again = privatise(w)
			assert(again == w)
			expect_private(function() return again._privateInt end)
		`},
		{"non objects", `
			assert(privatise(42) == nil)
			assert(privatise("s") == nil)
			assert(privatise(nil) == nil)
			assert(privatise(true) == nil)
		`},
		{"is_private", `
			assert(privacy.is_private("_x"))
			assert(not privacy.is_private("x"))
			assert(not privacy.is_private(""))
			assert(privacy.PREFIX == "_")
		`},
		{"length", `
			local w = privatise({1, 2, 3})
			assert(#w == 3)
			assert(w[2] == 2)
		`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runScenario(t, tt.code)
		})
	}
}

func TestModuleJSON(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"array", `return privacy.json({1, 2, {x = true}})`, `[1,2,{"x":true}]`},
		{"sorted keys", `return privacy.json({b = 1, a = "s"})`, `{"a":"s","b":1}`},
		{"functions omitted", `return privacy.json({f = function() end, n = 1.5})`, `{"n":1.5}`},
		{"function in array", `return privacy.json({1, function() end, 3})`, `[1,null,3]`},
		{"empty table", `return privacy.json({})`, `{}`},
		{"string", `return privacy.json("a\"b")`, `"a\"b"`},
		{"nested guard", `return privacy.json({inner = privatise({_s = 1, p = 2})})`, `{"inner":{"p":2}}`},
		{"table toJSON", `return privacy.json({toJSON = function(self, key) return "k=" .. key end})`, `"k="`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestState(t)
			if err := state.DoString(`result = (function() ` + tt.code + ` end)()`); err != nil {
				t.Fatalf("DoString() error = %v", err)
			}
			if got := state.GetGlobal("result").String(); got != tt.want {
				t.Errorf("json = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestModuleJSONPretty(t *testing.T) {
	state := newTestState(t)
	if err := state.DoString(`result = privacy.json({a = 1}, true)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	got := state.GetGlobal("result").String()
	if !strings.Contains(got, "\n") || !strings.Contains(got, `"a": 1`) {
		t.Errorf("pretty json = %q", got)
	}
}

func TestModuleJSONCycle(t *testing.T) {
	state := newTestState(t)
	err := state.DoString(`local t = {}; t.self = t; privacy.json(t)`)
	if err == nil || !strings.Contains(err.Error(), "circular") {
		t.Errorf("DoString() error = %v, want circular structure error", err)
	}
}

func TestModulePrivateAccessError(t *testing.T) {
	state := newTestState(t)
	if err := state.DoString(prelude); err != nil {
		t.Fatalf("prelude error = %v", err)
	}

	tests := []struct {
		name string
		code string
	}{
		{"get", `local w = privatise(TestClass.new()); return w._privateInt`},
		{"set", `local w = privatise(TestClass.new()); w._privateInt = 2`},
		{"call", `local w = privatise(TestClass.new()); w:_internalProxyFunction()`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := state.DoString(tt.code)
			if !errors.Is(err, privacy.ErrPrivateAccess) {
				t.Fatalf("DoString() error = %v, want ErrPrivateAccess", err)
			}
			var scriptErr *Error
			if !errors.As(err, &scriptErr) {
				t.Fatalf("error = %T, want *Error", err)
			}
			if !strings.Contains(scriptErr.Message, privacy.PrivateAccessMessage) {
				t.Errorf("Message = %q", scriptErr.Message)
			}
		})
	}
}
