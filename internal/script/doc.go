// Package script runs Lua scripts in a sandboxed gopher-lua state with the
// privacy module loaded.
//
// # State
//
// The State type manages a Lua runtime with sandboxing:
//
//	state, err := script.NewState(
//	    script.WithExecutionTimeout(2 * time.Second),
//	    script.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile("example.lua"); err != nil {
//	    return err
//	}
//
// Only the package, base, table, string and math libraries are opened.
// dofile, loadfile, load and loadstring are removed, require only loads
// whitelisted modules, and print writes to the configured output.
//
// # The privacy module
//
// Scripts reach the module as the global privacy, through
// require("privacy"), or through the privatise alias for privacy.wrap:
//
//	local Account = {}
//	Account.__index = Account
//
//	function Account.new(owner)
//	    local self = setmetatable({}, Account)
//	    self.owner = owner
//	    self._balance = 0
//	    return self
//	end
//
//	function Account:balance()
//	    return self._balance
//	end
//
//	local Guarded = privatise(Account)
//	local a = Guarded.new("ada")
//	print(a.owner, a:balance())   -- ada 0
//	print(pcall(function() return a._balance end))
//	print(privacy.json(a))        -- {"owner":"ada"}
//
// Lua 5.1 has no __pairs, so pairs cannot enumerate a guarded value; use
// privacy.keys instead. Errors raised for private access carry the message
// privacy.ERROR, and surface in Go as errors matching
// privacy.ErrPrivateAccess.
//
// # Bridge
//
// The Bridge converts between Go and Lua values. Receivers from the object
// model, including guards built with privacy.Wrap, become userdata whose
// fields are read and written through the receiver.
package script
