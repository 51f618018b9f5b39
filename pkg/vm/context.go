package vm

import (
	"github.com/nspcc-dev/neo-go-core/pkg/smartcontract/callflag"
	"github.com/nspcc-dev/neo-go-core/pkg/util"
)

// tryState is the lifecycle of a single TRY region (spec.md §4.1
// "TRY/ENDTRY/ENDFINALLY").
type tryState byte

const (
	tryInCatch tryState = iota
	tryInFinally
)

// tryContext is one entry of a context's try stack, remembering where to
// resume once the active catch/finally region is done.
type tryContext struct {
	catchOffset   int // -1 if the TRY had no catch block
	finallyOffset int // -1 if the TRY had no finally block
	endOffset     int
	state         tryState
}

// Context is a single frame of the invocation stack: one loaded script
// plus its instruction pointer, local/static/argument slots, and the
// exception-handling (try) stack scoped to that script (spec.md §3
// "ExecutionContext").
type Context struct {
	script       *Script
	ip           int
	callFlags    callflag.CallFlag
	scriptHash   util.Uint160
	local        Slots
	arg          Slots
	static       Slots
	tryStack     []tryContext
	callingFrame *Context
}

// NewContext creates a fresh context over script with no slots allocated.
func NewContext(script *Script) *Context {
	return &Context{script: script, scriptHash: script.Hash()}
}

// IP returns the current instruction pointer.
func (c *Context) IP() int { return c.ip }

// ScriptHash returns the content-addressed hash of the script this
// context is executing, the identity contracts are called by.
func (c *Context) ScriptHash() util.Uint160 { return c.scriptHash }

// CallFlags returns the call flags granted to this frame.
func (c *Context) CallFlags() callflag.CallFlag { return c.callFlags }

// Next returns the opcode at the instruction pointer without advancing it.
func (c *Context) Next() (byte, bool) {
	if c.ip >= c.script.Len() {
		return 0, false
	}
	return c.script.raw[c.ip], true
}

// ReadByte consumes and returns one operand byte, advancing ip.
func (c *Context) ReadByte() (byte, error) {
	if c.ip >= c.script.Len() {
		return 0, errOutOfScript
	}
	b := c.script.raw[c.ip]
	c.ip++
	return b, nil
}

// ReadBytes consumes n operand bytes, advancing ip.
func (c *Context) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.ip+n > c.script.Len() {
		return nil, errOutOfScript
	}
	b := c.script.raw[c.ip : c.ip+n]
	c.ip += n
	return b, nil
}

// Jump sets ip to an absolute position, validating it lands in bounds.
func (c *Context) Jump(pos int) error {
	if pos < 0 || pos > c.script.Len() {
		return errBadJump
	}
	c.ip = pos
	return nil
}

var errOutOfScript = outOfScriptError{}
var errBadJump = badJumpError{}

type outOfScriptError struct{}

func (outOfScriptError) Error() string { return "instruction pointer out of script bounds" }

type badJumpError struct{}

func (badJumpError) Error() string { return "jump target out of script bounds" }
