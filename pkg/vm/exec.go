package vm

import (
	"math/big"

	"github.com/nspcc-dev/neo-go-core/pkg/vm/opcode"
	"github.com/nspcc-dev/neo-go-core/pkg/vm/stackitem"
)

// execute dispatches a single decoded opcode against the current
// context. ctx.ip has already been advanced past the opcode byte itself;
// operand bytes are consumed here via ctx.ReadByte/ReadBytes.
func (v *VM) execute(ctx *Context, op opcode.Opcode) error {
	switch {
	case op >= opcode.PUSHINT8 && op <= opcode.PUSHINT256:
		return v.execPushInt(ctx, op)
	case op >= opcode.PUSH0 && op <= opcode.PUSH16:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(op) - int64(opcode.PUSH0)))
	}

	switch op {
	case opcode.PUSHT:
		return v.push(stackitem.NewBool(true))
	case opcode.PUSHF:
		return v.push(stackitem.NewBool(false))
	case opcode.PUSHM1:
		return v.push(stackitem.NewBigIntegerFromInt64(-1))
	case opcode.PUSHNULL:
		return v.push(stackitem.Null{})
	case opcode.PUSHA:
		b, err := ctx.ReadBytes(4)
		if err != nil {
			return err
		}
		off := int32(le32(b))
		return v.push(stackitem.NewPointer(ctx.ip+int(off)-5, ctx.script.Bytes()))
	case opcode.PUSHDATA1:
		n, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		data, err := ctx.ReadBytes(int(n))
		if err != nil {
			return err
		}
		return v.push(stackitem.NewByteArray(data))
	case opcode.PUSHDATA2:
		b, err := ctx.ReadBytes(2)
		if err != nil {
			return err
		}
		data, err := ctx.ReadBytes(int(le16(b)))
		if err != nil {
			return err
		}
		return v.push(stackitem.NewByteArray(data))
	case opcode.PUSHDATA4:
		b, err := ctx.ReadBytes(4)
		if err != nil {
			return err
		}
		data, err := ctx.ReadBytes(int(le32(b)))
		if err != nil {
			return err
		}
		return v.push(stackitem.NewByteArray(data))

	case opcode.NOP:
		return nil
	case opcode.JMP, opcode.JMPIF, opcode.JMPIFNOT, opcode.JMPEQ, opcode.JMPNE,
		opcode.JMPGT, opcode.JMPGE, opcode.JMPLT, opcode.JMPLE, opcode.CALL:
		return v.execShortJump(ctx, op)
	case opcode.JMP_L, opcode.JMPIF_L, opcode.JMPIFNOT_L, opcode.JMPEQ_L, opcode.JMPNE_L,
		opcode.JMPGT_L, opcode.JMPGE_L, opcode.JMPLT_L, opcode.JMPLE_L, opcode.CALL_L:
		return v.execLongJump(ctx, op)
	case opcode.CALLA:
		it, err := v.pop()
		if err != nil {
			return err
		}
		p, ok := it.(*stackitem.Pointer)
		if !ok {
			return newFault(ctx.ip, "CALLA", "expected Pointer operand")
		}
		return v.call(ctx, p.Position)
	case opcode.ABORT:
		return newFault(ctx.ip, "ABORT", "ABORT instruction executed")
	case opcode.ASSERT:
		ok, err := v.popBool()
		if err != nil {
			return err
		}
		if !ok {
			return newFault(ctx.ip, "ASSERT", "ASSERT failed")
		}
		return nil
	case opcode.THROW:
		it, err := v.pop()
		if err != nil {
			return err
		}
		return v.throw(it)
	case opcode.TRY, opcode.TRY_L:
		return v.execTry(ctx, op)
	case opcode.ENDTRY, opcode.ENDTRY_L:
		return v.execEndTry(ctx, op)
	case opcode.ENDFINALLY:
		return v.execEndFinally(ctx)
	case opcode.RET:
		v.doReturn()
		return nil
	case opcode.SYSCALL:
		b, err := ctx.ReadBytes(4)
		if err != nil {
			return err
		}
		if v.Syscall == nil {
			return newFault(ctx.ip, "SYSCALL", "no syscall handler installed")
		}
		return v.Syscall(v, le32(b))

	case opcode.DEPTH:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(v.estack.Len())))
	case opcode.DROP:
		_, err := v.pop()
		return err
	case opcode.NIP:
		_, err := v.estack.Remove(1)
		return err
	case opcode.XDROP:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		_, err = v.estack.Remove(int(n.Int64()))
		return err
	case opcode.CLEAR:
		v.estack.Clear()
		return nil
	case opcode.DUP:
		it, err := v.estack.Peek(0)
		if err != nil {
			return err
		}
		return v.push(it.Dup())
	case opcode.OVER:
		it, err := v.estack.Peek(1)
		if err != nil {
			return err
		}
		return v.push(it.Dup())
	case opcode.PICK:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		it, err := v.estack.Peek(int(n.Int64()))
		if err != nil {
			return err
		}
		return v.push(it.Dup())
	case opcode.TUCK:
		it, err := v.estack.Peek(0)
		if err != nil {
			return err
		}
		return v.estack.Insert(2, it.Dup())
	case opcode.SWAP:
		return v.roll(1)
	case opcode.ROT:
		return v.roll(2)
	case opcode.ROLL:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		return v.roll(int(n.Int64()))
	case opcode.REVERSE3:
		return v.reverseN(3)
	case opcode.REVERSE4:
		return v.reverseN(4)
	case opcode.REVERSEN:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		return v.reverseN(int(n.Int64()))

	case opcode.INITSSLOT:
		n, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		ctx.static = NewSlots(int(n))
		return nil
	case opcode.INITSLOT:
		locals, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		args, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		ctx.local = NewSlots(int(locals))
		ctx.arg = NewSlots(int(args))
		for i := int(args) - 1; i >= 0; i-- {
			it, err := v.pop()
			if err != nil {
				return err
			}
			_ = ctx.arg.Set(i, it)
		}
		return nil
	case opcode.LDSFLD0:
		it, err := ctx.static.Get(0)
		if err != nil {
			return err
		}
		return v.push(it)
	case opcode.LDSFLD:
		return v.execLoadSlot(ctx, ctx.static)
	case opcode.STSFLD:
		return v.execStoreSlot(ctx, ctx.static)
	case opcode.LDLOC:
		return v.execLoadSlot(ctx, ctx.local)
	case opcode.STLOC:
		return v.execStoreSlot(ctx, ctx.local)
	case opcode.LDARG:
		return v.execLoadSlot(ctx, ctx.arg)
	case opcode.STARG:
		return v.execStoreSlot(ctx, ctx.arg)

	case opcode.NEWBUFFER:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBuffer(make([]byte, n.Int64())))
	case opcode.MEMCPY:
		return v.execMemcpy()
	case opcode.CAT:
		b, err := v.popBytes()
		if err != nil {
			return err
		}
		a, err := v.popBytes()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewByteArray(append(append([]byte{}, a...), b...)))
	case opcode.SUBSTR:
		count, err := v.popInt()
		if err != nil {
			return err
		}
		index, err := v.popInt()
		if err != nil {
			return err
		}
		b, err := v.popBytes()
		if err != nil {
			return err
		}
		i, n := int(index.Int64()), int(count.Int64())
		if i < 0 || n < 0 || i+n > len(b) {
			return newFault(ctx.ip, "SUBSTR", "out of range")
		}
		return v.push(stackitem.NewByteArray(b[i : i+n]))
	case opcode.LEFT:
		count, err := v.popInt()
		if err != nil {
			return err
		}
		b, err := v.popBytes()
		if err != nil {
			return err
		}
		n := int(count.Int64())
		if n < 0 || n > len(b) {
			return newFault(ctx.ip, "LEFT", "out of range")
		}
		return v.push(stackitem.NewByteArray(b[:n]))
	case opcode.RIGHT:
		count, err := v.popInt()
		if err != nil {
			return err
		}
		b, err := v.popBytes()
		if err != nil {
			return err
		}
		n := int(count.Int64())
		if n < 0 || n > len(b) {
			return newFault(ctx.ip, "RIGHT", "out of range")
		}
		return v.push(stackitem.NewByteArray(b[len(b)-n:]))

	case opcode.INVERT:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBigIntegerFromBig(new(big.Int).Not(a)))
	case opcode.AND:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).And(a, b) })
	case opcode.OR:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Or(a, b) })
	case opcode.XOR:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Xor(a, b) })
	case opcode.EQUAL:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(a.Equals(b)))
	case opcode.NOTEQUAL:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(!a.Equals(b)))

	case opcode.SIGN:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBigIntegerFromInt64(int64(a.Sign())))
	case opcode.ABS:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBigIntegerFromBig(new(big.Int).Abs(a)))
	case opcode.NEGATE:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBigIntegerFromBig(new(big.Int).Neg(a)))
	case opcode.INC:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBigIntegerFromBig(new(big.Int).Add(a, big.NewInt(1))))
	case opcode.DEC:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBigIntegerFromBig(new(big.Int).Sub(a, big.NewInt(1))))
	case opcode.ADD:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) })
	case opcode.SUB:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) })
	case opcode.MUL:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) })
	case opcode.DIV:
		return v.binIntErr(func(a, b *big.Int) (*big.Int, error) {
			if b.Sign() == 0 {
				return nil, newFault(ctx.ip, "DIV", "division by zero")
			}
			return new(big.Int).Quo(a, b), nil
		})
	case opcode.MOD:
		return v.binIntErr(func(a, b *big.Int) (*big.Int, error) {
			if b.Sign() == 0 {
				return nil, newFault(ctx.ip, "MOD", "division by zero")
			}
			return new(big.Int).Rem(a, b), nil
		})
	case opcode.POW:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Exp(a, b, nil) })
	case opcode.SQRT:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		if a.Sign() < 0 {
			return newFault(ctx.ip, "SQRT", "negative operand")
		}
		return v.push(stackitem.NewBigIntegerFromBig(new(big.Int).Sqrt(a)))
	case opcode.SHL:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Lsh(a, uint(b.Int64())) })
	case opcode.SHR:
		return v.binInt(func(a, b *big.Int) *big.Int { return new(big.Int).Rsh(a, uint(b.Int64())) })
	case opcode.NOT:
		a, err := v.popBool()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(!a))
	case opcode.BOOLAND:
		b, err := v.popBool()
		if err != nil {
			return err
		}
		a, err := v.popBool()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(a && b))
	case opcode.BOOLOR:
		b, err := v.popBool()
		if err != nil {
			return err
		}
		a, err := v.popBool()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(a || b))
	case opcode.NZ:
		a, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(a.Sign() != 0))
	case opcode.NUMEQUAL:
		return v.cmpInt(func(c int) bool { return c == 0 })
	case opcode.NUMNOTEQUAL:
		return v.cmpInt(func(c int) bool { return c != 0 })
	case opcode.LT:
		return v.cmpInt(func(c int) bool { return c < 0 })
	case opcode.LE:
		return v.cmpInt(func(c int) bool { return c <= 0 })
	case opcode.GT:
		return v.cmpInt(func(c int) bool { return c > 0 })
	case opcode.GE:
		return v.cmpInt(func(c int) bool { return c >= 0 })
	case opcode.MIN:
		return v.binInt(func(a, b *big.Int) *big.Int {
			if a.Cmp(b) < 0 {
				return a
			}
			return b
		})
	case opcode.MAX:
		return v.binInt(func(a, b *big.Int) *big.Int {
			if a.Cmp(b) > 0 {
				return a
			}
			return b
		})
	case opcode.WITHIN:
		b, err := v.popInt()
		if err != nil {
			return err
		}
		a, err := v.popInt()
		if err != nil {
			return err
		}
		x, err := v.popInt()
		if err != nil {
			return err
		}
		return v.push(stackitem.NewBool(a.Cmp(x) <= 0 && x.Cmp(b) < 0))

	case opcode.PACK:
		return v.execPack()
	case opcode.PACKSTRUCT:
		return v.execPackStruct()
	case opcode.PACKMAP:
		return v.execPackMap()
	case opcode.UNPACK:
		return v.execUnpack()
	case opcode.NEWARRAY0:
		return v.push(stackitem.NewArray(nil))
	case opcode.NEWARRAY, opcode.NEWARRAYT:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		items := make([]stackitem.Item, n.Int64())
		for i := range items {
			items[i] = stackitem.Null{}
		}
		return v.push(stackitem.NewArray(items))
	case opcode.NEWSTRUCT0:
		return v.push(stackitem.NewStruct(nil))
	case opcode.NEWSTRUCT:
		n, err := v.popInt()
		if err != nil {
			return err
		}
		items := make([]stackitem.Item, n.Int64())
		for i := range items {
			items[i] = stackitem.Null{}
		}
		return v.push(stackitem.NewStruct(items))
	case opcode.NEWMAP:
		return v.push(stackitem.NewMap())
	case opcode.SIZE:
		return v.execSize()
	case opcode.HASKEY:
		return v.execHasKey()
	case opcode.KEYS:
		it, err := v.pop()
		if err != nil {
			return err
		}
		m, ok := it.(*stackitem.Map)
		if !ok {
			return newFault(ctx.ip, "KEYS", "expected Map")
		}
		return v.push(stackitem.NewArray(m.Keys()))
	case opcode.VALUES:
		return v.execValues()
	case opcode.PICKITEM:
		return v.execPickItem()
	case opcode.APPEND:
		return v.execAppend()
	case opcode.SETITEM:
		return v.execSetItem()
	case opcode.REVERSEITEMS:
		return v.execReverseItems()
	case opcode.REMOVE:
		return v.execRemove()
	case opcode.CLEARITEMS:
		it, err := v.pop()
		if err != nil {
			return err
		}
		switch c := it.(type) {
		case *stackitem.Array:
			c.Clear()
		case *stackitem.Struct:
			c.Clear()
		case *stackitem.Map:
			for _, k := range c.Keys() {
				c.Delete(k)
			}
		default:
			return newFault(v.curIP(), "CLEARITEMS", "unsupported type")
		}
		return nil
	case opcode.POPITEM:
		it, err := v.pop()
		if err != nil {
			return err
		}
		a, ok := it.(*stackitem.Array)
		if !ok || a.Len() == 0 {
			return newFault(ctx.ip, "POPITEM", "expected non-empty Array")
		}
		last, err := popArrayItem(a)
		if err != nil {
			return err
		}
		return v.push(last)

	case opcode.ISNULL:
		it, err := v.pop()
		if err != nil {
			return err
		}
		_, ok := it.(stackitem.Null)
		return v.push(stackitem.NewBool(ok))
	case opcode.ISTYPE:
		return v.execIsType(ctx)
	case opcode.CONVERT:
		return v.execConvert(ctx)
	}
	return newFault(ctx.ip, op.String(), "unimplemented or unknown opcode")
}

func (v *VM) execPushInt(ctx *Context, op opcode.Opcode) error {
	n := 1 << uint(op-opcode.PUSHINT8)
	b, err := ctx.ReadBytes(n)
	if err != nil {
		return err
	}
	be := make([]byte, n)
	for i, c := range b {
		be[n-1-i] = c
	}
	neg := b[n-1]&0x80 != 0
	val := new(big.Int).SetBytes(be)
	if neg {
		max := new(big.Int).Lsh(big.NewInt(1), uint(n*8))
		val.Sub(val, max)
	}
	return v.push(stackitem.NewBigInteger(val))
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (v *VM) roll(n int) error {
	it, err := v.estack.Remove(n)
	if err != nil {
		return err
	}
	return v.estack.Insert(0, it)
}

func (v *VM) reverseN(n int) error {
	if n < 2 {
		return nil
	}
	items := make([]stackitem.Item, n)
	for i := 0; i < n; i++ {
		it, err := v.estack.Remove(0)
		if err != nil {
			return err
		}
		items[i] = it
	}
	for _, it := range items {
		if err := v.estack.Insert(0, it); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) binInt(f func(a, b *big.Int) *big.Int) error {
	b, err := v.popInt()
	if err != nil {
		return err
	}
	a, err := v.popInt()
	if err != nil {
		return err
	}
	return v.push(stackitem.NewBigInteger(f(a, b)))
}

func (v *VM) binIntErr(f func(a, b *big.Int) (*big.Int, error)) error {
	b, err := v.popInt()
	if err != nil {
		return err
	}
	a, err := v.popInt()
	if err != nil {
		return err
	}
	r, err := f(a, b)
	if err != nil {
		return err
	}
	return v.push(stackitem.NewBigInteger(r))
}

func (v *VM) cmpInt(f func(c int) bool) error {
	b, err := v.popInt()
	if err != nil {
		return err
	}
	a, err := v.popInt()
	if err != nil {
		return err
	}
	return v.push(stackitem.NewBool(f(a.Cmp(b))))
}

func (v *VM) execLoadSlot(ctx *Context, slots Slots) error {
	n, err := ctx.ReadByte()
	if err != nil {
		return err
	}
	it, err := slots.Get(int(n))
	if err != nil {
		return err
	}
	return v.push(it)
}

func (v *VM) execStoreSlot(ctx *Context, slots Slots) error {
	n, err := ctx.ReadByte()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	return slots.Set(int(n), it)
}

func (v *VM) execMemcpy() error {
	count, err := v.popInt()
	if err != nil {
		return err
	}
	srcIndex, err := v.popInt()
	if err != nil {
		return err
	}
	src, err := v.popBytes()
	if err != nil {
		return err
	}
	dstIndex, err := v.popInt()
	if err != nil {
		return err
	}
	dstItem, err := v.pop()
	if err != nil {
		return err
	}
	dst, ok := dstItem.(stackitem.Buffer)
	if !ok {
		return newFault(v.curIP(), "MEMCPY", "destination must be a Buffer")
	}
	si, di, n := int(srcIndex.Int64()), int(dstIndex.Int64()), int(count.Int64())
	if si < 0 || di < 0 || n < 0 || si+n > len(src) || di+n > len(dst) {
		return newFault(v.curIP(), "MEMCPY", "out of range")
	}
	copy(dst[di:di+n], src[si:si+n])
	return nil
}

func (v *VM) execPack() error {
	n, err := v.popInt()
	if err != nil {
		return err
	}
	items, err := v.popN(int(n.Int64()))
	if err != nil {
		return err
	}
	return v.push(stackitem.NewArray(items))
}

func (v *VM) execPackStruct() error {
	n, err := v.popInt()
	if err != nil {
		return err
	}
	items, err := v.popN(int(n.Int64()))
	if err != nil {
		return err
	}
	return v.push(stackitem.NewStruct(items))
}

func (v *VM) execPackMap() error {
	n, err := v.popInt()
	if err != nil {
		return err
	}
	m := stackitem.NewMap()
	for i := int64(0); i < n.Int64(); i++ {
		val, err := v.pop()
		if err != nil {
			return err
		}
		key, err := v.pop()
		if err != nil {
			return err
		}
		m.Set(key, val)
	}
	return v.push(m)
}

func (v *VM) popN(n int) ([]stackitem.Item, error) {
	items := make([]stackitem.Item, n)
	for i := 0; i < n; i++ {
		it, err := v.pop()
		if err != nil {
			return nil, err
		}
		items[i] = it
	}
	return items, nil
}

func (v *VM) execUnpack() error {
	it, err := v.pop()
	if err != nil {
		return err
	}
	items, err := itemsOf(it)
	if err != nil {
		return err
	}
	for i := len(items) - 1; i >= 0; i-- {
		if err := v.push(items[i]); err != nil {
			return err
		}
	}
	return v.push(stackitem.NewBigIntegerFromInt64(int64(len(items))))
}

func itemsOf(it stackitem.Item) ([]stackitem.Item, error) {
	switch c := it.(type) {
	case *stackitem.Array:
		return c.Value().([]stackitem.Item), nil
	case *stackitem.Struct:
		return c.Value().([]stackitem.Item), nil
	default:
		return nil, newFault(-1, "UNPACK", "expected Array or Struct")
	}
}

func popArrayItem(a *stackitem.Array) (stackitem.Item, error) {
	items := a.Value().([]stackitem.Item)
	if len(items) == 0 {
		return nil, newFault(-1, "POPITEM", "empty array")
	}
	last := items[len(items)-1]
	a.RemoveLast()
	return last, nil
}

func (v *VM) execSize() error {
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case stackitem.ByteString:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(len(c))))
	case stackitem.Buffer:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(len(c))))
	case *stackitem.Array:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(c.Len())))
	case *stackitem.Struct:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(c.Len())))
	case *stackitem.Map:
		return v.push(stackitem.NewBigIntegerFromInt64(int64(c.Len())))
	default:
		return newFault(v.curIP(), "SIZE", "unsupported type")
	}
}

func (v *VM) execHasKey() error {
	keyItem, err := v.pop()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Map:
		_, ok := c.Get(keyItem)
		return v.push(stackitem.NewBool(ok))
	case *stackitem.Array:
		idx, err := keyItem.TryInteger()
		if err != nil {
			return err
		}
		i := idx.Int64()
		return v.push(stackitem.NewBool(i >= 0 && i < int64(c.Len())))
	default:
		return newFault(v.curIP(), "HASKEY", "unsupported type")
	}
}

func (v *VM) execValues() error {
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Map:
		return v.push(stackitem.NewArray(c.Values()))
	case *stackitem.Array:
		return v.push(stackitem.NewArray(append([]stackitem.Item{}, c.Value().([]stackitem.Item)...)))
	default:
		return newFault(v.curIP(), "VALUES", "unsupported type")
	}
}

func (v *VM) execPickItem() error {
	keyItem, err := v.pop()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Map:
		val, ok := c.Get(keyItem)
		if !ok {
			return newFault(v.curIP(), "PICKITEM", "key not found")
		}
		return v.push(val)
	case *stackitem.Array:
		idx, err := keyItem.TryInteger()
		if err != nil {
			return err
		}
		items := c.Value().([]stackitem.Item)
		i := idx.Int64()
		if i < 0 || i >= int64(len(items)) {
			return newFault(v.curIP(), "PICKITEM", "index out of range")
		}
		return v.push(items[i])
	case *stackitem.Struct:
		idx, err := keyItem.TryInteger()
		if err != nil {
			return err
		}
		items := c.Value().([]stackitem.Item)
		i := idx.Int64()
		if i < 0 || i >= int64(len(items)) {
			return newFault(v.curIP(), "PICKITEM", "index out of range")
		}
		return v.push(items[i])
	case stackitem.ByteString:
		idx, err := keyItem.TryInteger()
		if err != nil {
			return err
		}
		i := idx.Int64()
		if i < 0 || i >= int64(len(c)) {
			return newFault(v.curIP(), "PICKITEM", "index out of range")
		}
		return v.push(stackitem.NewBigIntegerFromInt64(int64(c[i])))
	default:
		return newFault(v.curIP(), "PICKITEM", "unsupported type")
	}
}

func (v *VM) execAppend() error {
	valItem, err := v.pop()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Array:
		c.Append(valItem)
		return nil
	case *stackitem.Struct:
		c.AppendItem(valItem)
		return nil
	default:
		return newFault(v.curIP(), "APPEND", "expected Array or Struct")
	}
}

func (v *VM) execSetItem() error {
	valItem, err := v.pop()
	if err != nil {
		return err
	}
	keyItem, err := v.pop()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Map:
		c.Set(keyItem, valItem)
		return nil
	case *stackitem.Array:
		idx, err := keyItem.TryInteger()
		if err != nil {
			return err
		}
		return c.SetAt(int(idx.Int64()), valItem)
	default:
		return newFault(v.curIP(), "SETITEM", "unsupported type")
	}
}

func (v *VM) execReverseItems() error {
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Array:
		c.Reverse()
	case *stackitem.Struct:
		c.Reverse()
	default:
		return newFault(v.curIP(), "REVERSEITEMS", "unsupported type")
	}
	return nil
}

func (v *VM) execRemove() error {
	keyItem, err := v.pop()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	switch c := it.(type) {
	case *stackitem.Map:
		c.Delete(keyItem)
		return nil
	case *stackitem.Array:
		idx, err := keyItem.TryInteger()
		if err != nil {
			return err
		}
		return c.RemoveAt(int(idx.Int64()))
	default:
		return newFault(v.curIP(), "REMOVE", "unsupported type")
	}
}

func (v *VM) execIsType(ctx *Context) error {
	b, err := ctx.ReadByte()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	return v.push(stackitem.NewBool(it.Type() == stackitem.Type(b)))
}

func (v *VM) execConvert(ctx *Context) error {
	b, err := ctx.ReadByte()
	if err != nil {
		return err
	}
	it, err := v.pop()
	if err != nil {
		return err
	}
	conv, err := stackitem.ConvertTo(it, stackitem.Type(b))
	if err != nil {
		return err
	}
	return v.push(conv)
}

func (v *VM) execShortJump(ctx *Context, op opcode.Opcode) error {
	b, err := ctx.ReadByte()
	if err != nil {
		return err
	}
	return v.jumpOrCall(ctx, op, int(int8(b)), ctx.ip-2)
}

func (v *VM) execLongJump(ctx *Context, op opcode.Opcode) error {
	b, err := ctx.ReadBytes(4)
	if err != nil {
		return err
	}
	return v.jumpOrCall(ctx, op, int(int32(le32(b))), ctx.ip-5)
}

// jumpOrCall resolves a conditional/unconditional jump or CALL, where
// offset is relative to the instruction's own opcode byte (instrStart).
func (v *VM) jumpOrCall(ctx *Context, op opcode.Opcode, offset, instrStart int) error {
	target := instrStart + offset
	switch op {
	case opcode.JMP, opcode.JMP_L:
		return ctx.Jump(target)
	case opcode.CALL, opcode.CALL_L:
		return v.call(ctx, target)
	}
	var cond bool
	var err error
	switch op {
	case opcode.JMPIF, opcode.JMPIF_L:
		cond, err = v.popBool()
	case opcode.JMPIFNOT, opcode.JMPIFNOT_L:
		cond, err = v.popBool()
		cond = !cond
	case opcode.JMPEQ, opcode.JMPEQ_L:
		return v.condJumpInt(ctx, target, func(c int) bool { return c == 0 })
	case opcode.JMPNE, opcode.JMPNE_L:
		return v.condJumpInt(ctx, target, func(c int) bool { return c != 0 })
	case opcode.JMPGT, opcode.JMPGT_L:
		return v.condJumpInt(ctx, target, func(c int) bool { return c > 0 })
	case opcode.JMPGE, opcode.JMPGE_L:
		return v.condJumpInt(ctx, target, func(c int) bool { return c >= 0 })
	case opcode.JMPLT, opcode.JMPLT_L:
		return v.condJumpInt(ctx, target, func(c int) bool { return c < 0 })
	case opcode.JMPLE, opcode.JMPLE_L:
		return v.condJumpInt(ctx, target, func(c int) bool { return c <= 0 })
	}
	if err != nil {
		return err
	}
	if cond {
		return ctx.Jump(target)
	}
	return nil
}

func (v *VM) condJumpInt(ctx *Context, target int, f func(int) bool) error {
	b, err := v.popInt()
	if err != nil {
		return err
	}
	a, err := v.popInt()
	if err != nil {
		return err
	}
	if f(a.Cmp(b)) {
		return ctx.Jump(target)
	}
	return nil
}

// call creates a new invocation frame at pos within the same script,
// inheriting the caller's call flags (used for NEF-internal function
// calls; cross-contract calls go through the System.Contract.Call
// syscall instead, per spec.md §4.2).
func (v *VM) call(ctx *Context, pos int) error {
	nc := NewContext(ctx.script)
	nc.callFlags = ctx.callFlags
	nc.callingFrame = ctx
	if err := nc.Jump(pos); err != nil {
		return err
	}
	if len(v.istack) >= MaxInvocationStackDepth {
		return newFault(ctx.ip, "CALL", "invocation stack depth exceeded")
	}
	v.istack = append(v.istack, nc)
	return nil
}

func (v *VM) throw(item stackitem.Item) error {
	b, _ := item.TryBytes()
	return newFault(v.curIP(), "THROW", "%s", string(b))
}

func (v *VM) execTry(ctx *Context, op opcode.Opcode) error {
	var catchOff, finallyOff int
	if op == opcode.TRY {
		cb, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		fb, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		catchOff, finallyOff = int(int8(cb)), int(int8(fb))
	} else {
		cb, err := ctx.ReadBytes(4)
		if err != nil {
			return err
		}
		fb, err := ctx.ReadBytes(4)
		if err != nil {
			return err
		}
		catchOff, finallyOff = int(int32(le32(cb))), int(int32(le32(fb)))
	}
	instrStart := ctx.ip - 1
	if op == opcode.TRY {
		instrStart -= 2
	} else {
		instrStart -= 8
	}
	t := tryContext{catchOffset: -1, finallyOffset: -1, endOffset: -1}
	if catchOff != 0 {
		t.catchOffset = instrStart + catchOff
	}
	if finallyOff != 0 {
		t.finallyOffset = instrStart + finallyOff
	}
	ctx.tryStack = append(ctx.tryStack, t)
	return nil
}

func (v *VM) execEndTry(ctx *Context, op opcode.Opcode) error {
	if len(ctx.tryStack) == 0 {
		return newFault(ctx.ip, "ENDTRY", "no active try region")
	}
	var offset int
	if op == opcode.ENDTRY {
		b, err := ctx.ReadByte()
		if err != nil {
			return err
		}
		offset = int(int8(b))
	} else {
		b, err := ctx.ReadBytes(4)
		if err != nil {
			return err
		}
		offset = int(int32(le32(b)))
	}
	instrStart := ctx.ip - 1
	if op == opcode.ENDTRY {
		instrStart--
	} else {
		instrStart -= 4
	}
	top := ctx.tryStack[len(ctx.tryStack)-1]
	target := instrStart + offset
	if top.finallyOffset >= 0 && top.state != tryInFinally {
		top.endOffset = target
		top.state = tryInFinally
		ctx.tryStack[len(ctx.tryStack)-1] = top
		return ctx.Jump(top.finallyOffset)
	}
	ctx.tryStack = ctx.tryStack[:len(ctx.tryStack)-1]
	return ctx.Jump(target)
}

func (v *VM) execEndFinally(ctx *Context) error {
	if len(ctx.tryStack) == 0 {
		return newFault(ctx.ip, "ENDFINALLY", "no active try region")
	}
	top := ctx.tryStack[len(ctx.tryStack)-1]
	ctx.tryStack = ctx.tryStack[:len(ctx.tryStack)-1]
	return ctx.Jump(top.endOffset)
}
