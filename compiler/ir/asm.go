package ir

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/sysdialect/sysir/compiler/value"
)

type (
	asm struct {
		p *IR

		// labels is reserved for named jump targets. Nothing populates it
		// yet: keyword records are skipped, targets are raw indices.
		labels    map[any]uint32
		constants map[any]uint32
	}
)

// Assemble parses instruction records into a verified IR: it packs the
// instruction array, interns call-target constants, materializes the type
// table and checks every instruction's type contracts. On failure no IR is
// produced.
func Assemble(ctx context.Context, src Source) (p *IR, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "assemble", "link_name", src.LinkName, "records", len(src.Instructions))
	defer tr.Finish("err", &err)

	if src.ParameterCount < 0 {
		return nil, errors.New("negative parameter count %d", src.ParameterCount)
	}

	a := &asm{
		p: &IR{
			LinkName:       src.LinkName,
			ParameterCount: src.ParameterCount,
			RegisterCount:  uint32(src.ParameterCount),
		},
		labels:    map[any]uint32{},
		constants: map[any]uint32{},
	}

	err = a.parse(ctx, src.Instructions)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	a.p.initTypes()

	err = a.p.typeCheck()
	if err != nil {
		return nil, errors.Wrap(err, "type check")
	}

	tr.Printw("assembled", "instructions", len(a.p.Instructions), "registers", a.p.RegisterCount, "types", len(a.p.TypeDefs), "constants", len(a.p.Constants), "return_type", a.p.ReturnType)

	return a.p, nil
}

func (a *asm) parse(ctx context.Context, records []any) (err error) {
	for _, x := range records {
		if _, ok := x.(value.Keyword); ok {
			continue
		}

		tup, ok := x.(value.Tuple)
		if !ok {
			return errors.New("expected instruction to be tuple, got %v", value.Format(x))
		}

		err = a.instruction(tup)
		if err != nil {
			if tup.Line > 0 {
				return errors.Wrap(err, "line %d", tup.Line)
			}

			return err
		}
	}

	q := a.p.Instructions

	if l := len(q); l == 0 || q[l-1].Op != OpJump && q[l-1].Op != OpReturn {
		return errors.New("last instruction must be jump or return")
	}

	err = a.checkTargets()
	if err != nil {
		return err
	}

	a.p.Constants = make([]any, len(a.constants))
	for c, index := range a.constants {
		a.p.Constants[index] = c
	}

	return nil
}

func (a *asm) instruction(tup value.Tuple) (err error) {
	if len(tup.Items) < 1 {
		return errors.New("invalid instruction, no opcode")
	}

	head, ok := tup.Items[0].(value.Symbol)
	if !ok {
		return errors.New("expected opcode symbol, found %v", value.Format(tup.Items[0]))
	}

	op, ok := opByName(string(head))
	if !ok {
		return errors.New("unknown instruction %v", tup)
	}

	ins := Instruction{Op: op, Line: tup.Line, Column: tup.Column}

	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide,
		OpBand, OpBor, OpBxor, OpShl, OpShr,
		OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ:
		err = a.assertLength(tup, 4)
		if err != nil {
			return err
		}

		var v Three

		v.Dest, err = a.readOperand(tup.Items[1])
		if err == nil {
			v.LHS, err = a.readOperand(tup.Items[2])
		}
		if err == nil {
			v.RHS, err = a.readOperand(tup.Items[3])
		}
		if err != nil {
			return err
		}

		a.push(ins, v)
	case OpCall:
		err = a.assertMinLength(tup, 3)
		if err != nil {
			return err
		}

		dest, err := a.readOperand(tup.Items[1])
		if err != nil {
			return err
		}

		argc := uint32(len(tup.Items) - 3)

		if callee, ok := tup.Items[2].(value.Symbol); ok {
			index, err := a.intern(callee)
			if err != nil {
				return err
			}

			ins.Op = OpCallk
			a.push(ins, Callk{Dest: dest, Constant: index, ArgCount: argc})
		} else {
			reg, err := a.readOperand(tup.Items[2])
			if err != nil {
				return err
			}

			a.push(ins, Call{Dest: dest, Callee: reg, ArgCount: argc})
		}

		err = a.pushArgs(ins, tup.Items[3:], a.readOperand)
		if err != nil {
			return err
		}
	case OpLoad, OpStore, OpMove, OpCast, OpBnot, OpAddress:
		err = a.assertLength(tup, 3)
		if err != nil {
			return err
		}

		var v Two

		v.Dest, err = a.readOperand(tup.Items[1])
		if err == nil {
			v.Src, err = a.readOperand(tup.Items[2])
		}
		if err != nil {
			return err
		}

		a.push(ins, v)
	case OpFieldGet:
		err = a.assertLength(tup, 4)
		if err != nil {
			return err
		}

		var v Field

		v.Reg, err = a.readOperand(tup.Items[1])
		if err == nil {
			v.Struct, err = a.readOperand(tup.Items[2])
		}
		if err == nil {
			v.Field, err = a.readField(tup.Items[3])
		}
		if err != nil {
			return err
		}

		a.push(ins, v)
	case OpFieldSet:
		err = a.assertLength(tup, 4)
		if err != nil {
			return err
		}

		var v Field

		v.Struct, err = a.readOperand(tup.Items[1])
		if err == nil {
			v.Field, err = a.readField(tup.Items[2])
		}
		if err == nil {
			v.Reg, err = a.readOperand(tup.Items[3])
		}
		if err != nil {
			return err
		}

		a.push(ins, v)
	case OpReturn:
		err = a.assertLength(tup, 2)
		if err != nil {
			return err
		}

		src, err := a.readOperand(tup.Items[1])
		if err != nil {
			return err
		}

		a.push(ins, One{Src: src})
	case OpBranch:
		err = a.assertLength(tup, 3)
		if err != nil {
			return err
		}

		var v Branch

		v.Cond, err = a.readOperand(tup.Items[1])
		if err == nil {
			v.To, err = a.readLabel(tup.Items[2])
		}
		if err != nil {
			return err
		}

		a.push(ins, v)
	case OpJump:
		err = a.assertLength(tup, 2)
		if err != nil {
			return err
		}

		to, err := a.readLabel(tup.Items[1])
		if err != nil {
			return err
		}

		a.push(ins, Jump{To: to})
	case OpConstant:
		err = a.assertLength(tup, 3)
		if err != nil {
			return err
		}

		dest, err := a.readOperand(tup.Items[1])
		if err != nil {
			return err
		}

		index, err := a.intern(tup.Items[2])
		if err != nil {
			return err
		}

		a.push(ins, Const{Dest: dest, Constant: index})
	case OpTypePrim:
		err = a.assertLength(tup, 3)
		if err != nil {
			return err
		}

		dest, err := a.readTypeOperand(tup.Items[1])
		if err != nil {
			return err
		}

		prim, err := a.readPrim(tup.Items[2])
		if err != nil {
			return err
		}

		a.push(ins, TypePrim{Dest: dest, Prim: prim})
	case OpTypeStruct:
		err = a.assertMinLength(tup, 2)
		if err != nil {
			return err
		}

		dest, err := a.readTypeOperand(tup.Items[1])
		if err != nil {
			return err
		}

		a.push(ins, TypeStruct{Dest: dest, ArgCount: uint32(len(tup.Items) - 2)})

		err = a.pushArgs(ins, tup.Items[2:], a.readTypeOperand)
		if err != nil {
			return err
		}
	case OpTypeBind:
		err = a.assertLength(tup, 3)
		if err != nil {
			return err
		}

		var v TypeBind

		v.Dest, err = a.readOperand(tup.Items[1])
		if err == nil {
			v.Type, err = a.readTypeOperand(tup.Items[2])
		}
		if err != nil {
			return err
		}

		a.push(ins, v)
	default: // arg is only synthesized; callk has no source spelling
		return errors.New("invalid instruction %v", tup)
	}

	return nil
}

// pushArgs packs extra header operands three per carrier instruction.
func (a *asm) pushArgs(ins Instruction, items []any, read func(any) (uint32, error)) (err error) {
	ins.Op = OpArg

	for j := 0; j < len(items); j += 3 {
		var v Args

		remaining := len(items) - j
		if remaining > 3 {
			remaining = 3
		}

		for k := 0; k < remaining; k++ {
			v.Args[k], err = read(items[j+k])
			if err != nil {
				return err
			}
		}

		a.push(ins, v)
	}

	return nil
}

func (a *asm) push(ins Instruction, val any) {
	ins.Val = val
	a.p.Instructions = append(a.p.Instructions, ins)
}

func (a *asm) intern(c any) (uint32, error) {
	switch c.(type) {
	case value.Symbol, value.Keyword, string, int, int64, uint32, float64, bool:
	default:
		return 0, errors.New("invalid constant %v", value.Format(c))
	}

	index, ok := a.constants[c]
	if ok {
		return index, nil
	}

	index = uint32(len(a.constants))
	a.constants[c] = index

	tlog.V("intern").Printw("constant interned", "index", index, "value", value.Format(c), "from", loc.Caller(1))

	return index, nil
}

func (a *asm) assertLength(tup value.Tuple, n int) error {
	if len(tup.Items) != n {
		return errors.New("expected instruction of length %d, got %v", n, tup)
	}

	return nil
}

func (a *asm) assertMinLength(tup value.Tuple, n int) error {
	if len(tup.Items) < n {
		return errors.New("expected instruction of at least length %d, got %v", n, tup)
	}

	return nil
}

func (a *asm) readOperand(x any) (uint32, error) {
	operand, ok := value.Uint(x)
	if !ok {
		return 0, errors.New("expected non-negative integer operand, got %v", value.Format(x))
	}

	if operand >= a.p.RegisterCount {
		a.p.RegisterCount = operand + 1
	}

	return operand, nil
}

func (a *asm) readTypeOperand(x any) (uint32, error) {
	operand, ok := value.Uint(x)
	if !ok {
		return 0, errors.New("expected non-negative integer operand, got %v", value.Format(x))
	}

	if n := uint32(len(a.p.TypeDefs)); operand >= n {
		a.p.TypeDefs = append(a.p.TypeDefs, make([]TypeDef, operand+1-n)...)
	}

	return operand, nil
}

func (a *asm) readField(x any) (uint32, error) {
	operand, ok := value.Uint(x)
	if !ok {
		return 0, errors.New("expected non-negative field index, got %v", value.Format(x))
	}

	return operand, nil
}

func (a *asm) readPrim(x any) (Prim, error) {
	sym, ok := x.(value.Symbol)
	if !ok {
		return 0, errors.New("expected primitive type, got %v", value.Format(x))
	}

	prim, ok := primByName(string(sym))
	if !ok {
		return 0, errors.New("unknown type %v", value.Format(x))
	}

	return prim, nil
}

func (a *asm) readLabel(x any) (uint32, error) {
	switch x.(type) {
	case value.Symbol, value.Keyword, string, int, int64, uint32, float64, bool:
		if to, ok := a.labels[x]; ok {
			return to, nil
		}
	}

	to, ok := value.Uint(x)
	if !ok {
		return 0, errors.New("expected non-negative integer label, got %v", value.Format(x))
	}

	return to, nil
}

func (a *asm) checkTargets() error {
	n := uint32(len(a.p.Instructions))

	for i, ins := range a.p.Instructions {
		switch v := ins.Val.(type) {
		case Jump:
			if v.To >= n {
				return errors.New("instruction %d: jump target %d out of range", i, v.To)
			}
		case Branch:
			if v.To >= n {
				return errors.New("instruction %d: branch target %d out of range", i, v.To)
			}
		}
	}

	return nil
}
