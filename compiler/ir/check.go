package ir

import (
	"tlog.app/go/errors"
)

// typeCheck verifies every instruction's type contracts and infers the
// function return type. Comparisons require all three operands to share the
// boolean type, matching the checking order of the original system dialect.
func (p *IR) typeCheck() (err error) {
	foundReturn := false

	for i, ins := range p.Instructions {
		switch v := ins.Val.(type) {
		case TypePrim, TypeStruct, TypeBind, Args, Jump, Const, Callk:
			// constant conformance and callk signatures are unchecked
		case One: // return
			ret := p.Types[v.Src]

			if foundReturn && p.ReturnType != ret {
				err = errors.New("multiple return types are not allowed: type-id %d and type-id %d", ret, p.ReturnType)
				break
			}

			p.ReturnType = ret
			foundReturn = true
		case Two:
			err = p.checkTwo(ins.Op, v)
		case Three:
			err = p.checkThree(ins.Op, v)
		case Branch:
			err = p.checkBoolean(v.Cond)
		case Call:
			err = p.checkPointer(v.Callee)
		case Field:
			err = p.checkField(v)
		}

		if err != nil {
			if ins.Line > 0 {
				return errors.Wrap(err, "instruction %d (line %d)", i, ins.Line)
			}

			return errors.Wrap(err, "instruction %d", i)
		}
	}

	return nil
}

func (p *IR) checkTwo(op Op, v Two) error {
	switch op {
	case OpMove:
		return p.checkEqual(v.Dest, v.Src)
	case OpCast:
		// reinterpret, no constraint
		return nil
	case OpBnot:
		err := p.checkInteger(v.Src)
		if err != nil {
			return err
		}

		return p.checkEqual(v.Dest, v.Src)
	case OpLoad:
		return p.checkPointer(v.Src)
	case OpStore:
		return p.checkPointer(v.Dest)
	case OpAddress:
		return p.checkPointer(v.Dest)
	}

	return nil
}

func (p *IR) checkThree(op Op, v Three) (err error) {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
	case OpBand, OpBor, OpBxor, OpShl, OpShr:
		err = p.checkInteger(v.LHS)
		if err != nil {
			return err
		}
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ:
		err = p.checkEqual(v.LHS, v.RHS)
		if err == nil {
			err = p.checkEqual(v.Dest, v.LHS)
		}
		if err == nil {
			err = p.checkBoolean(v.Dest)
		}

		return err
	}

	err = p.checkEqual(v.LHS, v.RHS)
	if err == nil {
		err = p.checkEqual(v.Dest, v.LHS)
	}

	return err
}

func (p *IR) checkField(v Field) error {
	err := p.checkStruct(v.Struct)
	if err != nil {
		return err
	}

	def := p.TypeDefs[p.Types[v.Struct]]

	if v.Field >= def.FieldCount {
		return errors.New("invalid field index %d", v.Field)
	}

	tfield := p.Fields[def.FieldStart+v.Field].Type
	tdest := p.Types[v.Reg]

	if tfield != tdest {
		return errors.New("field of type type-id %d does not match type-id %d", tfield, tdest)
	}

	return nil
}

func (p *IR) checkBoolean(reg uint32) error {
	if p.regPrim(reg) != PrimBoolean {
		return errors.New("expected boolean, got type-id %d", p.Types[reg])
	}

	return nil
}

func (p *IR) checkInteger(reg uint32) error {
	switch p.regPrim(reg) {
	case PrimU8, PrimS8, PrimU16, PrimS16, PrimU32, PrimS32, PrimU64, PrimS64:
		return nil
	}

	return errors.New("expected integer, got type-id %d", p.Types[reg])
}

func (p *IR) checkPointer(reg uint32) error {
	if p.regPrim(reg) != PrimPointer {
		return errors.New("expected pointer, got type-id %d", p.Types[reg])
	}

	return nil
}

func (p *IR) checkStruct(reg uint32) error {
	if p.regPrim(reg) != PrimStruct {
		return errors.New("expected struct, got type-id %d", p.Types[reg])
	}

	return nil
}

func (p *IR) checkEqual(reg1, reg2 uint32) error {
	t1 := p.Types[reg1]
	t2 := p.Types[reg2]

	if t1 != t2 {
		return errors.New("type-id %d does not match type-id %d", t1, t2)
	}

	return nil
}
