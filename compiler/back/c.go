package back

import (
	"context"
	"math"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog"

	"github.com/sysdialect/sysir/compiler/ir"
	"github.com/sysdialect/sysir/compiler/value"
)

// cPrimNames maps primitive kinds to C type names, indexed by ir.Prim.
var cPrimNames = []string{
	"uint8_t",
	"int8_t",
	"uint16_t",
	"int16_t",
	"uint32_t",
	"int32_t",
	"uint64_t",
	"int64_t",
	"float",
	"double",
	"char *",
	"bool",
}

var binop = map[ir.Op]string{
	ir.OpAdd:      "+",
	ir.OpSubtract: "-",
	ir.OpMultiply: "*",
	ir.OpDivide:   "/",
	ir.OpBand:     "&",
	ir.OpBor:      "|",
	ir.OpBxor:     "^",
	ir.OpShl:      "<<",
	ir.OpShr:      ">>",
	ir.OpGT:       ">",
	ir.OpGTE:      ">=",
	ir.OpLT:       "<",
	ir.OpLTE:      "<=",
	ir.OpEQ:       "==",
	ir.OpNEQ:      "!=",
}

// LowerC appends a self-contained C translation unit for a verified IR to b.
// It performs no checking of its own; Assemble established all validity.
func LowerC(ctx context.Context, b []byte, p *ir.IR) []byte {
	tr := tlog.SpanFromContext(ctx)

	b = append(b, "#include <stdint.h>\n#include <tgmath.h>\n\n"...)

	b = typedefs(b, p)
	b = signature(b, p)
	b = body(b, p)

	b = append(b, "}\n"...)

	tr.Printw("lowered to c", "link_name", p.LinkName, "bytes", len(b))

	return b
}

func typedefs(b []byte, p *ir.IR) []byte {
	for i, ins := range p.Instructions {
		switch v := ins.Val.(type) {
		case ir.TypePrim:
			b = line(b, ins)
			b = hfmt.Appendf(b, "typedef %s _t%d;\n", cPrimNames[v.Prim], v.Dest)
		case ir.TypeStruct:
			b = line(b, ins)
			b = append(b, "typedef struct {\n"...)

			for k := uint32(0); k < v.ArgCount; k++ {
				b = hfmt.Appendf(b, "  _t%d _f%d;\n", p.Arg(i, k), k)
			}

			b = hfmt.Appendf(b, "} _t%d;\n", v.Dest)
		}
	}

	return b
}

func signature(b []byte, p *ir.IR) []byte {
	name := p.LinkName
	if name == "" {
		name = "_thunk"
	}

	b = hfmt.Appendf(b, "_t%d %s(", p.ReturnType, name)

	for i := 0; i < p.ParameterCount; i++ {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "_t%d _r%d", p.Types[i], i)
	}

	b = append(b, ")\n{\n"...)

	for i := uint32(p.ParameterCount); i < p.RegisterCount; i++ {
		b = hfmt.Appendf(b, "  _t%d _r%d;\n", p.Types[i], i)
	}

	b = append(b, '\n')

	return b
}

func body(b []byte, p *ir.IR) []byte {
	for i, ins := range p.Instructions {
		switch ins.Op {
		case ir.OpTypePrim, ir.OpTypeStruct, ir.OpTypeBind, ir.OpArg:
			continue
		}

		b = hfmt.Appendf(b, "_i%d:\n", i)
		b = line(b, ins)
		b = append(b, "  "...)

		switch v := ins.Val.(type) {
		case ir.Const:
			b = hfmt.Appendf(b, "_r%d = (_t%d) ", v.Dest, p.Types[v.Dest])
			b = constant(b, p.Constants[v.Constant])
			b = append(b, ";\n"...)
		case ir.Two:
			b = two(b, p, ins.Op, v)
		case ir.Jump:
			b = hfmt.Appendf(b, "goto _i%d;\n", v.To)
		case ir.Branch:
			b = hfmt.Appendf(b, "if (_r%d) goto _i%d;\n", v.Cond, v.To)
		case ir.One:
			b = hfmt.Appendf(b, "return _r%d;\n", v.Src)
		case ir.Three:
			b = hfmt.Appendf(b, "_r%d = _r%d %s _r%d;\n", v.Dest, v.LHS, binop[ins.Op], v.RHS)
		case ir.Call:
			b = hfmt.Appendf(b, "_r%d = _r%d(", v.Dest, v.Callee)
			b = args(b, p, i, v.ArgCount)
			b = append(b, ");\n"...)
		case ir.Callk:
			b = hfmt.Appendf(b, "_r%d = ", v.Dest)
			b = constant(b, p.Constants[v.Constant])
			b = append(b, '(')
			b = args(b, p, i, v.ArgCount)
			b = append(b, ");\n"...)
		case ir.Field:
			if ins.Op == ir.OpFieldGet {
				b = hfmt.Appendf(b, "_r%d = _r%d._f%d;\n", v.Reg, v.Struct, v.Field)
			} else {
				b = hfmt.Appendf(b, "_r%d._f%d = _r%d;\n", v.Struct, v.Field, v.Reg)
			}
		}
	}

	return b
}

func two(b []byte, p *ir.IR, op ir.Op, v ir.Two) []byte {
	switch op {
	case ir.OpAddress:
		b = hfmt.Appendf(b, "_r%d = (char *) &_r%d;\n", v.Dest, v.Src)
	case ir.OpCast:
		b = hfmt.Appendf(b, "_r%d = (_t%d) _r%d;\n", v.Dest, p.Types[v.Dest], v.Src)
	case ir.OpMove:
		b = hfmt.Appendf(b, "_r%d = _r%d;\n", v.Dest, v.Src)
	case ir.OpBnot:
		b = hfmt.Appendf(b, "_r%d = ~_r%d;\n", v.Dest, v.Src)
	case ir.OpLoad:
		b = hfmt.Appendf(b, "_r%d = *((%s *) _r%d);\n", v.Dest, cprim(p, v.Dest), v.Src)
	case ir.OpStore:
		b = hfmt.Appendf(b, "*((%s *) _r%d) = _r%d;\n", cprim(p, v.Src), v.Dest, v.Src)
	}

	return b
}

func args(b []byte, p *ir.IR, i int, argc uint32) []byte {
	for k := uint32(0); k < argc; k++ {
		if k != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "_r%d", p.Arg(i, k))
	}

	return b
}

// line emits a #line directive when the instruction carries source metadata.
func line(b []byte, ins ir.Instruction) []byte {
	if ins.Line > 0 {
		b = hfmt.Appendf(b, "#line %d\n", ins.Line)
	}

	return b
}

func cprim(p *ir.IR, reg uint32) string {
	return cPrimNames[p.TypeDefs[p.Types[reg]].Prim]
}

// constant prints a pool value as a C token: symbols bare, strings quoted,
// numbers as literals.
func constant(b []byte, c any) []byte {
	switch c := c.(type) {
	case value.Symbol:
		return append(b, string(c)...)
	case string:
		return strconv.AppendQuote(b, c)
	case int:
		return strconv.AppendInt(b, int64(c), 10)
	case int64:
		return strconv.AppendInt(b, c, 10)
	case uint32:
		return strconv.AppendUint(b, uint64(c), 10)
	case float64:
		if c == math.Trunc(c) && math.Abs(c) < 1e15 {
			return strconv.AppendInt(b, int64(c), 10)
		}

		return strconv.AppendFloat(b, c, 'g', -1, 64)
	case bool:
		return strconv.AppendBool(b, c)
	}

	return hfmt.Appendf(b, "%v", c)
}
