package ir

// Instruction payloads, one variant per operand shape.
// The opcode picks the variant; the assembler constructs the matching one.
type (
	Three struct {
		Dest uint32
		LHS  uint32
		RHS  uint32
	}

	Two struct {
		Dest uint32
		Src  uint32
	}

	One struct {
		Src uint32
	}

	Jump struct {
		To uint32
	}

	Branch struct {
		Cond uint32
		To   uint32
	}

	Const struct {
		Dest     uint32
		Constant uint32
	}

	Call struct {
		Dest     uint32
		Callee   uint32
		ArgCount uint32
	}

	Callk struct {
		Dest     uint32
		Constant uint32
		ArgCount uint32
	}

	TypePrim struct {
		Dest uint32
		Prim Prim
	}

	TypeStruct struct {
		Dest     uint32
		ArgCount uint32
	}

	TypeBind struct {
		Dest uint32
		Type uint32
	}

	// Args carries up to three packed operands following a call, callk or
	// struct header. Logical operand k of a header at index i lives at
	// Instructions[i+1+k/3].Val.(Args).Args[k%3].
	Args struct {
		Args [3]uint32
	}

	Field struct {
		Reg    uint32
		Struct uint32
		Field  uint32
	}

	Instruction struct {
		Op  Op
		Val any

		Line   int
		Column int
	}
)

type (
	// TypeDef is one entry of the type table: a primitive scalar, or a
	// struct whose fields occupy Fields[FieldStart : FieldStart+FieldCount].
	TypeDef struct {
		Prim       Prim
		FieldStart uint32
		FieldCount uint32
	}

	// TypeField is one slot of the shared flat field table.
	TypeField struct {
		Type uint32
	}

	// Source is the assemble input: an ordered list of instruction records
	// (value.Tuple or value.Keyword), the number of leading registers that
	// are function parameters, and the C name to link the function as.
	Source struct {
		LinkName       string
		ParameterCount int
		Instructions   []any
	}

	// IR is a verified, immutable function. It is produced atomically by
	// Assemble and is safe for concurrent reads afterwards.
	IR struct {
		LinkName       string
		ParameterCount int

		RegisterCount uint32
		Types         []uint32 // register -> type id
		TypeDefs      []TypeDef
		Fields        []TypeField
		Instructions  []Instruction
		Constants     []any
		ReturnType    uint32
	}
)

// Arg returns logical operand k of the variadic header at instruction i.
func (p *IR) Arg(i int, k uint32) uint32 {
	carrier := p.Instructions[i+1+int(k/3)]

	return carrier.Val.(Args).Args[k%3]
}

func (p *IR) regPrim(reg uint32) Prim {
	return p.TypeDefs[p.Types[reg]].Prim
}
