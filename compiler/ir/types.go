package ir

// initTypes materializes the type table declared by type-creation
// instructions and binds registers to types. Type id 0 is preseeded with s32
// so registers that never see a bind have a defined default. It runs after
// parsing and before the type check.
func (p *IR) initTypes() {
	if len(p.TypeDefs) == 0 {
		p.TypeDefs = make([]TypeDef, 1)
	}

	p.Types = make([]uint32, p.RegisterCount)
	p.TypeDefs[0] = TypeDef{Prim: PrimS32}

	for i, ins := range p.Instructions {
		switch v := ins.Val.(type) {
		case TypePrim:
			p.TypeDefs[v.Dest] = TypeDef{Prim: v.Prim}
		case TypeStruct:
			p.TypeDefs[v.Dest] = TypeDef{
				Prim:       PrimStruct,
				FieldStart: uint32(len(p.Fields)),
				FieldCount: v.ArgCount,
			}

			for k := uint32(0); k < v.ArgCount; k++ {
				p.Fields = append(p.Fields, TypeField{Type: p.Arg(i, k)})
			}
		case TypeBind:
			p.Types[v.Dest] = v.Type
		}
	}
}
