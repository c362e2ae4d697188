package back

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysdialect/sysir/compiler/ir"
	"github.com/sysdialect/sysir/compiler/value"
)

func tup(op string, args ...any) value.Tuple {
	items := append([]any{value.Symbol(op)}, args...)

	return value.Tuple{Items: items}
}

func assemble(t *testing.T, params int, link string, ins ...any) *ir.IR {
	t.Helper()

	p, err := ir.Assemble(context.Background(), ir.Source{
		LinkName:       link,
		ParameterCount: params,
		Instructions:   ins,
	})
	require.NoError(t, err)

	return p
}

func TestLowerAdd(t *testing.T) {
	p := assemble(t, 2, "add2",
		tup("prim", 0, value.Symbol("s32")),
		tup("bind", 0, 0),
		tup("bind", 1, 0),
		tup("bind", 2, 0),
		tup("add", 2, 0, 1),
		tup("return", 2),
	)

	b := LowerC(context.Background(), nil, p)

	exp := `#include <stdint.h>
#include <tgmath.h>

typedef int32_t _t0;
_t0 add2(_t0 _r0, _t0 _r1)
{
  _t0 _r2;

_i4:
  _r2 = _r0 + _r1;
_i5:
  return _r2;
}
`
	assert.Equal(t, exp, string(b))
}

func TestLowerNamedCall(t *testing.T) {
	p := assemble(t, 0, "callprintf",
		tup("prim", 0, value.Symbol("s32")),
		tup("bind", 0, 0),
		tup("constant", 0, 42),
		tup("call", 0, value.Symbol("printf"), 0),
		tup("return", 0),
	)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "_r0 = (_t0) 42;\n")
	assert.Contains(t, b, "_r0 = printf(_r0);\n")
}

func TestLowerIndirectCall(t *testing.T) {
	p := assemble(t, 0, "indirect",
		tup("prim", 0, value.Symbol("pointer")),
		tup("bind", 0, 0),
		tup("call", 1, 0, 2, 3, 4, 5),
		tup("return", 1),
	)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "_r1 = _r0(_r2, _r3, _r4, _r5);\n")
}

func TestLowerFieldAccess(t *testing.T) {
	p := assemble(t, 0, "getter",
		tup("prim", 0, value.Symbol("s32")),
		tup("struct", 1, 0),
		tup("bind", 0, 1),
		tup("bind", 1, 0),
		tup("fget", 1, 0, 0),
		tup("fset", 0, 0, 1),
		tup("return", 1),
	)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "typedef struct {\n  _t0 _f0;\n} _t1;\n")
	assert.Contains(t, b, "_r1 = _r0._f0;\n")
	assert.Contains(t, b, "_r0._f0 = _r1;\n")
}

func TestLowerBranch(t *testing.T) {
	p := assemble(t, 0, "brancher",
		tup("prim", 0, value.Symbol("boolean")),
		tup("bind", 0, 0),
		tup("branch", 0, 3),
		tup("jump", 3),
		tup("return", 0),
	)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "typedef bool _t0;\n")
	assert.Contains(t, b, "_i2:\n  if (_r0) goto _i3;\n")
	assert.Contains(t, b, "_i3:\n  goto _i3;\n")
	assert.Contains(t, b, "_i4:\n  return _r0;\n")
}

func TestLowerUnaryAndMemory(t *testing.T) {
	p := assemble(t, 0, "mem",
		tup("prim", 0, value.Symbol("s32")),
		tup("prim", 1, value.Symbol("pointer")),
		tup("bind", 0, 1),
		tup("bind", 1, 0),
		tup("bind", 2, 0),
		tup("load", 1, 0),
		tup("store", 0, 1),
		tup("address", 0, 1),
		tup("bnot", 2, 1),
		tup("move", 2, 1),
		tup("cast", 1, 0),
		tup("return", 1),
	)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "_r1 = *((int32_t *) _r0);\n")
	assert.Contains(t, b, "*((int32_t *) _r0) = _r1;\n")
	assert.Contains(t, b, "_r0 = (char *) &_r1;\n")
	assert.Contains(t, b, "_r2 = ~_r1;\n")
	assert.Contains(t, b, "_r2 = _r1;\n")
	assert.Contains(t, b, "_r1 = (_t0) _r0;\n")
}

func TestLowerComparisons(t *testing.T) {
	p := assemble(t, 0, "cmps",
		tup("prim", 0, value.Symbol("boolean")),
		tup("bind", 0, 0),
		tup("bind", 1, 0),
		tup("bind", 2, 0),
		tup("gte", 2, 0, 1),
		tup("lte", 2, 0, 1),
		tup("neq", 2, 0, 1),
		tup("return", 2),
	)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "_r2 = _r0 >= _r1;\n")
	assert.Contains(t, b, "_r2 = _r0 <= _r1;\n")
	assert.Contains(t, b, "_r2 = _r0 != _r1;\n")
}

func TestLowerLineDirectives(t *testing.T) {
	prim := tup("prim", 0, value.Symbol("s32"))
	prim.Line = 3

	ret := tup("return", 0)
	ret.Line = 7

	p := assemble(t, 0, "mapped", prim, tup("bind", 0, 0), ret)

	b := string(LowerC(context.Background(), nil, p))

	assert.Contains(t, b, "#line 3\ntypedef int32_t _t0;\n")
	assert.Contains(t, b, "_i2:\n#line 7\n  return _r0;\n")
}

func TestLowerDeterministic(t *testing.T) {
	p := assemble(t, 1, "same",
		tup("prim", 0, value.Symbol("u64")),
		tup("bind", 0, 0),
		tup("bind", 1, 0),
		tup("constant", 1, 10),
		tup("multiply", 1, 0, 1),
		tup("return", 1),
	)

	ctx := context.Background()

	b1 := LowerC(ctx, nil, p)
	b2 := LowerC(ctx, nil, p)

	assert.Equal(t, b1, b2)
}

func TestLowerAppendsToBuffer(t *testing.T) {
	p := assemble(t, 0, "appended",
		tup("return", 0),
	)

	prefix := []byte("/* unit */\n")
	b := LowerC(context.Background(), prefix, p)

	assert.Equal(t, "/* unit */\n", string(b[:len(prefix)]))
	assert.Contains(t, string(b), "_t0 appended()\n{\n")
}
