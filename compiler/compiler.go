package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sysdialect/sysir/compiler/back"
	"github.com/sysdialect/sysir/compiler/front"
	"github.com/sysdialect/sysir/compiler/ir"
)

func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile parses an assembly listing, assembles and verifies it, and lowers
// the result to a C translation unit.
func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	u, err := front.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	p, err := ir.Assemble(ctx, u.Source)
	if err != nil {
		return nil, errors.Wrap(err, "assemble")
	}

	return back.LowerC(ctx, nil, p), nil
}
