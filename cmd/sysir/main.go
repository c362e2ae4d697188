package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/sysdialect/sysir/compiler"
	"github.com/sysdialect/sysir/compiler/format"
	"github.com/sysdialect/sysir/compiler/front"
	"github.com/sysdialect/sysir/compiler/ir"
)

func main() {
	checkCmd := &cli.Command{
		Name:   "check",
		Action: checkAct,
		Args:   cli.Args{},
	}

	cCmd := &cli.Command{
		Name:   "c",
		Action: cAct,
		Args:   cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:   "fmt",
		Action: fmtAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "sysir",
		Description: "sysir assembles and verifies system dialect IR and lowers it to C",
		Commands: []*cli.Command{
			checkCmd,
			cCmd,
			fmtCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func checkAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		u, err := front.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		p, err := ir.Assemble(ctx, u.Source)
		if err != nil {
			return errors.Wrap(err, "assemble %v", a)
		}

		fmt.Printf("%v: ok: %d instructions, %d registers, return type _t%d\n", a, len(p.Instructions), p.RegisterCount, p.ReturnType)
	}

	return nil
}

func cAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		fmt.Printf("%s", obj)
	}

	return nil
}

func fmtAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		u, err := front.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		b, err := format.Format(ctx, nil, u)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Printf("%s", b)
	}

	return nil
}
