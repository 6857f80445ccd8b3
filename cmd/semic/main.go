package main

import (
	"bufio"
	"context"
	"os"

	"github.com/tebeka/atexit"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/ext/tlflag"

	"github.com/slowlang/semic/compiler"
	"github.com/slowlang/semic/compiler/format"
	"github.com/slowlang/semic/sim"
)

func main() {
	buildCmd := &cli.Command{
		Name:        "build",
		Description: "lower ast files and print the ir",
		Action:      buildAct,
		Args:        cli.Args{},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "lower an ast file and simulate its main function",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("trace", false, "print a line per call and return"),
			cli.NewFlag("max-steps", 0, "abort after that many steps, 0 is unlimited"),
		},
	}

	app := &cli.Command{
		Name:        "semic",
		Description: "semic lowers a small C-like language and runs it on a register machine",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr?console=dm", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			buildCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	w, err := tlflag.OpenWriter(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func buildAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	var b []byte

	for _, a := range c.Args {
		m, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		b = format.Module(b, m)
	}

	_, err = os.Stdout.Write(b)

	return err
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("expected one file, got %d", len(c.Args))
	}

	m, err := compiler.CompileFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "compile %v", c.Args[0])
	}

	w := bufio.NewWriter(os.Stdout)
	atexit.Register(func() {
		_ = w.Flush()
	})

	s := sim.New(m, sim.NewWriterOutput(w), sim.Config{
		Trace:    c.Bool("trace"),
		MaxSteps: c.Int("max-steps"),
	})

	res, err := s.Run(ctx)
	if err != nil {
		_ = w.Flush()

		return errors.Wrap(err, "run")
	}

	tlog.Printw("finished", "result", res, "memory", s.Memory().Len())

	code := 0
	if res.Kind == sim.UInt64 {
		code = int(uint8(res.U))
	}

	atexit.Exit(code)

	return nil
}
