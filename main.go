package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"

	"gopas/pkg/asm"
	"gopas/pkg/compiler"
	"gopas/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	out     string
	jobs    int
	verify  bool
	dump    bool
	verbose bool
}

// outcome is what happened to one input file.
type outcome struct {
	path    string
	output  string
	backend string
	dump    string
	err     error
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gopas", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opt options
	fs.StringVar(&opt.out, "o", "", "output assembly path (single input only; default: input with .asm extension)")
	fs.IntVar(&opt.jobs, "j", runtime.NumCPU(), "number of files compiled in parallel")
	fs.BoolVar(&opt.verify, "verify", false, "check the generated assembly before writing it")
	fs.BoolVar(&opt.dump, "dump", false, "dump tokens, identifiers and postfix of each file to stdout")
	fs.BoolVar(&opt.verbose, "v", false, "log every pipeline stage")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: gopas [flags] file...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "nothing to do: provide one or more source files")
		fs.Usage()
		return 2
	}
	if opt.out != "" && len(paths) > 1 {
		fmt.Fprintln(stderr, "-o requires exactly one input file")
		return 2
	}
	if opt.jobs < 1 {
		opt.jobs = 1
	}

	logger := log.New(stderr, "gopas: ", 0)
	outcomes, err := compileAll(context.Background(), paths, opt, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	status := 0
	for _, o := range outcomes {
		fmt.Fprint(stdout, o.dump)
		if o.err != nil {
			report(stderr, o)
			status = 1
			continue
		}
		fmt.Fprintf(stdout, "compiled %s -> %s (%s backend)\n", o.path, o.output, o.backend)
	}
	return status
}

// compileAll compiles every path with at most opt.jobs in flight. Problems in
// the source are recorded per file; I/O failures abort the batch.
func compileAll(ctx context.Context, paths []string, opt options, logger *log.Logger) ([]outcome, error) {
	outcomes := make([]outcome, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o, err := compileFile(path, opt, logger)
			outcomes[i] = o
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func compileFile(path string, opt options, logger *log.Logger) (outcome, error) {
	o := outcome{path: path}

	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return o, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	src, err := os.ReadFile(fullPath)
	if err != nil {
		return o, fmt.Errorf("failed to read input file %q: %w", path, err)
	}

	var copts []compiler.Option
	if opt.verbose {
		logger.Printf("%s: compiling %s", path, fullPath)
		copts = append(copts, compiler.WithLogf(func(format string, args ...any) {
			logger.Printf("%s: "+format, append([]any{path}, args...)...)
		}))
	}

	res, err := compiler.Compile(string(src), copts...)
	if err != nil {
		o.err = err
		return o, nil
	}
	o.backend = res.Backend
	if opt.dump {
		o.dump = dumpResult(path, res)
	}

	if opt.verify {
		if err := asm.Verify(res.Assembly); err != nil {
			o.err = fmt.Errorf("generated assembly rejected: %w", err)
			return o, nil
		}
	}

	o.output = opt.out
	if o.output == "" {
		o.output = utils.OutputPath(path)
	}
	if err := os.WriteFile(o.output, []byte(res.Assembly), 0o644); err != nil {
		return o, fmt.Errorf("failed to write assembly file %q: %w", o.output, err)
	}
	return o, nil
}

var dumper = spew.ConfigState{Indent: "  ", DisableMethods: true, DisablePointerAddresses: true, SortKeys: true}

func dumpResult(path string, res *compiler.Result) string {
	return fmt.Sprintf("== %s\n-- tokens\n%s-- identifiers\n%s-- postfix\n%s",
		path, dumper.Sdump(res.Tokens), dumper.Sdump(res.Ids), res.Postfix)
}

// report prints the diagnostics of a failed file, one per line.
func report(w io.Writer, o outcome) {
	var cerr *compiler.Error
	if !errors.As(o.err, &cerr) {
		fmt.Fprintf(w, "%s: %v\n", o.path, o.err)
		return
	}
	fmt.Fprintf(w, "%s: %s failed\n", o.path, cerr.Stage)
	for _, m := range cerr.Messages() {
		fmt.Fprintf(w, "  %s\n", m)
	}
}
