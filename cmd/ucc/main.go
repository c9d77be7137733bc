package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/cli"
	"github.com/xplshn/ucc/pkg/codegen"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/ir"
	"github.com/xplshn/ucc/pkg/parser"
	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/typeChecker"
	"github.com/xplshn/ucc/pkg/util"
)

func main() {
	app := cli.NewApp("ucc")
	app.Synopsis = "[options] <input.uct> ..."
	app.Description = "The uC middle end. Reads syntax trees, checks them and lowers them to a three-address IR with an explicit control flow graph."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/ucc>"

	var (
		outFile     string
		backendName string
		pedantic    bool
		fingerprint bool
		quiet       bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Place the output into <file>. '-' writes to stdout.", "file")
	fs.String(&backendName, "backend", "b", "ir", fmt.Sprintf("Select the output format (%s).", strings.Join(codegen.BackendNames(), ", ")), "backend")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings.")
	fs.Bool(&fingerprint, "fingerprint", "", false, "Print an xxhash fingerprint of the generated IR.")
	fs.Bool(&quiet, "quiet", "q", false, "Do not print progress messages.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		cfg.BackendName = backendName
		if len(inputFiles) == 0 {
			util.Error(token.Token{FileIndex: -1}, "no input files specified.")
		}

		progress := func(format string, args ...interface{}) {
			if !quiet {
				fmt.Fprintf(os.Stderr, format+"\n", args...)
			}
		}

		backend, err := codegen.SelectBackend(cfg.BackendName)
		if err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}

		records := make([]util.SourceFileRecord, len(inputFiles))
		sources := make([]string, len(inputFiles))
		for i, path := range inputFiles {
			content, err := os.ReadFile(path)
			if err != nil {
				util.Error(token.Token{FileIndex: -1}, "could not read file '%s': %v", path, err)
			}
			sources[i] = string(content)
			records[i] = util.SourceFileRecord{Name: path, Content: []rune(sources[i])}
		}
		util.SetSourceFiles(records)

		var out strings.Builder
		var instrs, blocks int
		for i, path := range inputFiles {
			progress("----------------------")
			progress("Reading syntax tree from '%s'...", path)
			root := readTree(sources[i], i)

			progress("Type checking...")
			info := check(cfg, root)

			progress("Creating intermediate representation...")
			prog, err := codegen.NewContext(cfg, info).GenerateIR(root)
			if err != nil {
				util.Error(root.Tok, "%v", err)
			}
			code := prog.Code()
			instrs += len(code)
			for _, fn := range prog.Funcs {
				blocks += len(fn.Blocks)
			}

			progress("Generating output with '%s' backend...", cfg.BackendName)
			buf, err := backend.Generate(prog, cfg)
			if err != nil {
				util.Error(root.Tok, "backend generation failed: %v", err)
			}
			out.Write(buf.Bytes())
			if fingerprint {
				fmt.Fprintf(os.Stderr, "%s: %016x\n", path, ir.Fingerprint(code))
			}
		}

		if err := writeOutput(outFile, out.String()); err != nil {
			util.Error(token.Token{FileIndex: -1}, "%v", err)
		}
		progress("----------------------")
		progress("Done! %s instructions in %s blocks, %s written.",
			humanize.Comma(int64(instrs)), humanize.Comma(int64(blocks)), humanize.Bytes(uint64(out.Len())))
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return
		}
		os.Exit(1)
	}
}

func readTree(src string, fileIndex int) *ast.Node {
	root, err := parser.ParseString(src, fileIndex)
	if err != nil {
		var perr *util.PosError
		if errors.As(err, &perr) {
			perr.Tok.FileIndex = fileIndex
			util.Error(perr.Tok, "%s", perr.Msg)
		}
		util.Error(token.Token{FileIndex: fileIndex}, "%v", err)
	}
	return root
}

// check runs the type checker, printing its warnings and exiting on the
// first semantic error
func check(cfg *config.Config, root *ast.Node) *typeChecker.Info {
	tc := typeChecker.NewTypeChecker(cfg)
	info, err := tc.Check(root)
	for _, w := range tc.Warnings() {
		util.Warn(cfg.Warnings[w.Kind].Name, w.Tok, "%s", w.Msg)
	}
	if err != nil {
		var diag *typeChecker.Diagnostic
		if errors.As(err, &diag) {
			util.Error(diag.Tok, "%s: %s", diag.Code, diag.Msg)
		}
		util.Error(root.Tok, "%v", err)
	}
	return info
}

func writeOutput(path, content string) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("could not create '%s': %w", path, err)
		}
		defer f.Close()
		w = f
	}
	_, err := io.WriteString(w, content)
	return err
}
