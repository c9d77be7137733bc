package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseFlags(t *testing.T) {
	var out, backend string
	var dump bool
	var jobs int
	var defines []string
	fs := NewFlagSet("t")
	fs.String(&out, "output", "o", "a.ir", "Output file", "file")
	fs.String(&backend, "backend", "b", "ir", "Backend", "name")
	fs.Bool(&dump, "dump", "d", false, "Dump")
	fs.Int(&jobs, "jobs", "j", 1, "Jobs", "n")
	fs.List(&defines, "define", "D", nil, "Defines", "kv")

	err := fs.Parse([]string{"-ox.ir", "--backend=dot", "-d", "-j", "4", "-Da", "--define", "b", "in.ast", "--", "-weird"})
	be.Err(t, err, nil)
	be.Equal(t, out, "x.ir")
	be.Equal(t, backend, "dot")
	be.True(t, dump)
	be.Equal(t, jobs, 4)
	be.Equal(t, defines, []string{"a", "b"})
	be.Equal(t, fs.Args(), []string{"in.ast", "-weird"})
}

func TestParseErrors(t *testing.T) {
	var s string
	var n int
	fs := NewFlagSet("t")
	fs.String(&s, "output", "o", "", "", "file")
	fs.Int(&n, "jobs", "j", 1, "", "n")

	be.Err(t, fs.Parse([]string{"--nope"}), "unknown flag: --nope")
	be.Err(t, fs.Parse([]string{"-z"}), "unknown shorthand flag: -z")
	be.Err(t, fs.Parse([]string{"--output"}), "flag needs an argument")
	be.Err(t, fs.Parse([]string{"-j", "many"}), "invalid integer value 'many'")
}

func TestFlagGroupSwitches(t *testing.T) {
	on, off := true, false
	fs := NewFlagSet("t")
	fs.AddFlagGroup("Warning Flags", "", "warning", "Available:", []FlagGroupEntry{
		{Name: "shadow", Prefix: "W", Usage: "Shadowing", Enabled: &on, Disabled: &off},
	})
	be.Err(t, fs.Parse([]string{"-Wno-shadow"}), nil)
	be.True(t, off)
}

func TestHelpPage(t *testing.T) {
	var out bytes.Buffer
	app := NewApp("ucc")
	app.Synopsis = "[options] <tree.ast>"
	app.Description = "Checks and lowers a uC syntax tree."
	app.Stdout = &out
	var backend string
	app.FlagSet.String(&backend, "backend", "b", "ir", "Select the output backend", "name")
	on, off := false, false
	app.FlagSet.AddFlagGroup("Warning Flags", "", "warning", "Available Warning Flags:", []FlagGroupEntry{
		{Name: "shadow", Prefix: "W", Usage: "Warn on shadowing", Enabled: &on, Disabled: &off},
	})

	err := app.Run([]string{"--help"})
	be.Err(t, err, ErrHelp)
	page := out.String()
	be.True(t, strings.Contains(page, "ucc [options] <tree.ast>"))
	be.True(t, strings.Contains(page, "-b, --backend <name>"))
	be.True(t, strings.Contains(page, "|ir|"))
	be.True(t, strings.Contains(page, "-W<warning>"))
	be.True(t, strings.Contains(page, "shadow"))
	be.True(t, !strings.Contains(page, "Wno-shadow"))
}

func TestRunAction(t *testing.T) {
	var stderr bytes.Buffer
	app := NewApp("ucc")
	app.Stderr = &stderr
	var got []string
	app.Action = func(args []string) error { got = args; return nil }
	be.Err(t, app.Run([]string{"a", "b"}), nil)
	be.Equal(t, got, []string{"a", "b"})

	app2 := NewApp("ucc")
	app2.Stderr = &stderr
	be.Err(t, app2.Run([]string{"--what"}), "unknown flag")
	be.True(t, strings.Contains(stderr.String(), "Usage: ucc"))
}

func TestWrapText(t *testing.T) {
	be.Equal(t, wrapText("aa bb cc dd", 5), []string{"aa bb", "cc dd"})
	be.Equal(t, len(wrapText("", 5)), 0)
}
