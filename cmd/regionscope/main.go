package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/region-runtime/abi"
	"github.com/wippyai/region-runtime/memory"
	"github.com/wippyai/region-runtime/region"
	"github.com/wippyai/region-runtime/union"
)

func main() {
	var (
		scenarioArg = flag.String("scenario", "all", "Scenario to run: a, b, c or all")
		chunk       = flag.Uint("chunk", 0, "Standard chunk size in bytes (0 = one page)")
		useWazero   = flag.Bool("wazero", false, "Carve regions from a wazero linear memory")
		mode        = flag.String("mode", "default", "Scope checks: checked, unchecked or default")
		verbose     = flag.Bool("v", false, "Log region activity")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	opts := options{chunk: uint32(*chunk), wazero: *useWazero}
	switch *mode {
	case "checked":
		opts.mode = region.ModeChecked
	case "unchecked":
		opts.mode = region.ModeUnchecked
	case "default":
	default:
		fmt.Fprintf(os.Stderr, "Usage: regionscope [-scenario a|b|c|all] [-chunk n] [-wazero] [-mode checked|unchecked]\n")
		fmt.Fprintf(os.Stderr, "       regionscope -i  (interactive mode)\n")
		os.Exit(1)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = l.Sync() }()
		region.SetLogger(l)
		union.SetLogger(l)
		abi.SetLogger(l)
		memory.SetLogger(l)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts, *scenarioArg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, which string) error {
	var selected []scenario
	for _, sc := range scenarios {
		if which == "all" || strings.EqualFold(which, sc.name) {
			selected = append(selected, sc)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("unknown scenario %q", which)
	}

	width := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}

	failed := 0
	for _, sc := range selected {
		s, err := newSession(opts)
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render("Scenario " + strings.ToUpper(sc.name)))
		fmt.Println(sc.title)
		fmt.Println()

		lines, err := sc.run(s.space)
		for _, line := range lines {
			fmt.Println("  " + line)
		}
		if err != nil {
			failed++
			fmt.Println(errorStyle.Render("  FAIL: " + err.Error()))
		} else {
			fmt.Println(resultStyle.Render("  ok"))
		}
		fmt.Println(renderStats(s.space.Stats()))
		fmt.Println()
		if tree := renderTree(s.space, width); tree != "" {
			fmt.Println(tree)
		}
		s.close()
	}

	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}
