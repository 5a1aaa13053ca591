// Rpncalc is a programmable RPN calculator: an interactive stack calculator
// and the interpreter of its block structured scripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"fortio.org/cli"
	"fortio.org/log"
	"golang.org/x/term"
	"grol.io/rpncalc/config"
	"grol.io/rpncalc/eval"
	"grol.io/rpncalc/functions"
	"grol.io/rpncalc/infix"
	"grol.io/rpncalc/lexer"
	"grol.io/rpncalc/plot"
	"grol.io/rpncalc/repl"
	"grol.io/rpncalc/ui"
)

func main() {
	os.Exit(Main())
}

var hookBefore, hookAfter func() int

func Main() int {
	commandFlag := flag.String("c", "", "inline `script` to run instead of interactive mode")
	infixFlag := flag.String("infix", "", "convert the infix `expression` to postfix, print and run it")
	debugFlag := flag.Bool("debug", false, "start runs in the debugger, stepping in")
	progressFlag := flag.Bool("progress", false, "show a progress bar while scripts run")
	configFlag := flag.String("config", "", "TOML preferences `file`")
	plotFlag := flag.String("plot", "", "save the canvas to `file` (.png or .bmp) after the scripts ran")
	historyFlag := flag.String("history", "", "history `file` to use (default from preferences)")
	functionsFlag := flag.String("functions", "", "user functions `file` to load and save (default from preferences)")
	scriptDirFlag := flag.String("script-dir", "", "`directory` of run_script files")
	unrestrictedFlag := flag.Bool("unrestricted-io", false, "allow run_script of any path (dangerous)")
	maxDepthFlag := flag.Int("max-depth", eval.DefaultMaxDepth, "maximum nesting of blocks and calls")
	refreshFlag := flag.String("refresh-delay", "", "pause after each stack refresh of interactive runs, e.g. 2ms")
	cli.EnvHelpFuncs = append(cli.EnvHelpFuncs, func(w io.Writer) { config.EnvHelp(w, config.Default()) })
	cli.ArgsHelp = "*.rpn script files to run or `-` for a script on stdin, no arguments for the interactive calculator..."
	cli.MaxArgs = -1
	cli.Main()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return log.FErrf("Error loading preferences: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "plot":
			cfg.PlotFile = *plotFlag
		case "history":
			cfg.HistoryFile = *historyFlag
		case "functions":
			cfg.FunctionsFile = *functionsFlag
		case "script-dir":
			cfg.ScriptDir = *scriptDirFlag
		case "unrestricted-io":
			cfg.UnrestrictedIO = *unrestrictedFlag
		case "max-depth":
			cfg.MaxDepth = *maxDepthFlag
		case "refresh-delay":
			cfg.RefreshDelay = *refreshFlag
		}
	})
	if err = cfg.Validate(); err != nil {
		return log.FErrf("%v", err)
	}
	refresh, _ := cfg.Refresh() // validated.
	log.Infof("rpncalc %s - welcome!", cli.LongVersion)
	canvas, err := plot.New(cfg.PlotWidth, cfg.PlotHeight)
	if err != nil {
		return log.FErrf("Error creating canvas: %v", err)
	}
	options := repl.Options{
		Engine: eval.Options{
			Functions:      functions.Default,
			Lexers:         lexer.NewCache(cfg.TokenCacheSize),
			MaxDepth:       cfg.MaxDepth,
			Debug:          *debugFlag,
			ScriptDir:      cfg.ScriptDir,
			UnrestrictedIO: cfg.UnrestrictedIO,
		},
		Canvas:        canvas,
		HistoryFile:   config.ExpandHome(cfg.HistoryFile),
		FunctionsFile: config.ExpandHome(cfg.FunctionsFile),
		RefreshDelay:  refresh,
		ShowStack:     true,
		Progress:      *progressFlag,
	}
	if hookBefore != nil {
		if ret := hookBefore(); ret != 0 {
			return ret
		}
	}
	ret := run(options, *commandFlag, *infixFlag, flag.Args())
	if ret == 0 && cfg.PlotFile != "" {
		if err = canvas.Save(cfg.PlotFile); err != nil {
			ret = log.FErrf("Error saving plot: %v", err)
		}
	}
	if hookAfter != nil {
		if hret := hookAfter(); ret == 0 {
			ret = hret
		}
	}
	return ret
}

func run(options repl.Options, command, expr string, args []string) int {
	stdinTerminal := term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits an int.
	if command == "" && expr == "" && len(args) == 0 {
		if stdinTerminal {
			return repl.Interactive(options)
		}
		// Piped lines are a session without prompts.
		in := ui.NewScanner(os.Stdin, nil)
		s := repl.NewSession(in, os.Stdout, options)
		s.Loop(context.Background(), in)
		return s.Close()
	}
	if err := options.Engine.Functions.LoadFile(options.FunctionsFile); err != nil {
		return log.FErrf("Error loading functions: %v", err)
	}
	// Prompts and the debugger read stdin unless the script comes from it.
	var in ui.LineReader = ui.NewScanner(os.Stdin, os.Stdout)
	if expr != "" {
		res, err := infix.Convert(expr)
		if err != nil {
			return log.FErrf("Error converting %q: %v", expr, err)
		}
		fmt.Println(res.Postfix)
		return batch(res.Script, in, options)
	}
	if command != "" {
		return batch(command, in, options)
	}
	for _, file := range args {
		var (
			script []byte
			err    error
		)
		if file == "-" {
			log.Infof("Running on stdin")
			script, err = io.ReadAll(os.Stdin)
			in = nil
		} else {
			log.Infof("Running %s", file)
			script, err = os.ReadFile(file)
		}
		if err != nil {
			return log.FErrf("%v", err)
		}
		if ret := batch(string(script), in, options); ret != 0 {
			return ret
		}
	}
	log.Infof("All done")
	return 0
}

// batch runs script with Ctrl-C as a stop request.
func batch(script string, in ui.LineReader, options repl.Options) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	_, err := repl.Batch(ctx, script, in, os.Stdout, options)
	if err == nil {
		return 0
	}
	if eval.Silent(err) {
		log.LogVf("Script ended with %v", err)
	} else {
		log.Errf("Error: %v", err)
	}
	return 1
}
