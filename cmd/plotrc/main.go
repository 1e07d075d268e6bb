// Package main is the plotrc settings tool: validate, inspect, and
// convert rc settings files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/plotrc"
	"github.com/dshills/plotrc/loader"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "validate":
		return cmdValidate(args[1:])
	case "show":
		return cmdShow(args[1:])
	case "convert":
		return cmdConvert(args[1:])
	case "version", "-version", "--version":
		fmt.Printf("plotrc %s (%s)\n", version, commit)
		return 0
	case "help", "-help", "--help", "-h":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "plotrc - plotting settings tool\n\n")
	fmt.Fprintf(os.Stderr, "Usage: plotrc <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  validate <file>              Check a settings file without applying it\n")
	fmt.Fprintf(os.Stderr, "  show [options] [file]        Print effective settings, optionally after loading a file\n")
	fmt.Fprintf(os.Stderr, "  convert -to rc|toml <in> <out>  Convert between settings formats\n")
	fmt.Fprintf(os.Stderr, "  version                      Show version information\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  plotrc validate ~/.plotrc\n")
	fmt.Fprintf(os.Stderr, "  plotrc show -category grid\n")
	fmt.Fprintf(os.Stderr, "  plotrc show -changed ~/.plotrc\n")
	fmt.Fprintf(os.Stderr, "  plotrc convert -to toml ~/.plotrc settings.toml\n")
}

// newLogger builds the diagnostic logger for store operations.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// cmdValidate loads a file into a throwaway store, reporting the first
// problem with its line number.
func cmdValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Enable verbose diagnostics")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: plotrc validate <file>")
		return 2
	}
	path := fs.Arg(0)

	store, err := plotrc.New(plotrc.WithLogger(newLogger(*verbose)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := loadByExt(store, path); err != nil {
		var fe *plotrc.FormatError
		if errors.As(err, &fe) {
			fmt.Fprintf(os.Stderr, "%s:%d: %s\n", fe.Path, fe.Line, fe.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	fmt.Printf("%s: ok (%d settings differ from defaults)\n", path, len(store.Changed()))
	return 0
}

// cmdShow prints effective settings, optionally after loading a file.
func cmdShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	changed := fs.Bool("changed", false, "Show only settings that differ from defaults")
	category := fs.String("category", "", "Show only settings in this category")
	verbose := fs.Bool("v", false, "Enable verbose diagnostics")
	_ = fs.Parse(args)

	store, err := plotrc.New(
		plotrc.WithLogger(newLogger(*verbose)),
		plotrc.WithEnviron("PLOTRC"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: plotrc show [-changed] [-category name] [file]")
		return 2
	}
	if fs.NArg() == 1 {
		if err := loadByExt(store, fs.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	var values map[string]any
	switch {
	case *category != "":
		values, err = store.Category(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if *changed {
			all := store.Changed()
			for k := range values {
				if _, ok := all[k]; !ok {
					delete(values, k)
				}
			}
		}
	case *changed:
		values = store.Changed()
	default:
		values = make(map[string]any)
		for _, key := range store.Registry().Keys() {
			v, err := store.Get(key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			values[key] = v
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s = %s\n", k, loader.EncodeValue(values[k]))
	}
	return 0
}

// cmdConvert reads one settings file and writes it in another format.
// The input is validated the same way Load validates it.
func cmdConvert(args []string) int {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	to := fs.String("to", "", "Output format: rc or toml")
	verbose := fs.Bool("v", false, "Enable verbose diagnostics")
	_ = fs.Parse(args)

	if fs.NArg() != 2 || (*to != "rc" && *to != "toml") {
		fmt.Fprintln(os.Stderr, "Usage: plotrc convert -to rc|toml <in> <out>")
		return 2
	}
	inPath, outPath := fs.Arg(0), fs.Arg(1)

	store, err := plotrc.New(plotrc.WithLogger(newLogger(*verbose)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := loadByExt(store, inPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	values := store.Changed()
	var data []byte
	if *to == "toml" {
		data, err = loader.EncodeTOML(values)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	} else {
		data = loader.EncodeRC(values, "converted by plotrc "+version)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("wrote %s (%d settings)\n", outPath, len(values))
	return 0
}

// loadByExt picks the parser from the file extension.
func loadByExt(store *plotrc.Store, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return store.LoadTOML(path)
	}
	return store.Load(path)
}
