package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sox"
	"sox/config"
	"sox/frontend"
)

func main() {
	arch := flag.String("arch", "", "target architecture: x86_64, arm64, aarch64 (default from config/soxc.toml)")
	osFlag := flag.String("os", "", "target OS: linux, macos, darwin (default from config/soxc.toml)")
	output := flag.String("o", "", "output file path")
	object := flag.Bool("object", true, "emit a relocatable object (false: executable-ready, aliases entry as main)")
	configPath := flag.String("config", "", "path to a soxc.toml overriding defaults")
	debug := flag.Bool("debug", false, "print diagnostics to stderr")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: soxc [flags] <source.sox>")
		os.Exit(1)
	}
	filename := args[0]

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFrom(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "soxc: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	opts := sox.FromConfig(cfg)
	if *arch != "" {
		opts.TargetArch = *arch
	}
	if *osFlag != "" {
		opts.TargetOS = *osFlag
	}
	if *output != "" {
		opts.OutputPath = *output
	}
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["object"] {
		opts.EmitObject = *object
	}
	if setFlags["debug"] {
		opts.DebugOutput = *debug
	}
	if *debug {
		opts.Logger = sox.NewLogger(sox.LogDebug)
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soxc: reading %s: %v\n", filename, err)
		os.Exit(1)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	closure, err := frontend.Compile(name, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "soxc: %v\n", err)
		os.Exit(1)
	}

	var ok bool
	if opts.EmitObject {
		ok, err = sox.GenerateObject(closure, opts)
	} else {
		ok, err = sox.GenerateExecutable(closure, opts)
	}
	if err != nil || !ok {
		fmt.Fprintf(os.Stderr, "soxc: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", opts.OutputPath)
}
