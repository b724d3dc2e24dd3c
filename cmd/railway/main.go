package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"railway/pkg/config"
	"railway/pkg/interpreter"
	"railway/pkg/lexer"
	"railway/pkg/parser"
)

const cliToolVersion = "railway-cli 0.0.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("railway", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "path to a railway.yml run-configuration file")
	verifyRoundtrip := fs.Bool("verify-roundtrip", false, "uncall main after a successful run and check every global returns to its starting value")
	version := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printUsage()
		return 2
	}
	sourcePath := rest[0]

	cfg, err := resolveConfig(*configPath, sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railway: %v\n", err)
		return 1
	}
	if *verifyRoundtrip {
		cfg.VerifyRoundtrip = true
	}

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railway: %v\n", err)
		return 1
	}

	toks, err := lexer.Lex(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "railway: %v\n", err)
		return 1
	}
	mod, err := parser.Parse(toks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railway: %v\n", err)
		return 1
	}

	out := bufio.NewWriterSize(os.Stdout, cfg.OutputBufferSize)
	interp := interpreter.New(mod, out, cfg)
	runErr := interp.Run()
	if flushErr := out.Flush(); flushErr != nil && runErr == nil {
		runErr = flushErr
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "railway: %v\n", runErr)
		return 1
	}
	return 0
}

func resolveConfig(configPath, sourcePath string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.FindNear(sourcePath)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  railway [-config path] [-verify-roundtrip] <path-to-source>")
}
