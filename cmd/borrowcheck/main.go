// Command borrowcheck validates access traces from files.
//
// It loads each trace file named on the command line (YAML, JSON, or
// JSONC, by extension), runs the checker, and reports the verdict. The
// exit code is 0 when every trace is accepted, 1 when any trace is
// rejected, and 2 on usage or load errors.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bedoyama/borrowcheck"
	"github.com/bedoyama/borrowcheck/tracefile"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

// rejected signals a trace failure through the exit code without an extra
// error line; the violations are already printed.
type rejected struct{}

func (rejected) Error() string { return "trace rejected" }
func (rejected) ExitCode() int { return 1 }

func run() error {
	var keepGoing bool
	var asJSON bool
	var formatName string

	flagSet := pflag.NewFlagSet("borrowcheck", pflag.ContinueOnError)
	flagSet.BoolVar(&keepGoing, "keep-going", false, "report every violation instead of stopping at the first")
	flagSet.BoolVar(&asJSON, "json", false, "emit verdicts as JSON, one object per trace file")
	flagSet.StringVar(&formatName, "format", "", "trace file encoding: yaml, json, or jsonc (default: by extension)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	paths := flagSet.Args()
	if len(paths) == 0 {
		printHelp(flagSet)
		return fmt.Errorf("no trace files given")
	}

	var opts []borrowcheck.Option
	if keepGoing {
		opts = append(opts, borrowcheck.WithKeepGoing())
	}
	checker := borrowcheck.NewChecker(opts...)

	load := tracefile.Load
	if formatName != "" {
		format, err := parseFormat(formatName)
		if err != nil {
			return err
		}
		load = func(path string) (*borrowcheck.Trace, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			trace, err := tracefile.Parse(data, format)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			return trace, nil
		}
	}

	anyRejected := false
	for _, path := range paths {
		trace, err := load(path)
		if err != nil {
			return err
		}
		verdict := checker.Check(trace)
		if asJSON {
			if err := printJSON(path, verdict); err != nil {
				return err
			}
		} else {
			printVerdict(path, verdict)
		}
		if !verdict.OK {
			anyRejected = true
		}
	}
	if anyRejected {
		return rejected{}
	}
	return nil
}

func parseFormat(name string) (tracefile.Format, error) {
	switch name {
	case "yaml":
		return tracefile.FormatYAML, nil
	case "json":
		return tracefile.FormatJSON, nil
	case "jsonc":
		return tracefile.FormatJSONC, nil
	default:
		return 0, fmt.Errorf("unknown format %q (want yaml, json, or jsonc)", name)
	}
}

func printVerdict(path string, verdict borrowcheck.Verdict) {
	if verdict.OK {
		fmt.Printf("%s: ok\n", path)
		return
	}
	fmt.Printf("%s: rejected\n", path)
	for _, v := range verdict.Violations {
		fmt.Printf("  %s\n", &v)
	}
}

type jsonViolation struct {
	Index   int    `json:"index"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type jsonVerdict struct {
	File       string          `json:"file"`
	OK         bool            `json:"ok"`
	Violations []jsonViolation `json:"violations,omitempty"`
}

func printJSON(path string, verdict borrowcheck.Verdict) error {
	out := jsonVerdict{File: path, OK: verdict.OK}
	for _, v := range verdict.Violations {
		out.Violations = append(out.Violations, jsonViolation{
			Index:   v.Index,
			Rule:    v.Rule.String(),
			Message: v.Message,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `borrowcheck: validate access traces.

Checks each trace file for aliasing and lifetime violations: shared and
exclusive accessors must not overlap, accessors must not outlive their
owners, and destroyed or moved values must not be touched.

usage: borrowcheck [flags] <trace-file>...

Trace files may be YAML (.yaml, .yml), JSON (.json), or JSONC (.jsonc).

flags:
%s`, flagSet.FlagUsages())
}
