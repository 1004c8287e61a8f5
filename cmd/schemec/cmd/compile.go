package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/schemec/schemec/internal/compiler"
	"github.com/schemec/schemec/internal/errors"
)

const sourceExt = ".scm"

func runCompile(_ *cobra.Command, args []string) error {
	path := args[0]
	if !strings.HasSuffix(path, sourceExt) {
		printFatal("source path %q must end in %q", path, sourceExt)
		return fmt.Errorf("invalid source path")
	}
	outPath := strings.TrimSuffix(path, sourceExt) + ".s"

	source, err := os.ReadFile(path)
	if err != nil {
		cerr := errors.IO("failed to read %s: %v", path, err)
		printFatal("%v", cerr)
		return cerr
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Compiling %s...\n", path)
	}

	asm, err := compiler.CompileSource(string(source))
	if err != nil {
		printFatal("%v", err)
		return err
	}

	if err := os.WriteFile(outPath, []byte(asm), 0o644); err != nil {
		cerr := errors.IO("failed to write %s: %v", outPath, err)
		printFatal("%v", cerr)
		return cerr
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
	} else {
		fmt.Printf("%s -> %s\n", path, outPath)
	}
	return nil
}

// printFatal prints a single-line diagnostic to stderr, in red unless color
// output is disabled (fatih/color falls back to plain text when stdout is
// not a terminal).
func printFatal(format string, args ...any) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(os.Stderr, format+"\n", args...)
}
