package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "schemec [file]",
	Short: "Compile a Scheme-like source file to x86-64 assembly",
	Long: `schemec is an ahead-of-time compiler for a small Scheme-like dialect.

It takes a single ".scm" source file, runs it through a lexer, a parser that
simultaneously performs scope resolution and closure conversion, and a code
emitter, and writes Intel-syntax x86-64 assembly to a sibling ".s" file.
Linking the result against libc (for calloc) produces a native executable.`,
	Args:    cobra.ExactArgs(1),
	Version: Version,
	RunE:    runCompile,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// runCompile prints its own one-line diagnostic via printFatal before
	// returning an error; cobra's default Error:/Usage: dump would turn
	// that into a multi-line message, so both are silenced here.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
