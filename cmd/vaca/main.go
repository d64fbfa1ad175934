// Command vaca reads a source file, evaluates every top-level form in
// order, and prints the value of the last one unless it is nil.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nahharris/vaca"
	"github.com/nahharris/vaca/value"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var sourceDir string
	var checkTypes bool

	cmd := &cobra.Command{
		Use:           "vaca [file]",
		Short:         "Evaluate a vaca source file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], sourceDir, checkTypes)
		},
	}

	cmd.PersistentFlags().StringVar(&sourceDir, "source-dir", "", "directory `use` resolves module paths against (defaults to the file's own directory)")
	cmd.PersistentFlags().BoolVar(&checkTypes, "check-types", false, "validate '#' annotations against registered schemas before evaluating")

	return cmd
}

func run(path, sourceDir string, checkTypes bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	nodes, err := vaca.Parse(string(src))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if checkTypes {
		reg, err := vaca.NewTypeRegistry()
		if err != nil {
			return fmt.Errorf("building type registry: %w", err)
		}
		diags, err := vaca.CheckAnnotations(nodes, reg)
		if err != nil {
			return fmt.Errorf("checking annotations: %w", err)
		}
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, d.Message)
		}
	}

	env := vaca.NewEnvironment()
	vaca.InstallBuiltins(env)
	if sourceDir == "" {
		sourceDir = filepath.Dir(path)
	}
	vaca.SetSourceDir(env, sourceDir)

	var last value.Value = value.Nil{}
	for _, n := range nodes {
		last, err = vaca.Evaluate(n, env)
		if err != nil {
			return fmt.Errorf("evaluating %s: %w", path, err)
		}
	}

	if _, isNil := last.(value.Nil); !isNil {
		fmt.Println(value.Display(last))
	}
	return nil
}
