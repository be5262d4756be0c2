package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stockpile/internal/layout"
	"github.com/roach88/stockpile/internal/resource"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the resolved catalog as written by compile.
type CompilationResult struct {
	Resources  []ResourceDoc  `json:"resources"`
	GroupTypes []GroupTypeDoc `json:"group_types"`
	Layouts    []LayoutDoc    `json:"layouts"`
}

// ResourceDoc describes one resource type with its effective max amount.
type ResourceDoc struct {
	ID        string `json:"id"`
	Max       uint64 `json:"max"`
	Remainder string `json:"remainder,omitempty"`
}

// GroupTypeDoc describes one group type.
type GroupTypeDoc struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Colour uint32 `json:"colour"`
	Policy string `json:"policy"`
}

// LayoutDoc describes one layout.
type LayoutDoc struct {
	Name   string     `json:"name"`
	Slots  int        `json:"slots"`
	Groups []GroupDoc `json:"groups"`
}

// GroupDoc describes one group of a layout.
type GroupDoc struct {
	Type     string     `json:"type"`
	Slots    int        `json:"slots"`
	Capacity uint64     `json:"capacity"`
	Fixed    bool       `json:"fixed,omitempty"`
	Policy   string     `json:"policy,omitempty"`
	Filter   *FilterDoc `json:"filter,omitempty"`
	Strict   *FilterDoc `json:"strict,omitempty"`
}

// FilterDoc describes a slot filter.
type FilterDoc struct {
	Allow    []string          `json:"allow,omitempty"`
	Deny     []string          `json:"deny,omitempty"`
	Metadata resource.Metadata `json:"metadata,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <layouts-dir>",
		Short: "Compile CUE layouts to a resolved catalog",
		Long: `Compile CUE layout definitions to a resolved JSON catalog.

Every resource is listed with its effective max amount and every
layout with its total slot count.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, layoutsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadCatalog(layoutsDir, LoadModeCollectAll)
	if loadResult == nil {
		code, message := parseLoadError(loadErrors[0])
		return outputCompileError(formatter, code, message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, layoutsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := describeCatalog(loadResult.Catalog)
	for _, l := range result.Layouts {
		formatter.VerboseLog("Compiled layout: %s (%d slot(s))", l.Name, l.Slots)
	}

	if opts.Output != "" {
		if err := writeCatalogFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// describeCatalog resolves defaults so the document reads on its own.
func describeCatalog(c *layout.Catalog) *CompilationResult {
	result := &CompilationResult{
		Resources:  make([]ResourceDoc, 0, len(c.Resources)),
		GroupTypes: make([]GroupTypeDoc, 0, len(c.GroupTypes)),
		Layouts:    make([]LayoutDoc, 0, len(c.Layouts)),
	}

	for _, r := range c.Resources {
		max := r.Max
		if max == 0 {
			max = resource.DefaultMaxAmount
		}
		result.Resources = append(result.Resources, ResourceDoc{ID: r.ID, Max: max, Remainder: r.Remainder})
	}

	for _, g := range c.GroupTypes {
		result.GroupTypes = append(result.GroupTypes, GroupTypeDoc{
			ID:     g.ID,
			Name:   g.Name,
			Colour: g.Colour,
			Policy: g.Policy,
		})
	}

	for _, l := range c.Layouts {
		doc := LayoutDoc{Name: l.Name, Groups: make([]GroupDoc, 0, len(l.Groups))}
		for _, g := range l.Groups {
			doc.Slots += g.Slots
			doc.Groups = append(doc.Groups, GroupDoc{
				Type:     g.Type,
				Slots:    g.Slots,
				Capacity: g.Capacity,
				Fixed:    g.Fixed,
				Policy:   g.Policy,
				Filter:   describeFilter(g.Filter),
				Strict:   describeFilter(g.Strict),
			})
		}
		result.Layouts = append(result.Layouts, doc)
	}

	return result
}

func describeFilter(f *layout.FilterSpec) *FilterDoc {
	if f == nil {
		return nil
	}
	return &FilterDoc{Allow: f.Allow, Deny: f.Deny, Metadata: f.Metadata}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d resource(s), %d group type(s), %d layout(s)\n\n",
		len(result.Resources), len(result.GroupTypes), len(result.Layouts))

	fmt.Fprintln(w, "Layouts:")
	for _, l := range result.Layouts {
		fmt.Fprintf(w, "  %s: %d group(s), %d slot(s)\n", l.Name, len(l.Groups), l.Slots)
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote catalog to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	failure := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Failure(cliErrors[0].Code, cliErrors[0].Message, cliErrors); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			if loadErr.Pos.IsValid() {
				fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
					loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			} else if loadErr.Line > 0 {
				fmt.Fprintf(formatter.Writer, "line %d\n", loadErr.Line)
			}
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return failure
}

// writeCatalogFile writes the compiled catalog as indented JSON.
func writeCatalogFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
