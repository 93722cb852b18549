package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/atlekbai/query_lowering/internal/lower"
	"github.com/atlekbai/query_lowering/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitInputError   = 1 // the query could not be lowered
	ExitCommandError = 2 // bad flags, unreadable files, invalid settings
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	TypesFile string
	Format    string // "json" | "table"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"json", "table"}

// NewRootCommand creates the root command for lowerq.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lowerq",
		Short: "Lower structured queries to engine wire requests",
		Long: `lowerq compiles a JSON query into the request the analytical engine
executes, using an attribute-type dictionary read from a YAML file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.TypesFile, "types", os.Getenv("ATTRIBUTE_TYPES_FILE"), "attribute types YAML file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|table)")

	cmd.AddCommand(NewLowerCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewAttributesCommand(opts))

	return cmd
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if lower.IsInputError(err) {
		return ExitInputError
	}
	return ExitCommandError
}

func loadCache(opts *RootOptions) (*schema.Cache, error) {
	if opts.TypesFile == "" {
		return nil, errors.New("no attribute types: pass --types or set ATTRIBUTE_TYPES_FILE")
	}
	cache := schema.NewCache()
	if err := cache.LoadFile(opts.TypesFile); err != nil {
		return nil, err
	}
	return cache, nil
}

// readInput reads the named file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}
	return data, nil
}
