package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/atlekbai/query_lowering/internal/explain"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LowerOptions{RootOptions: rootOpts}
	var table string

	cmd := &cobra.Command{
		Use:   "explain <query.json|->",
		Short: "Show an SQL preview of the lowered request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.lowerFile(cmd, args[0])
			if err != nil {
				return err
			}
			sql, sqlArgs, err := explain.Build(req, table)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"sql": sql, "args": sqlArgs})
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			for i, a := range sqlArgs {
				fmt.Fprintf(cmd.OutOrStdout(), "  $%d = %v\n", i+1, a)
			}
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&table, "table", "eap_items", "table name used in the preview")

	return cmd
}

// NewAttributesCommand creates the attributes command.
func NewAttributesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attributes",
		Short: "List the attribute-type dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := loadCache(rootOpts)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), cache.Types())
			}

			t := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithRenderer(renderer.NewMarkdown()),
				tablewriter.WithHeaderAutoFormat(tw.Off),
			)
			t.Header([]string{"name", "type", "id"})
			for _, def := range cache.List() {
				if err := t.Append([]string{def.Name, string(def.Type), def.ID.String()}); err != nil {
					return err
				}
			}
			return t.Render()
		},
	}
}
