package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/atlekbai/query_lowering/internal/explain"
	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/lower"
	"github.com/atlekbai/query_lowering/internal/wire"
)

// LowerOptions holds flags shared by lower and explain.
type LowerOptions struct {
	*RootOptions
	Limit         int
	Offset        int
	Extrapolation string
}

func (o *LowerOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.Limit, "limit", 25, "default limit when the query sets none")
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "default offset when the query sets none")
	cmd.Flags().StringVar(&o.Extrapolation, "extrapolation", string(lower.ExtrapolationNone), "extrapolation mode (weighted|none)")
}

// lowerFile reads, decodes and lowers the query at path.
func (o *LowerOptions) lowerFile(cmd *cobra.Command, path string) (*wire.Request, error) {
	cache, err := loadCache(o.RootOptions)
	if err != nil {
		return nil, err
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	q, err := ir.DecodeQuery(data)
	if err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	return lower.Lower(q, lower.Settings{
		AttributeTypes:    cache.Types(),
		DefaultLimit:      o.Limit,
		DefaultOffset:     o.Offset,
		ExtrapolationMode: lower.ExtrapolationMode(o.Extrapolation),
	})
}

// NewLowerCommand creates the lower command.
func NewLowerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LowerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lower <query.json|->",
		Short: "Lower a JSON query to a wire request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.lowerFile(cmd, args[0])
			if err != nil {
				return err
			}
			if opts.Format == "table" {
				return writeColumnTable(cmd.OutOrStdout(), req)
			}
			return writeJSON(cmd.OutOrStdout(), req.AsMap())
		},
	}
	opts.register(cmd)

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeColumnTable summarises the request's columns as a markdown table.
func writeColumnTable(w io.Writer, req *wire.Request) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"#", "label", "kind", "expression"})
	for i, col := range req.Columns {
		if err := table.Append([]string{strconv.Itoa(i), col.Label, columnKind(col), explain.Describe(col)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	groupBy := make([]string, len(req.GroupBy))
	for i, k := range req.GroupBy {
		groupBy[i] = k.Name
	}
	_, err := fmt.Fprintf(w, "\n_group by: %s; limit %d; offset %d_\n",
		strings.Join(groupBy, ", "), req.Limit, req.PageToken.Offset)
	return err
}

func columnKind(col wire.Column) string {
	switch col.Expr.(type) {
	case wire.AttributeKey:
		return "attribute"
	case *wire.Aggregation:
		return "aggregation"
	case *wire.ConditionalAggregation:
		return "conditional_aggregation"
	case *wire.BinaryFormula:
		return "formula"
	case wire.Literal:
		return "literal"
	default:
		return "unknown"
	}
}
