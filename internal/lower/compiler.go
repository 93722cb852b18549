// Package lower compiles a structured Query IR into the engine's wire request.
//
// Lowering is pure: a Compiler holds only read-only settings, performs no I/O
// and is safe for concurrent use. Every failure is one of the typed errors in
// errors.go and no partial request is ever returned.
package lower

import (
	"fmt"

	"github.com/atlekbai/query_lowering/internal/ir"
	"github.com/atlekbai/query_lowering/internal/wire"
)

// Compiler lowers queries under a fixed set of settings.
type Compiler struct {
	settings Settings
}

// NewCompiler creates a compiler. Settings are validated by Compile.
func NewCompiler(settings Settings) *Compiler {
	return &Compiler{settings: settings}
}

// Lower lowers q under settings.
func Lower(q *ir.Query, settings Settings) (*wire.Request, error) {
	return NewCompiler(settings).Compile(q)
}

// Compile assembles the wire request for q.
func (c *Compiler) Compile(q *ir.Query) (*wire.Request, error) {
	if err := c.settings.Validate(); err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("cannot lower nil query")
	}

	req := &wire.Request{
		Columns:   make([]wire.Column, 0, len(q.Select)),
		GroupBy:   make([]wire.AttributeKey, 0, len(q.GroupBy)),
		OrderBy:   make([]wire.OrderBy, 0, len(q.OrderBy)),
		Limit:     c.settings.DefaultLimit,
		PageToken: wire.PageToken{Offset: c.settings.DefaultOffset},
	}

	for i, e := range q.Select {
		col, err := c.Expression(e)
		if err != nil {
			return nil, fmt.Errorf("select[%d]: %w", i, err)
		}
		req.Columns = append(req.Columns, col)
	}

	where := &wire.AndFilter{Filters: make([]wire.Filter, 0, len(q.Where))}
	for i, cond := range q.Where {
		f, err := c.Condition(cond)
		if err != nil {
			return nil, fmt.Errorf("where[%d]: %w", i, err)
		}
		where.Filters = append(where.Filters, f)
	}
	req.Filter = where

	having := &wire.AggregationAndFilter{Filters: make([]wire.AggregationFilter, 0, len(q.Having))}
	for i, cond := range q.Having {
		f, err := c.AggCondition(cond)
		if err != nil {
			return nil, fmt.Errorf("having[%d]: %w", i, err)
		}
		having.Filters = append(having.Filters, f)
	}
	req.AggregationFilter = having

	for i, col := range q.GroupBy {
		key, err := c.Key(col)
		if err != nil {
			return nil, fmt.Errorf("groupby[%d]: %w", i, err)
		}
		req.GroupBy = append(req.GroupBy, key)
	}

	for i, ob := range q.OrderBy {
		col, err := c.Expression(ob.Expr)
		if err != nil {
			return nil, fmt.Errorf("orderby[%d]: %w", i, err)
		}
		req.OrderBy = append(req.OrderBy, wire.OrderBy{Column: col, Descending: ob.Direction == ir.Desc})
	}

	if q.Limit != nil {
		req.Limit = *q.Limit
	}
	if q.Offset != nil {
		req.PageToken.Offset = *q.Offset
	}

	return req, nil
}

// Key resolves a column to a typed attribute key.
func (c *Compiler) Key(col *ir.Column) (wire.AttributeKey, error) {
	if col == nil {
		return wire.AttributeKey{}, &UnsupportedExpressionError{Name: "column", Reason: "nil column"}
	}
	typ, ok := c.settings.AttributeTypes[col.Name]
	if !ok {
		return wire.AttributeKey{}, &UnknownAttributeError{Name: col.Name}
	}
	wt, err := lookup(attributeTypes, typ, func(t ir.PrimitiveType) error {
		return &InvalidSettingsError{Field: "attribute_types[" + col.Name + "]", Value: string(t)}
	})
	if err != nil {
		return wire.AttributeKey{}, err
	}
	return wire.AttributeKey{Type: wt, Name: col.Name}, nil
}

func (c *Compiler) extrapolationMode() wire.ExtrapolationMode {
	return extrapolationModes[c.settings.ExtrapolationMode]
}
