package ir

import (
	"fmt"
	"strings"
)

// PrimitiveType is the storage type of an attribute in the type dictionary.
type PrimitiveType string

const (
	TypeBool  PrimitiveType = "bool"
	TypeFloat PrimitiveType = "float"
	TypeInt   PrimitiveType = "int"
	TypeStr   PrimitiveType = "str"
)

// ParsePrimitiveType accepts the dictionary spellings of a primitive type.
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return TypeBool, nil
	case "float", "double":
		return TypeFloat, nil
	case "int", "integer":
		return TypeInt, nil
	case "str", "string":
		return TypeStr, nil
	default:
		return "", fmt.Errorf("unknown primitive type %q", s)
	}
}

// Operator is a comparison operator in a Condition.
type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpGt        Operator = ">"
	OpLt        Operator = "<"
	OpGte       Operator = ">="
	OpLte       Operator = "<="
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// BooleanOp joins the children of a BooleanCondition.
type BooleanOp string

const (
	BoolAnd BooleanOp = "AND"
	BoolOr  BooleanOp = "OR"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderBy sorts results by an expression.
type OrderBy struct {
	Expr      Expr
	Direction Direction
}

// Query is a fully built structured query handed over by the query builder.
type Query struct {
	Select  []Expr
	Where   []BoolExpr // AND'd together
	Having  []BoolExpr // AND'd together
	GroupBy []*Column
	OrderBy []OrderBy
	Limit   *int // nil = settings default
	Offset  *int // nil = settings default
}
