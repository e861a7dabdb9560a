package metadata

import (
	"time"

	"github.com/meridian-data/meridian/pkg/types"
)

type SearchOperator string

const (
	SearchOpEQ SearchOperator = "EQ"
	SearchOpNE SearchOperator = "NE"
	SearchOpGT SearchOperator = "GT"
	SearchOpGE SearchOperator = "GE"
	SearchOpLT SearchOperator = "LT"
	SearchOpLE SearchOperator = "LE"
	SearchOpIN SearchOperator = "IN"
)

func (op SearchOperator) IsValid() bool {
	switch op {
	case SearchOpEQ, SearchOpNE, SearchOpGT, SearchOpGE, SearchOpLT, SearchOpLE, SearchOpIN:
		return true
	}
	return false
}

// IsOrdered reports whether the operator requires an ordered attribute
// type.
func (op SearchOperator) IsOrdered() bool {
	switch op {
	case SearchOpGT, SearchOpGE, SearchOpLT, SearchOpLE:
		return true
	}
	return false
}

type LogicalOperator string

const (
	LogicalOpAND LogicalOperator = "AND"
	LogicalOpOR  LogicalOperator = "OR"
	LogicalOpNOT LogicalOperator = "NOT"
)

// SearchTerm matches one attribute against one value. For multi-valued
// attributes EQ matches if any element matches; ordered operators never
// match multi-valued attributes; IN compares against every element of the
// (all scalar) search array.
type SearchTerm struct {
	AttrName    string         `json:"attrName"`
	AttrType    BasicType      `json:"attrType"`
	Operator    SearchOperator `json:"operator"`
	SearchValue Value          `json:"searchValue"`
}

// LogicalExpression combines child expressions. NOT takes exactly one
// child; AND and OR take one or more.
type LogicalExpression struct {
	Operator LogicalOperator     `json:"operator"`
	Expr     []*SearchExpression `json:"expr"`
}

// SearchExpression is a sum of a term and a logical node; exactly one side
// is set.
type SearchExpression struct {
	Term    *SearchTerm        `json:"term,omitempty"`
	Logical *LogicalExpression `json:"logical,omitempty"`
}

func TermExpr(name string, attrType BasicType, op SearchOperator, value Value) *SearchExpression {
	return &SearchExpression{Term: &SearchTerm{AttrName: name, AttrType: attrType, Operator: op, SearchValue: value}}
}

func LogicalExpr(op LogicalOperator, expr ...*SearchExpression) *SearchExpression {
	return &SearchExpression{Logical: &LogicalExpression{Operator: op, Expr: expr}}
}

// SearchParameters is a full search request over one tenant.
//
// With no flags set the universe is the current latest tag of the latest
// version of every object of the requested type. PriorVersions widens the
// universe to every version (returning the latest matching version per
// object); PriorTags widens it to every tag of each considered version
// (returning the latest matching tag per version). SearchAsOf restricts the
// universe to rows with tag_timestamp <= T before latest-selection.
type SearchParameters struct {
	ObjectType    types.ObjectType  `json:"objectType"`
	Search        *SearchExpression `json:"search"`
	SearchAsOf    *time.Time        `json:"searchAsOf,omitempty"`
	PriorVersions bool              `json:"priorVersions,omitempty"`
	PriorTags     bool              `json:"priorTags,omitempty"`
}

func (t *SearchTerm) Validate() error {
	if t.AttrName == "" {
		return ErrInvalidSearch.Msg("search term is missing an attribute name")
	}
	if !t.AttrType.IsValid() || t.AttrType == BasicTypeArray {
		return ErrInvalidSearch.Msg("search term requires a scalar attribute type")
	}
	if !t.Operator.IsValid() {
		return ErrInvalidSearch.Msg("unknown search operator")
	}
	if t.Operator.IsOrdered() && !t.AttrType.IsOrdered() {
		return ErrInvalidSearch.Msg("ordered operator on unordered type " + string(t.AttrType))
	}
	switch t.Operator {
	case SearchOpIN:
		if t.AttrType == BasicTypeBoolean {
			return ErrInvalidSearch.Msg("IN is not supported for BOOLEAN")
		}
		if !t.SearchValue.IsArray() || t.SearchValue.Type().ElemType() != t.AttrType {
			return ErrInvalidSearch.Msg("IN requires an array of the attribute type")
		}
		if len(t.SearchValue.Items()) == 0 {
			return ErrInvalidSearch.Msg("IN requires a non-empty search array")
		}
	default:
		if t.SearchValue.IsArray() {
			return ErrInvalidSearch.Msg("operator " + string(t.Operator) + " requires a scalar search value")
		}
		if t.SearchValue.BasicType() != t.AttrType {
			return ErrInvalidSearch.Msg("search value type does not match attribute type")
		}
	}
	return nil
}

func (e *SearchExpression) Validate() error {
	if e == nil {
		return ErrInvalidSearch.Msg("empty search expression")
	}
	if (e.Term == nil) == (e.Logical == nil) {
		return ErrInvalidSearch.Msg("expression must be exactly one of term or logical")
	}
	if e.Term != nil {
		return e.Term.Validate()
	}
	l := e.Logical
	switch l.Operator {
	case LogicalOpNOT:
		if len(l.Expr) != 1 {
			return ErrInvalidSearch.Msg("NOT takes exactly one child expression")
		}
	case LogicalOpAND, LogicalOpOR:
		if len(l.Expr) == 0 {
			return ErrInvalidSearch.Msg(string(l.Operator) + " takes at least one child expression")
		}
	default:
		return ErrInvalidSearch.Msg("unknown logical operator")
	}
	for _, child := range l.Expr {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *SearchParameters) Validate() error {
	if !p.ObjectType.IsValid() {
		return ErrInvalidSearch.Msg("missing or unknown object type")
	}
	return p.Search.Validate()
}
