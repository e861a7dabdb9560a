package postgresql

import (
	"fmt"
	"strings"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// searchQuery is a fully planned search: one SQL statement plus its
// positional arguments. Building is pure so the planner can be tested
// without a database.
type searchQuery struct {
	SQL  string
	Args []any
}

// buildSearchQuery translates SearchParameters into a single SQL statement.
//
// Layout: a universe CTE of (tag x version x object) rows for the tenant and
// type, restricted to tag_timestamp <= asOf before any latest-selection;
// window ranks pick the latest tag per version and the latest version per
// object unless the prior* flags widen the universe; the expression tree
// becomes correlated EXISTS subqueries over tag_attr composed with boolean
// operators; a final window keeps the latest matching (version, tag) per
// object.
func buildSearchQuery(tenantID types.TenantId, params metadata.SearchParameters) (*searchQuery, apperrors.Error) {
	if err := params.Validate(); err != nil {
		return nil, dberror.ErrInvalidInput.Err(err)
	}

	b := &queryBuilder{}
	tenantParam := b.addArg(tenantID)
	typeParam := b.addArg(string(params.ObjectType))

	var sb strings.Builder
	sb.WriteString(`WITH universe AS (
	SELECT t.object_id, t.version_num, t.tag_num, t.tag_timestamp,
		v.object_timestamp, v.is_latest AS is_latest_version, t.is_latest AS is_latest_tag
	FROM tag t
	JOIN object_version v
		ON v.object_id = t.object_id AND v.version_num = t.version_num AND v.tenant_id = t.tenant_id
	JOIN object o
		ON o.object_id = t.object_id AND o.tenant_id = t.tenant_id
	WHERE t.tenant_id = ` + tenantParam + ` AND o.object_type = ` + typeParam + ` AND o.saved`)
	if params.SearchAsOf != nil {
		sb.WriteString(" AND t.tag_timestamp <= " + b.addArg(params.SearchAsOf.UTC()))
	}
	sb.WriteString(`
),
ranked_universe AS (
	SELECT u.*,
		ROW_NUMBER() OVER (PARTITION BY u.object_id, u.version_num ORDER BY u.tag_num DESC) AS tag_rank,
		DENSE_RANK() OVER (PARTITION BY u.object_id ORDER BY u.version_num DESC) AS version_rank
	FROM universe u
),
candidates AS (
	SELECT * FROM ranked_universe`)

	var scope []string
	if !params.PriorTags {
		scope = append(scope, "tag_rank = 1")
	}
	if !params.PriorVersions {
		scope = append(scope, "version_rank = 1")
	}
	if len(scope) > 0 {
		sb.WriteString(" WHERE " + strings.Join(scope, " AND "))
	}

	exprSQL, err := b.exprSQL(tenantParam, params.Search)
	if err != nil {
		return nil, err
	}
	sb.WriteString(`
),
matched AS (
	SELECT * FROM candidates c
	WHERE ` + exprSQL + `
),
results AS (
	SELECT m.*,
		ROW_NUMBER() OVER (PARTITION BY m.object_id ORDER BY m.version_num DESC, m.tag_num DESC) AS result_rank
	FROM matched m
)
SELECT object_id, version_num, tag_num, tag_timestamp, object_timestamp, is_latest_version, is_latest_tag
FROM results
WHERE result_rank = 1
ORDER BY tag_timestamp DESC, object_timestamp DESC, object_id;`)

	return &searchQuery{SQL: sb.String(), Args: b.args}, nil
}

type queryBuilder struct {
	args []any
}

func (b *queryBuilder) addArg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// exprSQL renders an expression subtree as a boolean SQL fragment over the
// candidate alias "c".
func (b *queryBuilder) exprSQL(tenantParam string, expr *metadata.SearchExpression) (string, apperrors.Error) {
	if expr.Term != nil {
		return b.termSQL(tenantParam, expr.Term)
	}
	l := expr.Logical
	children := make([]string, 0, len(l.Expr))
	for _, child := range l.Expr {
		sql, err := b.exprSQL(tenantParam, child)
		if err != nil {
			return "", err
		}
		children = append(children, sql)
	}
	switch l.Operator {
	case metadata.LogicalOpAND:
		return "(" + strings.Join(children, " AND ") + ")", nil
	case metadata.LogicalOpOR:
		return "(" + strings.Join(children, " OR ") + ")", nil
	case metadata.LogicalOpNOT:
		return "(NOT " + children[0] + ")", nil
	}
	return "", dberror.ErrInvalidInput.Msg("unknown logical operator")
}

// termSQL renders one term as an EXISTS subquery over tag_attr. NE is the
// exact complement of EQ (NOT EXISTS), so missing and differently-typed
// attributes match. Ordered operators pin attr_index to zero: a multi-valued
// attribute never matches an ordered comparison.
func (b *queryBuilder) termSQL(tenantParam string, term *metadata.SearchTerm) (string, apperrors.Error) {
	column, ok := attrValueColumn(term.AttrType)
	if !ok {
		return "", dberror.ErrInvalidInput.Msg("search term requires a scalar attribute type")
	}

	var cond string
	switch term.Operator {
	case metadata.SearchOpEQ, metadata.SearchOpNE:
		cond = column + " = " + b.addArg(attrSearchArg(term.SearchValue))
	case metadata.SearchOpGT:
		cond = "a.attr_index = 0 AND " + column + " > " + b.addArg(attrSearchArg(term.SearchValue))
	case metadata.SearchOpGE:
		cond = "a.attr_index = 0 AND " + column + " >= " + b.addArg(attrSearchArg(term.SearchValue))
	case metadata.SearchOpLT:
		cond = "a.attr_index = 0 AND " + column + " < " + b.addArg(attrSearchArg(term.SearchValue))
	case metadata.SearchOpLE:
		cond = "a.attr_index = 0 AND " + column + " <= " + b.addArg(attrSearchArg(term.SearchValue))
	case metadata.SearchOpIN:
		items := term.SearchValue.Items()
		placeholders := make([]string, 0, len(items))
		for _, item := range items {
			placeholders = append(placeholders, b.addArg(attrSearchArg(item)))
		}
		cond = column + " IN (" + strings.Join(placeholders, ", ") + ")"
	default:
		return "", dberror.ErrInvalidInput.Msg("unknown search operator")
	}

	exists := `EXISTS (
		SELECT 1 FROM tag_attr a
		WHERE a.tenant_id = ` + tenantParam + `
			AND a.object_id = c.object_id AND a.version_num = c.version_num AND a.tag_num = c.tag_num
			AND a.attr_name = ` + b.addArg(term.AttrName) + `
			AND a.attr_type = ` + b.addArg(string(term.AttrType)) + `
			AND ` + cond + `
	)`
	if term.Operator == metadata.SearchOpNE {
		return "(NOT " + exists + ")", nil
	}
	return "(" + exists + ")", nil
}

func attrValueColumn(t metadata.BasicType) (string, bool) {
	switch t {
	case metadata.BasicTypeBoolean:
		return "a.value_boolean", true
	case metadata.BasicTypeInteger:
		return "a.value_integer", true
	case metadata.BasicTypeFloat:
		return "a.value_float", true
	case metadata.BasicTypeDecimal:
		return "a.value_decimal", true
	case metadata.BasicTypeString:
		return "a.value_string", true
	case metadata.BasicTypeDate:
		return "a.value_date", true
	case metadata.BasicTypeDatetime:
		return "a.value_datetime", true
	}
	return "", false
}

// attrSearchArg converts a scalar search value to its SQL argument form.
// Decimals travel as their canonical string and let the server cast to
// numeric, so comparisons are exact.
func attrSearchArg(v metadata.Value) any {
	switch v.BasicType() {
	case metadata.BasicTypeBoolean:
		return v.Bool()
	case metadata.BasicTypeInteger:
		return v.Int()
	case metadata.BasicTypeFloat:
		return v.Float()
	case metadata.BasicTypeDecimal:
		return v.Decimal().String()
	case metadata.BasicTypeString:
		return v.Str()
	case metadata.BasicTypeDate, metadata.BasicTypeDatetime:
		return v.Time()
	}
	return nil
}
