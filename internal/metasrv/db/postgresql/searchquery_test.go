package postgresql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func intTerm(name string, op metadata.SearchOperator, v int64) *metadata.SearchExpression {
	return metadata.TermExpr(name, metadata.BasicTypeInteger, op, metadata.IntValue(v))
}

func TestBuildSearchQueryDefaultScope(t *testing.T) {
	params := metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     intTerm("rodent_count", metadata.SearchOpEQ, 7),
	}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)

	// Latest tag of latest version only.
	assert.Contains(t, q.SQL, "tag_rank = 1")
	assert.Contains(t, q.SQL, "version_rank = 1")
	assert.NotContains(t, q.SQL, "tag_timestamp <= $")

	// Tenant and type are the first two args, then the search value.
	require.GreaterOrEqual(t, len(q.Args), 3)
	assert.Equal(t, types.TenantId("ACME"), q.Args[0])
	assert.Equal(t, "DATA", q.Args[1])
	assert.Contains(t, q.Args, int64(7))
}

func TestBuildSearchQueryPriorFlags(t *testing.T) {
	params := metadata.SearchParameters{
		ObjectType:    types.ObjectTypeData,
		Search:        intTerm("rodent_count", metadata.SearchOpEQ, 7),
		PriorVersions: true,
	}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.Contains(t, q.SQL, "tag_rank = 1")
	assert.NotContains(t, q.SQL, "version_rank = 1")

	params.PriorTags = true
	q, err = buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.NotContains(t, q.SQL, "tag_rank = 1")
	assert.NotContains(t, q.SQL, "version_rank = 1")
	// The final window still dedups to one row per object.
	assert.Contains(t, q.SQL, "result_rank = 1")
}

func TestBuildSearchQueryAsOf(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	params := metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     intTerm("rodent_count", metadata.SearchOpEQ, 7),
		SearchAsOf: &asOf,
	}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.Contains(t, q.SQL, "t.tag_timestamp <= $3")
	assert.Equal(t, asOf, q.Args[2])
}

func TestBuildSearchQueryNEIsComplement(t *testing.T) {
	params := metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     intTerm("rodent_count", metadata.SearchOpNE, 7),
	}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.Contains(t, q.SQL, "NOT EXISTS")
}

func TestBuildSearchQueryOrderedOpPinsScalar(t *testing.T) {
	params := metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     intTerm("rodent_count", metadata.SearchOpGE, 7),
	}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.Contains(t, q.SQL, "a.attr_index = 0 AND a.value_integer >= $")
}

func TestBuildSearchQueryINExpandsPlaceholders(t *testing.T) {
	arr, verr := metadata.ArrayValue(metadata.BasicTypeString, []metadata.Value{
		metadata.StringValue("red"), metadata.StringValue("green"), metadata.StringValue("blue"),
	})
	require.NoError(t, verr)
	params := metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     metadata.TermExpr("color", metadata.BasicTypeString, metadata.SearchOpIN, arr),
	}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.Contains(t, q.SQL, "a.value_string IN ($3, $4, $5)")
	assert.Equal(t, []any{types.TenantId("ACME"), "DATA", "red", "green", "blue", "color", "STRING"}, q.Args)
}

func TestBuildSearchQueryLogicalComposition(t *testing.T) {
	expr := metadata.LogicalExpr(metadata.LogicalOpAND,
		intTerm("a", metadata.SearchOpEQ, 1),
		metadata.LogicalExpr(metadata.LogicalOpNOT,
			metadata.LogicalExpr(metadata.LogicalOpOR,
				intTerm("b", metadata.SearchOpEQ, 2),
				intTerm("c", metadata.SearchOpEQ, 3),
			),
		),
	)
	params := metadata.SearchParameters{ObjectType: types.ObjectTypeData, Search: expr}
	q, err := buildSearchQuery("ACME", params)
	require.Nil(t, err)
	assert.Equal(t, 3, strings.Count(q.SQL, "EXISTS ("))
	assert.Contains(t, q.SQL, "(NOT (")
	assert.Contains(t, q.SQL, " OR ")
	assert.Contains(t, q.SQL, " AND ")
}

func TestBuildSearchQueryRejectsInvalid(t *testing.T) {
	// Ordered op on a string attr.
	params := metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search:     metadata.TermExpr("name", metadata.BasicTypeString, metadata.SearchOpGT, metadata.StringValue("x")),
	}
	_, err := buildSearchQuery("ACME", params)
	assert.NotNil(t, err)

	// Unknown object type.
	params = metadata.SearchParameters{
		ObjectType: types.ObjectType("SOMETHING"),
		Search:     intTerm("a", metadata.SearchOpEQ, 1),
	}
	_, err = buildSearchQuery("ACME", params)
	assert.NotNil(t, err)

	// NOT with two children.
	params = metadata.SearchParameters{
		ObjectType: types.ObjectTypeData,
		Search: metadata.LogicalExpr(metadata.LogicalOpNOT,
			intTerm("a", metadata.SearchOpEQ, 1), intTerm("b", metadata.SearchOpEQ, 2)),
	}
	_, err = buildSearchQuery("ACME", params)
	assert.NotNil(t, err)
}
