package metadata

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-data/meridian/pkg/types"
)

func TestSelectorCriteriaDefaultToLatest(t *testing.T) {
	s := TagSelector{ObjectType: types.ObjectTypeData, ObjectID: uuid.New()}
	assert.True(t, s.ObjectCriterion().Latest)
	assert.True(t, s.TagCriterion().Latest)

	n := 3
	s.ObjectVersion = &n
	c := s.ObjectCriterion()
	assert.False(t, c.Latest)
	require.NotNil(t, c.Explicit)
	assert.Equal(t, 3, *c.Explicit)
	assert.True(t, s.TagCriterion().Latest, "axes are independent")
}

func TestSelectorValidate(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()
	n := 1

	valid := []TagSelector{
		LatestSelector(types.ObjectTypeData, id),
		{ObjectType: types.ObjectTypeData, ObjectID: id},
		{ObjectType: types.ObjectTypeData, ObjectID: id, ObjectVersion: &n, TagAsOf: &now},
		{ObjectType: types.ObjectTypeData, ObjectID: id, ObjectAsOf: &now},
	}
	for i, s := range valid {
		assert.NoError(t, s.Validate(), "case %d", i)
	}

	bad := n - 1
	invalid := []TagSelector{
		{ObjectID: id},
		{ObjectType: "WIDGET", ObjectID: id},
		{ObjectType: types.ObjectTypeData},
		{ObjectType: types.ObjectTypeData, ObjectID: id, ObjectVersion: &bad},
		{ObjectType: types.ObjectTypeData, ObjectID: id, ObjectVersion: &n, ObjectAsOf: &now},
		{ObjectType: types.ObjectTypeData, ObjectID: id, TagVersion: &n, LatestTag: true},
	}
	for i, s := range invalid {
		assert.ErrorIs(t, s.Validate(), ErrInvalidSelector, "case %d", i)
	}
}

func TestTagSelectorRoundTrip(t *testing.T) {
	tag := &Tag{
		Header: TagHeader{
			ObjectType:    types.ObjectTypeModel,
			ObjectID:      uuid.New(),
			ObjectVersion: 4,
			TagVersion:    2,
		},
	}
	s := tag.Selector()
	require.NoError(t, s.Validate())
	require.NotNil(t, s.ObjectVersion)
	require.NotNil(t, s.TagVersion)
	assert.Equal(t, 4, *s.ObjectVersion)
	assert.Equal(t, 2, *s.TagVersion)
	assert.False(t, s.ObjectCriterion().Latest)
}

func TestSearchExpressionValidate(t *testing.T) {
	term := TermExpr("state", BasicTypeString, SearchOpEQ, StringValue("clean"))
	assert.NoError(t, term.Validate())

	ge := TermExpr("rows", BasicTypeInteger, SearchOpGE, IntValue(10))
	assert.NoError(t, LogicalExpr(LogicalOpAND, term, ge).Validate())
	assert.NoError(t, LogicalExpr(LogicalOpNOT, term).Validate())

	cases := []*SearchExpression{
		nil,
		{},
		{Term: term.Term, Logical: &LogicalExpression{Operator: LogicalOpAND, Expr: []*SearchExpression{term}}},
		TermExpr("state", BasicTypeString, SearchOpGT, StringValue("x")),
		TermExpr("rows", BasicTypeInteger, SearchOpEQ, StringValue("ten")),
		TermExpr("", BasicTypeString, SearchOpEQ, StringValue("x")),
		LogicalExpr(LogicalOpNOT, term, ge),
		LogicalExpr(LogicalOpOR),
		LogicalExpr("XOR", term),
	}
	for i, e := range cases {
		assert.ErrorIs(t, e.Validate(), ErrInvalidSearch, "case %d", i)
	}

	// IN takes a non-empty array of the attribute type
	colors, err := ArrayValue(BasicTypeString, []Value{StringValue("red"), StringValue("green")})
	require.NoError(t, err)
	assert.NoError(t, TermExpr("color", BasicTypeString, SearchOpIN, colors).Validate())

	empty, err := ArrayValue(BasicTypeString, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, TermExpr("color", BasicTypeString, SearchOpIN, empty).Validate(), ErrInvalidSearch)
	assert.ErrorIs(t, TermExpr("color", BasicTypeString, SearchOpIN, StringValue("red")).Validate(), ErrInvalidSearch)
}
