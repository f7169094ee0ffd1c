// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tourColumns mirrors the allow-list a list endpoint would register.
var tourColumns = map[string]string{
	"name":            "name",
	"price":           "price",
	"duration":        "duration",
	"difficulty":      "difficulty",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"createdAt":       "created_at",
}

func parseQuery(t *testing.T, rawQuery string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	return values
}

func TestBuilder_FilterComparisonSuffixes(t *testing.T) {
	testCases := []struct {
		name      string
		rawQuery  string
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "plain equality",
			rawQuery:  "difficulty=easy",
			wantWhere: "WHERE difficulty = $1",
			wantArgs:  []any{"easy"},
		},
		{
			name:      "gte suffix becomes numeric comparison",
			rawQuery:  "price[gte]=100",
			wantWhere: "WHERE price >= $1",
			wantArgs:  []any{int64(100)},
		},
		{
			name:      "lt suffix",
			rawQuery:  "duration[lt]=10",
			wantWhere: "WHERE duration < $1",
			wantArgs:  []any{int64(10)},
		},
		{
			name:      "float values keep their type",
			rawQuery:  "ratingsAverage[gte]=4.5",
			wantWhere: "WHERE ratings_average >= $1",
			wantArgs:  []any{4.5},
		},
		{
			name:      "unknown operator suffix is not rewritten",
			rawQuery:  "price[like]=100",
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "unknown field is ignored",
			rawQuery:  "isAdmin=true",
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "reserved keys never filter",
			rawQuery:  "page=2&sort=price&limit=5&fields=name",
			wantWhere: "",
			wantArgs:  nil,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			builder := NewBuilder(parseQuery(t, testCase.rawQuery), tourColumns, "-createdAt").Filter()

			where, args := builder.Where()
			assert.Equal(t, testCase.wantWhere, where)
			assert.Equal(t, testCase.wantArgs, args)
		})
	}
}

func TestBuilder_FilterRangeOnSameField(t *testing.T) {
	values := parseQuery(t, "duration[gte]=5&duration[lte]=9")
	_, args := NewBuilder(values, tourColumns, "-createdAt").Filter().Where()

	// Both bounds survive as separate predicates.
	assert.Len(t, args, 2)
	assert.ElementsMatch(t, []any{int64(5), int64(9)}, args)
}

func TestBuilder_Sort(t *testing.T) {
	testCases := []struct {
		name        string
		rawQuery    string
		wantOrderBy string
	}{
		{
			name:        "descending prefix",
			rawQuery:    "sort=-price",
			wantOrderBy: "ORDER BY price DESC",
		},
		{
			name:        "multi-field sort",
			rawQuery:    "sort=-ratingsAverage,price",
			wantOrderBy: "ORDER BY ratings_average DESC, price ASC",
		},
		{
			name:        "default is newest first",
			rawQuery:    "",
			wantOrderBy: "ORDER BY created_at DESC",
		},
		{
			name:        "unknown sort field falls through empty",
			rawQuery:    "sort=passwordHash",
			wantOrderBy: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			builder := NewBuilder(parseQuery(t, testCase.rawQuery), tourColumns, "-createdAt").Sort()
			assert.Equal(t, testCase.wantOrderBy, builder.OrderBy())
		})
	}
}

func TestBuilder_LimitFields(t *testing.T) {
	t.Run("projection picks allow-listed columns", func(t *testing.T) {
		builder := NewBuilder(parseQuery(t, "fields=name,price,secretNotes"), tourColumns, "-createdAt").LimitFields()
		assert.Equal(t, []string{"name", "price"}, builder.Columns("id", "name", "price"))
	})

	t.Run("no projection falls back to defaults", func(t *testing.T) {
		builder := NewBuilder(parseQuery(t, ""), tourColumns, "-createdAt").LimitFields()
		assert.Equal(t, []string{"id", "name", "price"}, builder.Columns("id", "name", "price"))
	})
}

func TestBuilder_Paginate(t *testing.T) {
	testCases := []struct {
		name       string
		rawQuery   string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{name: "explicit page and limit", rawQuery: "page=2&limit=5", wantPage: 2, wantLimit: 5, wantOffset: 5},
		{name: "defaults", rawQuery: "", wantPage: 1, wantLimit: 100, wantOffset: 0},
		{name: "negative page clamps", rawQuery: "page=-3", wantPage: 1, wantLimit: 100, wantOffset: 0},
		{name: "excessive limit clamps", rawQuery: "limit=5000", wantPage: 1, wantLimit: 100, wantOffset: 0},
		{name: "garbage values clamp", rawQuery: "page=abc&limit=xyz", wantPage: 1, wantLimit: 100, wantOffset: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			builder := NewBuilder(parseQuery(t, testCase.rawQuery), tourColumns, "-createdAt").Paginate()
			assert.Equal(t, testCase.wantPage, builder.Page())
			assert.Equal(t, testCase.wantLimit, builder.Limit())
			assert.Equal(t, testCase.wantOffset, builder.Offset())
		})
	}
}

func TestBuilder_ChainingOrderDoesNotMatter(t *testing.T) {
	values := parseQuery(t, "price[gte]=100&sort=-price&page=2&limit=5")

	forward := NewBuilder(values, tourColumns, "-createdAt").Filter().Sort().LimitFields().Paginate()
	backward := NewBuilder(values, tourColumns, "-createdAt").Paginate().LimitFields().Sort().Filter()

	forwardSQL, forwardArgs := forward.Build("SELECT id FROM tours")
	backwardSQL, backwardArgs := backward.Build("SELECT id FROM tours")

	assert.Equal(t, forwardSQL, backwardSQL)
	assert.Equal(t, forwardArgs, backwardArgs)
}

func TestBuilder_Build(t *testing.T) {
	values := parseQuery(t, "price[gte]=100&sort=-price&page=2&limit=5")
	builder := NewBuilder(values, tourColumns, "-createdAt").Filter().Sort().LimitFields().Paginate()

	sql, args := builder.Build("SELECT id FROM tours")

	assert.Equal(t, "SELECT id FROM tours WHERE price >= $1 ORDER BY price DESC LIMIT $2 OFFSET $3", sql)
	assert.Equal(t, []any{int64(100), 5, 5}, args)
}
