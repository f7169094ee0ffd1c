// Copyright (c) 2026 Natours. All rights reserved.
// Author: marcin.karbowniczyn@gmail.com

/*
Package query translates flat request query parameters into composed,
parameterized SQL fragments for list endpoints.

# Overview

A [Builder] is constructed per request with an allow-listed column map and
then chained through its four stages, in any order:

	builder := query.NewBuilder(request.URL.Query(), tourColumns, "-createdAt").
		Filter().
		Sort().
		LimitFields().
		Paginate()

of which each stage consumes its slice of the parameter space:

  - Filter: every parameter except the reserved keys (page, sort, limit,
    fields) becomes a WHERE predicate. Comparison operators are embedded as
    bracketed key suffixes — price[gte]=100 becomes "price >= $1". Only the
    suffixes gte, gt, lte and lt are recognized; anything else is rejected.
  - Sort: comma-separated field list, "-" prefix for descending. Defaults to
    newest-first by creation time.
  - LimitFields: comma-separated projection list. Defaults to every column in
    the allow-list; internal columns never appear in the map and therefore
    can never be selected.
  - Paginate: page (default 1) and limit (default 100, capped), with
    OFFSET = (page-1) * limit.

# Safety

Field names are never interpolated from user input: a parameter key only
participates if it maps to a column in the allow-list, and all values travel
as placeholder arguments. Unknown keys are silently ignored, matching the
behavior of a schemaless store dropping unmatched filters.
*/
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/marcin-karbowniczyn/natours/pkg/convert"
	"github.com/marcin-karbowniczyn/natours/pkg/slice"
)

const (
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// DefaultLimit is the page size when the request does not specify one.
	DefaultLimit = 100
	// MaxLimit is the upper bound for items per page to prevent system abuse.
	MaxLimit = 100
)

// reservedParams never participate in filtering; they drive the other stages.
var reservedParams = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

// comparisonOperators is the allow-listed mapping from bracketed key suffix
// to SQL comparison operator. No other suffixes are rewritten.
var comparisonOperators = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

// Builder accumulates SQL fragments from request parameters.
//
// All stage methods return the receiver so calls chain; the zero value is not
// usable, construct via [NewBuilder].
type Builder struct {
	values      url.Values
	columns     map[string]string
	defaultSort string

	conditions []string
	args       []any
	orderBy    []string
	selected   []string
	page       int
	limit      int
}

// NewBuilder constructs a [Builder] for one request.
//
// # Parameters
//   - values: The request's parsed query string.
//   - columns: Allow-list mapping external field names to SQL column names.
//     Fields absent from the map cannot be filtered, sorted or projected.
//   - defaultSort: Sort expression applied when the request has none, in the
//     same notation as the sort parameter (e.g. "-createdAt").
func NewBuilder(values url.Values, columns map[string]string, defaultSort string) *Builder {
	return &Builder{
		values:      values,
		columns:     columns,
		defaultSort: defaultSort,
		page:        DefaultPage,
		limit:       DefaultLimit,
	}
}

// Filter consumes every non-reserved parameter into WHERE predicates.
func (builder *Builder) Filter() *Builder {
	// Stable key order keeps the generated SQL deterministic.
	keys := make([]string, 0, len(builder.values))
	for key := range builder.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reservedParams[key] {
			continue
		}

		field, operator := splitOperator(key)
		column, ok := builder.columns[field]
		if !ok {
			continue
		}

		for _, raw := range builder.values[key] {
			builder.args = append(builder.args, parseValue(raw))
			builder.conditions = append(builder.conditions,
				fmt.Sprintf("%s %s $%d", column, operator, len(builder.args)))
		}
	}

	return builder
}

// Sort consumes the sort parameter into ORDER BY terms.
//
// A comma-separated list of fields, each optionally prefixed with "-" for
// descending order. Unknown fields are skipped; if nothing survives, the
// default sort applies.
func (builder *Builder) Sort() *Builder {
	expression := builder.values.Get("sort")
	if expression == "" {
		expression = builder.defaultSort
	}

	for _, term := range strings.Split(expression, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		direction := "ASC"
		if strings.HasPrefix(term, "-") {
			direction = "DESC"
			term = term[1:]
		}

		column, ok := builder.columns[term]
		if !ok {
			continue
		}
		builder.orderBy = append(builder.orderBy, column+" "+direction)
	}

	return builder
}

// LimitFields consumes the fields parameter into the projection list.
func (builder *Builder) LimitFields() *Builder {
	expression := builder.values.Get("fields")
	if expression == "" {
		return builder
	}

	fields := slice.Map(strings.Split(expression, ","), strings.TrimSpace)
	fields = slice.Filter(fields, func(field string) bool {
		_, ok := builder.columns[field]
		return ok
	})
	builder.selected = append(builder.selected, slice.Map(fields, func(field string) string {
		return builder.columns[field]
	})...)

	return builder
}

// Paginate consumes the page and limit parameters.
//
// # Clamping
//
// Invalid, negative, or excessive values fall back to [DefaultPage],
// [DefaultLimit], or [MaxLimit].
func (builder *Builder) Paginate() *Builder {
	builder.page = parseIntParam(builder.values, "page", DefaultPage)
	if builder.page < 1 {
		builder.page = DefaultPage
	}

	builder.limit = parseIntParam(builder.values, "limit", DefaultLimit)
	if builder.limit < 1 || builder.limit > MaxLimit {
		builder.limit = DefaultLimit
	}

	return builder
}

// Columns returns the projected SQL column list, or every allow-listed
// column (in the order given) when the request projected nothing.
func (builder *Builder) Columns(defaults ...string) []string {
	if len(builder.selected) > 0 {
		return builder.selected
	}
	return defaults
}

// Where returns the WHERE clause (including the keyword, empty when there
// are no predicates) and its placeholder arguments, numbered from $1.
func (builder *Builder) Where() (string, []any) {
	if len(builder.conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(builder.conditions, " AND "), builder.args
}

// OrderBy returns the ORDER BY clause, empty when no sort terms survived.
func (builder *Builder) OrderBy() string {
	if len(builder.orderBy) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(builder.orderBy, ", ")
}

// Page returns the resolved 1-indexed page number.
func (builder *Builder) Page() int { return builder.page }

// Limit returns the resolved page size.
func (builder *Builder) Limit() int { return builder.limit }

// Offset returns the SQL OFFSET derived from page and limit.
func (builder *Builder) Offset() int {
	return (builder.page - 1) * builder.limit
}

// Build composes the final statement from a SELECT base and the accumulated
// fragments. LIMIT and OFFSET are appended as the two trailing placeholders.
//
// # Example
//
//	sql, args := builder.Build("SELECT " + strings.Join(cols, ", ") + " FROM tours")
func (builder *Builder) Build(base string) (string, []any) {
	var parts []string
	parts = append(parts, base)

	where, args := builder.Where()
	if where != "" {
		parts = append(parts, where)
	}

	if orderBy := builder.OrderBy(); orderBy != "" {
		parts = append(parts, orderBy)
	}

	args = append(args, builder.limit)
	parts = append(parts, fmt.Sprintf("LIMIT $%d", len(args)))

	args = append(args, builder.Offset())
	parts = append(parts, fmt.Sprintf("OFFSET $%d", len(args)))

	return strings.Join(parts, " "), args
}

// splitOperator separates "price[gte]" into ("price", ">="). Keys without a
// recognized bracketed suffix compare with equality.
func splitOperator(key string) (field string, operator string) {
	open := strings.IndexByte(key, '[')
	if open > 0 && strings.HasSuffix(key, "]") {
		suffix := key[open+1 : len(key)-1]
		if sqlOperator, ok := comparisonOperators[suffix]; ok {
			return key[:open], sqlOperator
		}
	}
	return key, "="
}

// parseValue types a raw parameter value so numeric comparisons hit numeric
// columns without a cast. Booleans and numbers are recognized; everything
// else stays a string.
func parseValue(raw string) any {
	if integer, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return integer
	}
	if float, err := strconv.ParseFloat(raw, 64); err == nil {
		return float
	}
	if boolean, err := strconv.ParseBool(raw); err == nil {
		return boolean
	}
	return raw
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(values url.Values, key string, defaultVal int) int {
	return convert.ToIntD(values.Get(key), defaultVal)
}
