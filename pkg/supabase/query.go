package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type filter struct {
	column string
	expr   string
}

// QueryBuilder builds one PostgREST request against a table.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters []filter
	orders  []string
	limit   int
	offset  int
	single  bool
	token   string
}

// From starts a query against table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// AsUser runs the request with a user's access token so row-level security applies.
func (q *QueryBuilder) AsUser(accessToken string) *QueryBuilder {
	q.token = accessToken
	return q
}

func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.where(column, "eq."+formatValue(value))
}

func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return q.where(column, "neq."+formatValue(value))
}

// In matches any of values. Each value is double-quoted so commas and
// parentheses inside a value stay part of it.
func (q *QueryBuilder) In(column string, values ...any) *QueryBuilder {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quoteValue(formatValue(v))
	}
	return q.where(column, "in.("+strings.Join(parts, ",")+")")
}

// Is matches null, true or false.
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	if value == nil {
		return q.where(column, "is.null")
	}
	return q.where(column, "is."+formatValue(value))
}

func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

// Single asks for exactly one object; zero rows yields an error matching ErrNoRows.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Execute runs a SELECT.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	params := q.filterParams()
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		params.Set("offset", strconv.Itoa(q.offset))
	}

	req, err := q.client.newRequest(ctx, http.MethodGet, q.path(params), nil, q.token)
	if err != nil {
		return nil, err
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	return q.client.do(req)
}

// Insert adds rows and returns the stored representation.
func (q *QueryBuilder) Insert(ctx context.Context, rows any) (*Response, error) {
	req, err := q.client.newRequest(ctx, http.MethodPost, q.path(url.Values{}), rows, q.token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")
	return q.client.do(req)
}

// Upsert inserts rows, merging on the onConflict columns.
func (q *QueryBuilder) Upsert(ctx context.Context, rows any, onConflict string) (*Response, error) {
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	req, err := q.client.newRequest(ctx, http.MethodPost, q.path(params), rows, q.token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")
	return q.client.do(req)
}

// Update patches the filtered rows.
func (q *QueryBuilder) Update(ctx context.Context, patch any) (*Response, error) {
	if len(q.filters) == 0 {
		return nil, ErrUnfilteredWrite
	}
	req, err := q.client.newRequest(ctx, http.MethodPatch, q.path(q.filterParams()), patch, q.token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")
	return q.client.do(req)
}

// Delete removes the filtered rows.
func (q *QueryBuilder) Delete(ctx context.Context) (*Response, error) {
	if len(q.filters) == 0 {
		return nil, ErrUnfilteredWrite
	}
	req, err := q.client.newRequest(ctx, http.MethodDelete, q.path(q.filterParams()), nil, q.token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")
	return q.client.do(req)
}

func (q *QueryBuilder) where(column, expr string) *QueryBuilder {
	q.filters = append(q.filters, filter{column: column, expr: expr})
	return q
}

func (q *QueryBuilder) filterParams() url.Values {
	params := url.Values{}
	for _, f := range q.filters {
		params.Add(f.column, f.expr)
	}
	return params
}

func (q *QueryBuilder) path(params url.Values) string {
	p := "/rest/v1/" + url.PathEscape(q.table)
	if len(params) > 0 {
		p += "?" + params.Encode()
	}
	return p
}

var listQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteValue(s string) string {
	return `"` + listQuoter.Replace(s) + `"`
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
