package search

import (
	"encoding/json"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

const (
	DefaultOrderBy      = "date_desc"
	DefaultPostsPerPage = 12
)

// Filter groups, named after their request fields.
const (
	FilterAmount   = "amount"
	FilterStatus   = "status"
	FilterIndustry = "industry"
	FilterRegion   = "region"
)

// FilterNames lists the filter groups in request field order.
var FilterNames = []string{FilterAmount, FilterStatus, FilterIndustry, FilterRegion}

// Params describes one search request. Field order is the canonical order
// used for cache keys and for the request body.
type Params struct {
	// Search is the keyword typed into the first non-empty search input.
	Search string `json:"search"`

	// Amount and Status hold every selected value of their filter group,
	// comma-joined.
	Amount string `json:"amount"`
	Status string `json:"status"`

	// Industry and Region hold the first selected value of their group.
	Industry string `json:"industry"`
	Region   string `json:"region"`

	// OrderBy is the sort order. Defaults to "date_desc".
	OrderBy string `json:"orderby"`

	// PostsPerPage is the page size. Defaults to 12.
	PostsPerPage int `json:"posts_per_page"`

	// Page is the 1-based page number. Defaults to 1.
	Page int `json:"page"`
}

// DefaultParams returns the parameters of an empty form.
func DefaultParams() Params {
	return Params{OrderBy: DefaultOrderBy, PostsPerPage: DefaultPostsPerPage, Page: 1}
}

// Override adjusts collected parameters. Overrides are applied after the
// form has been read, so they always win.
type Override func(*Params)

func Page(n int) Override {
	return func(p *Params) { p.Page = n }
}

func PerPage(n int) Override {
	return func(p *Params) { p.PostsPerPage = n }
}

func Keyword(s string) Override {
	return func(p *Params) { p.Search = s }
}

func OrderBy(s string) Override {
	return func(p *Params) { p.OrderBy = s }
}

// Filter sets a filter group by name. Unknown names are ignored.
func Filter(name, value string) Override {
	return func(p *Params) { p.SetFilter(name, value) }
}

// Filter returns the value of a filter group.
func (p Params) Filter(name string) string {
	switch name {
	case FilterAmount:
		return p.Amount
	case FilterStatus:
		return p.Status
	case FilterIndustry:
		return p.Industry
	case FilterRegion:
		return p.Region
	}
	return ""
}

// SetFilter sets a filter group and reports whether name is known.
func (p *Params) SetFilter(name, value string) bool {
	switch name {
	case FilterAmount:
		p.Amount = value
	case FilterStatus:
		p.Status = value
	case FilterIndustry:
		p.Industry = value
	case FilterRegion:
		p.Region = value
	default:
		return false
	}
	return true
}

// joinsValues reports whether a filter group carries every selected value
// rather than just the first one.
func joinsValues(name string) bool {
	return name == FilterAmount || name == FilterStatus
}

// normalize fills defaults for values the coercion rules reject.
func (p *Params) normalize() {
	if p.OrderBy == "" {
		p.OrderBy = DefaultOrderBy
	}
	if p.PostsPerPage <= 0 {
		p.PostsPerPage = DefaultPostsPerPage
	}
	if p.Page <= 0 {
		p.Page = 1
	}
}

// CacheKey returns the canonical serialization of p. Comma-joined groups
// are sorted and de-duplicated first, so the same selection collected in a
// different order yields the same key.
func (p Params) CacheKey() string {
	k := p
	k.Amount = canonicalList(p.Amount)
	k.Status = canonicalList(p.Status)
	b, err := json.Marshal(k)
	if err != nil {
		// Params only holds strings and ints.
		panic(err)
	}
	return string(b)
}

func canonicalList(v string) string {
	if !strings.Contains(v, ",") {
		return strings.TrimSpace(v)
	}
	var items []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	slices.Sort(items)
	return strings.Join(slices.Compact(items), ",")
}

// Values returns p as request form fields.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("search", p.Search)
	v.Set("amount", p.Amount)
	v.Set("status", p.Status)
	v.Set("industry", p.Industry)
	v.Set("region", p.Region)
	v.Set("orderby", p.OrderBy)
	v.Set("posts_per_page", strconv.Itoa(p.PostsPerPage))
	v.Set("page", strconv.Itoa(p.Page))
	return v
}

// ParseParams reads parameters from form or query values, using the same
// field names as the request body. Missing or invalid numbers fall back to
// their defaults.
//
// Example:
//
//	params := ParseParams(r.URL.Query())
func ParseParams(values url.Values) Params {
	p := Params{
		Search:       values.Get("search"),
		Amount:       values.Get("amount"),
		Status:       values.Get("status"),
		Industry:     values.Get("industry"),
		Region:       values.Get("region"),
		OrderBy:      values.Get("orderby"),
		PostsPerPage: parsePositive(values.Get("posts_per_page"), DefaultPostsPerPage),
		Page:         parsePositive(values.Get("page"), 1),
	}
	p.normalize()
	return p
}

// UnmarshalJSON accepts numbers or strings for every field so state written
// by other clients still restores.
func (p *Params) UnmarshalJSON(data []byte) error {
	var w struct {
		Search       flexString `json:"search"`
		Amount       flexString `json:"amount"`
		Status       flexString `json:"status"`
		Industry     flexString `json:"industry"`
		Region       flexString `json:"region"`
		OrderBy      flexString `json:"orderby"`
		PostsPerPage flexString `json:"posts_per_page"`
		Page         flexString `json:"page"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Params{
		Search:       string(w.Search),
		Amount:       string(w.Amount),
		Status:       string(w.Status),
		Industry:     string(w.Industry),
		Region:       string(w.Region),
		OrderBy:      string(w.OrderBy),
		PostsPerPage: parsePositive(string(w.PostsPerPage), 0),
		Page:         parsePositive(string(w.Page), 0),
	}
	return nil
}

// parsePositive parses a positive integer, folding full-width digits
// (１２ → 12). Anything else yields def.
func parsePositive(s string, def int) int {
	s = strings.TrimSpace(width.Fold.String(s))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
