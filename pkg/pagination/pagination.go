// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination parses page/limit query parameters for comic listings and
// builds the metadata returned alongside a page of results.
package pagination

import (
	"net/http"

	"github.com/taibuivan/comicverse/pkg/convert"
)

const (
	// DefaultLimit is the number of comics per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for comics per page.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds a normalised page and limit.
type Params struct {
	Page  int
	Limit int
}

// New clamps page and limit into their accepted ranges. Non-positive values fall
// back to the defaults and limits above [MaxLimit] are capped.
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}

	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Offset returns the SQL OFFSET value derived from [Params.Page] and [Params.Limit].
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination metadata included in list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta constructs pagination metadata for a response.
func NewMeta(params Params, total int) Meta {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}

	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest parses "page" and "limit" from the query string and clamps them
// through [New]. Unparseable values are treated as absent.
func FromRequest(request *http.Request) Params {
	query := request.URL.Query()
	return New(convert.ToInt(query.Get("page")), convert.ToInt(query.Get("limit")))
}
