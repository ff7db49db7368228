// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds the table and column names used to build SQL queries.
package schema

// ComicsTable represents the 'comics' table.
type ComicsTable struct {
	Table          string
	ID             string
	Title          string
	Slug           string
	CoverURL       string
	CoverAssetID   string
	Description    string
	Authors        string
	Genres         string
	Status         string
	UploaderID     string
	Chapters       string
	Views          string
	FollowersCount string
	Version        string
	CreatedAt      string
	UpdatedAt      string
}

// Comics is the schema definition for the comics table.
var Comics = ComicsTable{
	Table:          "comics",
	ID:             "id",
	Title:          "title",
	Slug:           "slug",
	CoverURL:       "cover_url",
	CoverAssetID:   "cover_asset_id",
	Description:    "description",
	Authors:        "authors",
	Genres:         "genres",
	Status:         "status",
	UploaderID:     "uploader_id",
	Chapters:       "chapters",
	Views:          "views",
	FollowersCount: "followers_count",
	Version:        "version",
	CreatedAt:      "created_at",
	UpdatedAt:      "updated_at",
}

// Columns returns every column in scan order.
func (t ComicsTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.Slug, t.CoverURL, t.CoverAssetID, t.Description,
		t.Authors, t.Genres, t.Status, t.UploaderID, t.Chapters,
		t.Views, t.FollowersCount, t.Version, t.CreatedAt, t.UpdatedAt,
	}
}
