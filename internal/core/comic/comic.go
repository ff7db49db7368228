// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package comic implements the comic aggregate: a comic document with its embedded,
ordered chapter list, edited concurrently without locks.

Core Responsibility:

  - Consistency: every mutation is a load, mutate, compare-and-swap save cycle on
    the whole document, retried once on a version conflict.
  - Ownership: uploaders may only touch comics they own; unowned comics are claimed
    by the first uploader who edits them.
  - Assets: images dropped from the document are deleted from the asset store after
    the document commits.

The package is laid out as pure pieces (model, mutator, gate check) wrapped by the
[Service] that orchestrates them against a [Repository] and an [AssetStore].
*/
package comic

import (
	"slices"
	"time"

	"github.com/taibuivan/comicverse/internal/platform/sec"
)

// # Domain Enums

// Status represents the publication status of a comic.
type Status string

const (
	// StatusOngoing indicates the publication is actively updating.
	StatusOngoing Status = "ongoing"

	// StatusCompleted indicates no further chapters are expected.
	StatusCompleted Status = "completed"

	// StatusDropped indicates the publication was abandoned.
	StatusDropped Status = "dropped"
)

// IsValid reports whether s is a recognised [Status] value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusDropped:
		return true
	}
	return false
}

// # Core Entities

// Comic is the aggregate root. Chapters are embedded and saved together with the
// comic, so the whole document shares one [Comic.Version].
type Comic struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	CoverURL       string    `json:"cover_url"`
	CoverAssetID   string    `json:"cover_asset_id,omitempty"`
	Description    string    `json:"description"`
	Authors        []string  `json:"authors"`
	Genres         []string  `json:"genres"`
	Status         Status    `json:"status"`
	UploaderID     string    `json:"uploader_id,omitempty"` // empty until created by or claimed by an uploader
	Chapters       []Chapter `json:"chapters"`
	Views          int64     `json:"views"`
	FollowersCount int64     `json:"followers_count"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the comic. Mutators work on clones so the loaded
// snapshot stays intact for diffing and for the retry path.
func (c *Comic) Clone() *Comic {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Authors = slices.Clone(c.Authors)
	clone.Genres = slices.Clone(c.Genres)

	if c.Chapters != nil {
		clone.Chapters = make([]Chapter, len(c.Chapters))
		for i, chapter := range c.Chapters {
			clone.Chapters[i] = chapter.clone()
		}
	}

	return &clone
}

// AssetIDs returns every non-empty asset id the comic references: the cover first,
// then each chapter's pages in order. Duplicates are kept.
func (c *Comic) AssetIDs() []string {
	var ids []string
	if c.CoverAssetID != "" {
		ids = append(ids, c.CoverAssetID)
	}
	for _, chapter := range c.Chapters {
		ids = append(ids, chapter.referencedAssets()...)
	}
	return ids
}

// chapterIndex returns the position of the chapter with the given id, or -1.
func (c *Comic) chapterIndex(chapterID string) int {
	return slices.IndexFunc(c.Chapters, func(chapter Chapter) bool {
		return chapter.ID == chapterID
	})
}

// # Actors and Actions

// Actor is the already-authenticated caller of a mutation.
type Actor struct {
	ID    string
	Roles sec.RoleSet
}

// NewActor builds an [Actor] from an id and raw role names. Unknown roles are ignored.
func NewActor(id string, roles ...string) Actor {
	return Actor{ID: id, Roles: sec.NewRoleSet(roles...)}
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Roles.Has(sec.RoleAdmin)
}

// IsUploader reports whether the actor holds the uploader role.
func (a Actor) IsUploader() bool {
	return a.Roles.Has(sec.RoleUploader)
}

// Action names a guarded mutation. It appears in logs and forbidden messages.
type Action string

const (
	ActionCreateComic   Action = "create_comic"
	ActionUpdateComic   Action = "update_comic"
	ActionDeleteComic   Action = "delete_comic"
	ActionAddChapter    Action = "add_chapter"
	ActionUpdateChapter Action = "update_chapter"
	ActionDeleteChapter Action = "delete_chapter"
)

// # Inputs

// ComicInput carries the fields accepted when creating a comic.
type ComicInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	CoverURL     string   `json:"cover_url"`
	CoverAssetID string   `json:"cover_asset_id"`
	Authors      []string `json:"authors"`
	Genres       []string `json:"genres"`
	Status       Status   `json:"status"`
}

// ComicPatch carries a partial comic update. Nil fields are left untouched.
type ComicPatch struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	CoverURL     *string   `json:"cover_url"`
	CoverAssetID *string   `json:"cover_asset_id"`
	Authors      *[]string `json:"authors"`
	Genres       *[]string `json:"genres"`
	Status       *Status   `json:"status"`
}

// # Results

// Outcome is the result of a committed mutation. FailedAssets lists asset deletions
// that did not go through; the document change itself is durable regardless.
type Outcome struct {
	Comic        *Comic         `json:"comic"`
	FailedAssets []AssetFailure `json:"failed_assets,omitempty"`
}

// # Search & Filtering

// SortKey selects the listing order.
type SortKey string

const (
	SortLatest SortKey = "latest" // by updated_at
	SortViews  SortKey = "views"
	SortTitle  SortKey = "title"
)

// Filter holds the parameters for a comic listing.
type Filter struct {
	Genres    []string // all must match
	Status    Status
	Search    string // case-insensitive match on title or description
	Sort      SortKey
	Ascending bool
}

// Counter names a field updated through [Repository.Increment].
type Counter string

const (
	CounterViews     Counter = "views"
	CounterFollowers Counter = "followers_count"
)

// # Field Identifiers

// Field names used in validation details.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldCoverURL     = "cover_url"
	FieldCoverAssetID = "cover_asset_id"
	FieldAuthors      = "authors"
	FieldGenres       = "genres"
	FieldStatus       = "status"
	FieldImages       = "images"
	FieldAssetIDs     = "asset_ids"
)
