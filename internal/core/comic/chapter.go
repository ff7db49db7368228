// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
)

// # Chapter Entity

// Chapter is a single episode embedded in a [Comic]. Its ID is assigned once at
// creation and never changes, whatever happens to its position.
type Chapter struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Slug    string    `json:"slug"`
	Date    time.Time `json:"date"`
	Pages   []Page    `json:"pages"`
	IsDraft bool      `json:"is_draft"`
}

// Page pairs an image URL with the id of the asset backing it. AssetID is empty
// for images the platform does not manage (external links).
type Page struct {
	URL     string `json:"url"`
	AssetID string `json:"asset_id,omitempty"`
}

// Images returns the page URLs in reading order.
func (c Chapter) Images() []string {
	images := make([]string, len(c.Pages))
	for i, page := range c.Pages {
		images[i] = page.URL
	}
	return images
}

// AssetIDs returns the asset id of every page, aligned with [Chapter.Images].
// Unmanaged pages yield an empty string.
func (c Chapter) AssetIDs() []string {
	ids := make([]string, len(c.Pages))
	for i, page := range c.Pages {
		ids[i] = page.AssetID
	}
	return ids
}

func (c Chapter) referencedAssets() []string {
	var ids []string
	for _, page := range c.Pages {
		if page.AssetID != "" {
			ids = append(ids, page.AssetID)
		}
	}
	return ids
}

func (c Chapter) clone() Chapter {
	c.Pages = slices.Clone(c.Pages)
	return c
}

// pairPages zips parallel url and asset id lists. Missing asset ids are left
// empty. Callers reject asset id lists longer than images before pairing.
func pairPages(images, assetIDs []string) []Page {
	pages := make([]Page, len(images))
	for i, url := range images {
		pages[i] = Page{URL: url}
		if i < len(assetIDs) {
			pages[i].AssetID = assetIDs[i]
		}
	}
	return pages
}

// # Locators

// Locator addresses a chapter either by its current position or by its stable id.
//
// Positional locators are resolved against one snapshot only. The [Service]
// turns every locator into a stable id before mutating, so a retry never
// re-interprets an index against a list that has shifted since.
type Locator struct {
	index int
	id    string
	byID  bool
}

// ByIndex addresses the chapter at zero-based position i.
func ByIndex(i int) Locator {
	return Locator{index: i}
}

// ByID addresses the chapter with the given stable id.
func ByID(id string) Locator {
	return Locator{id: id, byID: true}
}

// ParseLocator reads a path segment: a non-negative integer is positional,
// anything else is a chapter id.
func ParseLocator(raw string) Locator {
	if index, err := strconv.Atoi(raw); err == nil && index >= 0 {
		return ByIndex(index)
	}
	return ByID(raw)
}

// String renders the locator for logs.
func (l Locator) String() string {
	if l.byID {
		return "id:" + l.id
	}
	return "index:" + strconv.Itoa(l.index)
}

/*
Resolve maps the locator to the stable id of a chapter in comic.

Returns:
  - string: The chapter id
  - error: apperr.InvalidArgument for an out-of-range position, apperr.NotFound
    for an unknown id
*/
func (l Locator) Resolve(comic *Comic) (string, error) {
	if l.byID {
		if comic.chapterIndex(l.id) < 0 {
			return "", apperr.NotFound("Chapter")
		}
		return l.id, nil
	}

	if l.index < 0 || l.index >= len(comic.Chapters) {
		return "", apperr.InvalidArgument(fmt.Sprintf("Chapter index %d is out of range (comic has %d chapters)", l.index, len(comic.Chapters)))
	}
	return comic.Chapters[l.index].ID, nil
}

// # Chapter Inputs

// ChapterInput carries a new chapter. Images and AssetIDs are parallel lists; a
// shorter AssetIDs list leaves the trailing pages unmanaged, a longer one is rejected.
type ChapterInput struct {
	Title    string   `json:"title"`
	Images   []string `json:"images"`
	AssetIDs []string `json:"asset_ids"`
	IsDraft  bool     `json:"is_draft"`
}

// ChapterPatch carries a partial chapter update. Nil fields are left untouched.
//
// When Images is set it replaces the page list. A non-empty AssetIDs[i] becomes
// the asset id of Images[i], whether that image is new or retained. Positions
// without one keep the asset id their URL already had, or none for a new URL.
// AssetIDs may not be longer than Images.
type ChapterPatch struct {
	Title    *string   `json:"title"`
	Images   *[]string `json:"images"`
	AssetIDs []string  `json:"asset_ids"`
	IsDraft  *bool     `json:"is_draft"`
}
