// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"strings"
	"time"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
	"github.com/taibuivan/comicverse/internal/platform/constants"
	"github.com/taibuivan/comicverse/internal/platform/validate"
	"github.com/taibuivan/comicverse/pkg/pointer"
	"github.com/taibuivan/comicverse/pkg/slice"
	"github.com/taibuivan/comicverse/pkg/slug"
)

// # Chapter Mutator
//
// The functions below are pure: they never touch the input aggregate, and return
// a modified clone plus the asset ids the change orphaned. The orphan list is the
// difference between the asset ids referenced before and after the change, so an
// asset still referenced elsewhere in the comic is never deleted.

/*
NewComic builds a fresh aggregate at version 0, ready for [Repository.Create].

Parameters:
  - input: ComicInput
  - ownerID: string (Uploader id, empty when an admin creates the comic)
  - now: time.Time
  - id: string (Pre-generated comic id)

Returns:
  - *Comic: The new aggregate
  - error: apperr.InvalidArgument or a validation error
*/
func NewComic(input ComicInput, ownerID string, now time.Time, id string) (*Comic, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.InvalidArgument("Comic title is required")
	}

	status := input.Status
	if status == "" {
		status = StatusOngoing
	}

	validator := &validate.Validator{}
	validator.
		MaxLen(FieldTitle, title, constants.MaxTitleLength).
		URL(FieldCoverURL, input.CoverURL).
		OneOf(FieldStatus, string(status), string(StatusOngoing), string(StatusCompleted), string(StatusDropped))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	return &Comic{
		ID:           id,
		Title:        title,
		Slug:         slug.From(title),
		CoverURL:     input.CoverURL,
		CoverAssetID: input.CoverAssetID,
		Description:  strings.TrimSpace(input.Description),
		Authors:      cleanNames(input.Authors),
		Genres:       cleanNames(input.Genres),
		Status:       status,
		UploaderID:   ownerID,
		Chapters:     []Chapter{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

/*
UpdateComic applies a metadata patch. Replacing the cover orphans the previous
cover asset.

Returns:
  - *Comic: The modified clone
  - []string: Orphaned asset ids
  - error: apperr.InvalidArgument or a validation error
*/
func UpdateComic(comic *Comic, patch ComicPatch, now time.Time) (*Comic, []string, error) {
	next := comic.Clone()
	validator := &validate.Validator{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, nil, apperr.InvalidArgument("Comic title cannot be empty")
		}
		validator.MaxLen(FieldTitle, title, constants.MaxTitleLength)
		next.Title = title
		next.Slug = slug.From(title)
	}

	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}

	// A new cover URL without an asset id points at an unmanaged image.
	if patch.CoverURL != nil {
		validator.URL(FieldCoverURL, *patch.CoverURL)
		next.CoverURL = *patch.CoverURL
		next.CoverAssetID = pointer.Fallback(patch.CoverAssetID, "")
	} else if patch.CoverAssetID != nil {
		next.CoverAssetID = *patch.CoverAssetID
	}

	if patch.Authors != nil {
		next.Authors = cleanNames(*patch.Authors)
	}

	if patch.Genres != nil {
		next.Genres = cleanNames(*patch.Genres)
	}

	if patch.Status != nil {
		validator.OneOf(FieldStatus, string(*patch.Status), string(StatusOngoing), string(StatusCompleted), string(StatusDropped))
		next.Status = *patch.Status
	}

	if err := validator.Err(); err != nil {
		return nil, nil, err
	}

	next.UpdatedAt = now
	return next, orphanedAssets(comic, next), nil
}

// DeleteComic returns every asset id the comic references, cover first, each once.
func DeleteComic(comic *Comic) []string {
	return slice.Unique(comic.AssetIDs())
}

/*
AddChapter appends a new chapter. It never orphans assets.

Parameters:
  - comic: *Comic
  - input: ChapterInput
  - now: time.Time (Stamped as the chapter date)
  - id: string (Pre-generated chapter id)

Returns:
  - *Comic: The modified clone
  - error: apperr.InvalidArgument or a validation error
*/
func AddChapter(comic *Comic, input ChapterInput, now time.Time, id string) (*Comic, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.InvalidArgument("Chapter title is required")
	}

	if err := validatePages(title, input.Images, input.AssetIDs); err != nil {
		return nil, err
	}

	next := comic.Clone()
	next.Chapters = append(next.Chapters, Chapter{
		ID:      id,
		Title:   title,
		Slug:    slug.From(title),
		Date:    now,
		Pages:   pairPages(input.Images, input.AssetIDs),
		IsDraft: input.IsDraft,
	})
	next.UpdatedAt = now

	return next, nil
}

/*
UpdateChapter patches the chapter with the given stable id.

Images are compared by value: a URL kept at any position keeps its asset id unless
patch.AssetIDs names another one at that position, and the asset id of every URL
that disappeared is reported once for deletion.

Returns:
  - *Comic: The modified clone
  - []string: Orphaned asset ids
  - error: apperr.NotFound, apperr.InvalidArgument or a validation error
*/
func UpdateChapter(comic *Comic, chapterID string, patch ChapterPatch, now time.Time) (*Comic, []string, error) {
	index := comic.chapterIndex(chapterID)
	if index < 0 {
		return nil, nil, apperr.NotFound("Chapter")
	}

	next := comic.Clone()
	chapter := &next.Chapters[index]

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, nil, apperr.InvalidArgument("Chapter title cannot be empty")
		}
		chapter.Title = title
		chapter.Slug = slug.From(title)
	}

	var images []string
	if patch.Images != nil {
		images = *patch.Images
	}
	if err := validatePages(chapter.Title, images, patch.AssetIDs); err != nil {
		return nil, nil, err
	}

	if patch.Images != nil {
		chapter.Pages = repage(chapter.Pages, images, patch.AssetIDs)
	}

	if patch.IsDraft != nil {
		chapter.IsDraft = *patch.IsDraft
	}

	next.UpdatedAt = now
	return next, orphanedAssets(comic, next), nil
}

/*
DeleteChapter removes the chapter with the given stable id. Later chapters shift
one position left.

Returns:
  - *Comic: The modified clone
  - []string: Asset ids of the removed chapter not referenced elsewhere
  - error: apperr.NotFound
*/
func DeleteChapter(comic *Comic, chapterID string, now time.Time) (*Comic, []string, error) {
	index := comic.chapterIndex(chapterID)
	if index < 0 {
		return nil, nil, apperr.NotFound("Chapter")
	}

	next := comic.Clone()
	next.Chapters = append(next.Chapters[:index], next.Chapters[index+1:]...)
	next.UpdatedAt = now

	return next, orphanedAssets(comic, next), nil
}

// # Helpers

// repage rebuilds a page list for new image URLs. Explicit asset ids win; otherwise
// a URL present in the old list keeps the asset id of its first old occurrence.
func repage(old []Page, images, assetIDs []string) []Page {
	retained := make(map[string]string, len(old))
	for _, page := range old {
		if _, seen := retained[page.URL]; !seen {
			retained[page.URL] = page.AssetID
		}
	}

	pages := make([]Page, len(images))
	for i, url := range images {
		pages[i] = Page{URL: url, AssetID: retained[url]}
		if i < len(assetIDs) && assetIDs[i] != "" {
			pages[i].AssetID = assetIDs[i]
		}
	}
	return pages
}

// orphanedAssets lists asset ids referenced by before but not by after, once each,
// in the order they appear in before.
func orphanedAssets(before, after *Comic) []string {
	kept := slice.Set(after.AssetIDs())
	return slice.Filter(slice.Unique(before.AssetIDs()), func(id string) bool {
		_, ok := kept[id]
		return !ok
	})
}

func validatePages(title string, images, assetIDs []string) error {
	validator := &validate.Validator{}
	validator.
		MaxLen(FieldTitle, title, constants.MaxTitleLength).
		MaxItems(FieldImages, len(images), constants.MaxChapterPages).
		Custom(FieldAssetIDs, len(assetIDs) > len(images), "Every asset id needs an image at the same position")

	for _, url := range images {
		if strings.TrimSpace(url) == "" {
			validator.Custom(FieldImages, true, "Image URLs cannot be empty")
			break
		}
	}

	return validator.Err()
}

// cleanNames trims author and genre names, dropping blanks and repeats.
func cleanNames(names []string) []string {
	return slice.Unique(slice.Map(names, strings.TrimSpace))
}
