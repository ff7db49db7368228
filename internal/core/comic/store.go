// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"errors"

	"github.com/taibuivan/comicverse/pkg/pagination"
)

// ErrVersionConflict is returned by [Repository.Put] and [Repository.Delete] when
// the stored version no longer matches the one the caller loaded. The [Service]
// retries once before turning it into an apperr.Conflict.
var ErrVersionConflict = errors.New("comic: version conflict")

// # Aggregate Data Access

// Repository defines the persistence contract for the comic aggregate.
type Repository interface {

	/*
		Get loads the full aggregate.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Comic: The aggregate with its current version
		  - error: apperr.NotFound if missing or if id is not a UUID
	*/
	Get(context context.Context, id string) (*Comic, error)

	/*
		Create inserts a new aggregate at version 1.

		Parameters:
		  - context: context.Context
		  - comic: *Comic

		Returns:
		  - *Comic: The stored aggregate
		  - error: apperr.Conflict on a duplicate id, storage failures otherwise
	*/
	Create(context context.Context, comic *Comic) (*Comic, error)

	/*
		Put saves the aggregate if the stored version still equals comic.Version.

		Parameters:
		  - context: context.Context
		  - comic: *Comic (Carries the version it was loaded at)

		Returns:
		  - *Comic: The saved aggregate at version+1
		  - error: ErrVersionConflict on mismatch (storage untouched), apperr.NotFound
		    if the comic no longer exists
	*/
	Put(context context.Context, comic *Comic) (*Comic, error)

	/*
		Delete removes the aggregate if the stored version equals expectedVersion.

		Returns:
		  - error: ErrVersionConflict or apperr.NotFound
	*/
	Delete(context context.Context, id string, expectedVersion int64) error

	/*
		Find returns a page of comics and the total match count. Listings are not
		version checked.

		Parameters:
		  - context: context.Context
		  - filter: Filter
		  - page: pagination.Params

		Returns:
		  - []*Comic: The page
		  - int: Total count matching filter
		  - error: Storage failures
	*/
	Find(context context.Context, filter Filter, page pagination.Params) ([]*Comic, int, error)

	/*
		Increment atomically adds delta to a counter without a version check.
		Followers never go below zero.

		Returns:
		  - *Comic: The aggregate after the increment
		  - error: apperr.NotFound
	*/
	Increment(context context.Context, id string, counter Counter, delta int64) (*Comic, error)

	/*
		ClaimOwner sets the uploader of an unowned comic. It is a single-field
		conditional write that leaves the version unchanged.

		Returns:
		  - bool: true if this call set the owner, false if the comic already had one
		  - error: Storage failures
	*/
	ClaimOwner(context context.Context, id, ownerID string) (bool, error)

	/*
		FindChapter looks a chapter up by its stable id across all comics.

		Returns:
		  - string: The id of the owning comic
		  - *Chapter: The chapter
		  - error: apperr.NotFound
	*/
	FindChapter(context context.Context, chapterID string) (string, *Chapter, error)
}
