// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
	"github.com/taibuivan/comicverse/internal/platform/constants"
	"github.com/taibuivan/comicverse/internal/platform/ctxutil"
	"github.com/taibuivan/comicverse/pkg/pagination"
	"github.com/taibuivan/comicverse/pkg/uuid"
)

// # Collaborators

// Cache holds read copies of comics for the public read paths.
//
// Invalidate drops the copy of a comic and sets a floor: a later Set of a version
// below it is ignored, so a read that raced a commit cannot cache what the commit
// replaced. A deleted comic gets [versionDeleted] as its floor.
type Cache interface {
	Get(context context.Context, id string) (*Comic, bool)
	Set(context context.Context, comic *Comic)
	Invalidate(context context.Context, id string, floor int64)
}

// versionDeleted is the cache floor of a deleted comic.
const versionDeleted = math.MaxInt64

// FollowerRegistry tracks which users follow which comic. Add and Remove report
// whether membership changed.
type FollowerRegistry interface {
	Add(context context.Context, comicID, userID string) (bool, error)
	Remove(context context.Context, comicID, userID string) (bool, error)
	Forget(context context.Context, comicID string) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*Comic, bool) { return nil, false }
func (nopCache) Set(context.Context, *Comic)                {}
func (nopCache) Invalidate(context.Context, string, int64)  {}

// # Service Layer

// Service orchestrates every operation on the comic aggregate.
//
// Mutations run the cycle load, authorize, mutate, save. A save that loses a
// version race is retried once against a fresh load with the same input; a
// second loss is reported as a conflict. Orphaned assets are deleted only after
// the save commits.
type Service struct {
	repository Repository
	gate       *Gate
	assets     *AssetCoordinator
	cache      Cache
	followers  FollowerRegistry
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService constructs a [Service]. A nil cache disables caching.
func NewService(repository Repository, gate *Gate, assets *AssetCoordinator, cache Cache, followers FollowerRegistry, logger *slog.Logger) *Service {
	if cache == nil {
		cache = nopCache{}
	}

	return &Service{
		repository: repository,
		gate:       gate,
		assets:     assets,
		cache:      cache,
		followers:  followers,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.New,
	}
}

// # Mutation Pipeline

// change computes the next state from a freshly loaded aggregate. A nil next
// deletes the comic.
type change func(current *Comic) (next *Comic, orphaned []string, err error)

/*
mutate runs the optimistic read-modify-write cycle for one comic.

Description: plan is called once, against the first snapshot, and returns the
change to apply. Anything it resolves (a chapter position, for instance) is thus
pinned for the retry. If the retry can no longer find what was pinned, the
concurrent writer is reported as a conflict.

Parameters:
  - context: context.Context
  - actor: Actor
  - comicID: string
  - action: Action
  - plan: func(*Comic) (change, error)

Returns:
  - *Outcome: The committed aggregate and any asset failures
  - error: NotFound, Forbidden, InvalidArgument, Conflict or storage failures
*/
func (service *Service) mutate(context context.Context, actor Actor, comicID string, action Action, plan func(first *Comic) (change, error)) (*Outcome, error) {
	logger := ctxutil.LoggerOr(context, service.logger)

	var apply change
	for attempt := 1; ; attempt++ {
		current, err := service.repository.Get(context, comicID)
		if err != nil {
			return nil, err
		}

		// Idempotent on the retry: an owner claimed on the first attempt is already loaded.
		if err := service.gate.Authorize(context, actor, current, action); err != nil {
			return nil, err
		}

		if apply == nil {
			if apply, err = plan(current); err != nil {
				return nil, err
			}
		}

		next, orphaned, err := apply(current)
		if err != nil {
			if attempt > 1 && apperr.HasCode(err, apperr.CodeNotFound) {
				return nil, apperr.Conflict("The chapter was changed by another request").WithCause(err)
			}
			return nil, err
		}

		saved, err := service.save(context, current, next)
		if errors.Is(err, ErrVersionConflict) {
			if attempt < constants.SaveAttempts {
				logger.Info("comic_save_conflict_retrying",
					slog.String("comic_id", comicID),
					slog.String("action", string(action)),
					slog.Int64("version", current.Version),
				)
				continue
			}

			logger.Warn("comic_save_conflict",
				slog.String("comic_id", comicID),
				slog.String("action", string(action)),
				slog.Int("attempts", attempt),
			)
			return nil, apperr.Conflict("The comic was modified concurrently, please retry").WithCause(err)
		}
		if err != nil {
			return nil, err
		}

		return service.commit(context, comicID, saved, orphaned), nil
	}
}

func (service *Service) save(context context.Context, current, next *Comic) (*Comic, error) {
	if next == nil {
		if err := service.repository.Delete(context, current.ID, current.Version); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return service.repository.Put(context, next)
}

// commit runs the post-save side effects. None of them can fail the mutation.
func (service *Service) commit(context context.Context, comicID string, saved *Comic, orphaned []string) *Outcome {
	floor := int64(versionDeleted)
	if saved != nil {
		floor = saved.Version
	}
	service.cache.Invalidate(context, comicID, floor)

	if saved == nil && service.followers != nil {
		if err := service.followers.Forget(context, comicID); err != nil {
			ctxutil.LoggerOr(context, service.logger).Warn("comic_followers_forget_failed",
				slog.String("comic_id", comicID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &Outcome{
		Comic:        saved,
		FailedAssets: service.assets.DeleteMany(context, orphaned),
	}
}

// # Comic Management

/*
CreateComic creates a comic owned by actor.

Parameters:
  - context: context.Context
  - actor: Actor (Admin or uploader)
  - input: ComicInput

Returns:
  - *Outcome: The stored comic at version 1
  - error: Forbidden, InvalidArgument or validation errors
*/
func (service *Service) CreateComic(context context.Context, actor Actor, input ComicInput) (*Outcome, error) {
	if err := service.gate.Authorize(context, actor, nil, ActionCreateComic); err != nil {
		return nil, err
	}

	comic, err := NewComic(input, actor.ID, service.now(), service.newID())
	if err != nil {
		return nil, err
	}

	stored, err := service.repository.Create(context, comic)
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, service.logger).Info("comic_created",
		slog.String("comic_id", stored.ID),
		slog.String("title", stored.Title),
		slog.String("uploader_id", stored.UploaderID),
	)

	return &Outcome{Comic: stored}, nil
}

/*
UpdateComic applies a metadata patch. A replaced cover is deleted from the asset
store after the save.

Parameters:
  - context: context.Context
  - actor: Actor
  - comicID: string
  - patch: ComicPatch

Returns:
  - *Outcome: The committed comic and any asset failures
  - error: NotFound, Forbidden, InvalidArgument, Conflict
*/
func (service *Service) UpdateComic(context context.Context, actor Actor, comicID string, patch ComicPatch) (*Outcome, error) {
	outcome, err := service.mutate(context, actor, comicID, ActionUpdateComic, func(*Comic) (change, error) {
		return func(current *Comic) (*Comic, []string, error) {
			return UpdateComic(current, patch, service.now())
		}, nil
	})
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, service.logger).Info("comic_updated",
		slog.String("comic_id", comicID),
		slog.Int64("version", outcome.Comic.Version),
	)

	return outcome, nil
}

/*
DeleteComic removes a comic together with its cover and every chapter image.

Returns:
  - *Outcome: Comic is nil; FailedAssets lists deletions that did not go through
  - error: NotFound, Forbidden, Conflict
*/
func (service *Service) DeleteComic(context context.Context, actor Actor, comicID string) (*Outcome, error) {
	outcome, err := service.mutate(context, actor, comicID, ActionDeleteComic, func(*Comic) (change, error) {
		return func(current *Comic) (*Comic, []string, error) {
			return nil, DeleteComic(current), nil
		}, nil
	})
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, service.logger).Info("comic_deleted",
		slog.String("comic_id", comicID),
		slog.Int("failed_assets", len(outcome.FailedAssets)),
	)

	return outcome, nil
}

// # Chapter Management

/*
AddChapter appends a chapter to a comic.

Description: The chapter id is generated once, so a retried save appends the
same chapter rather than a second one.

Parameters:
  - context: context.Context
  - actor: Actor
  - comicID: string
  - input: ChapterInput

Returns:
  - *Outcome: The committed comic; the new chapter is last
  - error: NotFound, Forbidden, InvalidArgument, Conflict
*/
func (service *Service) AddChapter(context context.Context, actor Actor, comicID string, input ChapterInput) (*Outcome, error) {
	chapterID := service.newID()

	outcome, err := service.mutate(context, actor, comicID, ActionAddChapter, func(*Comic) (change, error) {
		return func(current *Comic) (*Comic, []string, error) {
			next, err := AddChapter(current, input, service.now(), chapterID)
			return next, nil, err
		}, nil
	})
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, service.logger).Info("chapter_added",
		slog.String("comic_id", comicID),
		slog.String("chapter_id", chapterID),
	)

	return outcome, nil
}

/*
UpdateChapter patches the chapter addressed by locator.

Description: The locator is resolved to a stable chapter id on the first load. A
retry targets that id, never the position again.

Parameters:
  - context: context.Context
  - actor: Actor
  - comicID: string
  - locator: Locator (ByIndex or ByID)
  - patch: ChapterPatch

Returns:
  - *Outcome: The committed comic and any asset failures
  - error: NotFound, Forbidden, InvalidArgument, Conflict
*/
func (service *Service) UpdateChapter(context context.Context, actor Actor, comicID string, locator Locator, patch ChapterPatch) (*Outcome, error) {
	var chapterID string

	outcome, err := service.mutate(context, actor, comicID, ActionUpdateChapter, func(first *Comic) (change, error) {
		var err error
		if chapterID, err = locator.Resolve(first); err != nil {
			return nil, err
		}
		return func(current *Comic) (*Comic, []string, error) {
			return UpdateChapter(current, chapterID, patch, service.now())
		}, nil
	})
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, service.logger).Info("chapter_updated",
		slog.String("comic_id", comicID),
		slog.String("chapter_id", chapterID),
		slog.String("locator", locator.String()),
	)

	return outcome, nil
}

/*
DeleteChapter removes the chapter addressed by locator and deletes its images.

Description: Positions shift after a removal, so an index read before this call
may address a different chapter afterwards. Callers that need stability should
address chapters by id.

Returns:
  - *Outcome: The committed comic and any asset failures
  - error: NotFound, Forbidden, InvalidArgument, Conflict
*/
func (service *Service) DeleteChapter(context context.Context, actor Actor, comicID string, locator Locator) (*Outcome, error) {
	var chapterID string

	outcome, err := service.mutate(context, actor, comicID, ActionDeleteChapter, func(first *Comic) (change, error) {
		var err error
		if chapterID, err = locator.Resolve(first); err != nil {
			return nil, err
		}
		return func(current *Comic) (*Comic, []string, error) {
			return DeleteChapter(current, chapterID, service.now())
		}, nil
	})
	if err != nil {
		return nil, err
	}

	ctxutil.LoggerOr(context, service.logger).Info("chapter_deleted",
		slog.String("comic_id", comicID),
		slog.String("chapter_id", chapterID),
		slog.String("locator", locator.String()),
	)

	return outcome, nil
}

// # Comic Lookups

// GetComic returns a comic, served from the cache when possible.
func (service *Service) GetComic(context context.Context, id string) (*Comic, error) {
	if comic, ok := service.cache.Get(context, id); ok {
		return comic, nil
	}

	comic, err := service.repository.Get(context, id)
	if err != nil {
		return nil, err
	}

	service.cache.Set(context, comic)
	return comic, nil
}

/*
ListComics returns a filtered, sorted page of comics.

Parameters:
  - context: context.Context
  - filter: Filter
  - page: pagination.Params

Returns:
  - []*Comic: The page
  - int: Total matches
  - error: Storage failures
*/
func (service *Service) ListComics(context context.Context, filter Filter, page pagination.Params) ([]*Comic, int, error) {
	return service.repository.Find(context, filter, page)
}

// HotComics returns the most viewed comics.
func (service *Service) HotComics(context context.Context, limit int) ([]*Comic, error) {
	comics, _, err := service.repository.Find(context, Filter{Sort: SortViews}, pagination.New(1, limit))
	return comics, err
}

// LatestComics returns the most recently updated comics.
func (service *Service) LatestComics(context context.Context, limit int) ([]*Comic, error) {
	comics, _, err := service.repository.Find(context, Filter{Sort: SortLatest}, pagination.New(1, limit))
	return comics, err
}

/*
GetChapter looks a chapter up by its stable id.

Returns:
  - string: The owning comic id
  - *Chapter: The chapter
  - error: NotFound
*/
func (service *Service) GetChapter(context context.Context, chapterID string) (string, *Chapter, error) {
	return service.repository.FindChapter(context, chapterID)
}

/*
ListChapters returns one page of a comic's chapters in reading order. A page past
the end is empty, not an error.

Parameters:
  - context: context.Context
  - comicID: string
  - page: pagination.Params

Returns:
  - []Chapter: The page
  - int: Total chapters of the comic
  - error: NotFound
*/
func (service *Service) ListChapters(context context.Context, comicID string, page pagination.Params) ([]Chapter, int, error) {
	comic, err := service.GetComic(context, comicID)
	if err != nil {
		return nil, 0, err
	}

	total := len(comic.Chapters)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)

	chapters := make([]Chapter, 0, end-start)
	for _, chapter := range comic.Chapters[start:end] {
		chapters = append(chapters, chapter.clone())
	}
	return chapters, total, nil
}

// GetChapterAt reads one chapter through a locator. Unlike the mutations, an
// out-of-range position is reported as NotFound.
func (service *Service) GetChapterAt(context context.Context, comicID string, locator Locator) (*Chapter, error) {
	comic, err := service.GetComic(context, comicID)
	if err != nil {
		return nil, err
	}

	chapterID, err := locator.Resolve(comic)
	if apperr.HasCode(err, apperr.CodeInvalidArgument) {
		return nil, apperr.NotFound("Chapter")
	}
	if err != nil {
		return nil, err
	}

	chapter := comic.Chapters[comic.chapterIndex(chapterID)].clone()
	return &chapter, nil
}

// # Counters

// IncrementViews adds one view. It skips the version check and leaves cached
// copies alone; cached view counts lag by at most the cache TTL.
func (service *Service) IncrementViews(context context.Context, comicID string) (*Comic, error) {
	return service.repository.Increment(context, comicID, CounterViews, 1)
}

/*
Follow makes actor follow a comic. Following twice counts once.

Parameters:
  - context: context.Context
  - actor: Actor (Any authenticated user)
  - comicID: string

Returns:
  - *Comic: The comic with its current followers count
  - error: Unauthorized, NotFound
*/
func (service *Service) Follow(context context.Context, actor Actor, comicID string) (*Comic, error) {
	return service.toggleFollow(context, actor, comicID, true)
}

// Unfollow reverses [Service.Follow]. Unfollowing a comic that is not followed is a no-op.
func (service *Service) Unfollow(context context.Context, actor Actor, comicID string) (*Comic, error) {
	return service.toggleFollow(context, actor, comicID, false)
}

func (service *Service) toggleFollow(context context.Context, actor Actor, comicID string, follow bool) (*Comic, error) {
	if actor.ID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	comic, err := service.repository.Get(context, comicID)
	if err != nil {
		return nil, err
	}

	var changed bool
	var delta int64
	if follow {
		changed, err = service.followers.Add(context, comicID, actor.ID)
		delta = 1
	} else {
		changed, err = service.followers.Remove(context, comicID, actor.ID)
		delta = -1
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if !changed {
		return comic, nil
	}

	updated, err := service.repository.Increment(context, comicID, CounterFollowers, delta)
	if err != nil {
		service.revertFollow(context, comicID, actor.ID, follow)
		return nil, err
	}
	service.cache.Invalidate(context, comicID, updated.Version)

	event := "comic_unfollowed"
	if follow {
		event = "comic_followed"
	}
	ctxutil.LoggerOr(context, service.logger).Info(event,
		slog.String("comic_id", comicID),
		slog.String("user_id", actor.ID),
	)

	return updated, nil
}

// revertFollow undoes a membership change whose counter update failed, so a
// retried call sees the change again and moves the counter.
func (service *Service) revertFollow(context context.Context, comicID, userID string, follow bool) {
	var err error
	if follow {
		_, err = service.followers.Remove(context, comicID, userID)
	} else {
		_, err = service.followers.Add(context, comicID, userID)
	}
	if err != nil {
		ctxutil.LoggerOr(context, service.logger).Error("follow_revert_failed",
			slog.String("comic_id", comicID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
