// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
	"github.com/taibuivan/comicverse/pkg/pagination"
	"github.com/taibuivan/comicverse/pkg/pointer"
)

// # Comic Management

func TestServiceCreateComic(t *testing.T) {
	ctx := context.Background()

	t.Run("uploader becomes owner", func(t *testing.T) {
		env := newTestEnv()

		outcome, err := env.service.CreateComic(ctx, uploader1, ComicInput{Title: "Tower of God"})
		require.NoError(t, err)

		assert.Equal(t, "U1", outcome.Comic.UploaderID)
		assert.Equal(t, int64(1), outcome.Comic.Version)
		assert.Equal(t, "tower-of-god", outcome.Comic.Slug)
		assert.Equal(t, outcome.Comic, env.repository.stored(t, outcome.Comic.ID))
	})

	t.Run("admin becomes owner", func(t *testing.T) {
		env := newTestEnv()

		outcome, err := env.service.CreateComic(ctx, admin, ComicInput{Title: "Tower of God"})
		require.NoError(t, err)
		assert.Equal(t, "admin-1", outcome.Comic.UploaderID)
	})

	t.Run("reader is forbidden", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.CreateComic(ctx, reader, ComicInput{Title: "Tower of God"})
		assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
		assert.Empty(t, env.repository.comics)
	})
}

func TestServiceUpdateComic(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 0)
	stored.CoverURL = "https://cdn.example.com/cv1.jpg"
	stored.CoverAssetID = "cv1"
	env := newTestEnv(stored)

	outcome, err := env.service.UpdateComic(ctx, uploader1, stored.ID, ComicPatch{
		CoverURL:     pointer.To("https://cdn.example.com/cv2.jpg"),
		CoverAssetID: pointer.To("cv2"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), outcome.Comic.Version)
	assert.Equal(t, "cv2", outcome.Comic.CoverAssetID)
	assert.Equal(t, []string{"cv1"}, env.assets.requested())
}

func TestServiceDeleteComic(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 2)
	stored.CoverAssetID = "cv1"
	withPages(stored, 0,
		Page{URL: "1", AssetID: "a1"},
		Page{URL: "2", AssetID: "a2"},
	)
	withPages(stored, 1,
		Page{URL: "3", AssetID: "a3"},
		Page{URL: "2", AssetID: "a2"},
	)
	env := newTestEnv(stored)
	_, err := env.followers.Add(ctx, stored.ID, "R1")
	require.NoError(t, err)

	outcome, err := env.service.DeleteComic(ctx, uploader1, stored.ID)
	require.NoError(t, err)

	assert.Nil(t, outcome.Comic)
	assert.Empty(t, outcome.FailedAssets)
	assert.ElementsMatch(t, []string{"cv1", "a1", "a2", "a3"}, env.assets.requested())
	assert.Empty(t, env.repository.comics)
	assert.NotContains(t, env.followers.sets, stored.ID)

	_, err = env.service.GetComic(ctx, stored.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

// # Chapter Management

func TestServiceAddChapter(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 2)
	env := newTestEnv(stored)
	env.service.newID = func() string { return "ch-new" }

	outcome, err := env.service.AddChapter(ctx, uploader1, stored.ID, ChapterInput{
		Title:  "Chapter 3",
		Images: []string{"https://cdn.example.com/1.jpg"},
	})
	require.NoError(t, err)

	require.Len(t, outcome.Comic.Chapters, 3)
	assert.Equal(t, "ch-new", outcome.Comic.Chapters[2].ID)
	assert.Equal(t, "Chapter 3", outcome.Comic.Chapters[2].Title)
	assert.Empty(t, env.assets.requested())
}

func TestServiceDeleteChapterByIndex(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 3)
	env := newTestEnv(stored)

	outcome, err := env.service.DeleteChapter(ctx, uploader1, stored.ID, ByIndex(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c2"}, chapterTitles(outcome.Comic))

	// Index 1 now addresses the former c2.
	outcome, err = env.service.DeleteChapter(ctx, uploader1, stored.ID, ByIndex(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"c0"}, chapterTitles(outcome.Comic))

	_, err = env.service.DeleteChapter(ctx, uploader1, stored.ID, ByIndex(1))
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidArgument))
}

func TestServiceUpdateChapterImages(t *testing.T) {
	ctx := context.Background()
	stored := withPages(comicWithChapters("U1", 1), 0,
		Page{URL: "a", AssetID: "ia"},
		Page{URL: "b", AssetID: "ib"},
		Page{URL: "c", AssetID: "ic"},
	)
	env := newTestEnv(stored)
	patch := ChapterPatch{Images: &[]string{"a", "c"}}

	outcome, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByIndex(0), patch)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, outcome.Comic.Chapters[0].Images())
	assert.Equal(t, []string{"ia", "ic"}, outcome.Comic.Chapters[0].AssetIDs())
	assert.Equal(t, []string{"ib"}, env.assets.requested())

	// Repeating the same update orphans nothing.
	_, err = env.service.UpdateChapter(ctx, uploader1, stored.ID, ByID("ch-0"), patch)
	require.NoError(t, err)
	assert.Equal(t, []string{"ib"}, env.assets.requested())
}

func TestServiceAssetFailureDoesNotBlockCommit(t *testing.T) {
	ctx := context.Background()
	stored := withPages(comicWithChapters("U1", 1), 0,
		Page{URL: "a", AssetID: "ia"},
		Page{URL: "b", AssetID: "ib"},
	)
	env := newTestEnv(stored)
	env.assets.failKeys["ib"] = true

	outcome, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByID("ch-0"), ChapterPatch{Images: &[]string{"a"}})
	require.NoError(t, err)

	assert.Equal(t, []AssetFailure{{AssetID: "ib", Reason: "bucket unavailable"}}, outcome.FailedAssets)
	assert.Equal(t, []string{"a"}, env.repository.stored(t, stored.ID).Chapters[0].Images())
}

// # Ownership

func TestServiceRejectsOtherUploader(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U2", 1)
	env := newTestEnv(stored)

	mutations := map[string]func() error{
		"update comic": func() error {
			_, err := env.service.UpdateComic(ctx, uploader1, stored.ID, ComicPatch{Title: pointer.To("Mine")})
			return err
		},
		"delete comic": func() error {
			_, err := env.service.DeleteComic(ctx, uploader1, stored.ID)
			return err
		},
		"add chapter": func() error {
			_, err := env.service.AddChapter(ctx, uploader1, stored.ID, ChapterInput{Title: "x"})
			return err
		},
		"update chapter": func() error {
			_, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByIndex(0), ChapterPatch{Title: pointer.To("x")})
			return err
		},
		"delete chapter": func() error {
			_, err := env.service.DeleteChapter(ctx, uploader1, stored.ID, ByIndex(0))
			return err
		},
	}

	for name, mutation := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.True(t, apperr.HasCode(mutation(), apperr.CodeForbidden))
			assert.Equal(t, stored, env.repository.stored(t, stored.ID))
		})
	}
	assert.Empty(t, env.assets.requested())
}

func TestServiceAdminMutatesAnyComic(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U2", 1)
	env := newTestEnv(stored)

	outcome, err := env.service.UpdateChapter(ctx, admin, stored.ID, ByIndex(0), ChapterPatch{Title: pointer.To("Edited")})
	require.NoError(t, err)

	assert.Equal(t, "Edited", outcome.Comic.Chapters[0].Title)
	assert.Equal(t, "U2", outcome.Comic.UploaderID)
}

func TestServiceBackfillsOwner(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("", 0)
	env := newTestEnv(stored)

	outcome, err := env.service.AddChapter(ctx, uploader1, stored.ID, ChapterInput{Title: "Chapter 1"})
	require.NoError(t, err)

	assert.Equal(t, "U1", outcome.Comic.UploaderID)
	assert.Len(t, outcome.Comic.Chapters, 1)
	assert.Equal(t, int64(2), outcome.Comic.Version)

	_, err = env.service.AddChapter(ctx, uploader2, stored.ID, ChapterInput{Title: "Chapter 2"})
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
}

// # Concurrency

func TestServiceRetriesAfterConcurrentSave(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 2)
	env := newTestEnv(stored)

	env.repository.beforePut = func(attempt int) {
		if attempt != 1 {
			return
		}
		_, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByID("ch-1"), ChapterPatch{Title: pointer.To("second")})
		require.NoError(t, err)
	}

	outcome, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByIndex(0), ChapterPatch{Title: pointer.To("first")})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, chapterTitles(outcome.Comic))
	assert.Equal(t, int64(3), outcome.Comic.Version)
	assert.Equal(t, 3, env.repository.puts)
}

func TestServiceRetryKeepsResolvedChapter(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 3)
	env := newTestEnv(stored)

	env.repository.beforePut = func(attempt int) {
		if attempt != 1 {
			return
		}
		_, err := env.service.DeleteChapter(ctx, uploader1, stored.ID, ByID("ch-0"))
		require.NoError(t, err)
	}

	// Index 1 was c1 when first loaded; the retry must not fall through to c2.
	outcome, err := env.service.DeleteChapter(ctx, uploader1, stored.ID, ByIndex(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, chapterTitles(outcome.Comic))
}

func TestServiceRetryConflictsWhenChapterVanished(t *testing.T) {
	ctx := context.Background()
	stored := withPages(comicWithChapters("U1", 2), 1, Page{URL: "x", AssetID: "ix"})
	env := newTestEnv(stored)

	env.repository.beforePut = func(attempt int) {
		if attempt != 1 {
			return
		}
		_, err := env.service.DeleteChapter(ctx, uploader1, stored.ID, ByID("ch-1"))
		require.NoError(t, err)
	}

	_, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByIndex(1), ChapterPatch{Images: &[]string{}})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	assert.Equal(t, []string{"c0"}, chapterTitles(env.repository.stored(t, stored.ID)))
	assert.Equal(t, []string{"ix"}, env.assets.requested(), "only the winning delete removes assets")
}

func TestServiceGivesUpAfterSecondConflict(t *testing.T) {
	ctx := context.Background()
	stored := withPages(comicWithChapters("U1", 1), 0, Page{URL: "a", AssetID: "ia"})
	env := newTestEnv(stored)

	env.repository.beforePut = func(int) {
		env.repository.mu.Lock()
		env.repository.comics[stored.ID].Version++
		env.repository.mu.Unlock()
	}

	_, err := env.service.UpdateChapter(ctx, uploader1, stored.ID, ByIndex(0), ChapterPatch{Images: &[]string{}})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))

	assert.Equal(t, 2, env.repository.puts)
	assert.Empty(t, env.assets.requested())
	assert.Len(t, env.repository.stored(t, stored.ID).Chapters[0].Pages, 1)
}

func TestServiceConcurrentEditsOfDifferentChapters(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 2)
	env := newTestEnv(stored)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, title := range []string{"left", "right"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.service.UpdateChapter(ctx, uploader1, stored.ID, ByIndex(i), ChapterPatch{Title: pointer.To(title)})
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	final := env.repository.stored(t, stored.ID)
	assert.Equal(t, []string{"left", "right"}, chapterTitles(final))
	assert.Equal(t, int64(3), final.Version)
}

// # Reads and Counters

type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*Comic
	floors      map[string]int64
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]*Comic), floors: make(map[string]int64)}
}

func (cache *recordingCache) Get(_ context.Context, id string) (*Comic, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	comic, ok := cache.entries[id]
	return comic.Clone(), ok
}

func (cache *recordingCache) Set(_ context.Context, comic *Comic) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if comic.Version < cache.floors[comic.ID] {
		return
	}
	cache.entries[comic.ID] = comic.Clone()
}

func (cache *recordingCache) Invalidate(_ context.Context, id string, floor int64) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.entries, id)
	cache.floors[id] = max(cache.floors[id], floor)
	cache.invalidated = append(cache.invalidated, id)
}

func TestServiceCache(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 0)
	env := newTestEnv(stored)
	cache := newRecordingCache()
	env.service.cache = cache

	_, err := env.service.GetComic(ctx, stored.ID)
	require.NoError(t, err)
	require.Contains(t, cache.entries, stored.ID)

	// A cache hit does not reach the repository.
	delete(env.repository.comics, stored.ID)
	cached, err := env.service.GetComic(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Title, cached.Title)

	env.repository.comics[stored.ID] = stored.Clone()
	_, err = env.service.UpdateComic(ctx, uploader1, stored.ID, ComicPatch{Title: pointer.To("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, []string{stored.ID}, cache.invalidated)

	fresh, err := env.service.GetComic(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Title)
}

func TestServiceCache_ReadRacingCommit(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 0)
	env := newTestEnv(stored)
	cache := newRecordingCache()
	env.service.cache = cache

	// The update commits after the read loaded version 1 and before it caches it.
	env.repository.afterGet = func() {
		_, err := env.service.UpdateComic(ctx, uploader1, stored.ID, ComicPatch{Title: pointer.To("Renamed")})
		require.NoError(t, err)
	}

	stale, err := env.service.GetComic(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Title, stale.Title)
	assert.NotContains(t, cache.entries, stored.ID, "version 1 is below the floor set by the commit")
	assert.Equal(t, int64(2), cache.floors[stored.ID])

	fresh, err := env.service.GetComic(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Title)
	assert.Equal(t, int64(2), cache.entries[stored.ID].Version)

	_, err = env.service.DeleteComic(ctx, uploader1, stored.ID)
	require.NoError(t, err)
	cache.Set(ctx, fresh)
	assert.NotContains(t, cache.entries, stored.ID, "nothing is cached for a deleted comic")
}

func TestServiceFollow(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 0)
	env := newTestEnv(stored)

	comic, err := env.service.Follow(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), comic.FollowersCount)

	comic, err = env.service.Follow(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), comic.FollowersCount, "following twice counts once")

	comic, err = env.service.Unfollow(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), comic.FollowersCount)

	comic, err = env.service.Unfollow(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), comic.FollowersCount)

	assert.Equal(t, stored.Version, env.repository.stored(t, stored.ID).Version, "counters bypass versioning")

	_, err = env.service.Follow(ctx, Actor{}, stored.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = env.service.Follow(ctx, reader, "missing")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestServiceFollow_CounterFailure(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 0)
	env := newTestEnv(stored)

	env.repository.failIncrements = 1
	_, err := env.service.Follow(ctx, reader, stored.ID)
	require.ErrorIs(t, err, errIncrement)
	assert.False(t, env.followers.sets[stored.ID][reader.ID], "membership rolled back with the counter")

	comic, err := env.service.Follow(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), comic.FollowersCount)
	assert.True(t, env.followers.sets[stored.ID][reader.ID])

	env.repository.failIncrements = 1
	_, err = env.service.Unfollow(ctx, reader, stored.ID)
	require.ErrorIs(t, err, errIncrement)
	assert.True(t, env.followers.sets[stored.ID][reader.ID])

	comic, err = env.service.Unfollow(ctx, reader, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), comic.FollowersCount)
}

func TestServiceIncrementViews(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 0)
	env := newTestEnv(stored)

	for range 3 {
		_, err := env.service.IncrementViews(ctx, stored.ID)
		require.NoError(t, err)
	}

	final := env.repository.stored(t, stored.ID)
	assert.Equal(t, int64(3), final.Views)
	assert.Equal(t, stored.Version, final.Version)

	// A concurrent view does not make a document save conflict.
	_, err := env.service.UpdateComic(ctx, uploader1, stored.ID, ComicPatch{Title: pointer.To("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.repository.stored(t, stored.ID).Views)
}

func TestServiceListings(t *testing.T) {
	ctx := context.Background()

	quiet := comicWithChapters("U1", 0)
	quiet.Title, quiet.Views, quiet.Genres = "Quiet", 5, []string{"drama"}

	popular := comicWithChapters("U1", 0)
	popular.Title, popular.Views, popular.Genres = "Popular", 500, []string{"action", "drama"}
	popular.UpdatedAt = fixedNow.Add(-48 * time.Hour)

	fresh := comicWithChapters("U1", 0)
	fresh.Title, fresh.Views, fresh.Genres = "Fresh", 50, []string{"action"}
	fresh.UpdatedAt = fixedNow

	env := newTestEnv(quiet, popular, fresh)

	hot, err := env.service.HotComics(ctx, 2)
	require.NoError(t, err)
	require.Len(t, hot, 2)
	assert.Equal(t, "Popular", hot[0].Title)
	assert.Equal(t, "Fresh", hot[1].Title)

	latest, err := env.service.LatestComics(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Fresh", latest[0].Title)

	page, total, err := env.service.ListComics(ctx, Filter{Genres: []string{"action", "drama"}}, pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Popular", page[0].Title)
}

func TestServiceGetChapter(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 2)
	env := newTestEnv(stored)

	comicID, chapter, err := env.service.GetChapter(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, comicID)
	assert.Equal(t, "c1", chapter.Title)

	_, _, err = env.service.GetChapter(ctx, "ch-9")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestServiceListChapters(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 5)
	env := newTestEnv(stored)

	chapters, total, err := env.service.ListChapters(ctx, stored.ID, pagination.New(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []string{"c2", "c3"}, []string{chapters[0].Title, chapters[1].Title})

	chapters, _, err = env.service.ListChapters(ctx, stored.ID, pagination.New(3, 2))
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, "ch-4", chapters[0].ID)

	chapters, total, err = env.service.ListChapters(ctx, stored.ID, pagination.New(9, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.NotNil(t, chapters)
	assert.Empty(t, chapters)

	_, _, err = env.service.ListChapters(ctx, "missing", pagination.New(1, 20))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestServiceGetChapterAt(t *testing.T) {
	ctx := context.Background()
	stored := comicWithChapters("U1", 3)
	env := newTestEnv(stored)

	chapter, err := env.service.GetChapterAt(ctx, stored.ID, ByIndex(2))
	require.NoError(t, err)
	assert.Equal(t, "ch-2", chapter.ID)

	chapter, err = env.service.GetChapterAt(ctx, stored.ID, ByID("ch-0"))
	require.NoError(t, err)
	assert.Equal(t, "c0", chapter.Title)

	_, err = env.service.GetChapterAt(ctx, stored.ID, ByIndex(3))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), "position past the end reads as not found")

	_, err = env.service.GetChapterAt(ctx, stored.ID, ByID("ch-9"))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	_, err = env.service.GetChapterAt(ctx, "missing", ByIndex(0))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
