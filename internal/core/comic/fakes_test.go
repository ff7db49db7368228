// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
	"github.com/taibuivan/comicverse/pkg/pagination"
	"github.com/taibuivan/comicverse/pkg/uuid"
)

// # In-memory Repository

var errIncrement = errors.New("connection reset by peer")

// memoryRepository is a [Repository] with the same version semantics as the
// PostgreSQL store. beforePut runs ahead of every compare-and-swap, outside the
// lock, so tests can interleave a competing writer.
type memoryRepository struct {
	mu     sync.Mutex
	comics map[string]*Comic

	beforePut func(attempt int)
	puts      int
	claims    int

	// afterGet runs once, after the next Get has read its copy.
	afterGet func()

	// failIncrements makes the next n Increment calls fail without writing.
	failIncrements int
}

func newMemoryRepository(comics ...*Comic) *memoryRepository {
	repository := &memoryRepository{comics: make(map[string]*Comic)}
	for _, comic := range comics {
		repository.comics[comic.ID] = comic.Clone()
	}
	return repository
}

func (repository *memoryRepository) Get(_ context.Context, id string) (*Comic, error) {
	repository.mu.Lock()
	comic, ok := repository.comics[id]
	if ok {
		comic = comic.Clone()
	}
	hook := repository.afterGet
	repository.afterGet = nil
	repository.mu.Unlock()

	if hook != nil {
		hook()
	}

	if !ok {
		return nil, apperr.NotFound(resourceComic)
	}
	return comic, nil
}

func (repository *memoryRepository) Create(_ context.Context, comic *Comic) (*Comic, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.comics[comic.ID]; ok {
		return nil, apperr.Conflict("Comic already exists")
	}

	stored := comic.Clone()
	stored.Version = 1
	repository.comics[stored.ID] = stored
	return stored.Clone(), nil
}

func (repository *memoryRepository) Put(_ context.Context, comic *Comic) (*Comic, error) {
	repository.mu.Lock()
	repository.puts++
	attempt := repository.puts
	hook := repository.beforePut
	repository.mu.Unlock()

	if hook != nil {
		hook(attempt)
	}

	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.comics[comic.ID]
	if !ok {
		return nil, apperr.NotFound(resourceComic)
	}
	if stored.Version != comic.Version {
		return nil, ErrVersionConflict
	}

	saved := comic.Clone()
	saved.Version = stored.Version + 1
	saved.Views = stored.Views
	saved.FollowersCount = stored.FollowersCount
	if stored.UploaderID != "" {
		saved.UploaderID = stored.UploaderID
	}

	repository.comics[saved.ID] = saved
	return saved.Clone(), nil
}

func (repository *memoryRepository) Delete(_ context.Context, id string, expectedVersion int64) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	stored, ok := repository.comics[id]
	if !ok {
		return apperr.NotFound(resourceComic)
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}

	delete(repository.comics, id)
	return nil
}

func (repository *memoryRepository) Find(_ context.Context, filter Filter, page pagination.Params) ([]*Comic, int, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	var matches []*Comic
	for _, comic := range repository.comics {
		if filter.Status != "" && comic.Status != filter.Status {
			continue
		}
		if !containsAll(comic.Genres, filter.Genres) {
			continue
		}
		if search := strings.ToLower(filter.Search); search != "" &&
			!strings.Contains(strings.ToLower(comic.Title), search) &&
			!strings.Contains(strings.ToLower(comic.Description), search) {
			continue
		}
		matches = append(matches, comic.Clone())
	}

	sort.Slice(matches, func(i, j int) bool {
		var less bool
		switch filter.Sort {
		case SortViews:
			less = matches[i].Views < matches[j].Views
		case SortTitle:
			less = matches[i].Title < matches[j].Title
		default:
			less = matches[i].UpdatedAt.Before(matches[j].UpdatedAt)
		}
		if filter.Ascending {
			return less
		}
		return !less
	})

	total := len(matches)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return matches[start:end], total, nil
}

func (repository *memoryRepository) Increment(_ context.Context, id string, counter Counter, delta int64) (*Comic, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if repository.failIncrements > 0 {
		repository.failIncrements--
		return nil, errIncrement
	}

	comic, ok := repository.comics[id]
	if !ok {
		return nil, apperr.NotFound(resourceComic)
	}

	switch counter {
	case CounterViews:
		comic.Views += delta
	case CounterFollowers:
		comic.FollowersCount = max(comic.FollowersCount+delta, 0)
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}
	return comic.Clone(), nil
}

func (repository *memoryRepository) ClaimOwner(_ context.Context, id, ownerID string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.claims++
	comic, ok := repository.comics[id]
	if !ok || comic.UploaderID != "" {
		return false, nil
	}
	comic.UploaderID = ownerID
	return true, nil
}

func (repository *memoryRepository) FindChapter(_ context.Context, chapterID string) (string, *Chapter, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for id, comic := range repository.comics {
		if index := comic.chapterIndex(chapterID); index >= 0 {
			chapter := comic.Chapters[index].clone()
			return id, &chapter, nil
		}
	}
	return "", nil, apperr.NotFound("Chapter")
}

// stored returns a copy of the persisted comic.
func (repository *memoryRepository) stored(t *testing.T, id string) *Comic {
	t.Helper()
	comic, err := repository.Get(context.Background(), id)
	require.NoError(t, err)
	return comic
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

// # Recording Asset Store

type recordingAssetStore struct {
	mu       sync.Mutex
	singles  []string
	batches  [][]string
	failKeys map[string]bool
}

func (store *recordingAssetStore) Delete(_ context.Context, assetID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.singles = append(store.singles, assetID)
	if store.failKeys[assetID] {
		return errors.New("bucket unavailable")
	}
	return nil
}

func (store *recordingAssetStore) DeleteBatch(_ context.Context, assetIDs []string) map[string]error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.batches = append(store.batches, slices.Clone(assetIDs))
	failed := make(map[string]error)
	for _, id := range assetIDs {
		if store.failKeys[id] {
			failed[id] = errors.New("bucket unavailable")
		}
	}
	return failed
}

// requested flattens every id the store was asked to delete, in call order.
func (store *recordingAssetStore) requested() []string {
	store.mu.Lock()
	defer store.mu.Unlock()

	ids := slices.Clone(store.singles)
	for _, batch := range store.batches {
		ids = append(ids, batch...)
	}
	return ids
}

// # Follower Registry

type memoryFollowers struct {
	mu   sync.Mutex
	sets map[string]map[string]bool
}

func newMemoryFollowers() *memoryFollowers {
	return &memoryFollowers{sets: make(map[string]map[string]bool)}
}

func (registry *memoryFollowers) Add(_ context.Context, comicID, userID string) (bool, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.sets[comicID] == nil {
		registry.sets[comicID] = make(map[string]bool)
	}
	if registry.sets[comicID][userID] {
		return false, nil
	}
	registry.sets[comicID][userID] = true
	return true, nil
}

func (registry *memoryFollowers) Remove(_ context.Context, comicID, userID string) (bool, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if !registry.sets[comicID][userID] {
		return false, nil
	}
	delete(registry.sets[comicID], userID)
	return true, nil
}

func (registry *memoryFollowers) Forget(_ context.Context, comicID string) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	delete(registry.sets, comicID)
	return nil
}

// # Fixtures

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	admin     = NewActor("admin-1", "admin")
	uploader1 = NewActor("U1", "uploader")
	uploader2 = NewActor("U2", "uploader")
	reader    = NewActor("R1", "user")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	repository *memoryRepository
	assets     *recordingAssetStore
	followers  *memoryFollowers
	service    *Service
}

func newTestEnv(comics ...*Comic) *testEnv {
	env := &testEnv{
		repository: newMemoryRepository(comics...),
		assets:     &recordingAssetStore{failKeys: map[string]bool{}},
		followers:  newMemoryFollowers(),
	}

	logger := discardLogger()
	env.service = NewService(
		env.repository,
		NewGate(env.repository, logger),
		NewAssetCoordinator(env.assets, logger),
		nil,
		env.followers,
		logger,
	)
	env.service.now = func() time.Time { return fixedNow }

	return env
}

// comicWithChapters builds a stored comic at version 1 whose chapters are named
// c0, c1, ... with ids ch-0, ch-1, ...
func comicWithChapters(owner string, n int) *Comic {
	comic := &Comic{
		ID:         uuid.New(),
		Title:      "Solo Leveling",
		Slug:       "solo-leveling",
		Status:     StatusOngoing,
		UploaderID: owner,
		Authors:    []string{},
		Genres:     []string{},
		Chapters:   []Chapter{},
		Version:    1,
		CreatedAt:  fixedNow.Add(-time.Hour),
		UpdatedAt:  fixedNow.Add(-time.Hour),
	}
	for i := range n {
		comic.Chapters = append(comic.Chapters, Chapter{
			ID:    fmt.Sprintf("ch-%d", i),
			Title: fmt.Sprintf("c%d", i),
			Slug:  fmt.Sprintf("c%d", i),
			Date:  fixedNow.Add(-time.Hour),
		})
	}
	return comic
}

func chapterTitles(comic *Comic) []string {
	titles := make([]string, len(comic.Chapters))
	for i, chapter := range comic.Chapters {
		titles[i] = chapter.Title
	}
	return titles
}
