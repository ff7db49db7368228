// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
PostgreSQL implementation of the aggregate store.

A comic is one row; its chapters live in a JSONB column so the whole aggregate is
read and written in a single statement. Optimistic concurrency is a plain
"WHERE version = $n" guard on UPDATE and DELETE, with the version bumped in the
same statement. Counters and ownership claims are separate single-column updates
that do not touch the version.
*/
package comic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
	"github.com/taibuivan/comicverse/internal/platform/database/schema"
	"github.com/taibuivan/comicverse/internal/platform/dberr"
	"github.com/taibuivan/comicverse/pkg/pagination"
	"github.com/taibuivan/comicverse/pkg/uuid"
)

const resourceComic = "Comic"

// # PostgreSQL Repository

// postgresRepository implements the [Repository] interface using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed aggregate store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// selectColumns lists the columns in [scanComic] order. The id is cast to text so
// it scans straight into a string.
var selectColumns = strings.Join(
	append([]string{schema.Comics.ID + "::text"}, schema.Comics.Columns()[1:]...),
	", ",
)

// # Aggregate Reads

/*
Get loads the full aggregate by id.

Description: Ids that do not parse as UUIDs are rejected before querying, which
keeps malformed ids on the NotFound path instead of surfacing a cast error.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Comic: The hydrated aggregate
  - error: apperr.NotFound if missing or malformed
*/
func (repository *postgresRepository) Get(context context.Context, id string) (*Comic, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound(resourceComic)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, selectColumns, schema.Comics.Table, schema.Comics.ID)

	comic, err := scanComic(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, fmt.Errorf("postgres: get comic: %w", dberr.Wrap(err, resourceComic))
	}

	return comic, nil
}

/*
Find returns a filtered, sorted page of comics and the total match count.

Description: The total is computed with COUNT(*) OVER() so a single query serves
both the page and the pagination metadata. Genre filtering is all-of via the
array containment operator, backed by the GIN index on genres.

Parameters:
  - context: context.Context
  - filter: Filter
  - page: pagination.Params

Returns:
  - []*Comic: The page
  - int: Total count matching filter
  - error: Storage failures
*/
func (repository *postgresRepository) Find(context context.Context, filter Filter, page pagination.Params) ([]*Comic, int, error) {
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total_count FROM %s WHERE TRUE`, selectColumns, schema.Comics.Table))

	// All requested genres must be present
	if len(filter.Genres) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s @> $%d::text[]", schema.Comics.Genres, argID))
		args = append(args, filter.Genres)
		argID++
	}

	if filter.Status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.Comics.Status, argID))
		args = append(args, string(filter.Status))
		argID++
	}

	// Case-insensitive substring match on title or description
	if search := strings.TrimSpace(filter.Search); search != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (%s ILIKE $%d OR %s ILIKE $%d)", schema.Comics.Title, argID, schema.Comics.Description, argID))
		args = append(args, "%"+escapeLike(search)+"%")
		argID++
	}

	sortColumn := schema.Comics.UpdatedAt
	switch filter.Sort {
	case SortViews:
		sortColumn = schema.Comics.Views
	case SortTitle:
		sortColumn = schema.Comics.Title
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	// id breaks ties so pages are stable
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s, %s %s LIMIT $%d OFFSET $%d",
		sortColumn, direction, schema.Comics.ID, direction, argID, argID+1))
	args = append(args, page.Limit, page.Offset())

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: find comics: %w", dberr.Wrap(err, resourceComic))
	}
	defer rows.Close()

	comics := make([]*Comic, 0, page.Limit)
	total := 0
	for rows.Next() {
		comic, err := scanComic(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: scan comic: %w", dberr.Wrap(err, resourceComic))
		}
		comics = append(comics, comic)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: iterate comics: %w", dberr.Wrap(err, resourceComic))
	}

	return comics, total, nil
}

/*
FindChapter looks a chapter up by stable id across all comics.

Description: The containment test on the chapters column narrows candidates via
the jsonb_path_ops index before the array is expanded.

Returns:
  - string: The owning comic id
  - *Chapter: The chapter
  - error: apperr.NotFound
*/
func (repository *postgresRepository) FindChapter(context context.Context, chapterID string) (string, *Chapter, error) {
	probe, err := json.Marshal([]map[string]string{{"id": chapterID}})
	if err != nil {
		return "", nil, fmt.Errorf("postgres: encode chapter probe: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT c.%s::text, elem
		FROM %s c, jsonb_array_elements(c.%s) AS elem
		WHERE c.%s @> $1::jsonb AND elem->>'id' = $2
		LIMIT 1`,
		schema.Comics.ID, schema.Comics.Table, schema.Comics.Chapters, schema.Comics.Chapters,
	)

	var comicID string
	var raw []byte
	if err := repository.pool.QueryRow(context, query, probe, chapterID).Scan(&comicID, &raw); err != nil {
		return "", nil, fmt.Errorf("postgres: find chapter: %w", dberr.Wrap(err, "Chapter"))
	}

	var chapter Chapter
	if err := json.Unmarshal(raw, &chapter); err != nil {
		return "", nil, fmt.Errorf("postgres: decode chapter: %w", apperr.Internal(err))
	}

	return comicID, &chapter, nil
}

// # Aggregate Writes

/*
Create inserts a new aggregate at version 1.

Parameters:
  - context: context.Context
  - comic: *Comic

Returns:
  - *Comic: The stored aggregate
  - error: apperr.Conflict on duplicate id
*/
func (repository *postgresRepository) Create(context context.Context, comic *Comic) (*Comic, error) {
	chapters, err := encodeChapters(comic.Chapters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, 0, 1, $12, $13)`,
		schema.Comics.Table,
		schema.Comics.ID, schema.Comics.Title, schema.Comics.Slug,
		schema.Comics.CoverURL, schema.Comics.CoverAssetID, schema.Comics.Description,
		schema.Comics.Authors, schema.Comics.Genres, schema.Comics.Status,
		schema.Comics.UploaderID, schema.Comics.Chapters,
		schema.Comics.Views, schema.Comics.FollowersCount, schema.Comics.Version,
		schema.Comics.CreatedAt, schema.Comics.UpdatedAt,
	)

	_, err = repository.pool.Exec(context, query,
		comic.ID, comic.Title, comic.Slug,
		comic.CoverURL, comic.CoverAssetID, comic.Description,
		nonNil(comic.Authors), nonNil(comic.Genres), string(comic.Status),
		nullable(comic.UploaderID), chapters,
		comic.CreatedAt, comic.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: create comic: %w", dberr.Wrap(err, resourceComic))
	}

	stored := comic.Clone()
	stored.Version = 1
	stored.Views = 0
	stored.FollowersCount = 0
	return stored, nil
}

/*
Put saves the aggregate under a version guard.

Description: The UPDATE matches only when the stored version equals the carried
one and bumps it in the same statement. Zero affected rows means either a
concurrent save won (ErrVersionConflict) or the comic is gone (NotFound).

The uploader column is only ever filled, never cleared, so a save based on a
snapshot taken before an ownership claim cannot undo that claim. Counters are
not written; they move independently through [postgresRepository.Increment].

Parameters:
  - context: context.Context
  - comic: *Comic

Returns:
  - *Comic: The saved aggregate at version+1
  - error: ErrVersionConflict or apperr.NotFound
*/
func (repository *postgresRepository) Put(context context.Context, comic *Comic) (*Comic, error) {
	chapters, err := encodeChapters(comic.Chapters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			%s = $3, %s = $4, %s = $5, %s = $6, %s = $7,
			%s = $8, %s = $9, %s = $10,
			%s = COALESCE(%s, $11),
			%s = $12, %s = $13,
			%s = %s + 1
		WHERE %s = $1 AND %s = $2
		RETURNING %s`,
		schema.Comics.Table,
		schema.Comics.Title, schema.Comics.Slug, schema.Comics.CoverURL, schema.Comics.CoverAssetID, schema.Comics.Description,
		schema.Comics.Authors, schema.Comics.Genres, schema.Comics.Status,
		schema.Comics.UploaderID, schema.Comics.UploaderID,
		schema.Comics.Chapters, schema.Comics.UpdatedAt,
		schema.Comics.Version, schema.Comics.Version,
		schema.Comics.ID, schema.Comics.Version,
		selectColumns,
	)

	saved, err := scanComic(repository.pool.QueryRow(context, query,
		comic.ID, comic.Version,
		comic.Title, comic.Slug, comic.CoverURL, comic.CoverAssetID, comic.Description,
		nonNil(comic.Authors), nonNil(comic.Genres), string(comic.Status),
		nullable(comic.UploaderID),
		chapters, comic.UpdatedAt,
	))
	if err == nil {
		return saved, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: put comic: %w", dberr.Wrap(err, resourceComic))
	}

	return nil, repository.missOrConflict(context, comic.ID)
}

/*
Delete removes the aggregate under a version guard.

Returns:
  - error: ErrVersionConflict or apperr.NotFound
*/
func (repository *postgresRepository) Delete(context context.Context, id string, expectedVersion int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.Comics.Table, schema.Comics.ID, schema.Comics.Version)

	tag, err := repository.pool.Exec(context, query, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("postgres: delete comic: %w", dberr.Wrap(err, resourceComic))
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	return repository.missOrConflict(context, id)
}

/*
Increment atomically adjusts a counter, bypassing the version guard.

Parameters:
  - context: context.Context
  - id: string (UUID)
  - counter: Counter
  - delta: int64

Returns:
  - *Comic: The aggregate after the increment
  - error: apperr.NotFound
*/
func (repository *postgresRepository) Increment(context context.Context, id string, counter Counter, delta int64) (*Comic, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound(resourceComic)
	}

	var assignment string
	switch counter {
	case CounterViews:
		assignment = fmt.Sprintf("%s = %s + $2", schema.Comics.Views, schema.Comics.Views)
	case CounterFollowers:
		assignment = fmt.Sprintf("%s = GREATEST(%s + $2, 0)", schema.Comics.FollowersCount, schema.Comics.FollowersCount)
	default:
		return nil, apperr.Internal(fmt.Errorf("postgres: unknown counter %q", counter))
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $1 RETURNING %s`,
		schema.Comics.Table, assignment, schema.Comics.ID, selectColumns)

	comic, err := scanComic(repository.pool.QueryRow(context, query, id, delta))
	if err != nil {
		return nil, fmt.Errorf("postgres: increment %s: %w", counter, dberr.Wrap(err, resourceComic))
	}

	return comic, nil
}

/*
ClaimOwner fills the uploader of an unowned comic.

Returns:
  - bool: true if this call set the owner
  - error: Storage failures
*/
func (repository *postgresRepository) ClaimOwner(context context.Context, id, ownerID string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1 AND %s IS NULL`,
		schema.Comics.Table, schema.Comics.UploaderID, schema.Comics.ID, schema.Comics.UploaderID)

	tag, err := repository.pool.Exec(context, query, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("postgres: claim owner: %w", dberr.Wrap(err, resourceComic))
	}

	return tag.RowsAffected() == 1, nil
}

// # Helpers

// missOrConflict tells a lost version race apart from a vanished row.
func (repository *postgresRepository) missOrConflict(context context.Context, id string) error {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, schema.Comics.Table, schema.Comics.ID)

	var exists bool
	if err := repository.pool.QueryRow(context, query, id).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check comic: %w", dberr.Wrap(err, resourceComic))
	}

	if !exists {
		return apperr.NotFound(resourceComic)
	}
	return ErrVersionConflict
}

// scanComic reads one row in [selectColumns] order. extra receives trailing
// columns such as a window count.
func scanComic(row pgx.Row, extra ...any) (*Comic, error) {
	var comic Comic
	var status string
	var uploaderID *string
	var chapters []byte

	destinations := append([]any{
		&comic.ID, &comic.Title, &comic.Slug,
		&comic.CoverURL, &comic.CoverAssetID, &comic.Description,
		&comic.Authors, &comic.Genres, &status,
		&uploaderID, &chapters,
		&comic.Views, &comic.FollowersCount, &comic.Version,
		&comic.CreatedAt, &comic.UpdatedAt,
	}, extra...)

	if err := row.Scan(destinations...); err != nil {
		return nil, err
	}

	comic.Status = Status(status)
	if uploaderID != nil {
		comic.UploaderID = *uploaderID
	}

	if err := json.Unmarshal(chapters, &comic.Chapters); err != nil {
		return nil, fmt.Errorf("decode chapters of comic %s: %w", comic.ID, err)
	}
	if comic.Chapters == nil {
		comic.Chapters = []Chapter{}
	}

	return &comic, nil
}

func encodeChapters(chapters []Chapter) ([]byte, error) {
	if chapters == nil {
		chapters = []Chapter{}
	}

	raw, err := json.Marshal(chapters)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode chapters: %w", apperr.Internal(err))
	}
	return raw, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
