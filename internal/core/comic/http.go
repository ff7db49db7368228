// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
HTTP interface of the comic aggregate.

# Routing Strategy

  - Public: browsing, single reads, chapter listing and lookup, and the view counter.
  - Authenticated: follow and unfollow.
  - Uploader or Admin: every mutation. Ownership of the particular comic is then
    decided by the [Gate] inside the service, not by the router.

Chapter routes take a locator segment: a non-negative integer addresses the
chapter by position, anything else by its stable id.
*/
package comic

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/comicverse/internal/platform/middleware"
	requestutil "github.com/taibuivan/comicverse/internal/platform/request"
	"github.com/taibuivan/comicverse/internal/platform/respond"
	"github.com/taibuivan/comicverse/internal/platform/sec"
	"github.com/taibuivan/comicverse/internal/platform/validate"
	"github.com/taibuivan/comicverse/pkg/convert"
	"github.com/taibuivan/comicverse/pkg/pagination"
	"github.com/taibuivan/comicverse/pkg/query"
)

// defaultShowcaseLimit sizes the hot and latest lists when no limit is given.
const defaultShowcaseLimit = 10

// # Handler Implementation

// Handler translates HTTP requests into [Service] calls.
type Handler struct {
	service *Service
}

// NewHandler constructs a comic [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the comic endpoints, to be mounted under
// /api/v1/comics behind [middleware.Authenticate].
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Discovery Endpoints
	router.Get("/", handler.listComics)
	router.Get("/hot", handler.hotComics)
	router.Get("/latest", handler.latestComics)
	router.Get("/chapters/{chapterID}", handler.getChapter)
	router.Get("/{id}", handler.getComic)
	router.Get("/{id}/chapters", handler.listChapters)
	router.Get("/{id}/chapters/{locator}", handler.getChapterAt)
	router.Post("/{id}/views", handler.incrementViews)

	// ## Reader Endpoints
	router.Group(func(reader chi.Router) {
		reader.Use(middleware.RequireAuth)

		reader.Post("/{id}/follow", handler.follow)
		reader.Post("/{id}/unfollow", handler.unfollow)
	})

	// ## Content Management (Uploader or Admin)
	router.Group(func(manager chi.Router) {
		manager.Use(middleware.RequireAnyRole(sec.RoleAdmin, sec.RoleUploader))

		manager.Post("/", handler.createComic)
		manager.Put("/{id}", handler.updateComic)
		manager.Delete("/{id}", handler.deleteComic)

		manager.Post("/{id}/chapters", handler.addChapter)
		manager.Put("/{id}/chapters/{locator}", handler.updateChapter)
		manager.Delete("/{id}/chapters/{locator}", handler.deleteChapter)
	})

	return router
}

// # Discovery Endpoints

/*
GET /api/v1/comics.

Request:
  - genres: string (Comma separated, all must match; may be repeated)
  - status: string (ongoing, completed, dropped)
  - search: string (Title or description substring)
  - sortBy: string (latest, views, title)
  - order: string (asc, desc)
  - page: int
  - limit: int

Response:
  - 200: []Comic: Paginated list
  - 400: ValidationError: Unknown status, sort key or order
*/
func (handler *Handler) listComics(writer http.ResponseWriter, request *http.Request) {
	filter, err := parseFilter(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)

	comics, total, err := handler.service.ListComics(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, comics, pagination.NewMeta(page, total))
}

// GET /api/v1/comics/hot. Most viewed first.
func (handler *Handler) hotComics(writer http.ResponseWriter, request *http.Request) {
	comics, err := handler.service.HotComics(request.Context(), limitParam(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, comics)
}

// GET /api/v1/comics/latest. Most recently updated first.
func (handler *Handler) latestComics(writer http.ResponseWriter, request *http.Request) {
	comics, err := handler.service.LatestComics(request.Context(), limitParam(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, comics)
}

/*
GET /api/v1/comics/{id}.

Response:
  - 200: Comic
  - 404: NotFound: Unknown or malformed id
*/
func (handler *Handler) getComic(writer http.ResponseWriter, request *http.Request) {
	comic, err := handler.service.GetComic(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, comic)
}

// chapterView is the body of a chapter lookup.
type chapterView struct {
	ComicID string   `json:"comic_id"`
	Chapter *Chapter `json:"chapter"`
}

/*
GET /api/v1/comics/chapters/{chapterID}.

Response:
  - 200: {comic_id, chapter}
  - 404: NotFound
*/
func (handler *Handler) getChapter(writer http.ResponseWriter, request *http.Request) {
	comicID, chapter, err := handler.service.GetChapter(request.Context(), requestutil.Param(request, "chapterID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, chapterView{ComicID: comicID, Chapter: chapter})
}

/*
GET /api/v1/comics/{id}/chapters.

Request:
  - page: int
  - limit: int

Response:
  - 200: []Chapter: Paginated, in reading order
  - 404: NotFound
*/
func (handler *Handler) listChapters(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	chapters, total, err := handler.service.ListChapters(request.Context(), requestutil.Param(request, "id"), page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, chapters, pagination.NewMeta(page, total))
}

// GET /api/v1/comics/{id}/chapters/{locator}. 404 for an unknown id or a position out of range.
func (handler *Handler) getChapterAt(writer http.ResponseWriter, request *http.Request) {
	chapter, err := handler.service.GetChapterAt(request.Context(),
		requestutil.Param(request, "id"), ParseLocator(requestutil.Param(request, "locator")))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, chapter)
}

// POST /api/v1/comics/{id}/views. Public, unauthenticated counter.
func (handler *Handler) incrementViews(writer http.ResponseWriter, request *http.Request) {
	comic, err := handler.service.IncrementViews(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"views": comic.Views})
}

// # Reader Endpoints

// POST /api/v1/comics/{id}/follow.
func (handler *Handler) follow(writer http.ResponseWriter, request *http.Request) {
	comic, err := handler.service.Follow(request.Context(), actorFrom(request), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"followers_count": comic.FollowersCount})
}

// POST /api/v1/comics/{id}/unfollow.
func (handler *Handler) unfollow(writer http.ResponseWriter, request *http.Request) {
	comic, err := handler.service.Unfollow(request.Context(), actorFrom(request), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int64{"followers_count": comic.FollowersCount})
}

// # Mutation Endpoints

/*
POST /api/v1/comics.

Request:
  - body: ComicInput

Response:
  - 201: Comic
  - 400: InvalidArgument / ValidationError
  - 403: Forbidden
*/
func (handler *Handler) createComic(writer http.ResponseWriter, request *http.Request) {
	var input ComicInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.CreateComic(request.Context(), actorFrom(request), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, outcome.Comic)
}

/*
PUT /api/v1/comics/{id}.

Request:
  - body: ComicPatch (Omitted fields are unchanged)

Response:
  - 200: Comic, with warnings.failed_assets when a replaced cover could not be deleted
  - 403: Forbidden
  - 404: NotFound
  - 409: Conflict
*/
func (handler *Handler) updateComic(writer http.ResponseWriter, request *http.Request) {
	var patch ComicPatch
	if err := requestutil.DecodeJSON(writer, request, &patch); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.UpdateComic(request.Context(), actorFrom(request), requestutil.Param(request, "id"), patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writeOutcome(writer, outcome)
}

/*
DELETE /api/v1/comics/{id}.

Response:
  - 204: Deleted, every asset removed
  - 200: Deleted, with warnings.failed_assets
  - 403 / 404 / 409
*/
func (handler *Handler) deleteComic(writer http.ResponseWriter, request *http.Request) {
	outcome, err := handler.service.DeleteComic(request.Context(), actorFrom(request), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if len(outcome.FailedAssets) == 0 {
		respond.NoContent(writer)
		return
	}
	writeOutcome(writer, outcome)
}

/*
POST /api/v1/comics/{id}/chapters.

Request:
  - body: ChapterInput (images and asset_ids are parallel lists)

Response:
  - 201: Comic, the new chapter last
  - 400 / 403 / 404 / 409
*/
func (handler *Handler) addChapter(writer http.ResponseWriter, request *http.Request) {
	var input ChapterInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.AddChapter(request.Context(), actorFrom(request), requestutil.Param(request, "id"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, outcome.Comic)
}

/*
PUT /api/v1/comics/{id}/chapters/{locator}.

Request:
  - locator: int (Position) or string (Chapter id)
  - body: ChapterPatch

Response:
  - 200: Comic, with warnings.failed_assets when removed images could not be deleted
  - 400: InvalidArgument: Position out of range
  - 403 / 404 / 409
*/
func (handler *Handler) updateChapter(writer http.ResponseWriter, request *http.Request) {
	var patch ChapterPatch
	if err := requestutil.DecodeJSON(writer, request, &patch); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.UpdateChapter(request.Context(), actorFrom(request),
		requestutil.Param(request, "id"), ParseLocator(requestutil.Param(request, "locator")), patch)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writeOutcome(writer, outcome)
}

// DELETE /api/v1/comics/{id}/chapters/{locator}. Responds with the updated comic.
func (handler *Handler) deleteChapter(writer http.ResponseWriter, request *http.Request) {
	outcome, err := handler.service.DeleteChapter(request.Context(), actorFrom(request),
		requestutil.Param(request, "id"), ParseLocator(requestutil.Param(request, "locator")))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writeOutcome(writer, outcome)
}

// # Helpers

// actorFrom builds the [Actor] from verified claims. Anonymous requests yield a
// zero actor, which every gate decision denies.
func actorFrom(request *http.Request) Actor {
	claims := requestutil.Claims(request)
	if claims == nil {
		return Actor{}
	}
	return Actor{ID: claims.UserID, Roles: claims.RoleSet()}
}

func writeOutcome(writer http.ResponseWriter, outcome *Outcome) {
	if len(outcome.FailedAssets) == 0 {
		respond.OK(writer, outcome.Comic)
		return
	}
	respond.OKWithWarnings(writer, outcome.Comic, map[string][]AssetFailure{"failed_assets": outcome.FailedAssets})
}

func parseFilter(request *http.Request) (Filter, error) {
	values := request.URL.Query()

	filter := Filter{
		Genres: query.Strings(values["genres"]),
		Status: Status(values.Get("status")),
		Search: values.Get("search"),
		Sort:   SortKey(values.Get("sortBy")),
	}

	if filter.Sort == "" {
		filter.Sort = SortLatest
	}

	order := strings.ToLower(values.Get("order"))
	filter.Ascending = order == "asc"

	validator := &validate.Validator{}
	if filter.Status != "" {
		validator.OneOf(FieldStatus, string(filter.Status), string(StatusOngoing), string(StatusCompleted), string(StatusDropped))
	}
	validator.OneOf("sortBy", string(filter.Sort), string(SortLatest), string(SortViews), string(SortTitle))
	if order != "" {
		validator.OneOf("order", order, "asc", "desc")
	}

	if err := validator.Err(); err != nil {
		return Filter{}, err
	}
	return filter, nil
}

func limitParam(request *http.Request) int {
	return convert.ToPositiveIntD(request.URL.Query().Get("limit"), defaultShowcaseLimit)
}
