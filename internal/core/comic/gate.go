// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package comic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
	"github.com/taibuivan/comicverse/internal/platform/ctxutil"
)

// # Authorization

// Decision is the outcome of the ownership predicate.
type Decision int

const (
	// Deny rejects the action.
	Deny Decision = iota

	// Allow permits the action as-is.
	Allow

	// AllowWithClaim permits the action once the actor has claimed the unowned comic.
	AllowWithClaim
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case AllowWithClaim:
		return "allow_with_claim"
	default:
		return "deny"
	}
}

// Check decides whether actor may mutate comic. It has no side effects.
//
//  1. Admins are always allowed.
//  2. Uploaders are allowed on comics they own, and on unowned comics after claiming them.
//  3. Everyone else is denied.
func Check(actor Actor, comic *Comic) Decision {
	if actor.IsAdmin() {
		return Allow
	}

	if actor.IsUploader() && actor.ID != "" {
		switch comic.UploaderID {
		case "":
			return AllowWithClaim
		case actor.ID:
			return Allow
		}
	}

	return Deny
}

// Gate enforces [Check] and performs the ownership claim it may call for.
type Gate struct {
	repository Repository
	logger     *slog.Logger
}

// NewGate constructs a [Gate] that persists claims through repository.
func NewGate(repository Repository, logger *slog.Logger) *Gate {
	return &Gate{repository: repository, logger: logger}
}

/*
Authorize checks actor against comic for action and claims ownership when the
check requires it.

Description: comic is the in-memory aggregate that continues into the mutation
pipeline; a successful claim sets its UploaderID so the caller never works on a
stale copy. Creating a comic has no aggregate yet and only requires the admin or
uploader role.

Parameters:
  - context: context.Context
  - actor: Actor
  - comic: *Comic (nil for ActionCreateComic)
  - action: Action

Returns:
  - error: apperr.Forbidden on deny, storage failures from the claim
*/
func (gate *Gate) Authorize(context context.Context, actor Actor, comic *Comic, action Action) error {
	if action == ActionCreateComic {
		if actor.IsAdmin() || (actor.IsUploader() && actor.ID != "") {
			return nil
		}
		return gate.deny(context, actor, "", action)
	}

	switch Check(actor, comic) {
	case Allow:
		return nil
	case AllowWithClaim:
		if err := gate.Claim(context, comic, actor); err != nil {
			return err
		}
		if Check(actor, comic) == Allow {
			return nil
		}
	}

	return gate.deny(context, actor, comic.ID, action)
}

/*
Claim makes actor the owner of an unowned comic.

Description: The write only succeeds while the comic has no owner, and leaves the
version untouched so an in-flight mutation based on the same snapshot can still
be saved. When another writer claimed first, the current owner is read back into
comic and the caller re-runs [Check]. Calling Claim again for the same actor is
harmless.

Parameters:
  - context: context.Context
  - comic: *Comic (Updated in place)
  - actor: Actor

Returns:
  - error: Storage failures
*/
func (gate *Gate) Claim(context context.Context, comic *Comic, actor Actor) error {
	won, err := gate.repository.ClaimOwner(context, comic.ID, actor.ID)
	if err != nil {
		return err
	}

	if won {
		comic.UploaderID = actor.ID
		ctxutil.LoggerOr(context, gate.logger).Info("comic_ownership_claimed",
			slog.String("comic_id", comic.ID),
			slog.String("uploader_id", actor.ID),
		)
		return nil
	}

	current, err := gate.repository.Get(context, comic.ID)
	if err != nil {
		return err
	}
	comic.UploaderID = current.UploaderID

	return nil
}

func (gate *Gate) deny(context context.Context, actor Actor, comicID string, action Action) error {
	ctxutil.LoggerOr(context, gate.logger).Warn("comic_access_denied",
		slog.String("actor_id", actor.ID),
		slog.String("comic_id", comicID),
		slog.String("action", string(action)),
	)
	return apperr.Forbidden(forbiddenMessage(action))
}

func forbiddenMessage(action Action) string {
	switch action {
	case ActionCreateComic:
		return "Only uploaders and admins can create comics"
	case ActionUpdateComic:
		return "Not allowed to update this comic"
	case ActionDeleteComic:
		return "Not allowed to delete this comic"
	case ActionAddChapter:
		return "Not allowed to add chapters to this comic"
	case ActionUpdateChapter:
		return "Not allowed to update chapters of this comic"
	case ActionDeleteChapter:
		return "Not allowed to delete chapters of this comic"
	}
	return fmt.Sprintf("Not allowed to %s", action)
}
