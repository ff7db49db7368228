// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr classifies low-level PostgreSQL errors into [apperr.AppError] values.
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/comicverse/internal/platform/apperr"
)

// SQLSTATE codes the stores react to.
const (
	codeUniqueViolation  = "23505"
	codeInvalidTextValue = "22P02"
)

// Wrap inspects a database error and maps it onto the application taxonomy.
//
//   - no rows:          NotFound(resource)
//   - unique violation: Conflict
//   - invalid text:     NotFound(resource), a malformed uuid never resolves
//   - anything else:    Internal, cause kept for logging
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Conflict(resource + " already exists").WithCause(err)
		case codeInvalidTextValue:
			return apperr.NotFound(resource)
		}
	}

	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
