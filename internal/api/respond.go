package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"carrental/internal/auth"
	"carrental/internal/db"
	apperrors "carrental/internal/errors"
)

const (
	maxRequestBody   = 1 << 20
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {"error": "..."} and the status mapped from err.
// Server-side failures are logged with their full cause.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	httpErr := apperrors.FromError(err)
	if httpErr.Code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, httpErr.Code, map[string]string{"error": httpErr.Message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.ErrBadRequestHTTP("request body is required")
		}
		return apperrors.ErrBadRequestHTTP("invalid request body: " + err.Error())
	}
	return nil
}

// caller returns the authenticated user id and whether it is an admin.
func caller(r *http.Request) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.Subject, claims.Role == db.RoleAdmin
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ErrBadRequestHTTP("invalid " + key)
	}
	return n, nil
}

func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.ErrBadRequestHTTP("invalid " + key)
	}
	return f, nil
}

// pageParams reads page and limit query parameters into limit and offset.
// The limit is clamped before the offset is derived from it.
func pageParams(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	pageNum, err := queryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	if pageNum < 1 {
		pageNum = 1
	}
	return limit, (pageNum - 1) * limit, nil
}
