package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sig-0/kursrates/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

var (
	errUnableToFetchSummaries = errors.New("unable to fetch summaries")
	errUnableToFetchSources   = errors.New("unable to fetch sources")
	errSummaryNotFound        = errors.New("no summary found")

	errInvalidLimit  = errors.New("invalid limit")
	errInvalidOffset = errors.New("invalid offset")
	errInvalidRange  = errors.New("invalid range (from is after to)")
)

// Summaries returns the stored summaries, newest first
func (s *Server) Summaries(w http.ResponseWriter, r *http.Request) {
	var (
		fromParam   = r.URL.Query().Get("from")
		toParam     = r.URL.Query().Get("to")
		limitParam  = r.URL.Query().Get("limit")
		offsetParam = r.URL.Query().Get("offset")
		sourceParam = r.URL.Query().Get("source")
	)

	// Parse the time range (optional)
	from, err := parseTime("from", fromParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	to, err := parseTime("to", toParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	if from != nil && to != nil && from.After(*to) {
		writeError(w, http.StatusBadRequest, errInvalidRange)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(limitParam, offsetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.SummaryQuery{
		Source: parseSource(sourceParam),
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	}

	page, err := s.storage.Summaries(r.Context(), q)
	if err != nil {
		s.logger.Debug(
			"unable to fetch summaries",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSummaries,
		)

		return
	}

	if page == nil {
		page = &types.Page[*types.Summary]{}
	}

	if page.Results == nil {
		page.Results = []*types.Summary{}
	}

	writeJSON(w, http.StatusOK, page)
}

// LatestSummary returns the most recent summary captured at or before as_of
func (s *Server) LatestSummary(w http.ResponseWriter, r *http.Request) {
	var (
		asOfParam   = r.URL.Query().Get("as_of")
		sourceParam = r.URL.Query().Get("source")
	)

	// Parse the effective date (defaults to now)
	asOf, err := parseAsOf(asOfParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	summary, err := s.storage.LatestSummary(r.Context(), parseSource(sourceParam), asOf)
	if err != nil {
		s.logger.Debug(
			"unable to fetch latest summary",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSummaries,
		)

		return
	}

	if summary == nil {
		writeError(w, http.StatusNotFound, errSummaryNotFound)

		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	if items == nil {
		items = []types.Source{}
	}

	resp := &SourcesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseAsOf(asOfRaw string) (time.Time, error) {
	t, err := parseTime("as_of", asOfRaw)
	if err != nil {
		return time.Time{}, err
	}

	if t == nil {
		return time.Now().UTC(), nil // default is now
	}

	return *t, nil
}

// parseTime parses an optional RFC3339 query param
func parseTime(name, raw string) (*time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil //nolint:nilnil // valid case
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, errors.New("invalid " + name + " (must be RFC3339)")
	}

	t = t.UTC()

	return &t, nil
}

func parseLimitOffset(limitRaw, offsetRaw string) (int32, int64, error) {
	limit := defaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, errInvalidLimit
		}

		limit = int32(n)
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	var offset int64

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidOffset
		}

		offset = n
	}

	return limit, offset, nil
}

func parseSource(sourceRaw string) *types.Source {
	v := strings.TrimSpace(sourceRaw)
	if v == "" {
		return nil
	}

	src := types.Source(v)

	return &src
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
