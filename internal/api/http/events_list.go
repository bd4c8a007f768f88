package http

import (
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"
)

// GET /events?after=0&limit=100
// Commit records for reporting tools, oldest first.
func ListEventsHandler(repo *syncx.EventRepo) http.HandlerFunc {
	type item struct {
		Offset    int64  `json:"offset"`
		Type      string `json:"type"`
		Key       string `json:"key"`
		Data      string `json:"data"`
		CreatedAt int64  `json:"created_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		after := int64(parseIntDefault(r.URL.Query().Get("after"), 0))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit > 500 {
			limit = 500
		}
		evs, err := repo.List(r.Context(), after, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]item, 0, len(evs))
		for _, e := range evs {
			out = append(out, item{Offset: e.Offset, Type: e.Type, Key: e.Key, Data: e.DataJSON, CreatedAt: e.CreatedAt})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
