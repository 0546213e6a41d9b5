package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// pageWindow reads limit/offset query parameters, clamping anything
// absent or out of range to safe defaults.
func pageWindow(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	offset, _ = strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
