package handlers

import (
	"net/http"
	"strconv"
)

// pagination reads page/pageSize query parameters, clamped to sane bounds.
func pagination(r *http.Request) (page, pageSize int) {

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err = strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	return page, pageSize
}
