package handler

import (
	"net/http"
	"strconv"

	"chronicle/internal/timeline/models"
	dErrors "chronicle/pkg/domain-errors"
)

// parseListFilter builds a ListFilter from query parameters. Unknown
// parameters are ignored; malformed ones are rejected.
func parseListFilter(r *http.Request) (*models.ListFilter, error) {
	q := r.URL.Query()
	filter := &models.ListFilter{
		Location: q.Get("location"),
		Query:    q.Get("q"),
	}

	var err error
	if filter.Year, err = intParam(q.Get("year"), "year"); err != nil {
		return nil, err
	}
	if filter.StartYearFrom, err = intParam(q.Get("start_year_from"), "start_year_from"); err != nil {
		return nil, err
	}
	if filter.StartYearTo, err = intParam(q.Get("start_year_to"), "start_year_to"); err != nil {
		return nil, err
	}

	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid status filter")
		}
		filter.Status = &status
	}

	if limit, err := intParam(q.Get("limit"), "limit"); err != nil {
		return nil, err
	} else if limit != nil {
		filter.Limit = *limit
	}
	if offset, err := intParam(q.Get("offset"), "offset"); err != nil {
		return nil, err
	} else if offset != nil {
		filter.Offset = *offset
	}

	return filter, nil
}

func intParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+name+" parameter")
	}
	return &value, nil
}
