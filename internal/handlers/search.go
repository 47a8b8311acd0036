package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/logging"
	"github.com/bookly-project/bookly/internal/service/search"
	"github.com/bookly-project/bookly/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return apperr.ErrBadRequest
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	ctx := c.Request().Context()
	total, books, err := search.Search(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		logging.FromContext(ctx).Error("search failed", "error", err)
		return apperr.ErrInternal
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "books": books})
}
