package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/es"
	"github.com/velmark/soundwave/internal/util"
)

type SearchHandler struct {
	Index *es.SongIndex
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, results, err := h.Index.Search(c.Request().Context(), q, from, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "search failure")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "songs": results})
}
