package routes

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/wisslab/wissrank/internal/server/middleware"
	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetRunsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	runs, err := storage.ListRuns(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, runs)
}

func GetRunHandler(c echo.Context) error {
	type getRunParams struct {
		RunID string `param:"id" validate:"required"`
	}

	type getRunResponse struct {
		Message string     `json:"message"`
		Run     *store.Run `json:"run,omitempty"`
	}

	params := new(getRunParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRunResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRunResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	run, err := storage.GetRun(ctx, params.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getRunResponse{
				Message: "Run not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, getRunResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getRunResponse{
		Message: "Run found",
		Run:     &run,
	})
}

func GetRankingHandler(c echo.Context) error {
	type getRankingParams struct {
		RunID  string `param:"id" validate:"required"`
		Format string `query:"format"`
	}

	params := new(getRankingParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	run, err := storage.GetRun(ctx, params.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if run.Status != store.RunStatusCompleted {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Run is not completed", "status": run.Status})
	}

	entries, err := storage.GetRanking(ctx, params.RunID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	if params.Format == "csv" {
		var buf bytes.Buffer
		if err := rank.WriteCSV(&buf, entries); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
	}

	return c.JSON(http.StatusOK, entries)
}

func GetDiagnosticsHandler(c echo.Context) error {
	type getDiagnosticsParams struct {
		RunID string `param:"id" validate:"required"`
	}

	params := new(getDiagnosticsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	diagnostics, err := storage.GetDiagnostics(ctx, params.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Run not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, diagnostics)
}
