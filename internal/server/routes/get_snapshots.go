package routes

import (
	"errors"
	"net/http"

	"github.com/wisslab/wissrank/internal/server/middleware"
	"github.com/wisslab/wissrank/pkg/snapshot"
	"github.com/wisslab/wissrank/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetSnapshotsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	snapshots, err := storage.ListSnapshots(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, snapshots)
}

func GetScholarsHandler(c echo.Context) error {
	type getScholarsParams struct {
		SnapshotID string `param:"id" validate:"required"`
	}

	params := new(getScholarsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	snap, _, err := storage.LoadSnapshot(ctx, params.SnapshotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Snapshot not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, snap.Persons())
}

func GetScholarHandler(c echo.Context) error {
	type getScholarParams struct {
		SnapshotID string `param:"id" validate:"required"`
		ScholarID  string `param:"scholar_id" validate:"required"`
	}

	type getScholarResponse struct {
		Message string           `json:"message"`
		Scholar *snapshot.Person `json:"scholar,omitempty"`
	}

	params := new(getScholarParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getScholarResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getScholarResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	storage := c.(*middleware.AppContext).App.Storage

	scholar, err := storage.GetPerson(ctx, params.SnapshotID, params.ScholarID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getScholarResponse{
				Message: "Scholar not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, getScholarResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getScholarResponse{
		Message: "Scholar found",
		Scholar: &scholar,
	})
}
