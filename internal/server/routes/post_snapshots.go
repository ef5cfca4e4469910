package routes

import (
	"encoding/json"
	"net/http"

	"github.com/wisslab/wissrank/internal/queue"
	"github.com/wisslab/wissrank/internal/server/middleware"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateSnapshotHandler registers a new snapshot and enqueues a crawl job
// filling it from Wikidata. The crawl runs asynchronously on a worker;
// clients poll GET /snapshots for progress.
func CreateSnapshotHandler(c echo.Context) error {
	type createSnapshotBody struct {
		SnapshotID  string   `json:"snapshot_id"`
		Occupations []string `json:"occupations"`
	}

	type createSnapshotResponse struct {
		Message    string `json:"message"`
		SnapshotID string `json:"snapshot_id,omitempty"`
	}

	body := new(createSnapshotBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, createSnapshotResponse{
			Message: "Invalid request body",
		})
	}

	snapshotID := body.SnapshotID
	if snapshotID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createSnapshotResponse{
				Message: "Internal server error",
			})
		}
		snapshotID = id
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if err := app.Storage.CreateSnapshot(ctx, snapshotID); err != nil {
		return c.JSON(http.StatusInternalServerError, createSnapshotResponse{
			Message: "Internal server error",
		})
	}

	queueData := queue.QueueCrawlMsg{
		Message:     "Crawl snapshot",
		SnapshotID:  snapshotID,
		Occupations: body.Occupations,
	}
	msgBytes, err := json.Marshal(queueData)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createSnapshotResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.CrawlQueue, msgBytes); err != nil {
		return c.JSON(http.StatusInternalServerError, createSnapshotResponse{
			Message: "Failed to enqueue crawl job",
		})
	}

	return c.JSON(http.StatusCreated, createSnapshotResponse{
		Message:    "Snapshot created, crawl enqueued",
		SnapshotID: snapshotID,
	})
}
