package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wisslab/wissrank/internal/queue"
	"github.com/wisslab/wissrank/internal/server/middleware"
	"github.com/wisslab/wissrank/internal/util"
	"github.com/wisslab/wissrank/pkg/rank"
	"github.com/wisslab/wissrank/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// CreateRunHandler prepares a ranking run against an existing snapshot and
// enqueues it for a worker. The run configuration starts from the defaults;
// the body only has to carry the concept and any overrides.
func CreateRunHandler(c echo.Context) error {
	type createRunBody struct {
		SnapshotID string `json:"snapshot_id" validate:"required"`

		ConceptText   string    `json:"concept_text"`
		ConceptVector []float32 `json:"concept_vector"`

		EraStart string `json:"era_start"`
		EraEnd   string `json:"era_end"`

		Weights  *rank.Weights `json:"weights"`
		EmbedDim int           `json:"embed_dim"`
	}

	type createRunResponse struct {
		Message string     `json:"message"`
		Run     *store.Run `json:"run,omitempty"`
	}

	body := new(createRunBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: "Invalid request body",
		})
	}

	cfg := rank.DefaultConfig()
	cfg.ConceptText = body.ConceptText
	cfg.ConceptVector = body.ConceptVector
	cfg.EmbedDim = body.EmbedDim
	if cfg.EmbedDim == 0 {
		cfg.EmbedDim = int(util.GetEnvNumeric("AI_EMBED_DIM", 1536))
	}
	if body.Weights != nil {
		cfg.Weights = *body.Weights
	}
	if body.EraStart != "" {
		start, err := time.Parse("2006-01-02", body.EraStart)
		if err != nil {
			return c.JSON(http.StatusBadRequest, createRunResponse{
				Message: "Invalid era_start date",
			})
		}
		cfg.EraStart = start
	}
	if body.EraEnd != "" {
		end, err := time.Parse("2006-01-02", body.EraEnd)
		if err != nil {
			return c.JSON(http.StatusBadRequest, createRunResponse{
				Message: "Invalid era_end date",
			})
		}
		cfg.EraEnd = end
	}

	if err := cfg.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, createRunResponse{
			Message: err.Error(),
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	snapshots, err := app.Storage.ListSnapshots(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createRunResponse{
			Message: "Internal server error",
		})
	}
	known := false
	for _, s := range snapshots {
		if s.ID == body.SnapshotID {
			known = true
			break
		}
	}
	if !known {
		return c.JSON(http.StatusNotFound, createRunResponse{
			Message: "Snapshot not found",
		})
	}

	run, err := app.Storage.CreateRun(ctx, body.SnapshotID, cfg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createRunResponse{
			Message: "Internal server error",
		})
	}

	queueData := queue.QueueRankMsg{
		Message: "Execute ranking run",
		RunID:   run.ID,
	}
	msgBytes, err := json.Marshal(queueData)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createRunResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.RankQueue, msgBytes); err != nil {
		return c.JSON(http.StatusInternalServerError, createRunResponse{
			Message: "Failed to enqueue run",
		})
	}

	return c.JSON(http.StatusCreated, createRunResponse{
		Message: "Run created",
		Run:     &run,
	})
}
