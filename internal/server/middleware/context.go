package middleware

import (
	"github.com/wisslab/wissrank/internal/util"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/wisslab/wissrank/pkg/ai"
	oai "github.com/wisslab/wissrank/pkg/ai/ollama"
	gai "github.com/wisslab/wissrank/pkg/ai/openai"
	"github.com/wisslab/wissrank/pkg/logger"
	"github.com/wisslab/wissrank/pkg/store"
)

type App struct {
	DBConn       *pgxpool.Pool
	Queue        *amqp091.Channel
	Storage      store.RankStorage
	Embedder     ai.Embedder
	EmbedModel   string
	MasterAPIKey string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	storage store.RankStorage,
	masterAPIKey string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adapter := util.GetEnv("AI_ADAPTER")
			embedModel := util.GetEnv("AI_EMBED_MODEL")
			var embedder ai.Embedder

			switch adapter {
			case "ollama":
				client, err := oai.NewOllamaEmbedder(oai.NewOllamaEmbedderParams{
					Model:   embedModel,
					BaseURL: util.GetEnv("AI_EMBED_URL"),
					ApiKey:  util.GetEnv("AI_EMBED_KEY"),

					Dimensions:            int(util.GetEnvNumeric("AI_EMBED_DIM", 1024)),
					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
				if err != nil {
					logger.Fatal("Failed to create Ollama client", "err", err)
				}
				embedder = client
			default:
				embedder = gai.NewOpenAIEmbedder(gai.NewOpenAIEmbedderParams{
					Model:   embedModel,
					BaseURL: util.GetEnv("AI_EMBED_URL"),
					ApiKey:  util.GetEnv("AI_EMBED_KEY"),

					Dimensions:            int(util.GetEnvNumeric("AI_EMBED_DIM", 1536)),
					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
			}

			app := &App{
				DBConn:       db,
				Queue:        queue,
				Storage:      storage,
				Embedder:     embedder,
				EmbedModel:   embedModel,
				MasterAPIKey: masterAPIKey,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
