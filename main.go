// server/main.go
package main

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/mindmaps/server/config"
	httphandlers "github.com/mindmaps/server/http"
	"github.com/mindmaps/server/llm"
	"github.com/mindmaps/server/mindmap"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var client llm.Completer
	if cfg.HasCredentials() {
		c, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build llm client")
		}
		client = c
		log.Info().Str("model", cfg.OpenAIModel).Msg("llm client ready")
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set; suggestion endpoints will use canned fallbacks")
	}

	app := fiber.New(fiber.Config{
		AppName:               "mindmaps-api",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept",
	}))

	applier := mindmap.NewApplier(mindmap.NewTimestampIDs(), log)
	server := httphandlers.NewServer(cfg, log, client, applier)
	server.Register(app)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
