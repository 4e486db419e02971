// server/http/handlers.go
package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/mindmaps/server/config"
	"github.com/mindmaps/server/domain"
	"github.com/mindmaps/server/llm"
	"github.com/mindmaps/server/mindmap"
)

const streamTimeout = 2 * time.Minute

type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	applier *mindmap.Applier
	client  llm.Completer // nil when no credentials are configured
	planner *llm.Planner
	patcher *llm.PatchProposer
	suggest *llm.Suggester
}

func NewServer(cfg *config.Config, log zerolog.Logger, client llm.Completer, applier *mindmap.Applier) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		applier: applier,
		client:  client,
		planner: llm.NewPlanner(client, log),
		patcher: llm.NewPatchProposer(client, log),
		suggest: llm.NewSuggester(client, log),
	}
}

func (s *Server) Register(app *fiber.App) {
	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/chat/stream", s.handleChatStream)
	api.Post("/nodes/suggest", s.handleSuggestTitles)
	api.Post("/nodes/expand", s.handleExpandNode)
	api.Post("/map/propose-patch", s.handleProposePatch)
	api.Post("/agent/plan", s.handlePlan)
	api.Post("/agent/apply", s.handleApply)
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Mindmaps API is running!"})
}

var startTime = time.Now()

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"uptime": time.Since(startTime).String(),
	})
}

// upstreamReady gates the endpoints that hard-fail without credentials.
// suggest/expand never call it; they fall back instead. FallbackAll lifts
// the asymmetry by letting every endpoint degrade.
func (s *Server) upstreamReady() bool {
	return s.client != nil || s.cfg.FallbackAll
}

func (s *Server) handleApply(c *fiber.Ctx) error {
	var req struct {
		Map         *domain.MindMap    `json:"map"`
		BaseVersion int64              `json:"baseVersion"`
		Operations  []domain.Operation `json:"operations"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Map == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "map is required"})
	}

	updated, results, err := s.applier.Apply(req.Map, req.BaseVersion, req.Operations)
	var conflict *mindmap.VersionConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":    "version conflict",
			"expected": conflict.Expected,
			"actual":   conflict.Actual,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"map": updated, "results": results})
}

func (s *Server) handlePlan(c *fiber.Ctx) error {
	var req struct {
		Instruction string          `json:"instruction"`
		Map         *domain.MindMap `json:"map"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Instruction == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instruction is required"})
	}
	if !s.upstreamReady() {
		return s.llmNotConfigured(c)
	}

	plan := s.planner.Plan(c.UserContext(), req.Instruction, req.Map)
	return c.JSON(fiber.Map{
		"planId":     uuid.NewString(),
		"operations": plan.Operations,
		"summary":    plan.Summary,
	})
}

func (s *Server) handleProposePatch(c *fiber.Ctx) error {
	var req struct {
		Instruction string          `json:"instruction"`
		Map         *domain.MindMap `json:"map"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Instruction == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instruction is required"})
	}
	if !s.upstreamReady() {
		return s.llmNotConfigured(c)
	}

	proposal := s.patcher.Propose(c.UserContext(), req.Instruction, req.Map)
	return c.JSON(fiber.Map{
		"patch":   proposal.Patch,
		"summary": proposal.Summary,
	})
}

func (s *Server) handleSuggestTitles(c *fiber.Ctx) error {
	var req struct {
		Topic string `json:"topic"`
		Count int    `json:"count"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	titles := s.suggest.SuggestTitles(c.UserContext(), req.Topic, req.Count)
	return c.JSON(fiber.Map{"suggestions": titles})
}

func (s *Server) handleExpandNode(c *fiber.Ctx) error {
	var req struct {
		NodeTitle string          `json:"nodeTitle"`
		Map       *domain.MindMap `json:"map"`
		Count     int             `json:"count"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.NodeTitle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "nodeTitle is required"})
	}

	children := s.suggest.ExpandNode(c.UserContext(), req.NodeTitle, req.Map, req.Count)
	return c.JSON(fiber.Map{"children": children})
}

func (s *Server) handleChatStream(c *fiber.Ctx) error {
	var req struct {
		Message string          `json:"message"`
		Map     *domain.MindMap `json:"map"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}
	if !s.upstreamReady() {
		return s.llmNotConfigured(c)
	}

	prompt := req.Message
	if req.Map != nil {
		prompt = fmt.Sprintf("The user is editing this mind map:\n\n%s\n\n%s", llm.MapDigest(req.Map), req.Message)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	client := s.client
	log := s.log
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The request context is gone once the handler returns; the
		// stream gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
		defer cancel()

		if client == nil {
			writeSSE(w, "The assistant is not configured on this server.")
			writeDone(w)
			return
		}

		err := client.Stream(ctx, prompt, func(chunk string) error {
			return writeSSE(w, chunk)
		})
		if err != nil {
			log.Warn().Err(err).Msg("chat stream failed")
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
		}
		writeDone(w)
	}))
	return nil
}

// writeSSE frames one token as an SSE data event. The payload is JSON so
// chunks containing newlines survive the framing.
func writeSSE(w *bufio.Writer, chunk string) error {
	payload, err := json.Marshal(fiber.Map{"delta": chunk})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeDone(w *bufio.Writer) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	w.Flush()
}

func (s *Server) llmNotConfigured(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "llm provider not configured (set OPENAI_API_KEY)",
	})
}
