package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/router"
	"github.com/math-agent/backend/pkg/logger"
)

type WebSocketHandler struct {
	orchestrator *router.Orchestrator
}

func NewWebSocketHandler(orchestrator *router.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator: orchestrator,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}

		logger.Info("Processing WebSocket query", zap.String("query", msg.Content))

		err = h.streamSolution(c, msg.Content)
		if err != nil {
			logger.Error("Failed to stream solution", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

// streamSolution processes the query, then streams the solution text word by
// word before a final "complete" frame with the envelope metadata. Rejected
// queries get a single error frame carrying the rejection message.
func (h *WebSocketHandler) streamSolution(c *websocket.Conn, queryText string) error {
	ctx := context.Background()

	if err := h.sendChunk(c, "status", "Processing query..."); err != nil {
		return err
	}

	envelope := h.orchestrator.ProcessQuery(ctx, queryText)

	if !envelope.Success {
		return c.WriteJSON(map[string]interface{}{
			"type":   "error",
			"error":  envelope.Error,
			"source": envelope.Source,
		})
	}

	words := splitIntoWords(envelope.Solution)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"source":     envelope.Source,
		"confidence": envelope.Confidence,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
