package chat

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
)

// Chat endpoints. These carry the versioned prefix themselves - the
// assistant surface is versioned independently of the storefront REST
// routes.
const (
	streamPath = "/api/v1/chat"
	simplePath = "/api/v1/chat/simple"
)

// apology replaces the in-progress reply when a send or read fails.
// There is no automatic retry; the user resubmits.
const apology = "Sorry, I ran into a problem answering that. Please try again."

// Chunk is one decoded piece of a streamed reply
type Chunk struct {
	Content string
	Index   int
}

// StreamCallback observes each appended chunk. Returning a non-nil
// error stops the stream; whatever arrived so far stands as the reply.
type StreamCallback func(chunk Chunk) error

// message is the wire shape of one history turn
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the body sent to the chat endpoints
type chatRequest struct {
	Message string    `json:"message"`
	History []message `json:"history,omitempty"`
}

// Consumer streams assistant replies into a transcript. Exactly one
// send may be in flight per consumer; the UI disables submission while
// a reply is streaming and a concurrent Send returns ErrStreamInFlight.
type Consumer struct {
	gateway    *api.Client
	transcript *Transcript
	window     int
	logger     core.Logger
	telemetry  core.Telemetry

	inFlight atomic.Bool
}

// NewConsumer creates a consumer over the gateway. cfg.HistoryWindow
// bounds how many prior turns accompany each message.
func NewConsumer(gateway *api.Client, cfg core.ChatConfig, logger core.Logger, telemetry core.Telemetry) *Consumer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}
	return &Consumer{
		gateway:    gateway,
		transcript: NewTranscript(),
		window:     cfg.HistoryWindow,
		logger:     logger,
		telemetry:  telemetry,
	}
}

// Transcript returns the consumer's transcript
func (c *Consumer) Transcript() *Transcript {
	return c.transcript
}

// Streaming reports whether a reply is currently in flight
func (c *Consumer) Streaming() bool {
	return c.inFlight.Load()
}

// Send posts the message with a bounded trailing window of prior turns
// and consumes the streamed reply, appending each decoded chunk to the
// in-progress assistant entry and invoking callback per chunk with no
// batching. The final entry is returned with Streaming=false.
//
// On any send or read failure the in-progress entry's content is
// replaced with a fixed apologetic message and marked as an error.
// Cancellation is the exception: the stream is abandoned without
// touching the entry's content, and nothing is published afterward.
func (c *Consumer) Send(ctx context.Context, text string, callback StreamCallback) (Entry, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Entry{}, core.NewClientError("chat.Send", "chat", core.ErrStreamInFlight)
	}
	defer c.inFlight.Store(false)

	ctx, span := c.telemetry.StartSpan(ctx, "chat.send")
	defer span.End()
	span.SetAttribute("chat.message_length", len(text))

	userID := c.transcript.append(RoleUser, text, false)
	replyID := c.transcript.append(RoleAssistant, "", true)

	req, err := c.gateway.NewRequest(ctx, http.MethodPost, streamPath, chatRequest{
		Message: text,
		History: c.history(userID, replyID),
	})
	if err != nil {
		span.RecordError(err)
		return c.fail(replyID, err)
	}

	resp, err := c.gateway.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			return c.abandon(replyID, ctx.Err())
		}
		c.logger.Error("Chat request failed - send error", map[string]interface{}{
			"operation": "chat_send",
			"error":     err.Error(),
		})
		return c.fail(replyID, &core.ClientError{Op: "chat.Send", Kind: "transport", Err: core.ErrConnectionFailed, Message: err.Error()})
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := c.gateway.HandleError("chat.Send", resp.StatusCode, body)
		span.RecordError(apiErr)
		span.SetAttribute("http.status_code", resp.StatusCode)
		return c.fail(replyID, apiErr)
	}

	// Decode chunks as they arrive. Content is rebuilt from the full
	// byte accumulation on every chunk, so a multi-byte rune split
	// across reads heals once its remainder arrives.
	var full strings.Builder
	buf := make([]byte, 1024)
	chunkIndex := 0

	for {
		if ctx.Err() != nil {
			return c.abandon(replyID, ctx.Err())
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			full.Write(buf[:n])
			c.transcript.setContent(replyID, full.String())
			span.SetAttribute("chat.chunks", chunkIndex+1)

			if callback != nil {
				chunk := Chunk{Content: string(buf[:n]), Index: chunkIndex}
				if cbErr := callback(chunk); cbErr != nil {
					// Callback requested stop; keep what arrived
					c.transcript.finalize(replyID, false)
					entry, _ := c.transcript.get(replyID)
					return entry, nil
				}
			}
			chunkIndex++
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			span.RecordError(err)
			if ctx.Err() != nil {
				return c.abandon(replyID, ctx.Err())
			}
			c.logger.Error("Chat stream read failed", map[string]interface{}{
				"operation": "chat_read",
				"error":     err.Error(),
			})
			return c.fail(replyID, &core.ClientError{Op: "chat.Send", Kind: "transport", Message: "error reading stream", Err: err})
		}
	}

	c.transcript.finalize(replyID, false)
	entry, _ := c.transcript.get(replyID)

	c.logger.Debug("Chat reply complete", map[string]interface{}{
		"operation":    "chat_send",
		"chunks":       chunkIndex,
		"reply_length": len(entry.Content),
	})
	return entry, nil
}

// SendSimple posts the message to the non-streaming endpoint and
// appends the complete reply in one step.
func (c *Consumer) SendSimple(ctx context.Context, text string) (Entry, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Entry{}, core.NewClientError("chat.SendSimple", "chat", core.ErrStreamInFlight)
	}
	defer c.inFlight.Store(false)

	userID := c.transcript.append(RoleUser, text, false)
	replyID := c.transcript.append(RoleAssistant, "", true)

	var payload struct {
		Response string `json:"response"`
	}
	err := c.gateway.Do(ctx, http.MethodPost, simplePath, chatRequest{
		Message: text,
		History: c.history(userID, replyID),
	}, &payload)
	if err != nil {
		if ctx.Err() != nil {
			return c.abandon(replyID, ctx.Err())
		}
		return c.fail(replyID, err)
	}

	c.transcript.setContent(replyID, payload.Response)
	c.transcript.finalize(replyID, false)
	entry, _ := c.transcript.get(replyID)
	return entry, nil
}

// history collects the trailing window of turns preceding this send.
// The new user message and its placeholder are excluded - the message
// travels in the message field, not in history.
func (c *Consumer) history(userID, replyID string) []message {
	window := c.transcript.window(c.window, userID, replyID)
	history := make([]message, 0, len(window))
	for _, e := range window {
		history = append(history, message{Role: e.Role, Content: e.Content})
	}
	return history
}

// fail replaces the placeholder with the apology and marks it an error
func (c *Consumer) fail(replyID string, err error) (Entry, error) {
	c.transcript.setContent(replyID, apology)
	c.transcript.finalize(replyID, true)
	entry, _ := c.transcript.get(replyID)
	return entry, err
}

// abandon stops the stream on cancellation without rewriting content
func (c *Consumer) abandon(replyID string, err error) (Entry, error) {
	c.transcript.finalize(replyID, false)
	entry, _ := c.transcript.get(replyID)
	return entry, err
}
