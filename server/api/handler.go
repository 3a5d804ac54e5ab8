package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/livecue/capture"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/response"
	"github.com/kbukum/livecue/server"
	"github.com/kbukum/livecue/session"
	"github.com/kbukum/livecue/sse"
	"github.com/kbukum/livecue/transcript"
)

// Capture is the capture controller surface the routes drive.
type Capture interface {
	Start(ctx context.Context) error
	Stop()
	Clear()
	Status() capture.View
}

// Transcript exposes the pending transcript.
type Transcript interface {
	CurrentText() transcript.Projection
}

// Orchestrator is the submit surface the routes drive.
type Orchestrator interface {
	Submit(ctx context.Context) (*session.Submission, error)
	Cancel() bool
	InFlight() bool
	State() response.State
}

// Handler serves the control routes.
type Handler struct {
	capture    Capture
	transcript Transcript
	orch       Orchestrator
	hub        *sse.Hub
	log        *logger.Logger
}

// New creates a Handler. log defaults to the "api" logger.
func New(c Capture, t Transcript, o Orchestrator, hub *sse.Hub, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Get("api")
	}
	return &Handler{capture: c, transcript: t, orch: o, hub: hub, log: log}
}

// EventsPath is the event stream route.
const EventsPath = "/api/events"

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api")
	g.POST("/capture/start", h.startCapture)
	g.POST("/capture/stop", h.stopCapture)
	g.POST("/capture/clear", h.clearCapture)
	g.POST("/submit", h.submit)
	g.POST("/submit/cancel", h.cancel)
	g.GET("/state", h.state)
	g.GET("/events", h.events)
}

// SubmitResult is the body of an accepted submit.
type SubmitResult struct {
	RequestID uint64 `json:"request_id"`
	Input     string `json:"input"`
}

// CancelResult reports whether a request was in flight.
type CancelResult struct {
	Canceled bool `json:"canceled"`
}

// StateView is the full snapshot a client renders on load.
type StateView struct {
	Capture    capture.View          `json:"capture"`
	Transcript sse.TranscriptPayload `json:"transcript"`
	Response   sse.ResponsePayload   `json:"response"`
	InFlight   bool                  `json:"in_flight"`
}

func (h *Handler) startCapture(c *gin.Context) {
	if err := h.capture.Start(c.Request.Context()); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.capture.Status())
}

func (h *Handler) stopCapture(c *gin.Context) {
	h.capture.Stop()
	server.RespondOK(c, h.capture.Status())
}

func (h *Handler) clearCapture(c *gin.Context) {
	h.capture.Clear()
	server.RespondOK(c, h.capture.Status())
}

func (h *Handler) submit(c *gin.Context) {
	sub, err := h.orch.Submit(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, SubmitResult{RequestID: sub.ID, Input: sub.Input})
}

func (h *Handler) cancel(c *gin.Context) {
	server.RespondOK(c, CancelResult{Canceled: h.orch.Cancel()})
}

func (h *Handler) state(c *gin.Context) {
	pr := h.transcript.CurrentText()
	server.RespondOK(c, StateView{
		Capture:    h.capture.Status(),
		Transcript: sse.TranscriptPayload{Final: pr.Final, Interim: pr.Interim},
		Response:   sse.ResponsePayloadOf(h.orch.State(), ""),
		InFlight:   h.orch.InFlight(),
	})
}

// events streams hub events. ?topics=a,b narrows the feed; ?client_id
// lets a reconnecting client replace its previous stream.
func (h *Handler) events(c *gin.Context) {
	id := c.Query("client_id")
	if id == "" {
		id = uuid.NewString()
	}
	var opts []sse.ClientOption
	if t := topics(c.Query("topics")); len(t) > 0 {
		opts = append(opts, sse.WithTopics(t...))
	}
	h.log.Debug("event stream opened", logger.Fields("client_id", id))
	sse.ServeSSE(h.hub, c.Writer, c.Request, id, opts...)
	h.log.Debug("event stream closed", logger.Fields("client_id", id))
}

func topics(q string) []string {
	var out []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
