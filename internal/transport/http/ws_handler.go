package http

import (
	"context"
	"encoding/json"
	"net/http"

	"flags-challenge/internal/app"
	"flags-challenge/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Engine is the part of the quiz engine the websocket bridge drives.
type Engine interface {
	Subscribe() (<-chan domain.State, func())
	ScheduleAt(hours, minutes, seconds int) bool
	SelectOption(index int)
	Reset()
	ResetAndReloadQuestions(ctx context.Context) error
	Suspend(ctx context.Context) error
}

var _ Engine = (*app.Engine)(nil)

type WSHandler struct {
	engine   Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine Engine, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type schedulePayload struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

type selectPayload struct {
	Index *int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and bridges it to the engine: every state change
// is pushed as a "state" message and inbound messages are mapped to engine actions.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("conn", uuid.NewString()))
	log.Info("client connected", zap.String("remote", r.RemoteAddr))
	defer log.Info("client disconnected")

	updates, cancel := h.engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.dispatch(r.Context(), inbound); !ok {
			if !enqueue(send, writerDone, msg) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound message. It returns an error message and false
// when the client should be told the request was not understood.
func (h *WSHandler) dispatch(ctx context.Context, inbound inboundMessage) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "schedule":
		var payload schedulePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid schedule payload"), false
		}
		h.engine.ScheduleAt(payload.Hours, payload.Minutes, payload.Seconds)
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Index == nil {
			return errorMessage("invalid select payload"), false
		}
		h.engine.SelectOption(*payload.Index)
	case "reset":
		h.engine.Reset()
	case "reload":
		if err := h.engine.ResetAndReloadQuestions(ctx); err != nil {
			return errorMessage(err.Error()), false
		}
	case "suspend":
		if err := h.engine.Suspend(ctx); err != nil {
			return errorMessage(err.Error()), false
		}
	default:
		return errorMessage("unsupported message type"), false
	}
	return outboundMessage[any]{}, true
}

// enqueue hands msg to the writer. It reports false once the writer has exited.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
