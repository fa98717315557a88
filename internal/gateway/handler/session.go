package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"codelab/internal/curriculum"
	"codelab/internal/session"
)

// SessionStore is the part of session.Store the handlers use.
type SessionStore interface {
	Dispatch(ctx context.Context, a session.Action) (curriculum.SessionConfig, error)
	State() curriculum.SessionConfig
	Subscribe(ctx context.Context) <-chan curriculum.SessionConfig
}

type SessionHandler struct {
	store  SessionStore
	logger *slog.Logger
}

func NewSessionHandler(store SessionStore, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{store: store, logger: logger}
}

const maxDispatchBody = 4 << 20

type dispatchRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (h *SessionHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in dispatchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDispatchBody)).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	state, err := h.dispatch(r.Context(), in)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, state)
}

func (h *SessionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.store.State())
}

func (h *SessionHandler) dispatch(ctx context.Context, in dispatchRequest) (curriculum.SessionConfig, error) {
	a, err := session.DecodeAction(in.Type, in.Data)
	if err != nil {
		return curriculum.SessionConfig{}, err
	}
	return h.store.Dispatch(ctx, a)
}

// statusFor maps dispatch errors: bad requests are the caller's fault,
// acting on an unvisited exercise is a conflict with the current state.
func statusFor(err error) int {
	var malformed *curriculum.MalformedExerciseError
	switch {
	case errors.As(err, &malformed):
		return http.StatusInternalServerError
	case errors.Is(err, session.ErrNotMaterialized):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, session.ErrMissingPayload),
		errors.Is(err, curriculum.ErrIndexOutOfRange):
		return http.StatusBadRequest
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

const (
	stateWSWriteWait = 10 * time.Second
	stateWSPongWait  = 60 * time.Second
	stateWSPingEvery = (stateWSPongWait * 9) / 10
)

var stateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type stateWSOutbound struct {
	Type    string                    `json:"type"`
	State   *curriculum.SessionConfig `json:"state,omitempty"`
	Code    string                    `json:"code,omitempty"`
	Message string                    `json:"message,omitempty"`
}

// HandleStateWS streams the session state on every change. Frames sent by
// the client are dispatched as actions, except "ping".
func (h *SessionHandler) HandleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := stateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(stateWSPongWait)); err != nil {
		h.logger.Warn("state ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(stateWSPongWait))
	})

	writeCh := make(chan stateWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(stateWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	states := h.store.Subscribe(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				pushStateWS(writeCh, stateWSOutbound{Type: "state", State: &state})
			}
		}
	}()

	for {
		var in dispatchRequest
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		if strings.EqualFold(strings.TrimSpace(in.Type), "ping") {
			pushStateWS(writeCh, stateWSOutbound{Type: "pong"})
			continue
		}
		if _, err := h.dispatch(ctx, in); err != nil {
			pushStateWS(writeCh, stateWSOutbound{
				Type:    "error",
				Code:    http.StatusText(statusFor(err)),
				Message: err.Error(),
			})
		}
	}
}

// pushStateWS drops the oldest queued frame when the writer falls behind.
// States are full snapshots, so only the newest one matters.
func pushStateWS(writeCh chan stateWSOutbound, out stateWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
