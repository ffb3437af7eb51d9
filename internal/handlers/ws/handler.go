package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	combatorch "github.com/KirkDiggler/combat-api/internal/orchestrators/combat"
)

const (
	writeWait      = 5 * time.Second
	readWait       = 120 * time.Second
	handshakeWait  = 10 * time.Second
	outboundBuffer = 64
)

// HandlerConfig holds the gateway's dependencies
type HandlerConfig struct {
	Service    combatorch.Service
	Subscriber events.Subscriber
}

// Validate ensures all required dependencies are provided
func (c *HandlerConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Service == nil {
		vb.RequiredField("Service")
	}
	if c.Subscriber == nil {
		vb.RequiredField("Subscriber")
	}
	return vb.Build()
}

// Handler upgrades connections and speaks the combat protocol
type Handler struct {
	svc      combatorch.Service
	sub      events.Subscriber
	upgrader websocket.Upgrader
}

// NewHandler creates the gateway handler
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Handler{
		svc: cfg.Service,
		sub: cfg.Subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// session is one connected controller
type session struct {
	controllerID string
	out          chan any

	// subscribed tracks active event forwarders by combat id
	mu         sync.Mutex
	subscribed map[string]context.CancelFunc
}

// ServeHTTP upgrades the connection and runs the session to completion
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	sess, ok := h.handshake(conn)
	if !ok {
		return
	}
	slog.Info("controller connected", "controller_id", sess.controllerID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer sess.closeSubscriptions()

	go h.writeLoop(ctx, cancel, conn, sess)
	h.readLoop(ctx, conn, sess)
	slog.Info("controller disconnected", "controller_id", sess.controllerID)
}

// handshake expects a HELLO frame and binds the controller id
func (h *Handler) handshake(conn *websocket.Conn) (*session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))
	var in Inbound
	if err := conn.ReadJSON(&in); err != nil {
		return nil, false
	}
	if in.Type != MsgHello {
		h.closeWith(conn, "expected HELLO")
		return nil, false
	}
	var hello Hello
	if err := unmarshalPayload(in.Payload, &hello); err != nil {
		h.closeWith(conn, "malformed HELLO")
		return nil, false
	}
	if hello.ProtocolVersion != protocolVersion {
		h.closeWith(conn, "unsupported protocol version")
		return nil, false
	}
	if hello.ControllerID == "" {
		h.closeWith(conn, "controllerId is required")
		return nil, false
	}

	sess := &session{
		controllerID: hello.ControllerID,
		out:          make(chan any, outboundBuffer),
		subscribed:   make(map[string]context.CancelFunc),
	}
	sess.out <- &Welcome{
		Type:            FrameWelcome,
		ProtocolVersion: protocolVersion,
		ControllerID:    hello.ControllerID,
	}
	return sess, true
}

func (h *Handler) closeWith(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// writeLoop owns all writes to the connection
func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *session) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sess.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				cancel()
				return
			}
		}
	}
}

// readLoop decodes commands and routes them. A malformed frame gets an
// explicit REJECTED reply, not a silent drop; only transport errors end the
// session.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if in.Type == "" {
			sess.reject(in.RequestID, errors.InvalidArgument("message type is required"))
			continue
		}
		h.route(ctx, sess, &in)
	}
}

// reject sends an explicit rejection frame
func (s *session) reject(requestID string, err error) {
	s.send(&Rejected{
		Type:      FrameRejected,
		RequestID: requestID,
		Code:      string(errors.GetCode(err)),
		Message:   errors.GetMessage(err),
	})
}

// result sends a successful command reply
func (s *session) result(requestID, msgType string, data any) {
	s.send(&Result{
		Type:      FrameResult,
		RequestID: requestID,
		MsgType:   msgType,
		Data:      data,
	})
}

// send never blocks the runner path: a client that cannot drain its buffer
// loses frames and is expected to re-sync
func (s *session) send(frame any) {
	select {
	case s.out <- frame:
	default:
		slog.Warn("dropping frame for slow consumer", "controller_id", s.controllerID)
	}
}

// subscribe opens the event stream for a combat, fronted by a STATE_SYNC
func (h *Handler) subscribe(ctx context.Context, sess *session, requestID, combatID string) {
	if combatID == "" {
		sess.reject(requestID, errors.InvalidArgument("combatId is required"))
		return
	}
	sess.mu.Lock()
	if _, dup := sess.subscribed[combatID]; dup {
		sess.mu.Unlock()
		sess.reject(requestID, errors.AlreadyExists("already subscribed to this combat"))
		return
	}
	subCtx, cancel := context.WithCancel(ctx)
	sess.subscribed[combatID] = cancel
	sess.mu.Unlock()

	feed, err := h.sub.Subscribe(subCtx, combatID)
	if err != nil {
		cancel()
		sess.reject(requestID, err)
		return
	}

	// Snapshot first so the client has a floor to apply deltas against
	state, err := h.svc.GetState(ctx, &combatorch.GetStateInput{CombatID: combatID})
	if err != nil {
		cancel()
		sess.reject(requestID, err)
		return
	}
	redactSnapshot(sess.controllerID, state.State)
	sess.send(&events.Event{
		Type:     events.TypeStateSync,
		CombatID: combatID,
		Sequence: state.State.EventSeq,
		At:       state.State.UpdatedAt,
		Payload:  &events.StateSync{State: state.State, Version: state.Version},
	})
	sess.result(requestID, MsgSubscribe, map[string]any{"combatId": combatID})

	go func() {
		defer cancel()
		for {
			select {
			case <-subCtx.Done():
				return
			case env, ok := <-feed:
				if !ok {
					return
				}
				sess.send(env)
			}
		}
	}()
}

func (sess *session) closeSubscriptions() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	for _, cancel := range sess.subscribed {
		cancel()
	}
	sess.subscribed = nil
}
