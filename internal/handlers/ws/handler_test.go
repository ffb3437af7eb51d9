package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/combat-api/internal/content"
	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/handlers/ws"
	combatorch "github.com/KirkDiggler/combat-api/internal/orchestrators/combat"
	"github.com/KirkDiggler/combat-api/internal/pkg/idgen"
	"github.com/KirkDiggler/combat-api/internal/pkg/roller"
	combatrepo "github.com/KirkDiggler/combat-api/internal/repositories/combat"
	"github.com/KirkDiggler/combat-api/internal/testutils"
)

// frame is the union of every outbound frame shape, decoded loosely
type frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	MsgType   string          `json:"msgType"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	CombatID  string          `json:"combatId"`
	Sequence  int64           `json:"sequence"`
	Payload   json.RawMessage `json:"payload"`
}

type WSHandlerTestSuite struct {
	suite.Suite
	server *httptest.Server
	orch   *combatorch.Orchestrator
	conn   *websocket.Conn
}

func (s *WSHandlerTestSuite) SetupTest() {
	tables, err := content.Default()
	s.Require().NoError(err)

	bus := events.NewBus()
	orch, err := combatorch.NewOrchestrator(&combatorch.Config{
		Repository:  combatrepo.NewInMemory(),
		Publisher:   bus,
		Content:     tables,
		IDGenerator: idgen.NewSequential("id"),
		Roller:      roller.NewSequence(10),
	})
	s.Require().NoError(err)
	s.orch = orch

	handler, err := ws.NewHandler(&ws.HandlerConfig{Service: orch, Subscriber: bus})
	s.Require().NoError(err)
	s.server = httptest.NewServer(handler)
}

func (s *WSHandlerTestSuite) TearDownTest() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.server.Close()
	s.orch.Close()
}

func (s *WSHandlerTestSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.conn = conn
	return conn
}

func (s *WSHandlerTestSuite) connect(controllerID string) *websocket.Conn {
	conn := s.dial()
	s.sendRaw(conn, map[string]any{
		"type":    "HELLO",
		"payload": map[string]any{"protocolVersion": 1, "controllerId": controllerID},
	})
	welcome := s.read(conn)
	s.Require().Equal("WELCOME", welcome.Type)
	return conn
}

func (s *WSHandlerTestSuite) sendRaw(conn *websocket.Conn, msg map[string]any) {
	s.Require().NoError(conn.WriteJSON(msg))
}

func (s *WSHandlerTestSuite) send(conn *websocket.Conn, msgType, requestID, combatID string, payload any) {
	msg := map[string]any{"type": msgType, "requestId": requestID}
	if combatID != "" {
		msg["combatId"] = combatID
	}
	if payload != nil {
		msg["payload"] = payload
	}
	s.sendRaw(conn, msg)
}

func (s *WSHandlerTestSuite) read(conn *websocket.Conn) *frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var f frame
	s.Require().NoError(conn.ReadJSON(&f))
	return &f
}

// readUntil drains frames until one of the wanted type arrives; event
// stream frames interleave with command replies
func (s *WSHandlerTestSuite) readUntil(conn *websocket.Conn, frameType string) *frame {
	for i := 0; i < 20; i++ {
		f := s.read(conn)
		if f.Type == frameType {
			return f
		}
	}
	s.Require().FailNowf("frame never arrived", "wanted %s", frameType)
	return nil
}

func (s *WSHandlerTestSuite) createCombat(conn *websocket.Conn) string {
	s.send(conn, "CREATE_COMBAT", "req-create", "", map[string]any{"campaignId": "campaign-1"})
	result := s.readUntil(conn, "RESULT")
	s.Require().Equal("req-create", result.RequestID)

	var out combatorch.CreateCombatOutput
	s.Require().NoError(json.Unmarshal(result.Data, &out))
	s.Require().NotEmpty(out.State.CombatID)
	return out.State.CombatID
}

func (s *WSHandlerTestSuite) TestHandshakeRejectsWrongFirstFrame() {
	conn := s.dial()
	s.sendRaw(conn, map[string]any{"type": "GET_STATE"})

	var f frame
	err := conn.ReadJSON(&f)
	s.Require().Error(err, "the connection closes without a HELLO")
	s.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func (s *WSHandlerTestSuite) TestHandshakeRejectsWrongProtocolVersion() {
	conn := s.dial()
	s.sendRaw(conn, map[string]any{
		"type":    "HELLO",
		"payload": map[string]any{"protocolVersion": 99, "controllerId": "gm"},
	})

	var f frame
	err := conn.ReadJSON(&f)
	s.Require().Error(err)
	s.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func (s *WSHandlerTestSuite) TestCommandRoundTrip() {
	conn := s.connect(combatent.ControllerGM)
	combatID := s.createCombat(conn)

	s.send(conn, "GET_STATE", "req-state", combatID, nil)
	result := s.readUntil(conn, "RESULT")
	s.Equal("req-state", result.RequestID)
	s.Equal("GET_STATE", result.MsgType)

	var out combatorch.GetStateOutput
	s.Require().NoError(json.Unmarshal(result.Data, &out))
	s.Equal(combatent.PhaseLobby, out.State.Phase)
}

func (s *WSHandlerTestSuite) TestRejectionsAreExplicitAndNonFatal() {
	conn := s.connect(combatent.ControllerGM)

	// unknown command
	s.send(conn, "CAST_FIREBALL", "req-1", "", nil)
	rejected := s.readUntil(conn, "REJECTED")
	s.Equal("req-1", rejected.RequestID)
	s.Equal("INVALID_ARGUMENT", rejected.Code)

	// malformed payload
	s.sendRaw(conn, map[string]any{
		"type":      "CREATE_COMBAT",
		"requestId": "req-2",
		"payload":   "not an object",
	})
	rejected = s.readUntil(conn, "REJECTED")
	s.Equal("req-2", rejected.RequestID)
	s.Equal("INVALID_ARGUMENT", rejected.Code)

	// missing type
	s.sendRaw(conn, map[string]any{"requestId": "req-3"})
	rejected = s.readUntil(conn, "REJECTED")
	s.Equal("req-3", rejected.RequestID)

	// the session survives all of it
	s.createCombat(conn)
}

func (s *WSHandlerTestSuite) TestSubscribeStreamsSnapshotThenDeltas() {
	conn := s.connect(combatent.ControllerGM)
	combatID := s.createCombat(conn)

	s.send(conn, "SUBSCRIBE", "req-sub", combatID, nil)

	// the snapshot lands before the subscription's RESULT
	sync := s.read(conn)
	s.Require().Equal("STATE_SYNC", sync.Type)
	s.Equal(combatID, sync.CombatID)
	var payload events.StateSync
	s.Require().NoError(json.Unmarshal(sync.Payload, &payload))
	s.Equal(combatent.PhaseLobby, payload.State.Phase)

	result := s.read(conn)
	s.Equal("RESULT", result.Type)
	s.Equal("req-sub", result.RequestID)

	// duplicate subscriptions are rejected
	s.send(conn, "SUBSCRIBE", "req-dup", combatID, nil)
	rejected := s.readUntil(conn, "REJECTED")
	s.Equal("req-dup", rejected.RequestID)
	s.Equal("ALREADY_EXISTS", rejected.Code)

	// a mutation streams its deltas to the subscriber
	s.send(conn, "JOIN_LOBBY", "req-join", combatID, map[string]any{
		"entity": testutils.CreateTestEntity("hero", combatent.FactionAlly),
	})
	updated := s.readUntil(conn, "LOBBY_UPDATED")
	s.Equal(combatID, updated.CombatID)
	s.Positive(updated.Sequence)
}

// singlePendingCheck digs the only pending check out of a snapshot
func (s *WSHandlerTestSuite) singlePendingCheck(state *combatent.State) *combatent.SkillCheck {
	s.Require().Len(state.PendingChecks, 1)
	for _, check := range state.PendingChecks {
		return check
	}
	return nil
}

func (s *WSHandlerTestSuite) TestPendingCheckTargetNumberHiddenFromPlayers() {
	gmConn := s.connect(combatent.ControllerGM)
	combatID := s.createCombat(gmConn)

	s.send(gmConn, "JOIN_LOBBY", "req-join", combatID, map[string]any{
		"entity": testutils.CreateTestEntity("hero", combatent.FactionAlly),
	})
	s.readUntil(gmConn, "RESULT")

	s.send(gmConn, "REQUEST_CHECK", "req-check", combatID, map[string]any{
		"entityId":     "hero",
		"skill":        "athletics",
		"targetNumber": 17,
	})
	s.readUntil(gmConn, "RESULT")

	// the GM keeps seeing the number
	s.send(gmConn, "GET_STATE", "req-gm-state", combatID, nil)
	result := s.readUntil(gmConn, "RESULT")
	var gmOut combatorch.GetStateOutput
	s.Require().NoError(json.Unmarshal(result.Data, &gmOut))
	gmCheck := s.singlePendingCheck(gmOut.State)
	s.Require().NotNil(gmCheck.TargetNumber)
	s.Equal(17, *gmCheck.TargetNumber)
	gmConn.Close()

	// a player's snapshot carries the check without its target number
	playerConn := s.connect("player:hero")
	s.send(playerConn, "GET_STATE", "req-state", combatID, nil)
	result = s.readUntil(playerConn, "RESULT")
	var out combatorch.GetStateOutput
	s.Require().NoError(json.Unmarshal(result.Data, &out))
	check := s.singlePendingCheck(out.State)
	s.Equal("athletics", check.Skill)
	s.Nil(check.TargetNumber)

	// the subscribe snapshot is redacted the same way
	s.send(playerConn, "SUBSCRIBE", "req-sub", combatID, nil)
	sync := s.readUntil(playerConn, "STATE_SYNC")
	var snap events.StateSync
	s.Require().NoError(json.Unmarshal(sync.Payload, &snap))
	check = s.singlePendingCheck(snap.State)
	s.Nil(check.TargetNumber)
}

func TestWSHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WSHandlerTestSuite))
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	_, err := ws.NewHandler(&ws.HandlerConfig{})
	require.Error(t, err)
}
