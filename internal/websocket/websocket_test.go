package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/config"
	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game"
	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/game/engine"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

type frame struct {
	Section   string `json:"section"`
	Item      any    `json:"item"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

// newTestServer 启动一个两人桌的游戏服务，连接依次获得玩家标识 p1、p2...
func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()

	rules := engine.DefaultRules()
	rules.MaxPlayers = 2
	session, err := game.NewSession(context.Background(), &game.SessionConfig{Rules: rules, Seed: 7})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	hub := NewHub(zap.NewNop())
	handler := NewGameHandler(hub, session, zap.NewNop())
	upgrader := websocket.Upgrader{}

	var seq atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := fmt.Sprintf("p%d", seq.Add(1))
		client := NewClient(hub, conn, id, handler, config.WebSocketConfig{})
		hub.Register(client)
		go client.WritePump()
		if handler.Join(context.Background(), client) == nil {
			go client.ReadPump()
		}
	}))
	t.Cleanup(server.Close)
	return server, hub
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func readChanges(t *testing.T, conn *websocket.Conn) []frame {
	t.Helper()
	var changes []frame
	require.NoError(t, json.Unmarshal(readRaw(t, conn), &changes))
	return changes
}

func findEvent(changes []frame, name string) (frame, bool) {
	for _, c := range changes {
		if c.Section == string(state.SectionMisc) && c.Item == state.MiscEvent && c.Attribute == name {
			return c, true
		}
	}
	return frame{}, false
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func TestJoinAndBroadcast(t *testing.T) {
	server, hub := newTestServer(t)

	first := dial(t, server)
	changes := readChanges(t, first)
	joined, ok := findEvent(changes, "initialize")
	require.True(t, ok)
	assert.EqualValues(t, 0, joined.Value)

	second := dial(t, server)
	changes = readChanges(t, second)
	joined, ok = findEvent(changes, "initialize")
	require.True(t, ok)
	assert.EqualValues(t, 1, joined.Value)

	// 先入座的玩家收到广播，但收不到发给新玩家的 initialize
	changes = readChanges(t, first)
	connected, ok := findEvent(changes, "player_connected")
	require.True(t, ok)
	assert.EqualValues(t, 1, connected.Value)
	_, ok = findEvent(changes, "initialize")
	assert.False(t, ok)

	assert.Eventually(t, func() bool { return hub.GetOnlineCount() == 2 }, time.Second, 10*time.Millisecond)
}

func TestIgnoredActionIsSilent(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)
	readChanges(t, conn)

	send(t, conn, `{"action":"roll"}`)
	send(t, conn, `{"action":"update_player","parameters":{"attribute":"name","value":"Alice"}}`)

	// 第一帧即为改名，掷骰请求没有产生任何下行
	changes := readChanges(t, conn)
	var renamed bool
	for _, c := range changes {
		if c.Section == string(state.SectionPlayers) && c.Attribute == state.AttrName {
			renamed = c.Value == "Alice"
		}
	}
	assert.True(t, renamed)
}

func TestMalformedMessageClosesConnection(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)
	readChanges(t, conn)

	send(t, conn, `not json`)

	var resp ErrorFrame
	require.NoError(t, json.Unmarshal(readRaw(t, conn), &resp))
	assert.Equal(t, errors.ErrMessageFormat, resp.Error.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestFullTableRejectsConnection(t *testing.T) {
	server, _ := newTestServer(t)
	readChanges(t, dial(t, server))
	readChanges(t, dial(t, server))

	third := dial(t, server)
	var resp ErrorFrame
	require.NoError(t, json.Unmarshal(readRaw(t, third), &resp))
	assert.Equal(t, errors.ErrGameFull, resp.Error.Code)

	third.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := third.ReadMessage()
	assert.Error(t, err)
}

func TestRouteKeepsOrderPerRecipient(t *testing.T) {
	batch := []controller.Envelope{
		{Change: state.Change{Section: state.SectionMisc, Item: state.MiscStage, Value: "begin_turn"}},
		{To: "a", Change: state.Change{Section: state.SectionMisc, Item: state.MiscPossibleActions, Value: []string{"roll"}}},
		{To: "b", Change: state.Change{Section: state.SectionMisc, Item: state.MiscPossibleActions, Value: []string{}}},
		{Change: state.Change{Section: state.SectionMisc, Item: state.MiscEvent, Attribute: "begin_turn", Value: 0}},
	}

	out := route(batch, []string{"a", "b", "c"})
	require.Len(t, out["a"], 3)
	assert.Equal(t, state.MiscStage, out["a"][0].Item)
	assert.Equal(t, []string{"roll"}, out["a"][1].Value)
	assert.Equal(t, state.MiscEvent, out["a"][2].Item)
	assert.Equal(t, []string{}, out["b"][1].Value)
	assert.Len(t, out["c"], 2)
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction([]byte(`{"action":"buy","parameters":{"x":1}}`), "p1")
	require.NoError(t, err)
	assert.Equal(t, engine.ActionBuy, a.Verb)
	assert.Equal(t, "p1", a.Actor)
	assert.EqualValues(t, 1, a.Parameters["x"])

	_, err = DecodeAction([]byte(`{"parameters":{}}`), "p1")
	assert.True(t, errors.Is(err, errors.ErrMessageFormat))

	_, err = DecodeAction([]byte(`[`), "p1")
	assert.True(t, errors.Is(err, errors.ErrMessageFormat))
}

func TestEncodeErrorOmitsStack(t *testing.T) {
	data := EncodeError(errors.New(errors.ErrGameStateError, "boom"))
	assert.NotContains(t, string(data), "stack")
	assert.Contains(t, string(data), `"code":2004`)

	data = EncodeError(fmt.Errorf("plain"))
	assert.Contains(t, string(data), `"code":1000`)
}

func TestSlowClientIsDisconnected(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := &Client{ID: "slow", hub: hub, send: make(chan []byte, 1)}
	hub.Register(slow)

	batch := []controller.Envelope{{Change: state.Change{Section: state.SectionMisc, Item: state.MiscStage, Value: "end_turn"}}}
	hub.Deliver(batch)
	assert.True(t, hub.IsOnline("slow"))

	hub.Deliver(batch)
	assert.False(t, hub.IsOnline("slow"))

	// 发送通道已关闭
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)

	hub.Unregister(slow)
	hub.Shutdown()
	assert.Zero(t, hub.GetOnlineCount())
}
