package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/contract"
	"chat-relay/infrastructure/ws"
	"chat-relay/logs"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/sink"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type frame struct {
	Type    string   `json:"type"`
	Users   []string `json:"users"`
	Count   int      `json:"count"`
	Sender  string   `json:"sender"`
	Content string   `json:"content"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

type relayFixture struct {
	server       *httptest.Server
	orchestrator *runtime.Orchestrator
	messages     repositories.IMessageRepository
	registry     *runtime.Registry
	rooms        repositories.IRoomRepository
}

func startRelay(t *testing.T, permanentSinks []contract.EventSink) *relayFixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	supervisor := workers.NewSupervisor(log, 50*time.Millisecond)
	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, log, lo.ToPtr(100))
	roomRepository := repositories.NewRoomRepository(db)

	if permanentSinks == nil {
		permanentSinks = []contract.EventSink{sink.NewDiskSink(messageRepository, log)}
	}

	orchestrator := runtime.NewOrchestrator(
		log, supervisor, registry, messageRepository, roomRepository,
		permanentSinks, 100,
		runtime.Timings{
			SinkTimeout:       time.Second,
			ReaperInterval:    time.Hour,
			IdleThreshold:     time.Hour,
			TelemetryInterval: time.Hour,
		},
		'*')

	ctx, cancel := context.WithCancel(context.Background())
	req.NoError(orchestrator.Start(ctx))

	mux := http.NewServeMux()
	wsHandler := ws.NewHandler(orchestrator, 16, log)
	mux.HandleFunc("GET /ws/{room}/{username}", wsHandler.ServeWS)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		orchestrator.Stop()
		cancel()
		_ = db.Close()
	})

	return &relayFixture{
		server:       server,
		orchestrator: orchestrator,
		messages:     messageRepository,
		registry:     registry,
		rooms:        roomRepository,
	}
}

func dialRoom(t *testing.T, server *httptest.Server, room, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + room + "/" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func Test_Scenario_RelayRoundTrip(t *testing.T) {
	req := require.New(t)
	fixture := startRelay(t, nil)

	// Given alice joins an empty room and sees herself alone
	alice := dialRoom(t, fixture.server, "general", "alice")
	presence := readFrame(t, alice)
	req.Equal("user_list", presence.Type)
	req.Equal([]string{"alice"}, presence.Users)
	req.Equal(1, presence.Count)

	// And bob joins, both see the grown user list
	bob := dialRoom(t, fixture.server, "general", "bob")
	presence = readFrame(t, alice)
	req.Equal([]string{"alice", "bob"}, presence.Users)
	presence = readFrame(t, bob)
	req.Equal([]string{"alice", "bob"}, presence.Users)
	req.Equal(2, presence.Count)

	// When alice posts a message
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"content":"hello bob"}`)))

	// Then both occupants receive it, alice included
	chat := readFrame(t, bob)
	req.Equal("alice", chat.Sender)
	req.Equal("hello bob", chat.Content)
	chat = readFrame(t, alice)
	req.Equal("alice", chat.Sender)
	req.Equal("hello bob", chat.Content)

	// And the message lands in the persisted history
	req.Eventually(func() bool {
		stored, err := fixture.messages.GetMessages("general")
		return err == nil && len(stored) == 1 && stored[0].Content == "hello bob"
	}, 2*time.Second, 20*time.Millisecond)

	// When bob disconnects, alice sees the shrunken presence
	req.NoError(bob.Close())
	presence = readFrame(t, alice)
	req.Equal("user_list", presence.Type)
	req.Equal([]string{"alice"}, presence.Users)
	req.Equal(1, presence.Count)
}

func Test_Scenario_ModerationOnTheWire(t *testing.T) {
	req := require.New(t)
	fixture := startRelay(t, nil)

	alice := dialRoom(t, fixture.server, "general", "alice")
	readFrame(t, alice) // own join presence

	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"content":"what an idiot"}`)))

	chat := readFrame(t, alice)
	req.Equal("what an *****", chat.Content)

	// The censored form is also what gets persisted
	req.Eventually(func() bool {
		stored, err := fixture.messages.GetMessages("general")
		return err == nil && len(stored) == 1 && stored[0].Content == "what an *****"
	}, 2*time.Second, 20*time.Millisecond)
}

func Test_Scenario_FailingStorageStillDelivers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a permanent sink whose storage always fails
	failingRepository := mocks.NewMockIMessageRepository(ctrl)
	failingRepository.EXPECT().
		StoreMessage(gomock.Any()).
		Return(fmt.Errorf("disk full")).
		AnyTimes()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	fixture := startRelay(t, []contract.EventSink{sink.NewDiskSink(failingRepository, log)})

	alice := dialRoom(t, fixture.server, "general", "alice")
	readFrame(t, alice)
	bob := dialRoom(t, fixture.server, "general", "bob")
	readFrame(t, alice)
	readFrame(t, bob)

	// When a message is posted even though persistence is down
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"content":"still flowing"}`)))

	// Then delivery to the room is unaffected
	chat := readFrame(t, bob)
	req.Equal("still flowing", chat.Content)
}

func Test_Scenario_ReaperEvictsIdleRoom(t *testing.T) {
	req := require.New(t)
	fixture := startRelay(t, nil)

	alice := dialRoom(t, fixture.server, "general", "alice")
	readFrame(t, alice)

	// Given the room record exists so the reaper can deactivate it
	_, err := fixture.rooms.CreateRoom("general")
	req.NoError(err)

	// When a reap pass runs with a zero idle threshold
	log := logs.GetLoggerFromLevel(slog.LevelError)
	reaper := workers.NewReaperWorker(fixture.registry, fixture.rooms, time.Hour, 0, log)
	time.Sleep(20 * time.Millisecond)
	reaper.ReapOnce()

	// Then the room is gone from the registry and deactivated in storage
	_, live := fixture.registry.Snapshot("general")
	req.False(live)
	active, err := fixture.rooms.IsActive("general")
	req.NoError(err)
	req.False(active)

	// And a new join on the deactivated room is refused with a close frame
	url := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "/ws/general/carol"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer conn.Close()
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}
