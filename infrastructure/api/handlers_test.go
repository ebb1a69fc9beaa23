package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/logs"
	"chat-relay/repositories"
	"chat-relay/services"

	"github.com/stretchr/testify/require"
)

type stubAuthService struct {
	registerToken services.Token
	registerErr   error
	loginToken    services.Token
	loginErr      error
}

func (s *stubAuthService) Register(string, string) (services.Token, error) {
	return s.registerToken, s.registerErr
}

func (s *stubAuthService) Login(string, string) (services.Token, error) {
	return s.loginToken, s.loginErr
}

type stubChatService struct {
	rooms    []repositories.RoomRecord
	messages []domain.Message
	hits     []repositories.SearchHit
	err      error
}

func (s *stubChatService) CreateRoom(name string) (repositories.RoomRecord, error) {
	return repositories.RoomRecord{ID: domain.RoomID(name), Name: name, Active: true}, s.err
}

func (s *stubChatService) ListRooms() ([]repositories.RoomRecord, error) {
	return s.rooms, s.err
}

func (s *stubChatService) History(domain.RoomID) ([]domain.Message, error) {
	return s.messages, s.err
}

func (s *stubChatService) Search(context.Context, domain.RoomID, string, int) ([]repositories.SearchHit, error) {
	return s.hits, s.err
}

func testHandler(authSvc services.IAuthService, chatSvc services.IChatService) *Handler {
	return NewHandler(authSvc, chatSvc, logs.GetLoggerFromString("error"))
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("should return 201 and a token on success", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{registerToken: "signed-token"}, &stubChatService{})

		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"email":"a@b.com","password":"ComplexPass123!"}`)
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/register", body))

		req.Equal(http.StatusCreated, rec.Code)
		var resp map[string]string
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		req.Equal("signed-token", resp["token"])
	})

	t.Run("should return 409 when the email is taken", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{registerErr: errors.ErrUserAlreadyExists}, &stubChatService{})

		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"email":"a@b.com","password":"ComplexPass123!"}`)
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/register", body))

		req.Equal(http.StatusConflict, rec.Code)
	})

	t.Run("should return 400 on a malformed body", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{}, &stubChatService{})

		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader("{")))

		req.Equal(http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("should return 401 on bad credentials", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{loginErr: errors.ErrInvalidCredentials}, &stubChatService{})

		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"email":"a@b.com","password":"nope"}`)
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", body))

		req.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC().Truncate(time.Second)
	h := testHandler(&stubAuthService{}, &stubChatService{
		messages: []domain.Message{
			{Sender: "alice", Content: "hello", Type: domain.MessageTypeText, CreatedAt: now},
		},
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/rooms/general/messages", nil)
	r.SetPathValue("room", "general")
	h.History(rec, r)

	req.Equal(http.StatusOK, rec.Code)
	var resp []map[string]any
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Len(resp, 1)
	req.Equal("alice", resp[0]["sender"])
	req.Equal("hello", resp[0]["content"])
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("should require the q parameter", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{}, &stubChatService{})

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/rooms/general/search", nil)
		r.SetPathValue("room", "general")
		h.Search(rec, r)

		req.Equal(http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject a non numeric limit", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{}, &stubChatService{})

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/rooms/general/search?q=hello&limit=abc", nil)
		r.SetPathValue("room", "general")
		h.Search(rec, r)

		req.Equal(http.StatusBadRequest, rec.Code)
	})

	t.Run("should return hits", func(t *testing.T) {
		req := require.New(t)
		h := testHandler(&stubAuthService{}, &stubChatService{
			hits: []repositories.SearchHit{{MessageID: "id-1", Sender: "bob", Content: "hello world"}},
		})

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/rooms/general/search?q=hello", nil)
		r.SetPathValue("room", "general")
		h.Search(rec, r)

		req.Equal(http.StatusOK, rec.Code)
		var resp []map[string]any
		req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		req.Len(resp, 1)
		req.Equal("bob", resp[0]["sender"])
	})
}

func TestRequireToken(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-test-secret", time.Hour)
	mw := NewMiddleware(tokens, logs.GetLoggerFromString("error"))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("should reject a missing header", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		mw.RequireToken(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject a forged token", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		r.Header.Set("Authorization", "Bearer not-a-jwt")
		mw.RequireToken(next).ServeHTTP(rec, r)
		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should pass a valid token through", func(t *testing.T) {
		req := require.New(t)
		token, err := tokens.Generate("alice@example.com")
		req.NoError(err)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		mw.RequireToken(next).ServeHTTP(rec, r)

		req.Equal(http.StatusNoContent, rec.Code)
	})
}
