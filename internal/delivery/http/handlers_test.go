package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes-app/backend/internal/domain"
	"github.com/notes-app/backend/internal/middleware"
	"github.com/notes-app/backend/internal/token"
	"github.com/notes-app/backend/internal/usecase"
)

// In-memory stores backing the full router, so these tests cover the wire
// surface end to end without Postgres.

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func (r *memUserRepo) Create(u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func (r *memTokenRepo) key(userID uuid.UUID, hash string) string {
	return userID.String() + "/" + hash
}

func (r *memTokenRepo) Create(t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.tokens[r.key(t.UserID, t.TokenHash)] = t
	return nil
}

func (r *memTokenRepo) GetByUserAndHash(userID uuid.UUID, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[r.key(userID, hash)], nil
}

func (r *memTokenRepo) DeleteByUserAndHash(userID uuid.UUID, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(userID, hash)
	if _, ok := r.tokens[k]; !ok {
		return false, nil
	}
	delete(r.tokens, k)
	return true, nil
}

func (r *memTokenRepo) DeleteByUserID(userID uuid.UUID) error { return nil }
func (r *memTokenRepo) DeleteExpired() error                  { return nil }

type memNoteRepo struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*domain.Note
}

func (r *memNoteRepo) Save(n *domain.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.notes[n.ID] = n
	return nil
}

func (r *memNoteRepo) GetByID(id uuid.UUID) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[id], nil
}

func (r *memNoteRepo) ListByOwner(ownerID uuid.UUID) ([]*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Note
	for _, n := range r.notes {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNoteRepo) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notes, id)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	codec := token.NewCodec("test-secret", 15*time.Minute, 15*24*time.Hour)
	authUsecase := usecase.NewAuthUsecase(
		&memUserRepo{users: make(map[uuid.UUID]*domain.User)},
		&memTokenRepo{tokens: make(map[string]*domain.RefreshToken)},
		nil,
		codec,
	)
	noteUsecase := usecase.NewNoteUsecase(&memNoteRepo{notes: make(map[uuid.UUID]*domain.Note)})

	handler := NewHandler(authUsecase, noteUsecase)
	authMiddleware := middleware.NewAuthMiddleware(codec)
	limiter := middleware.NewRateLimiter(nil, 0, 0)

	srv := httptest.NewServer(NewRouter(handler, authMiddleware, limiter, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, bearer string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/auth"

	// register
	resp := postJSON(t, base+"/register", "", map[string]string{
		"email": "alice@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// duplicate register conflicts
	resp = postJSON(t, base+"/register", "", map[string]string{
		"email": "alice@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// wrong password and unknown email look alike
	resp = postJSON(t, base+"/login", "", map[string]string{
		"email": "alice@x.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	resp = postJSON(t, base+"/login", "", map[string]string{
		"email": "nobody@x.com", "password": "pw123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// login
	resp = postJSON(t, base+"/login", "", map[string]string{
		"email": "alice@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair usecase.TokenPair
	decode(t, resp, &pair)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// /me with the access token
	resp = getJSON(t, base+"/me", pair.AccessToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// /me without a token
	resp = getJSON(t, base+"/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// /me with the refresh token must fail
	resp = getJSON(t, base+"/me", pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// refresh rotates
	resp = postJSON(t, base+"/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rotated usecase.TokenPair
	decode(t, resp, &rotated)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// old refresh token is spent
	resp = postJSON(t, base+"/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// the replacement works
	resp = postJSON(t, base+"/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestNotesFlow(t *testing.T) {
	srv := newTestServer(t)
	authBase := srv.URL + "/api/v1/auth"
	notesBase := srv.URL + "/api/v1/notes"

	resp := postJSON(t, authBase+"/register", "", map[string]string{
		"email": "bob@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = postJSON(t, authBase+"/login", "", map[string]string{
		"email": "bob@x.com", "password": "pw123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pair usecase.TokenPair
	decode(t, resp, &pair)

	// unauthenticated access is rejected
	resp = getJSON(t, notesBase+"/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// create
	resp = postJSON(t, notesBase+"/", pair.AccessToken, map[string]interface{}{
		"title": "first", "content": "hello", "color": 42,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var note domain.Note
	decode(t, resp, &note)
	assert.Equal(t, "first", note.Title)

	// list
	resp = getJSON(t, notesBase+"/", pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes []domain.Note
	decode(t, resp, &notes)
	require.Len(t, notes, 1)

	// delete
	req, err := http.NewRequest(http.MethodDelete, notesBase+"/"+note.ID.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
	delResp.Body.Close()

	resp = getJSON(t, notesBase+"/", pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notes = nil
	decode(t, resp, &notes)
	assert.Empty(t, notes)
}
