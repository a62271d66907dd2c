package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mycafe-pos/api/internal/database"
	"github.com/mycafe-pos/api/internal/enum"
	"github.com/mycafe-pos/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User // keyed by user ID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	// Check for duplicate email (simulates PostgreSQL unique constraint)
	for _, existing := range m.users {
		if existing.Email == arg.Email {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	u := database.User{
		ID:             uuid.New(),
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		Name:           arg.Name,
		Role:           arg.Role,
		AvatarURL:      arg.AvatarURL,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserStore) ListUsers(_ context.Context, _ database.ListUsersParams) ([]database.User, error) {
	var result []database.User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, nil
}

func (m *mockUserStore) CountUsers(_ context.Context, _ database.CountUsersParams) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	u.Name = arg.Name
	u.Role = arg.Role
	u.AvatarURL = arg.AvatarURL
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Create tests ---

func TestUserCreate_Valid(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":    "ani@mycafe.id",
		"password": "rahasia-banget",
		"name":     "Ani",
		"role":     enum.UserRoleCashier,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["email"] != "ani@mycafe.id" {
		t.Errorf("email: got %v, want ani@mycafe.id", resp["email"])
	}
	if resp["role"] != enum.UserRoleCashier {
		t.Errorf("role: got %v, want %s", resp["role"], enum.UserRoleCashier)
	}
	if _, hasPassword := resp["hashed_password"]; hasPassword {
		t.Error("response must not expose the password hash")
	}
}

func TestUserCreate_HashesPassword(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "POST", "/users", map[string]interface{}{
		"email":    "budi@mycafe.id",
		"password": "kopi-susu-enak",
		"name":     "Budi",
		"role":     enum.UserRoleKitchen,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	if len(store.users) != 1 {
		t.Fatalf("expected 1 stored user, got %d", len(store.users))
	}
	for _, u := range store.users {
		if u.HashedPassword == "kopi-susu-enak" {
			t.Fatal("password stored in plaintext")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("kopi-susu-enak")); err != nil {
			t.Errorf("stored hash does not verify against the password: %v", err)
		}
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	body := map[string]interface{}{
		"email":    "ani@mycafe.id",
		"password": "rahasia-banget",
		"name":     "Ani",
		"role":     enum.UserRoleAdmin,
	}
	doRequest(t, router, "POST", "/users", body)
	rr := doRequest(t, router, "POST", "/users", body)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["error"] != "email already registered" {
		t.Errorf("error: got %v, want 'email already registered'", resp["error"])
	}
}

func TestUserCreate_Validation(t *testing.T) {
	valid := map[string]interface{}{
		"email":    "ani@mycafe.id",
		"password": "rahasia-banget",
		"name":     "Ani",
		"role":     enum.UserRoleCashier,
	}

	cases := []struct {
		name  string
		field string
		value interface{}
	}{
		{"missing email", "email", ""},
		{"email without at sign", "email", "not-an-email"},
		{"short password", "password", "pendek"},
		{"missing name", "name", ""},
		{"unknown role", "role", "barista"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockUserStore()
			router := setupUserRouter(store)

			body := make(map[string]interface{}, len(valid))
			for k, v := range valid {
				body[k] = v
			}
			body[tc.field] = tc.value

			rr := doRequest(t, router, "POST", "/users", body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
			if len(store.users) != 0 {
				t.Error("invalid request must not create a user")
			}
		})
	}
}

// --- List / Get tests ---

func TestUserList(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "ani@mycafe.id", Name: "Ani", Role: enum.UserRoleAdmin}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "GET", "/users", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	users, ok := resp["users"].([]interface{})
	if !ok || len(users) != 1 {
		t.Fatalf("expected 1 user, got %v", resp["users"])
	}
	if resp["total"] != float64(1) {
		t.Errorf("total: got %v, want 1", resp["total"])
	}
}

func TestUserGet_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUserGet_InvalidID(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "GET", "/users/not-a-uuid", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Update / Delete tests ---

func TestUserUpdate_Valid(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "ani@mycafe.id", Name: "Ani", Role: enum.UserRoleCashier}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "PUT", "/users/"+id.String(), map[string]interface{}{
		"name": "Ani Wijaya",
		"role": enum.UserRoleAdmin,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["name"] != "Ani Wijaya" {
		t.Errorf("name: got %v, want 'Ani Wijaya'", resp["name"])
	}
	if resp["role"] != enum.UserRoleAdmin {
		t.Errorf("role: got %v, want %s", resp["role"], enum.UserRoleAdmin)
	}
}

func TestUserUpdate_InvalidRole(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "ani@mycafe.id", Name: "Ani", Role: enum.UserRoleCashier}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "PUT", "/users/"+id.String(), map[string]interface{}{
		"name": "Ani",
		"role": "manager",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserDelete_Valid(t *testing.T) {
	store := newMockUserStore()
	id := uuid.New()
	store.users[id] = database.User{ID: id, Email: "ani@mycafe.id", Name: "Ani", Role: enum.UserRoleCashier}

	router := setupUserRouter(store)
	rr := doRequest(t, router, "DELETE", "/users/"+id.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if _, exists := store.users[id]; exists {
		t.Error("expected user to be removed")
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	store := newMockUserStore()
	router := setupUserRouter(store)

	rr := doRequest(t, router, "DELETE", "/users/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
