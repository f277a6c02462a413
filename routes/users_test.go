package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ceprud-chatbot/models"
	"ceprud-chatbot/services"

	"github.com/gin-gonic/gin"
)

// fakeUserStore imitates the user store's HTTP surface.
func fakeUserStore(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users":
			var req models.UserCreateRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Email == "taken@ugr.es" {
				w.WriteHeader(http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.UserCreateResponse{Success: true, UserID: "u1", Message: "User created"})
		case r.Method == http.MethodPost && r.URL.Path == "/users/login":
			json.NewEncoder(w).Encode(models.UserLoginResponse{Success: true, UserID: "u1", Name: "Ana", Role: "student"})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/subjects"):
			json.NewEncoder(w).Encode(models.UserSubjectsResponse{Success: true, Subjects: []string{"estadistica"}})
		case r.Method == http.MethodDelete:
			json.NewEncoder(w).Encode(models.UserSubjectsResponse{Success: true})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(models.UserProfileResponse{UserID: "u1", Email: "ana@ugr.es", Name: "Ana"})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newUserProxyRouter(t *testing.T) (*gin.Engine, *[]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, calls := fakeUserStore(t)
	router := gin.New()
	SetupUserProxyRoutes(router, services.NewUserClient(store.URL))
	return router, calls
}

func TestUserCreateProxied(t *testing.T) {
	router, _ := newUserProxyRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/create",
		strings.NewReader(`{"email":"ana@ugr.es","name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.UserCreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if !resp.Success || resp.UserID != "u1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestUserCreateConflict(t *testing.T) {
	router, _ := newUserProxyRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user/create",
		strings.NewReader(`{"email":"taken@ugr.es","name":"Ana"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUserProfileRequiresEmail(t *testing.T) {
	router, _ := newUserProxyRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/profile", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUserSubjectsProxied(t *testing.T) {
	router, calls := newUserProxyRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/subjects?email=ana@ugr.es", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.UserSubjectsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Subjects) != 1 || resp.Subjects[0] != "estadistica" {
		t.Errorf("subjects = %v", resp.Subjects)
	}
	if len(*calls) == 0 || !strings.Contains((*calls)[0], "/subjects") {
		t.Errorf("store calls = %v", *calls)
	}
}

func TestUserSubjectRemoveProxied(t *testing.T) {
	router, calls := newUserProxyRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/user/subjects/estadistica?email=ana@ugr.es", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	found := false
	for _, call := range *calls {
		if strings.HasPrefix(call, "DELETE ") && strings.Contains(call, "estadistica") {
			found = true
		}
	}
	if !found {
		t.Errorf("store calls = %v", *calls)
	}
}

func TestUserStoreOutageIs502(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupUserProxyRoutes(router, services.NewUserClient("http://127.0.0.1:1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/profile?email=ana@ugr.es", nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
}
