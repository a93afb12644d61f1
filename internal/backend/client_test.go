package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockBackend создаёт mock HTTP-сервер backend.
func setupMockBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWithHTTPClient(server.URL+"/", server.Client(), testLogger())
}

var testCreds = Credentials{AccessToken: "tok-1", Tenant: "city_hospital"}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		tmpl, tenant, id string
		want             string
		wantErr          bool
	}{
		{"/departments/{tenant}", "city_hospital", "", "/departments/city_hospital", false},
		{"/departments/{tenant}/{id}", "city_hospital", "7", "/departments/city_hospital/7", false},
		{"/users/{tenant}", "", "", "", true},
		{"/roles/{tenant}/{id}", "t", "", "", true},
		{"/auth/login", "", "", "/auth/login", false},
		{"/x/{tenant}", "a b", "", "/x/a%20b", false},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := ExpandPath(tt.tmpl, tt.tenant, tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExpandPath() = %q, ожидается %q", got, tt.want)
			}
		})
	}
}

func TestGetSendsCredentials(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/departments/city_hospital" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get(TenantHeader); got != "city_hospital" {
			t.Errorf("%s = %q", TenantHeader, got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"HR"}]`))
	})

	var out []map[string]any
	if err := client.Get(context.Background(), testCreds, "/departments/city_hospital", &out); err != nil {
		t.Fatalf("Get() вернул ошибку: %v", err)
	}
	if len(out) != 1 || out[0]["name"] != "HR" {
		t.Errorf("out = %v", out)
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Finance" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":2,"name":"Finance"}`))
	})

	var out map[string]any
	err := client.Post(context.Background(), testCreds, "/departments/t", map[string]any{"name": "Finance"}, &out)
	if err != nil {
		t.Fatalf("Post() вернул ошибку: %v", err)
	}
	if out["id"] != float64(2) {
		t.Errorf("id = %v", out["id"])
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		target  error
		message string
	}{
		{http.StatusUnauthorized, `{"detail":"Token expired"}`, ErrUnauthorized, "Token expired"},
		{http.StatusForbidden, `{"message":"no access"}`, ErrForbidden, "no access"},
		{http.StatusNotFound, `{"error":"missing"}`, ErrNotFound, "missing"},
		{http.StatusConflict, `duplicate name`, ErrConflict, "duplicate name"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.Delete(context.Background(), testCreds, "/roles/t/1")
			if !errors.Is(err, tt.target) {
				t.Fatalf("errors.Is(%v, %v) = false", err, tt.target)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatal("ожидалась *APIError")
			}
			if apiErr.Message != tt.message {
				t.Errorf("Message = %q, ожидается %q", apiErr.Message, tt.message)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]any
	if err := client.Delete(context.Background(), testCreds, "/x"); err != nil {
		t.Errorf("Delete() вернул ошибку: %v", err)
	}
	if err := client.Put(context.Background(), testCreds, "/x", map[string]any{}, &out); err != nil {
		t.Errorf("Put() вернул ошибку: %v", err)
	}
}

func TestLogin(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != LoginPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("вход не должен передавать Authorization")
		}
		_ = json.NewEncoder(w).Encode(LoginResult{
			AccessToken: "jwt",
			LoginType:   "user",
			TenantDB:    "city_hospital",
			User: LoginUser{
				Name:        "Asha Rao",
				Email:       "asha@hospital.org",
				RoleName:    "Nurse",
				Permissions: []string{"view_users"},
			},
		})
	})

	res, err := client.Login(context.Background(), "asha@hospital.org", "secret")
	if err != nil {
		t.Fatalf("Login() вернул ошибку: %v", err)
	}
	if res.TenantDB != "city_hospital" || res.User.RoleName != "Nurse" {
		t.Errorf("res = %+v", res)
	}
}

func TestLoginWithoutToken(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	})

	if _, err := client.Login(context.Background(), "a@b.c", "x"); err == nil {
		t.Error("Login() без access_token должен вернуть ошибку")
	}
}

func TestUpload(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "degree.pdf" || string(data) != "%PDF" {
			t.Errorf("файл %q: %q", header.Filename, data)
		}
		if r.FormValue("document_type") != "degree" {
			t.Errorf("document_type = %q", r.FormValue("document_type"))
		}
		_, _ = w.Write([]byte(`{}`))
	})

	err := client.Upload(context.Background(), testCreds, "/onboarding/t/1/documents", "file", "degree.pdf",
		strings.NewReader("%PDF"), map[string]string{"document_type": "degree"}, nil)
	if err != nil {
		t.Fatalf("Upload() вернул ошибку: %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := client.Get(ctx, testCreds, "/slow", nil); err == nil {
		t.Error("ожидалась ошибка отмены контекста")
	}
}
