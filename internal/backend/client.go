// Пакет backend — HTTP-клиент к REST API HRM backend.
// Все запросы идут относительно базового URL, несут Bearer-токен
// пользователя и идентификатор тенанта из сессии.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LoginPath — endpoint входа по email и паролю.
const LoginPath = "/auth/login"

// TenantHeader — заголовок с идентификатором тенанта.
const TenantHeader = "X-Tenant-ID"

// maxErrorBody ограничивает чтение тела ошибки.
const maxErrorBody = 64 << 10

var (
	ErrUnauthorized = errors.New("backend: требуется повторный вход")
	ErrForbidden    = errors.New("backend: доступ запрещён")
	ErrNotFound     = errors.New("backend: не найдено")
	ErrConflict     = errors.New("backend: конфликт")
	ErrNoTenant     = errors.New("backend: в сессии нет идентификатора тенанта")
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrm_console_backend_requests_total",
			Help: "Количество запросов к HRM backend.",
		},
		[]string{"method", "status"},
	)
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrm_console_backend_request_duration_seconds",
			Help:    "Длительность запросов к HRM backend.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Credentials — данные пользователя для запросов к backend.
type Credentials struct {
	AccessToken string
	Tenant      string
}

// APIError — ответ backend с кодом вне диапазона 2xx.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s %s: статус %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("backend %s %s: статус %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Is сопоставляет статус ответа с ошибками пакета.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// Client — HTTP-клиент HRM backend. Безопасен для конкурентного использования.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент backend.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — системный пул).
func New(baseURL, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
		logger.Info("CA-сертификат backend добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return NewWithHTTPClient(baseURL, httpClient, logger), nil
}

// NewWithHTTPClient создаёт клиент с готовым http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "backend_client")),
	}
}

// HTTPClient возвращает используемый http.Client (для JWKS и проверок).
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// BaseURL возвращает базовый URL backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{RootCAs: caCertPool}, nil
}

// ExpandPath подставляет {tenant} и {id} в шаблон пути.
func ExpandPath(tmpl, tenant, id string) (string, error) {
	if strings.Contains(tmpl, "{tenant}") {
		if tenant == "" {
			return "", ErrNoTenant
		}
		tmpl = strings.ReplaceAll(tmpl, "{tenant}", url.PathEscape(tenant))
	}
	if strings.Contains(tmpl, "{id}") {
		if id == "" {
			return "", fmt.Errorf("backend: в пути %q требуется идентификатор", tmpl)
		}
		tmpl = strings.ReplaceAll(tmpl, "{id}", url.PathEscape(id))
	}
	return tmpl, nil
}

// Do выполняет JSON-запрос. body сериализуется в JSON (nil — без тела),
// ответ декодируется в out (nil — тело отбрасывается).
func (c *Client) Do(ctx context.Context, creds Credentials, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, creds, method, path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out)
}

// Get выполняет GET-запрос.
func (c *Client) Get(ctx context.Context, creds Credentials, path string, out any) error {
	return c.Do(ctx, creds, http.MethodGet, path, nil, out)
}

// Post выполняет POST-запрос.
func (c *Client) Post(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, http.MethodPost, path, body, out)
}

// Put выполняет PUT-запрос.
func (c *Client) Put(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, http.MethodPut, path, body, out)
}

// Patch выполняет PATCH-запрос.
func (c *Client) Patch(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, http.MethodPatch, path, body, out)
}

// Delete выполняет DELETE-запрос.
func (c *Client) Delete(ctx context.Context, creds Credentials, path string) error {
	return c.Do(ctx, creds, http.MethodDelete, path, nil, nil)
}

// Upload отправляет файл multipart/form-data POST-запросом.
func (c *Client) Upload(ctx context.Context, creds Credentials, path, field, filename string, file io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("формирование multipart: %w", err)
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("формирование multipart: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("копирование файла: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("формирование multipart: %w", err)
	}

	req, err := c.newRequest(ctx, creds, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, path, out)
}

// LoginUser — пользователь из ответа на вход.
type LoginUser struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	RoleName    string   `json:"role_name"`
	IsAdmin     bool     `json:"is_admin"`
	Permissions []string `json:"permissions"`
}

// LoginResult — ответ backend на вход.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	LoginType   string    `json:"login_type"`
	TenantDB    string    `json:"tenant_db"`
	User        LoginUser `json:"user"`
}

// Login выполняет вход по email и паролю.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var result LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.Do(ctx, Credentials{}, http.MethodPost, LoginPath, body, &result); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("backend: ответ на вход без access_token")
	}
	return &result, nil
}

// CheckReady проверяет доступность backend по healthPath.
func (c *Client) CheckReady(ctx context.Context, healthPath string) error {
	return c.Do(ctx, Credentials{}, http.MethodGet, healthPath, nil, nil)
}

func (c *Client) newRequest(ctx context.Context, creds Credentials, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
	if creds.Tenant != "" {
		req.Header.Set(TenantHeader, creds.Tenant)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, path string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	backendRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		backendRequestsTotal.WithLabelValues(req.Method, "error").Inc()
		return fmt.Errorf("запрос %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()
	backendRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Method:  req.Method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(raw),
		}
		c.logger.Debug("Backend вернул ошибку",
			slog.String("method", req.Method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("декодирование ответа %s %s: %w", req.Method, path, err)
	}
	return nil
}

// errorMessage извлекает текст ошибки из тела ответа backend.
// Поддерживаются поля detail, message и error; иначе — сырой текст.
func errorMessage(raw []byte) string {
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
