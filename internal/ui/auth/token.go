package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired — access token backend истёк, нужен повторный вход.
var ErrTokenExpired = errors.New("токен доступа истёк")

// ErrTokenInvalid — подпись или формат токена не прошли проверку.
var ErrTokenInvalid = errors.New("невалидный токен доступа")

// TokenClaims — сведения из access token backend, нужные консоли.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// backendClaims — claims токена, выдаваемого HRM backend.
type backendClaims struct {
	jwt.RegisteredClaims
}

// TokenInspector проверяет access token, полученный при входе.
// Без JWKS подпись не проверяется: токен читается только ради exp,
// проверку подписи выполняет сам backend на каждом вызове.
type TokenInspector struct {
	jwks   keyfunc.Keyfunc
	leeway time.Duration
	logger *slog.Logger
}

// NewTokenInspector создаёт инспектор токенов.
// jwksURL — опциональный JWKS endpoint backend; пустая строка отключает проверку подписи.
func NewTokenInspector(jwksURL string, httpClient *http.Client, logger *slog.Logger) (*TokenInspector, error) {
	ti := &TokenInspector{
		leeway: 30 * time.Second,
		logger: logger.With(slog.String("component", "token_inspector")),
	}
	if jwksURL == "" {
		return ti, nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// NoErrorReturnFirstHTTPReq — стартуем даже если backend ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			ti.logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	ti.jwks = k
	return ti, nil
}

// NewTokenInspectorWithKeyfunc создаёт инспектор с заданной keyfunc (для тестов).
func NewTokenInspectorWithKeyfunc(kf keyfunc.Keyfunc, logger *slog.Logger) *TokenInspector {
	return &TokenInspector{
		jwks:   kf,
		leeway: 30 * time.Second,
		logger: logger.With(slog.String("component", "token_inspector")),
	}
}

// Inspect разбирает токен. Непрозрачный (не JWT) токен без JWKS
// считается действующим: его срок знает только backend.
func (ti *TokenInspector) Inspect(ctx context.Context, token string) (*TokenClaims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &backendClaims{}
	if ti.jwks == nil {
		if strings.Count(token, ".") != 2 {
			return &TokenClaims{}, nil
		}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		out := toTokenClaims(claims)
		if !out.ExpiresAt.IsZero() && time.Now().After(out.ExpiresAt.Add(ti.leeway)) {
			return nil, ErrTokenExpired
		}
		return out, nil
	}

	_, err := jwt.ParseWithClaims(token, claims, ti.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256", "ES256", "HS256"}),
		jwt.WithLeeway(ti.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return toTokenClaims(claims), nil
}

func toTokenClaims(c *backendClaims) *TokenClaims {
	out := &TokenClaims{Subject: c.Subject}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
