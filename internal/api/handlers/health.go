// health.go — обработчики health endpoints HRM Console.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (HRM backend и Redis доступны)
// /metrics — Prometheus метрики
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Harinie05/HRM-sub002/internal/config"
	"github.com/Harinie05/HRM-sub002/internal/service"
)

// readyTimeout ограничивает одну проверку готовности.
const readyTimeout = 3 * time.Second

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status string, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	checkers    map[string]ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// checkers — проверки зависимостей по имени (ключ попадает в ответ).
func NewHealthHandler(checkers map[string]ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checkers:    checkers,
		promHandler: promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	resp := healthLiveResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "hrm-console",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady — readiness probe.
// Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "hrm-console",
		Checks:    make(map[string]healthCheckResult, len(h.checkers)),
	}

	statuses := make([]string, 0, len(h.checkers))
	for name, checker := range h.checkers {
		res := healthCheckResult{Status: "fail", Message: "не инициализирован"}
		if checker != nil {
			res.Status, res.Message = checker.CheckReady()
		}
		resp.Checks[name] = res
		statuses = append(statuses, res.Status)
	}
	resp.Status = overallStatus(statuses...)

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == "fail" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus определяет итоговый статус из статусов зависимостей.
// Если хотя бы одна зависимость fail — итог fail.
// Если хотя бы одна degraded — итог degraded.
// Иначе — ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == "fail" {
			return "fail"
		}
		if s == "degraded" {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return "degraded"
	}
	return "ok"
}

// BackendPinger — проверка доступности HRM backend.
type BackendPinger interface {
	CheckReady(ctx context.Context, healthPath string) error
}

// BackendChecker проверяет HRM backend: по данным topologymetrics,
// а до первой проверки SDK — прямым запросом к health endpoint.
type BackendChecker struct {
	dephealth  *service.DephealthService
	pinger     BackendPinger
	healthPath string
}

// NewBackendChecker создаёт проверку backend. dephealth может быть nil.
func NewBackendChecker(dephealth *service.DephealthService, pinger BackendPinger, healthPath string) *BackendChecker {
	return &BackendChecker{dephealth: dephealth, pinger: pinger, healthPath: healthPath}
}

// CheckReady реализует ReadinessChecker.
func (c *BackendChecker) CheckReady() (string, string) {
	if c.dephealth != nil {
		if healthy, found := findHealthByPrefix(c.dephealth.Health(), service.DepBackend); found {
			if healthy {
				return "ok", ""
			}
			return "fail", "backend недоступен (topologymetrics)"
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if err := c.pinger.CheckReady(ctx, c.healthPath); err != nil {
		return "fail", err.Error()
	}
	return "ok", ""
}

// RedisChecker проверяет Redis командой PING. Недоступный Redis
// переводит консоль в degraded: страницы без Redis-хранилищ работают.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker создаёт проверку Redis.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// CheckReady реализует ReadinessChecker.
func (c *RedisChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return "degraded", err.Error()
	}
	return "ok", ""
}

// findHealthByPrefix ищет статус зависимости по префиксу имени.
// Health() из topologymetrics SDK возвращает ключи формата "dependency:host:port".
// found=false, если SDK ещё не проверял зависимость.
func findHealthByPrefix(health map[string]bool, prefix string) (healthy, found bool) {
	healthy = true
	for key, ok := range health {
		if strings.HasPrefix(key, prefix+":") || key == prefix {
			found = true
			healthy = healthy && ok
		}
	}
	return healthy && found, found
}
