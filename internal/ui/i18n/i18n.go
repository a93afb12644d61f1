// Пакет i18n — переводы интерфейса консоли HRM (en, ru).
//
// Язык запроса кладётся в контекст middleware; страницы получают строки
// через T и Tf. Отсутствующий ключ возвращается как есть и один раз
// пишется в журнал.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и запасной каталог.
const DefaultLang = "en"

var (
	// SupportedLanguages — теги поддерживаемых языков, порядок важен для matcher.
	SupportedLanguages = []language.Tag{
		language.English,
		language.Russian,
	}

	matcher = language.NewMatcher(SupportedLanguages)
)

type contextKey struct{}

// Bundle хранит каталоги переводов: язык → ключ → строка.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string
	missing  map[string]struct{}
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		missing:  make(map[string]struct{}),
		logger:   logger,
	}
}

// LoadMessages разбирает плоский JSON-каталог {"key": "строка"}.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: каталог %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("Каталог переводов загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// Keys возвращает отсортированные ключи каталога языка.
func (b *Bundle) Keys(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.catalogs[lang]))
	for k := range b.catalogs[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Translate ищет ключ в каталоге языка, затем в английском.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	msg, ok := b.lookup(lang, key)
	if !ok && lang != DefaultLang {
		msg, ok = b.lookup(DefaultLang, key)
	}
	b.mu.RUnlock()
	if ok {
		return msg
	}

	b.reportMissing(lang, key)
	return key
}

func (b *Bundle) lookup(lang, key string) (string, bool) {
	catalog, ok := b.catalogs[lang]
	if !ok {
		return "", false
	}
	msg, ok := catalog[key]
	return msg, ok
}

func (b *Bundle) reportMissing(lang, key string) {
	b.mu.Lock()
	_, seen := b.missing[key]
	b.missing[key] = struct{}{}
	b.mu.Unlock()
	if !seen && b.logger != nil {
		b.logger.Warn("Нет перевода",
			slog.String("lang", lang),
			slog.String("key", key),
		)
	}
}

// Translatef подставляет аргументы в перевод.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

var (
	globalBundle *Bundle
	globalOnce   sync.Once
)

// Init создаёт глобальный Bundle при первом вызове.
func Init(logger *slog.Logger) *Bundle {
	globalOnce.Do(func() {
		globalBundle = NewBundle(logger)
	})
	return globalBundle
}

// GetBundle возвращает глобальный Bundle (nil до Init).
func GetBundle() *Bundle {
	return globalBundle
}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// LangFromContext возвращает язык запроса, по умолчанию "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

// T переводит ключ на язык запроса.
func T(ctx context.Context, key string) string {
	if globalBundle == nil {
		return key
	}
	return globalBundle.Translate(LangFromContext(ctx), key)
}

// Tf переводит ключ и подставляет аргументы.
func Tf(ctx context.Context, key string, args ...any) string {
	if globalBundle == nil {
		if len(args) == 0 {
			return key
		}
		return formatFunc(key, args...)
	}
	return globalBundle.Translatef(LangFromContext(ctx), key, args...)
}

// Формат-строки приходят из каталогов, статическая printf-проверка к ним неприменима.
//
//nolint:govet
var formatFunc = fmt.Sprintf

// Supported сообщает, поддерживается ли язык.
func Supported(lang string) bool {
	return lang == "en" || lang == "ru"
}

// MatchLanguage выбирает "en" или "ru" по заголовку Accept-Language.
func MatchLanguage(acceptLanguage string) string {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()
	if strings.HasPrefix(base.String(), "ru") {
		return "ru"
	}
	return DefaultLang
}
