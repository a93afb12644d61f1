package i18n

import (
	"embed"
	"fmt"
	"log/slog"
)

//go:embed locales/*.json
var LocaleFS embed.FS

// LoadFromEmbedFS загружает каталоги locales/en.json и locales/ru.json.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	langs := []string{"en", "ru"}
	for _, lang := range langs {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := LocaleFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("i18n: чтение %s: %w", path, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}
	logger.Debug("Каталоги переводов загружены", slog.Int("languages", len(langs)))
	return nil
}
