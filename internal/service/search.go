package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
)

// SearchRecords фильтрует коллекцию по подстроке в поле field без учёта
// регистра (Unicode case folding). Пустой запрос возвращает коллекцию
// без изменений. Backend не вызывается.
func SearchRecords(records []model.Record, field, query string) []model.Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	fold := cases.Fold()
	needle := fold.String(query)

	matched := make([]model.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(fold.String(r.Text(field)), needle) {
			matched = append(matched, r)
		}
	}
	return matched
}
