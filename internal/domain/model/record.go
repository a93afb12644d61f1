// Пакет model — доменные модели HRM Console.
package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Record — непрозрачная запись ресурса backend.
// Единственное структурное допущение — стабильное поле id.
type Record map[string]any

// ID возвращает идентификатор записи строкой ("" если отсутствует).
func (r Record) ID() string {
	return r.Text("id")
}

// Text возвращает значение поля в виде строки для отображения.
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Record{"v": item}.Text("v"))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if name, ok := val["name"].(string); ok {
			return name
		}
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

// Bool интерпретирует поле как флаг.
func (r Record) Bool(field string) bool {
	switch v := r[field].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	}
	return false
}

// Clone возвращает поверхностную копию записи.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// IndexByID строит индекс записей по id.
func IndexByID(records []Record) map[string]Record {
	idx := make(map[string]Record, len(records))
	for _, r := range records {
		if id := r.ID(); id != "" {
			idx[id] = r
		}
	}
	return idx
}

// DecodeList разбирает ответ списка backend: JSON-массив или объект
// с массивом в полях items, data или results.
func DecodeList(raw json.RawMessage) ([]Record, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []Record{}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []Record
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("разбор списка: %w", err)
		}
		return nonNil(list), nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("разбор списка: %w", err)
	}
	for _, key := range []string{"items", "data", "results"} {
		if inner, ok := envelope[key]; ok {
			var list []Record
			if err := json.Unmarshal(inner, &list); err != nil {
				return nil, fmt.Errorf("разбор поля %s: %w", key, err)
			}
			return nonNil(list), nil
		}
	}
	return nil, fmt.Errorf("разбор списка: ответ не содержит массива записей")
}

func nonNil(list []Record) []Record {
	if list == nil {
		return []Record{}
	}
	return list
}
