// form.go — формы создания/редактирования по описанию полей из каталога.
package service

import (
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldRule возвращает тег validator для поля формы.
func fieldRule(f resource.Field) string {
	var rules []string
	if f.Required {
		rules = append(rules, "required")
	} else {
		rules = append(rules, "omitempty")
	}
	switch f.Type {
	case resource.FieldEmail:
		rules = append(rules, "email")
	case resource.FieldNumber:
		rules = append(rules, "numeric")
	case resource.FieldDate:
		rules = append(rules, "datetime=2006-01-02")
	case resource.FieldTime:
		rules = append(rules, "datetime=15:04")
	}
	return strings.Join(rules, ",")
}

func ruleMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must be a number"
	case "datetime":
		return "has an invalid format"
	default:
		return "is invalid"
	}
}

// BuildPayload проверяет значения формы и собирает тело запроса backend.
// Пустые необязательные поля не передаются. При ошибках возвращает
// *ValidationError; в этом случае backend вызывать нельзя.
func BuildPayload(res *resource.Resource, form url.Values) (map[string]any, error) {
	payload := make(map[string]any, len(res.Fields))
	problems := make(map[string]string)

	for _, f := range res.Fields {
		raw := strings.TrimSpace(form.Get(f.Name))

		if err := validate.Var(raw, fieldRule(f)); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				problems[f.Name] = f.Label + " " + ruleMessage(verrs[0].Tag())
			} else {
				problems[f.Name] = f.Label + " " + ruleMessage("")
			}
			continue
		}
		if raw == "" {
			continue
		}

		switch f.Type {
		case resource.FieldNumber:
			payload[f.Name] = parseNumber(raw)
		case resource.FieldSelect:
			if !slices.Contains(f.Options, raw) {
				problems[f.Name] = f.Label + " " + ruleMessage("oneof")
				continue
			}
			payload[f.Name] = raw
		case resource.FieldList:
			payload[f.Name] = splitList(raw)
		default:
			payload[f.Name] = raw
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}
	return payload, nil
}

// SeedForm заполняет форму копией редактируемых полей записи.
// Изменение результата не затрагивает запись.
func SeedForm(res *resource.Resource, rec model.Record) url.Values {
	form := make(url.Values, len(res.Fields))
	for _, f := range res.Fields {
		form.Set(f.Name, rec.Text(f.Name))
	}
	return form
}

func parseNumber(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	f, _ := strconv.ParseFloat(raw, 64)
	return f
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
