// Пакет resource — каталог экранов HRM Console.
// Каталог описывает ресурсы backend (endpoints, права, колонки, поля форм),
// разделы бокового меню и уровни иерархии подчинённости.
package resource

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Типы полей формы.
const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldEmail    = "email"
	FieldTel      = "tel"
	FieldNumber   = "number"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldSelect   = "select"
	FieldList     = "list"
)

// Permissions — права на действия над ресурсом.
type Permissions struct {
	View   string `yaml:"view"`
	Add    string `yaml:"add"`
	Edit   string `yaml:"edit"`
	Delete string `yaml:"delete"`
}

// Column — колонка таблицы списка.
type Column struct {
	Field string `yaml:"field"`
	Label string `yaml:"label"`
}

// Field — поле формы создания/редактирования.
type Field struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Options  []string `yaml:"options"`
}

// Toggle — частичное обновление булева поля (PATCH).
type Toggle struct {
	Field string `yaml:"field"`
	Path  string `yaml:"path"`
	Label string `yaml:"label"`
}

// Resource — описание ресурса backend и его экрана.
type Resource struct {
	Key         string      `yaml:"key"`
	Title       string      `yaml:"title"`
	Singular    string      `yaml:"singular"`
	List        string      `yaml:"list"`
	Item        string      `yaml:"item"`
	Display     string      `yaml:"display"`
	Hidden      bool        `yaml:"hidden"`
	Permissions Permissions `yaml:"permissions"`
	Columns     []Column    `yaml:"columns"`
	Fields      []Field     `yaml:"fields"`
	Toggle      *Toggle     `yaml:"toggle"`
	Invalidates []string    `yaml:"invalidates"`
	Export      bool        `yaml:"export"`
	Workflow    string      `yaml:"workflow"`
}

// Route возвращает путь экрана ресурса в консоли.
func (r *Resource) Route() string {
	return "/r/" + r.Key
}

// Field возвращает поле формы по имени.
func (r *Resource) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NavItem — пункт бокового меню.
type NavItem struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Route string `yaml:"route"`
}

// Section — сворачиваемый раздел бокового меню.
type Section struct {
	Key   string    `yaml:"key"`
	Title string    `yaml:"title"`
	Items []NavItem `yaml:"items"`
}

// Contains сообщает, относится ли маршрут к разделу.
func (s *Section) Contains(route string) bool {
	for _, it := range s.Items {
		if MatchRoute(it.Route, route) {
			return true
		}
	}
	return false
}

// MatchRoute сравнивает маршрут пункта меню с текущим путём:
// "/" совпадает только с "/", остальные — по префиксу сегмента.
func MatchRoute(itemRoute, current string) bool {
	if itemRoute == "/" {
		return current == "/"
	}
	return current == itemRoute || strings.HasPrefix(current, itemRoute+"/")
}

// Level — уровень иерархии подчинённости.
type Level struct {
	Name     string   `yaml:"name"`
	Rank     int      `yaml:"rank"`
	Keywords []string `yaml:"keywords"`
}

// Organization — endpoints профиля организации.
type Organization struct {
	Profile     string      `yaml:"profile"`
	Permissions Permissions `yaml:"permissions"`
}

// Catalog — загруженный каталог.
type Catalog struct {
	Organization Organization `yaml:"organization"`
	Sections     []Section    `yaml:"sections"`
	Levels       []Level      `yaml:"levels"`
	Resources    []*Resource  `yaml:"resources"`

	byKey map[string]*Resource
}

// Default загружает встроенный каталог.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse разбирает и проверяет каталог в формате YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("разбор каталога: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(c.Levels, func(a, b Level) int { return a.Rank - b.Rank })
	return &c, nil
}

// Get возвращает ресурс по ключу.
func (c *Catalog) Get(key string) (*Resource, bool) {
	r, ok := c.byKey[key]
	return r, ok
}

func (c *Catalog) validate() error {
	if c.Organization.Profile == "" {
		return fmt.Errorf("каталог: не задан endpoint профиля организации")
	}
	if c.Organization.Permissions.View == "" || c.Organization.Permissions.Edit == "" {
		return fmt.Errorf("каталог: не заданы права профиля организации")
	}
	c.byKey = make(map[string]*Resource, len(c.Resources))
	for i, r := range c.Resources {
		if r.Key == "" {
			return fmt.Errorf("каталог: ресурс #%d без ключа", i)
		}
		if _, dup := c.byKey[r.Key]; dup {
			return fmt.Errorf("каталог: повторный ключ ресурса %q", r.Key)
		}
		if r.List == "" || r.Item == "" {
			return fmt.Errorf("каталог: ресурс %q без endpoints list/item", r.Key)
		}
		if !strings.Contains(r.Item, "{id}") {
			return fmt.Errorf("каталог: endpoint item ресурса %q без {id}", r.Key)
		}
		if r.Permissions.View == "" {
			return fmt.Errorf("каталог: ресурс %q без права view", r.Key)
		}
		if r.Display == "" {
			return fmt.Errorf("каталог: ресурс %q без поля display", r.Key)
		}
		for _, f := range r.Fields {
			if f.Type == FieldSelect && len(f.Options) == 0 {
				return fmt.Errorf("каталог: поле %s.%s типа select без вариантов", r.Key, f.Name)
			}
		}
		c.byKey[r.Key] = r
	}
	for _, r := range c.Resources {
		for _, inv := range r.Invalidates {
			if _, ok := c.byKey[inv]; !ok {
				return fmt.Errorf("каталог: ресурс %q инвалидирует неизвестный %q", r.Key, inv)
			}
		}
	}
	return nil
}
