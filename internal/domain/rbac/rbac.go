// Пакет rbac — оракул прав доступа HRM Console.
// Права вычисляются только по данным сессии, переданной явно:
// без сетевых вызовов, без глобального состояния.
// Проверки консоли носят рекомендательный характер: backend получает
// токен пользователя и выполняет собственную авторизацию.
package rbac

import (
	"encoding/json"
	"slices"
	"strings"
)

// Ключи сессии, используемые оракулом.
const (
	keyLoginType   = "login_type"
	keyIsAdmin     = "is_admin"
	keyPermissions = "permissions"
)

// LoginTypeAdmin — тип входа администратора организации.
const LoginTypeAdmin = "admin"

// Действия над ресурсами.
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Reader — источник значений сессии.
type Reader interface {
	Get(key string) string
}

// IsAdmin возвращает true, если тип входа "admin" или флаг is_admin
// равен строке "true". Любое другое значение флага, включая "True" и "1",
// не даёт прав администратора.
func IsAdmin(s Reader) bool {
	if s == nil {
		return false
	}
	return s.Get(keyLoginType) == LoginTypeAdmin || s.Get(keyIsAdmin) == "true"
}

// HasPermission сообщает, есть ли у сессии право name.
// Администратор имеет любое право, включая пустое и неизвестное имя.
// Для остальных — членство в списке прав сессии; отсутствующий
// или нечитаемый список означает пустое множество.
func HasPermission(s Reader, name string) bool {
	if IsAdmin(s) {
		return true
	}
	if s == nil {
		return false
	}
	return slices.Contains(ParsePermissions(s.Get(keyPermissions)), name)
}

// ParsePermissions разбирает сериализованный JSON-массив строк.
// Любой другой формат даёт nil.
func ParsePermissions(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil
	}
	return perms
}

// EncodePermissions сериализует список прав для хранения в сессии.
func EncodePermissions(perms []string) string {
	if perms == nil {
		perms = []string{}
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Capability строит имя права вида "view_departments".
func Capability(action, resource string) string {
	return action + "_" + resource
}
