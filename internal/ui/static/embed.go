// Пакет static — стили и скрипт консоли, встроенные в бинарник.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed css/output.css js/*.js
var content embed.FS

// FileSystem раздаёт /static/css/output.css и /static/js/app.js.
func FileSystem() http.FileSystem {
	return http.FS(content)
}

// FS — прямой доступ к встроенным файлам.
func FS() fs.FS {
	return content
}
