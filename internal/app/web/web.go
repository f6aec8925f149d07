// Package web шаблоны страниц.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var files embed.FS

// Templates набор страниц, собранный из встроенных файлов
type Templates struct {
	t *template.Template
}

func Load() (*Templates, error) {
	const op = "web.Load"

	t, err := template.New("").ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Templates{t: t}, nil
}

// Render рисует страницу name целиком в буфер, затем отдаёт с кодом status
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	const op = "web.Render"

	var buf bytes.Buffer
	if err := t.t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
