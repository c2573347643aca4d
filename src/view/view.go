package view

import (
	"embed"
	"html/template"

	"notes-app/src/domain"
)

// IndexTemplate メイン画面のテンプレート名
const IndexTemplate = "index.tmpl"

//go:embed templates/*.tmpl
var templateFS embed.FS

// PageData メイン画面の描画データ
type PageData struct {
	Notes []domain.Note
	// PreviewURL は選択中の画像のdata URL
	PreviewURL template.URL
	Error      string
}

// Templates 埋め込みテンプレートを読み込む
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}
