// Package web holds the HTML templates and the helpers they use.
package web

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// titlePolicy keeps the <b> highlighting the search API puts in titles and
// escapes everything else.
var titlePolicy = bluemonday.NewPolicy().AllowElements("b")

// Markup renders a raw API title as HTML with only <b> preserved.
func Markup(s string) template.HTML {
	return template.HTML(titlePolicy.Sanitize(s))
}

// Comma formats n with thousands separators.
func Comma(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FuncMap is the function set available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"markup": Markup,
		"comma":  Comma,
		"date": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04:05")
		},
	}
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.tmpl"))
}
