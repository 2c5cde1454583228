package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// TemplateFormatter formats output using a Go text/template over Result.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a template formatter.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{templateStr: templateStr}
}

// SetTemplate replaces the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

func templateFuncs(now time.Time) template.FuncMap {
	return template.FuncMap{
		// {{date .FinishedAt "15:04:05"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		// {{ago .FinishedAt}}
		"ago": func(t time.Time) string {
			return formatAge(t, now)
		},
		// {{positions .Plans}}
		"positions": formatPositions,
		"comma": func(n int64) string {
			return humanize.Comma(n)
		},
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		// ago is rebound per call; the placeholder only satisfies Parse.
		tmpl, err := template.New("output").Funcs(templateFuncs(time.Time{})).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}
	return f.template.Funcs(templateFuncs(r.now())).Execute(w, r)
}

// defaultTemplate lists scans one per line.
const defaultTemplate = `{{range .Scans}}{{.ID}}	{{.Mode}}	{{positions .Plans}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
