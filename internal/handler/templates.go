package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// layoutPrefix marks partials that are parsed into every page.
const layoutPrefix = "_"

// TemplateCache holds parsed page templates. Each page is parsed together with the
// shared partials and executed through the "layout" template.
type TemplateCache struct {
	mu    sync.RWMutex
	cache map[string]*template.Template
	funcs template.FuncMap
}

// NewTemplateCache creates a cache whose image URLs are resolved against imageBase.
func NewTemplateCache(imageBase string) *TemplateCache {
	imageBase = strings.TrimRight(imageBase, "/")
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: template.FuncMap{
			"money": formatMoney,
			"date": func(t time.Time) string {
				if t.IsZero() {
					return ""
				}
				return t.Format("02/01/2006")
			},
			"datetime": func(t time.Time) string {
				if t.IsZero() {
					return ""
				}
				return t.Format("02/01/2006 15:04")
			},
			"inputDate": func(t time.Time) string {
				if t.IsZero() {
					return ""
				}
				return t.Format("2006-01-02")
			},
			"image": func(p string) string {
				if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "/static/") {
					return p
				}
				return imageBase + "/" + strings.TrimLeft(p, "/")
			},
			"payment": func(p string) string {
				return checkout.PaymentMethod(p).Label()
			},
			"statusLabel": func(s model.OrderStatus) string {
				if s == "" {
					return ""
				}
				return strings.ToUpper(string(s[:1])) + string(s[1:])
			},
			"add": func(a, b int) int { return a + b },
			"seconds": func(d time.Duration) string {
				return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
			},
			"countdown": formatCountdown,
		},
	}
}

// Load parses the embedded templates.
func (tc *TemplateCache) Load() error {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return err
	}
	return tc.LoadFS(sub)
}

// LoadFS parses every page of fsys with the partials whose names start with "_".
func (tc *TemplateCache) LoadFS(fsys fs.FS) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	partials, err := fs.Glob(fsys, layoutPrefix+"*.html")
	if err != nil {
		return err
	}
	if len(partials) == 0 {
		return fmt.Errorf("no layout partials found")
	}

	for _, file := range files {
		name := path.Base(file)
		if strings.HasPrefix(name, layoutPrefix) {
			continue
		}
		patterns := append(append([]string{}, partials...), file)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, patterns...)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		tc.cache[name] = tmpl
	}
	return nil
}

// Get returns the page template, or nil when it is unknown.
func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
