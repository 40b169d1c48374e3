// Package pages renders the storefront views. Every page is a templ.Component
// backed by an embedded html/template file that shares the base layout.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"

	"github.com/a-h/templ"

	"nightlife-storefront/internal/models"
	"nightlife-storefront/web/templates/components"
)

//go:embed html/*.html
var files embed.FS

var views = mustParse()

func mustParse() map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(components.Funcs()).ParseFS(files, "html/layout.html", "html/partials.html"))

	names, err := fs.Glob(files, "html/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		file := path.Base(name)
		if file == "layout.html" || file == "partials.html" {
			continue
		}
		t := template.Must(template.Must(base.Clone()).ParseFS(files, name))
		out[file[:len(file)-len(".html")]] = t
	}
	return out
}

// frame is what every template executes against.
type frame struct {
	CSRFToken string
	User      *models.User
	CartCount int
	Title     string
	Data      any
}

// CartCounter lets the layout show the cart badge without the pages package
// knowing about sessions.
type CartCounter interface {
	Summary() models.CartSummary
}

type cartKey struct{}

// WithCart makes the session cart visible to the layout.
func WithCart(ctx context.Context, c CartCounter) context.Context {
	return context.WithValue(ctx, cartKey{}, c)
}

// render executes the named template. view is the page file, entry the
// template defined in it ("page" for full pages, anything else for fragments).
// TODO: port the html files to .templ components and wire templ generate into the build.
func render(view, entry, title string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := views[view]
		if !ok {
			return fmt.Errorf("unknown view %q", view)
		}
		f := frame{
			CSRFToken: components.CSRFToken(ctx),
			User:      components.CurrentUser(ctx),
			Title:     title,
			Data:      data,
		}
		if c, ok := ctx.Value(cartKey{}).(CartCounter); ok && c != nil {
			f.CartCount = c.Summary().ItemCount
		}
		return t.ExecuteTemplate(w, entry, f)
	})
}
