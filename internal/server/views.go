package server

import (
	"embed"
	"html"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blogicum/internal/models"

	"github.com/gofiber/fiber/v2"
	fiberhtml "github.com/gofiber/template/html/v2"
)

const (
	baseLayout = "layouts/base"
	csrfField  = "_csrf"

	dateLayout = "2 January 2006, 15:04"
)

//go:embed views
var viewsFS embed.FS

//go:embed static
var staticFiles embed.FS

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func staticFS() http.FileSystem {
	return http.FS(mustSub(staticFiles, "static"))
}

// newViews loads the embedded page templates. Dates are shown in loc.
func newViews(loc *time.Location) *fiberhtml.Engine {
	engine := fiberhtml.NewFileSystem(http.FS(mustSub(viewsFS, "views")), ".html")
	engine.AddFuncMap(template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format(dateLayout)
		},
		"linebreaks":    linebreaks,
		"truncatewords": truncateWords,
		"selected": func(id uint, raw string) bool {
			return raw != "" && strconv.FormatUint(uint64(id), 10) == raw
		},
		"fieldError": func(errs models.FieldErrors, field string) string {
			return errs[field]
		},
	})
	return engine
}

// linebreaks escapes s and turns blank-line separated blocks into
// paragraphs and single newlines into <br>.
func linebreaks(s string) template.HTML {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\r\n", "\n")
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(s, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}

// render fills in the values every page needs and renders name inside the
// base layout.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = models.FieldErrors{}
	}
	data["user"] = currentUser(c)
	token, _ := c.Locals(csrfField).(string)
	data["csrf"] = token
	data["path"] = c.Path()
	data["registration_open"] = s.config.RegistrationOpen
	return c.Status(status).Render(name, data)
}
