// Package templates holds the Handlebars templates of one full build.
//
// A Registry is immutable once loaded: a full build constructs a new Registry and swaps
// it in, rather than clearing and re-registering a shared one. Every template is also
// available to every other template as a partial under its name.
package templates

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mailgun/raymond/v2"

	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// Extensions recognized as template sources.
var Extensions = []string{".hbs", ".handlebars"}

// Registry is a named set of parsed templates.
type Registry struct {
	root      string
	templates map[string]*raymond.Template
}

// New parses sources (name -> template text) into a Registry.
func New(sources map[string]string) (*Registry, error) {
	r := &Registry{templates: make(map[string]*raymond.Template, len(sources))}
	for name, src := range sources {
		tpl, err := raymond.Parse(src)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryTemplate, "parse template").
				WithContext(logfields.KeyLayout, name).
				Build()
		}
		r.templates[name] = tpl
	}
	r.linkPartials()
	return r, nil
}

// LoadDir registers every template file below dir. A template's name is its slash-separated
// path relative to dir without the template extension, so dir/ref/talk.html.hbs is named
// "ref/talk.html". A missing dir yields an empty Registry.
func LoadDir(dir string) (*Registry, error) {
	sources := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !IsTemplate(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sources[NameFor(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "load templates").
			WithContext(logfields.KeyPath, dir).
			Build()
	}

	r, err := New(sources)
	if err != nil {
		return nil, err
	}
	r.root = dir
	return r, nil
}

// IsTemplate reports whether path has a template extension.
func IsTemplate(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// NameFor derives a template name from a path relative to the registry root.
func NameFor(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// linkPartials makes every template callable as a partial from every other one.
func (r *Registry) linkPartials() {
	for _, tpl := range r.templates {
		r.registerPartials(tpl)
	}
}

func (r *Registry) registerPartials(tpl *raymond.Template) {
	for name, partial := range r.templates {
		tpl.RegisterPartialTemplate(name, partial)
	}
}

// Root returns the directory the registry was loaded from, if any.
func (r *Registry) Root() string { return r.root }

// Len returns the number of registered templates.
func (r *Registry) Len() int { return len(r.templates) }

// Has reports whether a template with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Names returns the registered template names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named template with vars.
func (r *Registry) Render(name string, vars map[string]any) (string, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return "", errors.TemplateError("template not found").
			WithContext(logfields.KeyLayout, name).
			Build()
	}
	out, err := tpl.Exec(vars)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryTemplate, "render template").
			WithContext(logfields.KeyLayout, name).
			Build()
	}
	return out, nil
}

// RenderString parses and executes a literal template. Registered templates are available
// to it as partials.
func (r *Registry) RenderString(source string, vars map[string]any) (string, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryTemplate, "parse template string").Build()
	}
	r.registerPartials(tpl)
	out, err := tpl.Exec(vars)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryTemplate, "render template string").Build()
	}
	return out, nil
}
