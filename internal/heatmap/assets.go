package heatmap

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Loader loads script and style assets onto a page.
type Loader interface {
	LoadScript(ctx context.Context, p *Page, ref string) error
	LoadStyle(ctx context.Context, p *Page, ref string) error
}

// Script is the body of a script asset. Running it defines globals.
type Script func(p *Page)

// Style is a heat map palette. Colors run from the lowest to the highest
// value of the color scale.
type Style struct {
	Name   string   `yaml:"name"`
	Empty  string   `yaml:"empty"`
	Text   string   `yaml:"text"`
	Colors []string `yaml:"colors"`
}

// BuiltinPrefix marks references to assets compiled into the binary.
const BuiltinPrefix = "builtin:"

// DefaultStyle is the palette served as builtin:default.
func DefaultStyle() *Style {
	return &Style{
		Name:   "default",
		Empty:  "#3a3a3a",
		Text:   "#bcbcbc",
		Colors: []string{"#ebedf0", "#9be9a8", "#40c463", "#30a14e", "#216e39"},
	}
}

// ParseStyle decodes a YAML palette.
func ParseStyle(data []byte) (*Style, error) {
	var s Style
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "heatmap: parse style")
	}
	if len(s.Colors) == 0 {
		return nil, eris.New("heatmap: style has no colors")
	}
	return &s, nil
}

// Resources is the default Loader. Scripts are resolved by name; styles
// are builtin:<name> or a path to a YAML palette.
type Resources struct {
	mu      sync.RWMutex
	scripts map[string]Script
	styles  map[string]*Style
}

// NewResources returns a Loader serving the built-in calendar chart as
// script "CalHeatmap" and the default palette as style "builtin:default".
func NewResources() *Resources {
	r := &Resources{
		scripts: make(map[string]Script),
		styles:  make(map[string]*Style),
	}
	r.AddScript(CalendarGlobal, func(p *Page) { p.Define(CalendarGlobal, NewCalendar) })
	r.AddStyle("default", DefaultStyle())
	return r
}

// AddScript registers a script asset under ref.
func (r *Resources) AddScript(ref string, s Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[ref] = s
}

// AddStyle registers a built-in palette reachable as builtin:<name>.
func (r *Resources) AddStyle(name string, s *Style) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.styles[name] = s
}

// LoadScript implements Loader.
func (r *Resources) LoadScript(ctx context.Context, p *Page, ref string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "heatmap: load script")
	}
	r.mu.RLock()
	s, ok := r.scripts[ref]
	r.mu.RUnlock()
	if !ok {
		return eris.Errorf("heatmap: script %q not found", ref)
	}
	s(p)
	return nil
}

// LoadStyle implements Loader.
func (r *Resources) LoadStyle(ctx context.Context, p *Page, ref string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "heatmap: load style")
	}
	if name, ok := strings.CutPrefix(ref, BuiltinPrefix); ok {
		r.mu.RLock()
		s, found := r.styles[name]
		r.mu.RUnlock()
		if !found {
			return eris.Errorf("heatmap: style %q not found", ref)
		}
		p.AddStyle(s)
		return nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return eris.Wrapf(err, "heatmap: read style %s", ref)
	}
	s, err := ParseStyle(data)
	if err != nil {
		return err
	}
	p.AddStyle(s)
	return nil
}
