// Package heatmap wraps a calendar heat map chart. Chart implementations
// are loaded as named script assets onto a Page, the way a browser page
// loads a charting library, and then painted with a fixed configuration.
package heatmap

import (
	"context"
	"io"
	"sync"
	"time"
)

// Chart is a paintable chart instance.
type Chart interface {
	Paint(ctx context.Context, cfg PaintConfig) error
	Destroy()
}

// Constructor creates a chart bound to a page.
type Constructor func(p *Page) Chart

// Datum is one (date, value) point. Date is YYYY-MM-DD.
type Datum struct {
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// PaintConfig mirrors the options understood by calendar heat map charts.
type PaintConfig struct {
	Range     int             `json:"range"`
	Domain    DomainConfig    `json:"domain"`
	SubDomain SubDomainConfig `json:"subDomain"`
	Date      DateConfig      `json:"date"`
	Data      DataConfig      `json:"data"`
	Scale     ScaleConfig     `json:"scale"`
}

type DomainConfig struct {
	Type string `json:"type"`
}

type SubDomainConfig struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Radius int    `json:"radius"`
	Gutter int    `json:"gutter"`
}

type DateConfig struct {
	Start  time.Time `json:"start"`
	Locale string    `json:"locale"`
}

type DataConfig struct {
	Source []Datum `json:"source"`
	X      string  `json:"x"`
	Y      string  `json:"y"`
}

type ScaleConfig struct {
	Color ColorScale `json:"color"`
}

type ColorScale struct {
	Type   string `json:"type"`
	Domain [2]int `json:"domain"`
}

// Page is the host a chart paints into. Script assets define named
// constructors on it and style assets attach palettes to it.
type Page struct {
	out io.Writer

	mu      sync.RWMutex
	globals map[string]Constructor
	styles  []*Style
}

// NewPage creates an empty page whose charts write to out.
func NewPage(out io.Writer) *Page {
	return &Page{out: out, globals: make(map[string]Constructor)}
}

// Out is the writer charts paint into.
func (p *Page) Out() io.Writer { return p.out }

// Define registers a global constructor.
func (p *Page) Define(name string, c Constructor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globals[name] = c
}

// Global looks up a constructor defined by a loaded script.
func (p *Page) Global(name string) (Constructor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.globals[name]
	return c, ok && c != nil
}

// AddStyle attaches a palette. The most recently attached one wins.
func (p *Page) AddStyle(s *Style) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.styles = append(p.styles, s)
}

// Style returns the active palette, falling back to DefaultStyle.
func (p *Page) Style() *Style {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.styles) == 0 {
		return DefaultStyle()
	}
	return p.styles[len(p.styles)-1]
}
