// Package tui hosts the four panels in a terminal UI.
package tui

import (
	"context"
	"errors"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/facebookgo/clock"

	"github.com/sells-group/panels/internal/company"
	"github.com/sells-group/panels/internal/config"
	"github.com/sells-group/panels/internal/fxrate"
	"github.com/sells-group/panels/internal/heatmap"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/remote"
	"github.com/sells-group/panels/internal/zipcode"
)

const (
	tabCompany = iota
	tabFX
	tabZipcode
	tabHeatMap
	tabCount
)

var tabNames = [tabCount]string{"Company", "FX Rate", "Zipcode", "Activity"}

const (
	fxBase = iota
	fxQuote
	fxAmount
	fxFieldCount
)

// zipFields are the zipcode form inputs after the postal code, in order.
var zipFields = []zipcode.Field{zipcode.FieldPrefecture, zipcode.FieldCity, zipcode.FieldTown, zipcode.FieldStreet}

// Deps are the collaborators the UI needs.
type Deps struct {
	Services remote.Services
	Config   *config.Config
	Assets   heatmap.Loader
	// Sink also receives every toast and event. Optional.
	Sink notify.Sink
	// Clock drives the debounce timers. Optional.
	Clock clock.Clock
}

type changedMsg struct{}

type fetchDoneMsg struct{ err error }

type heatmapDoneMsg struct{}

// Model is the bubbletea model.
type Model struct {
	ctx     context.Context
	changes chan struct{}
	status  *statusSink

	company *company.Panel
	fx      *fxrate.Panel
	zip     *zipcode.Panel
	heat    *heatmap.Widget
	frame   *frame

	activeTab int
	cursor    int

	companyInput textinput.Model

	fxFocus     int
	amountInput textinput.Model

	zipFocus   int
	zipInputs  []textinput.Model
	optionsIdx int

	keys   keyMap
	help   help.Model
	width  int
	height int
}

// New builds the panels from deps. ctx bounds every remote call the panels
// start on their own.
func New(ctx context.Context, deps Deps) Model {
	cfg := deps.Config
	m := Model{
		ctx:     ctx,
		changes: make(chan struct{}, 1),
		frame:   &frame{},
		keys:    newKeyMap(),
		help:    help.New(),
	}
	signal := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	m.status = &statusSink{signal: signal}
	var sink notify.Sink = m.status
	if deps.Sink != nil {
		sink = notify.Multi(m.status, deps.Sink)
	}

	companyOpts := []company.Option{
		company.WithDebounce(config.Milliseconds(cfg.Company.DebounceMS)),
		company.WithMinChars(cfg.Company.MinChars),
		company.WithLimit(cfg.Company.Limit),
		company.WithMockMode(cfg.Company.MockEnabled),
		company.WithContext(ctx),
		company.OnChange(signal),
	}
	fxOpts := []fxrate.Option{
		fxrate.WithMinGap(config.Milliseconds(cfg.FX.MinGapMS)),
		fxrate.WithDefaults(cfg.FX.DefaultBase, cfg.FX.DefaultQuote),
		fxrate.OnChange(signal),
	}
	zipOpts := []zipcode.Option{
		zipcode.WithDebounce(config.Milliseconds(cfg.Zipcode.DebounceMS)),
		zipcode.WithContext(ctx),
		zipcode.OnChange(signal),
	}
	heatOpts := []heatmap.Option{
		heatmap.WithAssets(cfg.HeatMap.Script, cfg.HeatMap.Style),
		heatmap.WithDays(cfg.HeatMap.Days),
	}
	if deps.Clock != nil {
		companyOpts = append(companyOpts, company.WithClock(deps.Clock))
		fxOpts = append(fxOpts, fxrate.WithClock(deps.Clock))
		zipOpts = append(zipOpts, zipcode.WithClock(deps.Clock))
		heatOpts = append(heatOpts, heatmap.WithClock(deps.Clock))
	}

	m.company = company.New(deps.Services.Companies, sink, companyOpts...)
	m.fx = fxrate.New(deps.Services.Rates, sink, fxOpts...)
	m.zip = zipcode.New(deps.Services.Postal, sink, zipOpts...)
	m.heat = heatmap.New(heatmap.NewPage(m.frame), deps.Assets, heatOpts...)

	m.companyInput = textinput.New()
	m.companyInput.Placeholder = "Company name"
	m.companyInput.Prompt = "› "
	m.companyInput.Focus()

	m.amountInput = textinput.New()
	m.amountInput.Placeholder = "Amount (optional)"
	m.amountInput.Prompt = ""

	postal := textinput.New()
	postal.Placeholder = "1000001"
	postal.Prompt = ""
	postal.CharLimit = 10
	m.zipInputs = []textinput.Model{postal}
	for range zipFields {
		ti := textinput.New()
		ti.Prompt = ""
		m.zipInputs = append(m.zipInputs, ti)
	}
	m.zipInputs[0].Focus()

	return m
}

// Close stops pending timers on every panel.
func (m Model) Close() {
	m.company.Close()
	m.zip.Close()
	m.heat.Close()
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	heat, ctx := m.heat, m.ctx
	return tea.Batch(
		m.waitForChange(),
		textinput.Blink,
		func() tea.Msg {
			heat.Render(ctx)
			return heatmapDoneMsg{}
		},
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case changedMsg:
		m.syncFromPanels()
		return m, m.waitForChange()
	case fetchDoneMsg, heatmapDoneMsg:
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextTab):
		m.activeTab = (m.activeTab + 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		return m, nil
	}

	switch m.activeTab {
	case tabCompany:
		return m.updateCompany(msg)
	case tabFX:
		return m.updateFX(msg)
	case tabZipcode:
		return m.updateZip(msg)
	default:
		return m.updateHeatMap(msg)
	}
}

func (m Model) updateCompany(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.company.Entries())
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 && m.company.Highlight(m.cursor-1) {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < n-1 && m.company.Highlight(m.cursor+1) {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if n == 0 {
			p, ctx := m.company, m.ctx
			return m, func() tea.Msg {
				p.Submit(ctx)
				return nil
			}
		}
		m.company.Select(m.cursor)
		return m, nil
	}

	var cmd tea.Cmd
	before := m.companyInput.Value()
	m.companyInput, cmd = m.companyInput.Update(msg)
	if v := m.companyInput.Value(); v != before {
		m.company.Input(v)
	}
	return m, cmd
}

func (m Model) updateFX(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.setFXFocus((m.fxFocus + fxFieldCount - 1) % fxFieldCount)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.setFXFocus((m.fxFocus + 1) % fxFieldCount)
		return m, nil
	case key.Matches(msg, m.keys.Reset):
		m.fx.Reset()
		m.amountInput.SetValue("")
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		p, ctx := m.fx, m.ctx
		return m, func() tea.Msg {
			err := p.Fetch(ctx)
			if errors.Is(err, fxrate.ErrThrottled) {
				err = nil
			}
			return fetchDoneMsg{err: err}
		}
	case m.fxFocus != fxAmount && (key.Matches(msg, m.keys.Left) || key.Matches(msg, m.keys.Right)):
		step := 1
		if key.Matches(msg, m.keys.Left) {
			step = -1
		}
		if m.fxFocus == fxBase {
			m.fx.SetBase(cycle(m.fx.Base(), step))
		} else {
			m.fx.SetQuote(cycle(m.fx.Quote(), step))
		}
		return m, nil
	}

	if m.fxFocus != fxAmount {
		return m, nil
	}
	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	m.fx.SetAmount(m.amountInput.Value())
	return m, cmd
}

func (m *Model) setFXFocus(i int) {
	m.fxFocus = i
	if i == fxAmount {
		m.amountInput.Focus()
	} else {
		m.amountInput.Blur()
	}
}

// cycle moves step places through the supported currencies from ccy.
func cycle(ccy string, step int) string {
	list := fxrate.Currencies()
	i := slices.Index(list, ccy)
	if i < 0 {
		return list[0]
	}
	return list[(i+step+len(list))%len(list)]
}

func (m Model) updateZip(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.setZipFocus((m.zipFocus + len(m.zipInputs) - 1) % len(m.zipInputs))
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.setZipFocus((m.zipFocus + 1) % len(m.zipInputs))
		return m, nil
	case key.Matches(msg, m.keys.NextOpt), key.Matches(msg, m.keys.PrevOpt):
		opts := m.zip.Options()
		if len(opts) < 2 {
			return m, nil
		}
		step := 1
		if key.Matches(msg, m.keys.PrevOpt) {
			step = -1
		}
		m.optionsIdx = (m.optionsIdx + step + len(opts)) % len(opts)
		m.zip.Select(opts[m.optionsIdx].Key)
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		p, ctx := m.zip, m.ctx
		return m, func() tea.Msg {
			p.Submit(ctx)
			return nil
		}
	}

	var cmd tea.Cmd
	i := m.zipFocus
	before := m.zipInputs[i].Value()
	m.zipInputs[i], cmd = m.zipInputs[i].Update(msg)
	v := m.zipInputs[i].Value()
	if v == before {
		return m, cmd
	}
	if i == 0 {
		m.optionsIdx = 0
		m.zip.PostalInput(v)
	} else {
		_ = m.zip.Edit(zipFields[i-1], v)
	}
	return m, cmd
}

func (m *Model) setZipFocus(i int) {
	m.zipInputs[m.zipFocus].Blur()
	m.zipFocus = i
	m.zipInputs[i].Focus()
}

func (m Model) updateHeatMap(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Reset) && m.heat.Painted() {
		heat, ctx := m.heat, m.ctx
		return m, func() tea.Msg {
			heat.Repaint(ctx)
			return heatmapDoneMsg{}
		}
	}
	return m, nil
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activeTab {
	case tabCompany:
		m.companyInput, cmd = m.companyInput.Update(msg)
	case tabFX:
		m.amountInput, cmd = m.amountInput.Update(msg)
	case tabZipcode:
		m.zipInputs[m.zipFocus], cmd = m.zipInputs[m.zipFocus].Update(msg)
	}
	return m, cmd
}

// syncFromPanels copies panel state that changed asynchronously into the
// inputs the user is not typing in.
func (m *Model) syncFromPanels() {
	if sel, ok := m.company.Selected(); ok {
		m.cursor = sel
	} else {
		m.cursor = 0
	}

	addr := m.zip.Address()
	values := map[zipcode.Field]string{
		zipcode.FieldPrefecture: addr.Prefecture,
		zipcode.FieldCity:       addr.City,
		zipcode.FieldTown:       addr.Town,
		zipcode.FieldStreet:     addr.Street,
	}
	for i, f := range zipFields {
		if m.activeTab == tabZipcode && m.zipFocus == i+1 {
			continue
		}
		m.zipInputs[i+1].SetValue(values[f])
	}
	if selKey, ok := m.zip.SelectedKey(); ok {
		for i, o := range m.zip.Options() {
			if o.Key == selKey {
				m.optionsIdx = i
			}
		}
	}
}
