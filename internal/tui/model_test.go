package tui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/panels/internal/config"
	"github.com/sells-group/panels/internal/fxrate"
	"github.com/sells-group/panels/internal/heatmap"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/remote"
)

type fakeServices struct {
	searches atomic.Int32
	lookups  atomic.Int32
	rates    atomic.Int32
}

func (f *fakeServices) SearchCompanies(_ context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	f.searches.Add(1)
	return []remote.Candidate{
		{Name: "Acme KK", JurisdictionCode: "jp", CompanyNumber: "0100-01-000001", Status: remote.StrPtr("Active")},
		{Name: "Acme Trading", JurisdictionCode: "jp"},
	}, nil
}

func (f *fakeServices) LatestRate(_ context.Context, req remote.RateRequest) (*remote.Rate, error) {
	f.rates.Add(1)
	r := &remote.Rate{Base: req.Base, Quote: req.Quote, Rate: decimal.RequireFromString("150.1234"), RateDate: "2026-10-16"}
	if req.Amount != nil {
		conv := req.Amount.Mul(r.Rate)
		r.ConvertedAmount = &conv
	}
	return r, nil
}

func (f *fakeServices) Lookup(_ context.Context, zipcode string) ([]remote.PostalMatch, error) {
	f.lookups.Add(1)
	return []remote.PostalMatch{{Prefecture: "東京都", City: "千代田区", Town: "丸の内", Full: "東京都千代田区丸の内", Zipcode: zipcode}}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Company.DebounceMS = 350
	cfg.Company.MinChars = 2
	cfg.Company.Limit = 10
	cfg.FX.MinGapMS = 300
	cfg.FX.DefaultBase = "USD"
	cfg.FX.DefaultQuote = "JPY"
	cfg.Zipcode.DebounceMS = 400
	cfg.HeatMap.Days = 14
	return cfg
}

func newTestModel(t *testing.T) (Model, *fakeServices, *clock.Mock, *notify.Recorder) {
	t.Helper()
	f := &fakeServices{}
	clk := clock.NewMock()
	clk.Add(time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local).Sub(clk.Now()))
	rec := &notify.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := New(ctx, Deps{
		Services: remote.Services{Companies: f, Rates: f, Postal: f},
		Config:   testConfig(),
		Assets:   heatmap.NewResources(),
		Sink:     rec,
		Clock:    clk,
	})
	t.Cleanup(m.Close)
	return m, f, clk, rec
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func drainChange(t *testing.T, m Model) Model {
	t.Helper()
	select {
	case <-m.changes:
	default:
	}
	m, _ = update(t, m, changedMsg{})
	return m
}

func TestCompanyTab_SearchAndSelect(t *testing.T) {
	m, f, clk, rec := newTestModel(t)

	m = typeText(t, m, "Acme")
	assert.Equal(t, int32(0), f.searches.Load())

	clk.Add(350 * time.Millisecond)
	assert.Equal(t, int32(1), f.searches.Load())

	m = drainChange(t, m)
	view := m.View()
	assert.Contains(t, view, "Acme KK • Active")
	assert.Contains(t, view, "Acme Trading")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "companyselect", events[0].Name())
	assert.Contains(t, m.View(), "event: companyselect Acme Trading")
}

func TestCompanyTab_ShortInputNoSearch(t *testing.T) {
	m, f, clk, _ := newTestModel(t)
	m = typeText(t, m, "A")
	clk.Add(time.Second)
	assert.Equal(t, int32(0), f.searches.Load())
	assert.Contains(t, m.View(), "No candidates")
}

func TestFXTab_Fetch(t *testing.T) {
	m, f, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabFX, m.activeTab)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, fxAmount, m.fxFocus)
	m = typeText(t, m, "1000")
	assert.Equal(t, "1000", m.fx.AmountInput())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, fetchDoneMsg{}, msg)
	assert.Equal(t, int32(1), f.rates.Load())

	m, _ = update(t, m, msg)
	view := m.View()
	assert.Contains(t, view, "1 USD = 150.12 JPY")
	assert.Contains(t, view, "1,000.00 USD = 150,123.4 JPY")
	assert.Contains(t, view, "as of 2026-10-16")
}

func TestFXTab_ThrottledIsQuiet(t *testing.T) {
	m, f, _, rec := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, fetchDoneMsg{}, cmd())
	assert.Equal(t, int32(1), f.rates.Load())
	assert.Empty(t, rec.Toasts())
}

func TestFXTab_CycleCurrencies(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, cycle("USD", 1), m.fx.Base())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, "USD", m.fx.Base())
}

func TestCycle(t *testing.T) {
	list := fxrate.Currencies()
	assert.Equal(t, list[0], cycle(list[len(list)-1], 1))
	assert.Equal(t, list[len(list)-1], cycle(list[0], -1))
	assert.Equal(t, list[0], cycle("XXX", 1))
}

func TestZipTab_Autofill(t *testing.T) {
	m, f, clk, rec := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabZipcode, m.activeTab)

	m = typeText(t, m, "100-0001")
	clk.Add(399 * time.Millisecond)
	assert.Equal(t, int32(0), f.lookups.Load())
	clk.Add(time.Millisecond)
	assert.Equal(t, int32(1), f.lookups.Load())

	m = drainChange(t, m)
	assert.Equal(t, "東京都", m.zipInputs[1].Value())
	assert.Equal(t, "千代田区", m.zipInputs[2].Value())
	assert.Equal(t, "丸の内", m.zipInputs[3].Value())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 4, m.zipFocus)
	m = typeText(t, m, "1-1")
	assert.Equal(t, "1-1", m.zip.Address().Street)

	events := rec.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "addresschange", events[len(events)-1].Name())
}

func TestHeatMapTab(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	for range 3 {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	}
	assert.Equal(t, tabHeatMap, m.activeTab)
	assert.Contains(t, m.View(), "Loading…")

	m.heat.Render(context.Background())
	m, _ = update(t, m, heatmapDoneMsg{})
	view := m.View()
	assert.Contains(t, view, "Activity")
	assert.Contains(t, view, "2026年10月")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.Equal(t, heatmapDoneMsg{}, cmd())
}

func TestTabsWrapAndQuit(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, tabHeatMap, m.activeTab)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFooterShowsToast(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	m.status.Toast(notify.Toast{Title: "Fetch failed", Message: "rate source unavailable", Variant: notify.VariantError})
	assert.Contains(t, m.View(), "rate source unavailable")
}
