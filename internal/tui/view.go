package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/panels/internal/company"
	"github.com/sells-group/panels/internal/zipcode"
)

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.activeTab {
	case tabCompany:
		body = m.companyView()
	case tabFX:
		body = m.fxView()
	case tabZipcode:
		body = m.zipView()
	default:
		body = m.heatMapView()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.tabsView(),
		bodyStyle.Render(body),
		footerStyle.Render(m.footerView()),
	)
}

func (m Model) tabsView() string {
	tabs := make([]string, tabCount)
	for i, name := range tabNames {
		if i == m.activeTab {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) companyView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Company search") + "\n")
	b.WriteString(m.companyInput.View() + "\n\n")

	if m.company.Loading() {
		b.WriteString(dimStyle.Render("Searching…"))
		return b.String()
	}
	entries := m.company.Entries()
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("No candidates"))
		return b.String()
	}
	for i, e := range entries {
		b.WriteString(entryLine(e, i == m.cursor) + "\n")
	}
	return b.String()
}

func entryLine(e company.Entry, active bool) string {
	prefix := "  "
	if active {
		prefix = cursorStyle.Render("> ")
	}
	meta := strings.TrimSpace(strings.Join([]string{e.JurisdictionCode, e.CompanyNumber}, " "))
	line := prefix + e.Name + e.StatusLabel
	if meta != "" {
		line += dimStyle.Render("  " + meta)
	}
	if e.RawAddress != "" {
		line += "\n    " + dimStyle.Render(e.RawAddress)
	}
	return line
}

func (m Model) fxView() string {
	field := func(i int, label, value string) string {
		l := labelStyle.Render(label)
		if i == m.fxFocus {
			l = labelStyle.Foreground(colorLavender).Render(label)
		}
		return l + value
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("FX rate") + "\n")
	b.WriteString(field(fxBase, "Base", currencyValue(m.fx.Base(), m.fxFocus == fxBase)) + "\n")
	b.WriteString(field(fxQuote, "Quote", currencyValue(m.fx.Quote(), m.fxFocus == fxQuote)) + "\n")
	b.WriteString(field(fxAmount, "Amount", m.amountInput.View()) + "\n\n")

	switch {
	case m.fx.Loading():
		b.WriteString(dimStyle.Render("Fetching…"))
	case m.fx.HasResult():
		b.WriteString(resultStyle.Render(m.fx.RateDisplay()))
		if conv := m.fx.ConvertedDisplay(); conv != "" {
			b.WriteString("\n" + resultStyle.Render(conv))
		}
		if r, ok := m.fx.Result(); ok && r.RateDate != "" {
			b.WriteString("\n" + dimStyle.Render("as of "+r.RateDate))
		}
	default:
		b.WriteString(dimStyle.Render("Press enter to fetch the latest rate"))
	}
	return b.String()
}

func currencyValue(ccy string, focused bool) string {
	if focused {
		return focusStyle.Render("‹ " + ccy + " ›")
	}
	return "  " + ccy
}

func (m Model) zipView() string {
	labels := []string{"Postal code", "Prefecture", "City", "Town", "Street"}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Address autofill") + "\n")
	for i, in := range m.zipInputs {
		l := labelStyle.Render(labels[i])
		if i == m.zipFocus {
			l = labelStyle.Foreground(colorLavender).Render(labels[i])
		}
		b.WriteString(l + in.View() + "\n")
	}
	if m.zip.Loading() {
		b.WriteString("\n" + dimStyle.Render("Looking up…"))
	}
	if m.zip.HasOptions() {
		b.WriteString("\n" + titleStyle.Render("Matches") + "\n")
		b.WriteString(optionsView(m.zip.Options(), m.optionsIdx))
	}
	return b.String()
}

func optionsView(opts []zipcode.AddressOption, active int) string {
	var b strings.Builder
	for i, o := range opts {
		prefix := "  "
		if i == active {
			prefix = cursorStyle.Render("> ")
		}
		b.WriteString(prefix + o.Label + "\n")
	}
	return b.String()
}

func (m Model) heatMapView() string {
	if m.heat.Loading() {
		return dimStyle.Render("Loading…")
	}
	out := m.frame.String()
	if out == "" {
		return dimStyle.Render("Heat map unavailable")
	}
	return titleStyle.Render("Activity") + "\n" + strings.TrimRight(out, "\n")
}

func (m Model) footerView() string {
	var lines []string
	toast, event := m.status.last()
	if toast != nil {
		lines = append(lines, toastStyle(toast.Variant).Render(toast.Title)+" "+toast.Message)
	}
	if event != nil {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("event: %s %s", event.Name(), eventSummary(event))))
	}
	lines = append(lines, m.help.ShortHelpView(m.keys.bindings(m.activeTab)))
	return strings.Join(lines, "\n")
}

func eventSummary(e any) string {
	switch ev := e.(type) {
	case company.Selected:
		return ev.Company.Name
	case zipcode.AddressChanged:
		return ev.Postal + " " + ev.Full
	}
	return ""
}
