package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/panels/internal/company"
	"github.com/sells-group/panels/internal/config"
	"github.com/sells-group/panels/internal/fxrate"
	"github.com/sells-group/panels/internal/heatmap"
	"github.com/sells-group/panels/internal/notify"
	"github.com/sells-group/panels/internal/zipcode"
)

var (
	companySelect int
	fxBase        string
	fxQuote       string
	fxAmount      string
	zipOption     int
	heatDays      int
	heatStyle     string
)

var companyCmd = &cobra.Command{
	Use:   "company <query>",
	Short: "Search company candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		rec := &notify.Recorder{}
		p := company.New(env.Services.Companies, notify.Multi(rec, notify.LogSink{Panel: "company"}),
			company.WithMinChars(cfg.Company.MinChars),
			company.WithLimit(cfg.Company.Limit),
			company.WithMockMode(cfg.Company.MockEnabled),
			company.WithContext(cmd.Context()),
		)
		defer p.Close()

		return runCompany(cmd.Context(), cmd.OutOrStdout(), p, rec, strings.Join(args, " "), companySelect)
	},
}

func runCompany(ctx context.Context, out io.Writer, p *company.Panel, rec *notify.Recorder, query string, sel int) error {
	p.Input(query)
	p.Submit(ctx)

	for i, e := range p.Entries() {
		line := fmt.Sprintf("%2d. %s%s", i+1, e.Name, e.StatusLabel)
		if e.JurisdictionCode != "" || e.CompanyNumber != "" {
			line += fmt.Sprintf("  [%s %s]", e.JurisdictionCode, e.CompanyNumber)
		}
		fmt.Fprintln(out, line)
	}
	if sel > 0 && !p.Select(sel-1) {
		return eris.Errorf("no candidate %d", sel)
	}
	return finish(out, rec)
}

var fxCmd = &cobra.Command{
	Use:   "fx",
	Short: "Fetch the latest FX rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		rec := &notify.Recorder{}
		p := fxrate.New(env.Services.Rates, notify.Multi(rec, notify.LogSink{Panel: "fx"}),
			fxrate.WithDefaults(cfg.FX.DefaultBase, cfg.FX.DefaultQuote),
		)
		if fxBase != "" {
			p.SetBase(fxBase)
		}
		if fxQuote != "" {
			p.SetQuote(fxQuote)
		}
		p.SetAmount(fxAmount)

		return runFX(cmd.Context(), cmd.OutOrStdout(), p, rec)
	},
}

func runFX(ctx context.Context, out io.Writer, p *fxrate.Panel, rec *notify.Recorder) error {
	if err := p.Fetch(ctx); err != nil {
		_ = finish(out, rec)
		return err
	}
	fmt.Fprintln(out, p.RateDisplay())
	if conv := p.ConvertedDisplay(); conv != "" {
		fmt.Fprintln(out, conv)
	}
	if r, ok := p.Result(); ok && r.RateDate != "" {
		fmt.Fprintln(out, "as of", r.RateDate)
	}
	return finish(out, rec)
}

var zipCmd = &cobra.Command{
	Use:   "zip <postal-code>",
	Short: "Resolve a Japanese postal code to an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), cfg, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		rec := &notify.Recorder{}
		p := zipcode.New(env.Services.Postal, notify.Multi(rec, notify.LogSink{Panel: "zipcode"}),
			zipcode.WithContext(cmd.Context()),
		)
		defer p.Close()

		return runZip(cmd.Context(), cmd.OutOrStdout(), p, rec, args[0], zipOption)
	},
}

func runZip(ctx context.Context, out io.Writer, p *zipcode.Panel, rec *notify.Recorder, postal string, option int) error {
	if n := len(zipcode.Sanitize(postal)); n != zipcode.PostalDigits {
		return eris.Errorf("postal code must have %d digits, got %d", zipcode.PostalDigits, n)
	}
	p.PostalInput(postal)
	p.Submit(ctx)

	if p.HasOptions() {
		for _, o := range p.Options() {
			fmt.Fprintf(out, "[%s] %s\n", o.Key, o.Label)
		}
	}
	if option >= 0 && !p.Select(fmt.Sprint(option)) {
		return eris.Errorf("no address option %d", option)
	}
	if full := p.Address().Full(); full != "" {
		fmt.Fprintln(out, full)
	}
	return finish(out, rec)
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Draw the activity heat map",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		days := cfg.HeatMap.Days
		if heatDays > 0 {
			days = heatDays
		}
		style := cfg.HeatMap.Style
		if heatStyle != "" {
			style = heatStyle
		}
		return runHeatMap(cmd.Context(), cmd.OutOrStdout(), cfg.HeatMap, days, style)
	},
}

func runHeatMap(ctx context.Context, out io.Writer, hc config.HeatMapConfig, days int, style string) error {
	w := heatmap.New(heatmap.NewPage(out), heatmap.NewResources(),
		heatmap.WithAssets(hc.Script, style),
		heatmap.WithDays(days),
	)
	defer w.Close()

	w.Render(ctx)
	if !w.Painted() {
		return eris.New("heat map could not be drawn; see log")
	}
	return nil
}

// finish prints the toasts and events a panel produced.
func finish(out io.Writer, rec *notify.Recorder) error {
	for _, t := range rec.Toasts() {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", strings.ToUpper(string(t.Variant)), t.Title, t.Message)
	}
	for _, e := range rec.Events() {
		b, err := json.Marshal(e)
		if err != nil {
			return eris.Wrap(err, "encode event")
		}
		fmt.Fprintf(out, "%s %s\n", e.Name(), b)
	}
	return nil
}

func init() {
	companyCmd.Flags().IntVar(&companySelect, "select", 0, "emit companyselect for the Nth candidate")
	fxCmd.Flags().StringVar(&fxBase, "base", "", "base currency (default from config)")
	fxCmd.Flags().StringVar(&fxQuote, "quote", "", "quote currency (default from config)")
	fxCmd.Flags().StringVar(&fxAmount, "amount", "", "amount to convert")
	zipCmd.Flags().IntVar(&zipOption, "option", -1, "pick the address option with this key")
	heatmapCmd.Flags().IntVar(&heatDays, "days", 0, "days of data (default from config)")
	heatmapCmd.Flags().StringVar(&heatStyle, "style", "", "style asset: builtin:<name> or a YAML file")

	rootCmd.AddCommand(companyCmd, fxCmd, zipCmd, heatmapCmd)
}
