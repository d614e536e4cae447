package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/company"
	"github.com/sells-group/panels/internal/fxrate"
	"github.com/sells-group/panels/internal/monitoring"
	"github.com/sells-group/panels/internal/remote"
	"github.com/sells-group/panels/internal/zipcode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the panel services over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Metrics, nil),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := resolvePort(servePort, cfg.Server.Port)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

func newRouter(env *panelEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if env.Breakers != nil {
			circuits := make(map[string]string)
			for name, st := range env.Breakers.States() {
				circuits[name] = st.String()
			}
			body["circuits"] = circuits
		}
		writeJSON(w, http.StatusOK, body)
	})
	r.Handle("/metrics", promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/companies", companiesHandler(env.Services.Companies))
		r.Get("/fx", fxHandler(env.Services.Rates))
		r.Get("/zipcode/{code}", zipcodeHandler(env.Services.Postal))
	})
	return r
}

// maxCompanyLimit caps the limit a caller may ask for.
func maxCompanyLimit() int {
	return max(cfg.Company.Limit, 1) * 10
}

func companiesHandler(s remote.CompanySearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if len([]rune(strings.TrimSpace(q))) < cfg.Company.MinChars {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("q must have at least %d characters", cfg.Company.MinChars))
			return
		}
		limit := cfg.Company.Limit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxCompanyLimit())
		}

		cands, err := s.SearchCompanies(r.Context(), remote.SearchRequest{Query: q, Limit: limit})
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		entries := make([]company.Entry, len(cands))
		for i, c := range cands {
			entries[i] = company.Entry{Candidate: c, StatusLabel: company.StatusLabel(c.Status)}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": entries})
	}
}

type fxResponse struct {
	*remote.Rate
	Display          string `json:"display"`
	ConvertedDisplay string `json:"convertedDisplay,omitempty"`
}

func fxHandler(f remote.RateFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := remote.RateRequest{
			Base:  strings.ToUpper(strings.TrimSpace(q.Get("base"))),
			Quote: strings.ToUpper(strings.TrimSpace(q.Get("quote"))),
		}
		if req.Base == "" {
			req.Base = cfg.FX.DefaultBase
		}
		if req.Quote == "" {
			req.Quote = cfg.FX.DefaultQuote
		}
		if req.Base == req.Quote {
			writeError(w, http.StatusBadRequest, "Base and quote currencies must differ.")
			return
		}
		if raw := strings.TrimSpace(q.Get("amount")); raw != "" {
			amt, err := decimal.NewFromString(raw)
			if err != nil || !amt.IsPositive() {
				writeError(w, http.StatusBadRequest, "Amount must be a positive number.")
				return
			}
			req.Amount = &amt
		}

		rate, err := f.LatestRate(r.Context(), req)
		if err == nil && rate == nil {
			err = eris.New("fx: empty response")
		}
		if err != nil {
			writeRemoteError(w, err)
			return
		}

		resp := fxResponse{
			Rate:    rate,
			Display: "1 " + req.Base + " = " + fxrate.Format(rate.Rate, req.Quote) + " " + req.Quote,
		}
		if req.Amount != nil && rate.ConvertedAmount != nil {
			resp.ConvertedDisplay = fxrate.Format(*req.Amount, req.Base) + " " + req.Base + " = " +
				fxrate.Format(*rate.ConvertedAmount, req.Quote) + " " + req.Quote
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func zipcodeHandler(l remote.PostalLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := zipcode.Sanitize(chi.URLParam(r, "code"))
		if len(code) != zipcode.PostalDigits {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("postal code must have %d digits", zipcode.PostalDigits))
			return
		}

		matches, err := l.Lookup(r.Context(), code)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		opts := make([]zipcode.AddressOption, len(matches))
		for i, m := range matches {
			opts[i] = zipcode.AddressOption{
				Key:   strconv.Itoa(i),
				Label: zipcode.OptionLabel(m),
				Match: m,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": opts})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorBody{Message: msg})
}

// writeRemoteError answers 502 with the normalized message. Service errors
// that carry a code keep it.
func writeRemoteError(w http.ResponseWriter, err error) {
	zap.L().Warn("service call failed", zap.Error(err))
	body := remote.ErrorBody{Message: remote.Message(err)}
	var re *remote.Error
	if errors.As(err, &re) && re.Body != nil {
		body.ErrorCode = re.Body.ErrorCode
	}
	writeJSON(w, http.StatusBadGateway, body)
}
