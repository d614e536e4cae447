package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/cache"
	"github.com/sells-group/panels/internal/config"
	"github.com/sells-group/panels/internal/monitoring"
	"github.com/sells-group/panels/internal/remote"
	"github.com/sells-group/panels/internal/resilience"
	"github.com/sells-group/panels/pkg/frankfurter"
	"github.com/sells-group/panels/pkg/opencorporates"
	sfpkg "github.com/sells-group/panels/pkg/salesforce"
	"github.com/sells-group/panels/pkg/zipcloud"
)

// panelEnv holds the services the panels call plus the resources behind them.
type panelEnv struct {
	Services remote.Services
	Metrics  *monitoring.Metrics
	Registry *prometheus.Registry
	Cache    cache.Store
	Breakers *resilience.Breakers
}

// Close releases resources held by the environment.
func (pe *panelEnv) Close() {
	if pe.Cache != nil {
		if err := pe.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// initEnv validates cfg for mode and builds the instrumented, cached
// services. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string) (*panelEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	raw, err := initServices(c)
	if err != nil {
		return nil, err
	}

	var breakers *resilience.Breakers
	if c.Resilience.Enabled {
		raw, breakers = resilience.Guard(raw, resilience.Config{
			FailureThreshold: c.Resilience.FailureThreshold,
			ResetTimeout:     time.Duration(c.Resilience.ResetTimeoutSecs) * time.Second,
		})
	}

	store, err := cache.Open(ctx, c.Cache)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	zap.L().Debug("panels: services ready",
		zap.String("backend", c.Backend.Driver),
		zap.String("cache", c.Cache.Driver),
	)

	return &panelEnv{
		Services: cache.Wrap(metrics.Instrument(raw), store, metrics),
		Metrics:  metrics,
		Registry: reg,
		Cache:    store,
		Breakers: breakers,
	}, nil
}

// initServices builds the uninstrumented services for the configured backend.
func initServices(c *config.Config) (remote.Services, error) {
	switch c.Backend.Driver {
	case "salesforce":
		return initSalesforce(c)
	default:
		return initDirect(c), nil
	}
}

func initDirect(c *config.Config) remote.Services {
	hc := &http.Client{Timeout: time.Duration(c.Direct.TimeoutSecs) * time.Second}
	return remote.Services{
		Companies: opencorporates.NewClient(
			opencorporates.WithBaseURL(c.Direct.OpenCorporatesURL),
			opencorporates.WithAPIToken(c.Direct.OpenCorporatesToken),
			opencorporates.WithHTTPClient(hc),
			opencorporates.WithRateLimit(c.Direct.RateLimit),
		),
		Rates: frankfurter.NewClient(
			frankfurter.WithBaseURL(c.Direct.FrankfurterURL),
			frankfurter.WithHTTPClient(hc),
			frankfurter.WithRateLimit(c.Direct.RateLimit),
		),
		Postal: zipcloud.NewClient(
			zipcloud.WithBaseURL(c.Direct.ZipcloudURL),
			zipcloud.WithHTTPClient(hc),
			zipcloud.WithRateLimit(c.Direct.RateLimit),
		),
	}
}

func initSalesforce(c *config.Config) (remote.Services, error) {
	if c.Salesforce.ClientID == "" {
		return remote.Services{}, eris.New("salesforce client ID is required (PANELS_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(c.Salesforce.KeyPath)
	if err != nil {
		return remote.Services{}, eris.Wrap(err, "read salesforce JWT private key")
	}

	client, err := sfpkg.Connect(sfpkg.Creds{
		LoginURL:   c.Salesforce.LoginURL,
		Username:   c.Salesforce.Username,
		ClientID:   c.Salesforce.ClientID,
		PrivateKey: string(pemData),
	}, sfpkg.WithRateLimit(c.Salesforce.RateLimit))
	if err != nil {
		return remote.Services{}, eris.Wrap(err, "init salesforce")
	}

	return salesforceServices(client, c.Salesforce), nil
}

// salesforceServices maps each service onto its Apex action, or onto a SOQL
// Account search when company_source is "accounts".
func salesforceServices(client sfpkg.Client, sc config.SalesforceConfig) remote.Services {
	actions := sfpkg.NewServices(client, sfpkg.Actions{
		Company: sc.CompanyAction,
		FX:      sc.FXAction,
		Zipcode: sc.ZipcodeAction,
	})
	svc := remote.Services{Companies: actions, Rates: actions, Postal: actions}
	if sc.CompanySource == "accounts" {
		svc.Companies = sfpkg.NewAccountSearcher(client)
	}
	return svc
}
