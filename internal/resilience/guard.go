package resilience

import (
	"context"
	"errors"

	"github.com/sells-group/panels/internal/remote"
)

// UnavailableMessage is the toast text for a call rejected by an open circuit.
const UnavailableMessage = "Service temporarily unavailable. Please try again shortly."

// Breakers holds one breaker per service.
type Breakers struct {
	Companies *Breaker
	Rates     *Breaker
	Postal    *Breaker
}

// States returns the state of every breaker keyed by service.
func (b *Breakers) States() map[string]State {
	return map[string]State{
		"company": b.Companies.State(),
		"fx":      b.Rates.State(),
		"zipcode": b.Postal.State(),
	}
}

// Guard wraps each service in its own breaker. Rejected calls fail with a
// *remote.Error carrying UnavailableMessage and wrapping ErrCircuitOpen.
func Guard(svc remote.Services, cfg Config) (remote.Services, *Breakers) {
	b := &Breakers{
		Companies: NewBreaker("company", cfg),
		Rates:     NewBreaker("fx", cfg),
		Postal:    NewBreaker("zipcode", cfg),
	}
	out := svc
	if svc.Companies != nil {
		out.Companies = &companies{b: b.Companies, next: svc.Companies}
	}
	if svc.Rates != nil {
		out.Rates = &rates{b: b.Rates, next: svc.Rates}
	}
	if svc.Postal != nil {
		out.Postal = &postal{b: b.Postal, next: svc.Postal}
	}
	return out, b
}

func rejected(service string, err error) error {
	if errors.Is(err, ErrCircuitOpen) {
		return &remote.Error{Service: service, Msg: UnavailableMessage, Err: err}
	}
	return err
}

type companies struct {
	b    *Breaker
	next remote.CompanySearcher
}

func (c *companies) SearchCompanies(ctx context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	if err := c.b.Allow(); err != nil {
		return nil, rejected("company", err)
	}
	out, err := c.next.SearchCompanies(ctx, req)
	c.b.Record(err)
	return out, err
}

type rates struct {
	b    *Breaker
	next remote.RateFetcher
}

func (r *rates) LatestRate(ctx context.Context, req remote.RateRequest) (*remote.Rate, error) {
	if err := r.b.Allow(); err != nil {
		return nil, rejected("fx", err)
	}
	out, err := r.next.LatestRate(ctx, req)
	r.b.Record(err)
	return out, err
}

type postal struct {
	b    *Breaker
	next remote.PostalLookup
}

func (p *postal) Lookup(ctx context.Context, zipcode string) ([]remote.PostalMatch, error) {
	if err := p.b.Allow(); err != nil {
		return nil, rejected("zipcode", err)
	}
	out, err := p.next.Lookup(ctx, zipcode)
	p.b.Record(err)
	return out, err
}
