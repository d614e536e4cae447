package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/panels/internal/remote"
)

// Service names used in keys and observer callbacks.
const (
	ServiceCompany = "company"
	ServiceFX      = "fx"
	ServiceZipcode = "zipcode"
)

// Observer is told about every cache lookup.
type Observer interface {
	CacheHit(service string)
	CacheMiss(service string)
}

type layer struct {
	store Store
	obs   Observer
}

// Wrap returns services whose results are read from and written to store.
// Failed calls are never cached. A store error is logged and the call goes
// through to the wrapped service. A nil store returns svc unchanged.
func Wrap(svc remote.Services, store Store, obs Observer) remote.Services {
	if store == nil {
		return svc
	}
	l := &layer{store: store, obs: obs}
	out := svc
	if svc.Companies != nil {
		out.Companies = &companies{layer: l, next: svc.Companies}
	}
	if svc.Rates != nil {
		out.Rates = &rates{layer: l, next: svc.Rates}
	}
	if svc.Postal != nil {
		out.Postal = &postal{layer: l, next: svc.Postal}
	}
	return out
}

func (l *layer) load(ctx context.Context, service, key string, dst any) bool {
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("cache: get failed", zap.String("service", service), zap.Error(err))
		ok = false
	}
	if ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			zap.L().Warn("cache: decode failed", zap.String("service", service), zap.Error(err))
			ok = false
		}
	}
	if l.obs != nil {
		if ok {
			l.obs.CacheHit(service)
		} else {
			l.obs.CacheMiss(service)
		}
	}
	return ok
}

func (l *layer) save(ctx context.Context, service, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache: encode failed", zap.String("service", service), zap.Error(err))
		return
	}
	if err := l.store.Set(ctx, key, raw); err != nil {
		zap.L().Warn("cache: set failed", zap.String("service", service), zap.Error(err))
	}
}

// CompanyKey is the cache key for a company search.
func CompanyKey(req remote.SearchRequest) string {
	j := ""
	if req.Jurisdiction != nil {
		j = strings.ToLower(*req.Jurisdiction)
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(req.Query)) + "\x00" + j))
	return ServiceCompany + ":" + hex.EncodeToString(sum[:8]) + ":" + strconv.Itoa(req.Limit)
}

// FXKey is the cache key for a rate. The amount is not part of the key.
func FXKey(base, quote string) string {
	return ServiceFX + ":" + strings.ToUpper(base) + ":" + strings.ToUpper(quote)
}

// ZipcodeKey is the cache key for a postal lookup.
func ZipcodeKey(zipcode string) string {
	return ServiceZipcode + ":" + strings.TrimSpace(zipcode)
}

type companies struct {
	*layer
	next remote.CompanySearcher
}

func (c *companies) SearchCompanies(ctx context.Context, req remote.SearchRequest) ([]remote.Candidate, error) {
	key := CompanyKey(req)
	var cached []remote.Candidate
	if c.load(ctx, ServiceCompany, key, &cached) {
		return cached, nil
	}
	out, err := c.next.SearchCompanies(ctx, req)
	if err != nil {
		return nil, err
	}
	c.save(ctx, ServiceCompany, key, out)
	return out, nil
}

type rates struct {
	*layer
	next remote.RateFetcher
}

func (r *rates) LatestRate(ctx context.Context, req remote.RateRequest) (*remote.Rate, error) {
	key := FXKey(req.Base, req.Quote)
	var cached remote.Rate
	if r.load(ctx, ServiceFX, key, &cached) {
		cached.ConvertedAmount = nil
		if req.Amount != nil {
			conv := req.Amount.Mul(cached.Rate)
			cached.ConvertedAmount = &conv
		}
		return &cached, nil
	}
	out, err := r.next.LatestRate(ctx, req)
	if err != nil {
		return nil, err
	}
	if out != nil {
		r.save(ctx, ServiceFX, key, out)
	}
	return out, nil
}

type postal struct {
	*layer
	next remote.PostalLookup
}

func (p *postal) Lookup(ctx context.Context, zipcode string) ([]remote.PostalMatch, error) {
	key := ZipcodeKey(zipcode)
	var cached []remote.PostalMatch
	if p.load(ctx, ServiceZipcode, key, &cached) {
		return cached, nil
	}
	out, err := p.next.Lookup(ctx, zipcode)
	if err != nil {
		return nil, err
	}
	p.save(ctx, ServiceZipcode, key, out)
	return out, nil
}
