package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned when no provider could produce a report.
	ErrUnavailable = errors.New("weather information unavailable")
	// ErrNoProviders is returned when the lookup was built without providers.
	ErrNoProviders = errors.New("no weather providers configured")
)

// Lookup asks providers one after another and returns the first report.
type Lookup struct {
	providers []Provider
	log       *zap.Logger
}

// NewLookup creates a Lookup that tries providers in the given order.
func NewLookup(providers []Provider, log *zap.Logger) *Lookup {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lookup{
		providers: providers,
		log:       log,
	}
}

// Current returns the weather at loc around at. Providers are tried
// sequentially; every failure is logged and the next provider is asked.
func (l *Lookup) Current(ctx context.Context, loc Location, at time.Time) (Report, error) {
	if len(l.providers) == 0 {
		return Report{}, ErrNoProviders
	}
	if strings.TrimSpace(loc.Name) == "" && !loc.HasCoordinates() {
		return Report{}, fmt.Errorf("%w: empty location", ErrUnavailable)
	}

	var errs []error
	for _, p := range l.providers {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		r, err := p.Fetch(ctx, loc, at)
		if err != nil {
			l.log.Warn("weather.provider_failed",
				zap.String("provider", p.Name()),
				zap.String("location", loc.Key()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		if r.Provider == "" {
			r.Provider = p.Name()
		}
		l.log.Debug("weather.provider_succeeded",
			zap.String("provider", r.Provider),
			zap.String("location", loc.Key()),
			zap.String("description", r.Description),
			zap.Float64("temperature_c", r.TemperatureC),
			zap.String("condition", string(r.Condition)),
			zap.Time("observed_at", r.ObservedAt),
		)
		return r, nil
	}

	return Report{}, errors.Join(append([]error{ErrUnavailable}, errs...)...)
}
