package zukan

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/zukan/internal/describe"
	"github.com/i474232898/zukan/internal/species"
	"github.com/i474232898/zukan/internal/weather"
)

// DescriptionFailedPrefix starts the description of an entry whose text
// could not be generated; the generator's error follows it.
const DescriptionFailedPrefix = "説明文を生成できませんでした: "

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Deps are the collaborators of a Service. Geocoder may be nil when only
// free-text locations are used.
type Deps struct {
	Describer Describer
	Species   SpeciesResolver
	Weather   WeatherLookup
	Geocoder  Geocoder
	Store     Store
	Logger    *zap.Logger

	// DefaultStyle is used when an Input names no style.
	DefaultStyle string
	// Clock overrides time.Now.
	Clock func() time.Time
}

// Service owns the pending entry and the saved collection. Actions run one at
// a time: a build holds the service until all collaborators have answered.
type Service struct {
	mu      sync.Mutex
	pending *Entry

	describer    Describer
	species      SpeciesResolver
	weather      WeatherLookup
	geocoder     Geocoder
	store        Store
	log          *zap.Logger
	defaultStyle string
	now          func() time.Time
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	s := &Service{
		describer:    d.Describer,
		species:      d.Species,
		weather:      d.Weather,
		geocoder:     d.Geocoder,
		store:        d.Store,
		log:          d.Logger,
		defaultStyle: d.DefaultStyle,
		now:          d.Clock,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.defaultStyle == "" {
		s.defaultStyle = describe.DefaultStyle
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Build validates in, enriches it and stores the result as the pending
// entry, replacing any previous one. Invalid input yields a *ValidationError
// before any collaborator is called. Collaborator failures degrade the
// affected fields instead of failing the build.
func (s *Service) Build(ctx context.Context, in Input) (Entry, error) {
	in.SubjectName = strings.TrimSpace(in.SubjectName)
	in.CaptureDate = strings.TrimSpace(in.CaptureDate)
	in.CaptureTime = strings.TrimSpace(in.CaptureTime)
	if in.Style == "" {
		in.Style = s.defaultStyle
	}

	capturedAt, err := s.validate(in)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, coords, err := s.resolveLocation(ctx, in.Location)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:              uuid.NewString(),
		SubjectName:     in.SubjectName,
		CaptureLocation: loc.Name,
		CaptureDateTime: capturedAt.Format(DateTimeLayout),
		Image:           EncodeImage(in.Image),
		ImageType:       DetectImageType(in.Image),
		Style:           in.Style,
		CreatedAt:       s.now().UTC(),
	}
	if coords {
		entry.Latitude = clonePtr(loc.Lat)
		entry.Longitude = clonePtr(loc.Lon)
	}

	entry.Description = s.describe(ctx, in)
	entry.ScientificName = s.scientificName(ctx, in.SubjectName)

	if report, ok := s.lookupWeather(ctx, loc, capturedAt); ok {
		desc, temp := report.Description, report.TemperatureC
		entry.WeatherDescription = &desc
		entry.Temperature = &temp
	}

	s.pending = &entry
	s.log.Info("entry.built",
		zap.String("id", entry.ID),
		zap.String("subject", entry.SubjectName),
		zap.String("scientific_name", entry.ScientificName),
		zap.String("location", entry.CaptureLocation),
		zap.Bool("has_weather", entry.WeatherDescription != nil),
		zap.Int("image_bytes", len(in.Image)),
	)
	return entry.Clone(), nil
}

func (s *Service) validate(in Input) (time.Time, error) {
	var fields []string

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return time.Time{}, fmt.Errorf("validate input: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if in.Location == nil || !in.Location.valid() {
		fields = append(fields, "location")
	}
	if _, ok := describe.LookupStyle(in.Style); !ok {
		fields = append(fields, "style")
	}

	var capturedAt time.Time
	if in.CaptureDate != "" && in.CaptureTime != "" {
		t, err := parseCaptureTime(in.CaptureDate, in.CaptureTime)
		if err != nil {
			fields = append(fields, "captureDateTime")
		}
		capturedAt = t
	}

	if len(fields) > 0 {
		return time.Time{}, &ValidationError{Fields: fields}
	}
	return capturedAt, nil
}

// parseCaptureTime combines a YYYY-MM-DD date and an HH:MM[:SS] time into
// one wall-clock timestamp.
func parseCaptureTime(date, clock string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, err
	}

	var c time.Time
	for _, layout := range []string{"15:04", "15:04:05"} {
		if c, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
}

// resolveLocation turns the location source into the place used for the
// entry and the weather lookup. The bool reports whether the coordinates
// came from the user and belong on the entry.
func (s *Service) resolveLocation(ctx context.Context, src LocationSource) (weather.Location, bool, error) {
	switch l := src.(type) {
	case MapLocation:
		lat, lon := l.Lat, l.Lon
		address, err := s.reverse(ctx, lat, lon)
		if err != nil {
			s.log.Warn("entry.location_unresolved",
				zap.Float64("lat", lat),
				zap.Float64("lon", lon),
				zap.Error(err),
			)
			return weather.Location{}, false, fmt.Errorf("%w: %v", ErrLocationUnresolved, err)
		}
		return weather.Location{Name: address, Lat: &lat, Lon: &lon}, true, nil

	case TextLocation:
		loc := weather.Location{Name: strings.TrimSpace(string(l))}
		if s.geocoder == nil {
			return loc, false, nil
		}
		// Coordinates only help providers that cannot search by name.
		p, err := s.geocoder.Forward(ctx, loc.Name)
		if err != nil {
			s.log.Debug("entry.forward_geocode_failed", zap.String("location", loc.Name), zap.Error(err))
			return loc, false, nil
		}
		loc.Lat, loc.Lon = &p.Lat, &p.Lon
		return loc, false, nil

	default:
		return weather.Location{}, false, &ValidationError{Fields: []string{"location"}}
	}
}

func (s *Service) reverse(ctx context.Context, lat, lon float64) (string, error) {
	if s.geocoder == nil {
		return "", errors.New("no geocoder configured")
	}
	address, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(address) == "" {
		return "", errors.New("empty address")
	}
	return address, nil
}

func (s *Service) describe(ctx context.Context, in Input) string {
	text, err := s.describer.Describe(ctx, describe.Request{
		Subject:   in.SubjectName,
		Style:     in.Style,
		StyleText: in.StyleText,
		MaxLength: in.MaxLength,
	})
	if err != nil {
		s.log.Warn("entry.describe_failed", zap.String("subject", in.SubjectName), zap.Error(err))
		return DescriptionFailedPrefix + err.Error()
	}
	return text
}

// scientificName resolves name, collapsing every failure to species.NotFound.
func (s *Service) scientificName(ctx context.Context, name string) string {
	sci, err := s.species.ScientificName(ctx, name)
	switch {
	case errors.Is(err, species.ErrNotFound):
		s.log.Info("entry.species_not_found", zap.String("subject", name))
		return species.NotFound
	case err != nil:
		s.log.Warn("entry.species_failed", zap.String("subject", name), zap.Error(err))
		return species.NotFound
	case strings.TrimSpace(sci) == "":
		return species.NotFound
	}
	return sci
}

func (s *Service) lookupWeather(ctx context.Context, loc weather.Location, at time.Time) (weather.Report, bool) {
	report, err := s.weather.Current(ctx, loc, at)
	if err != nil {
		s.log.Warn("entry.weather_unavailable", zap.String("location", loc.Key()), zap.Error(err))
		return weather.Report{}, false
	}
	return report, true
}

// ResolveLocation returns the address of a map point, for previewing a
// click before the entry is created.
func (s *Service) ResolveLocation(ctx context.Context, lat, lon float64) (string, error) {
	if !(MapLocation{Lat: lat, Lon: lon}).valid() {
		return "", &ValidationError{Fields: []string{"lat", "lon"}}
	}
	address, err := s.reverse(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLocationUnresolved, err)
	}
	return address, nil
}

// Pending returns the built entry that has not been saved yet.
func (s *Service) Pending() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Entry{}, false
	}
	return s.pending.Clone(), true
}

// Save appends the pending entry to the store and clears the pending slot.
func (s *Service) Save() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Entry{}, ErrNoPendingEntry
	}

	saved := s.pending.Clone()
	s.store.Append(saved)
	s.pending = nil

	s.log.Info("entry.saved",
		zap.String("id", saved.ID),
		zap.String("subject", saved.SubjectName),
		zap.Int("total", s.store.Len()),
	)
	return saved.Clone(), nil
}

// List returns the saved entries in the order they were saved.
func (s *Service) List() []Entry {
	return s.store.List()
}

// Get returns the saved entry with the given id.
func (s *Service) Get(id string) (Entry, error) {
	return s.store.Get(id)
}
