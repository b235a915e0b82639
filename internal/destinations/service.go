package destinations

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/observability/metrics"
)

// Recorder receives lookup metrics. *metrics.PlannerMetrics satisfies it.
type Recorder interface {
	RecordLookup(outcome, city string)
	RecordLookupCache(hit bool)
}

// Service memoizes lookups and records their outcomes.
type Service struct {
	cache    *cache.Cache
	recorder Recorder
	log      logger.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) ServiceOption {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a lookup service. A ttl of zero disables caching.
func NewService(ttl time.Duration, opts ...ServiceOption) *Service {
	s := &Service{}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("destinations")
	}
	return s
}

// Lookup returns the best recommendation for p, serving repeated preferences from cache.
func (s *Service) Lookup(p Preferences) (*Recommendation, error) {
	key := cacheKey(p)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.recordCache(true)
			rec, _ := cached.(*Recommendation)
			return rec.clone(), nil
		}
		s.recordCache(false)
	}

	rec, err := Lookup(p)
	if err != nil {
		outcome := metrics.LookupNoMatch
		if errors.IsValidation(err) {
			outcome = metrics.LookupRejected
		}
		s.recordLookup(outcome, "")
		s.log.Debug("destination lookup failed",
			logger.String("preferences", key),
			logger.String("outcome", outcome))
		return nil, err
	}

	s.recordLookup(metrics.LookupMatched, rec.City)
	s.log.Debug("destination lookup matched",
		logger.String("preferences", key),
		logger.String("city", rec.City))

	if s.cache != nil {
		s.cache.SetDefault(key, rec.clone())
	}
	return rec, nil
}

func (s *Service) recordCache(hit bool) {
	if s.recorder != nil {
		s.recorder.RecordLookupCache(hit)
	}
}

func (s *Service) recordLookup(outcome, city string) {
	if s.recorder != nil {
		s.recorder.RecordLookup(outcome, city)
	}
}

// cacheKey normalizes preferences so equivalent requests share an entry
func cacheKey(p Preferences) string {
	interests := make([]string, 0, len(p.Interests))
	for _, i := range p.Interests {
		interests = append(interests, strings.ToLower(i))
	}
	slices.Sort(interests)
	interests = slices.Compact(interests)

	return strings.Join([]string{
		strings.ToLower(p.Destination),
		strings.ToLower(p.Region),
		strings.ToLower(p.Season),
		strings.Join(interests, ","),
		strconv.Itoa(p.TripLengthDays),
	}, "|")
}
