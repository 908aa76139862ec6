package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yishak-cs/FlavorAI/internal/extract"
	"github.com/yishak-cs/FlavorAI/internal/ingest"
	"github.com/yishak-cs/FlavorAI/internal/metrics"
	"github.com/yishak-cs/FlavorAI/internal/models"
	"github.com/yishak-cs/FlavorAI/internal/profile"
	"github.com/yishak-cs/FlavorAI/internal/ranking"
)

// ProfileRepository stores one current taste profile per user
type ProfileRepository interface {
	SaveProfile(ctx context.Context, p models.TasteProfile) error
	GetProfile(ctx context.Context, userID string) (models.TasteProfile, error)
}

// CandidateSource supplies venues to rank and the cuisine tags used during extraction
type CandidateSource interface {
	NearbyCandidates(ctx context.Context, origin *models.GeoPoint, radiusKm float64, limit int) ([]models.Candidate, error)
	CuisineTags(ctx context.Context) (map[string]string, error)
}

// FeedbackLog records raw feedback submissions
type FeedbackLog interface {
	RecordFeedback(ctx context.Context, userID string, fb models.Feedback) error
}

// DefaultCandidatePoolSize is how many venues are fetched before ranking
const DefaultCandidatePoolSize = 20

// Options configures the pipeline stages
type Options struct {
	Manifest          ingest.Manifest
	MaxEntryBytes     int64
	Extract           extract.Config
	Quantization      profile.QuantizationTable
	Weights           ranking.Weights
	CandidatePoolSize int
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Manifest:          ingest.DefaultManifest(),
		MaxEntryBytes:     ingest.DefaultMaxEntryBytes,
		Extract:           extract.DefaultConfig(),
		Quantization:      profile.DefaultQuantizationTable(),
		Weights:           ranking.DefaultWeights(),
		CandidatePoolSize: DefaultCandidatePoolSize,
	}
}

// TasteService runs the Takeout → profile pipeline and serves recommendations
type TasteService struct {
	profiles ProfileRepository
	venues   CandidateSource
	feedback FeedbackLog
	metrics  *metrics.PipelineMetrics

	opts     Options
	ingestor *ingest.Ingestor
	builder  *profile.Builder
	ranker   *ranking.Ranker
}

// NewTasteService creates a new taste service. venues and feedback may be nil.
func NewTasteService(profiles ProfileRepository, venues CandidateSource, feedback FeedbackLog, opts Options, m *metrics.PipelineMetrics) (*TasteService, error) {
	if profiles == nil {
		return nil, errors.New("profile repository is required")
	}
	builder, err := profile.NewBuilder(opts.Quantization)
	if err != nil {
		return nil, err
	}
	if opts.CandidatePoolSize <= 0 {
		opts.CandidatePoolSize = DefaultCandidatePoolSize
	}
	return &TasteService{
		profiles: profiles,
		venues:   venues,
		feedback: feedback,
		metrics:  m,
		opts:     opts,
		ingestor: ingest.NewIngestor(opts.Manifest, opts.MaxEntryBytes),
		builder:  builder,
		ranker:   ranking.NewRanker(opts.Weights).WithFoodTerms(opts.Extract.FoodTerms),
	}, nil
}

// ProcessResult is the outcome of one Takeout run
type ProcessResult struct {
	RunID   string                       `json:"run_id"`
	Profile models.TasteProfile          `json:"profile"`
	Warning *models.PartialIngestWarning `json:"warning,omitempty"`
}

// ProcessTakeout ingests an archive, derives a fresh profile and stores it in
// place of the previous one. A cancelled ctx stops the run between stages and
// nothing is stored.
func (s *TasteService) ProcessTakeout(ctx context.Context, userID string, archive io.ReaderAt, size int64) (ProcessResult, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("user_id", userID).Logger()
	started := time.Now()

	res, err := s.processTakeout(ctx, runID, userID, archive, size)
	if err != nil {
		outcome := "error"
		if ctx.Err() != nil {
			outcome = "cancelled"
		}
		s.metrics.RecordRun("takeout", outcome)
		logger.Error().Err(err).Str("outcome", outcome).Msg("Takeout processing failed")
		return ProcessResult{}, err
	}

	outcome := "ok"
	if res.Warning != nil {
		outcome = "partial"
	}
	s.metrics.RecordRun("takeout", outcome)
	logger.Info().
		Str("outcome", outcome).
		Int("events", res.Profile.EventCount).
		Bool("low_confidence", res.Profile.LowConfidence).
		Dur("elapsed", time.Since(started)).
		Msg("Takeout processed")
	return res, nil
}

func (s *TasteService) processTakeout(ctx context.Context, runID, userID string, archive io.ReaderAt, size int64) (ProcessResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ProcessResult{}, models.NewConfigurationError("user_id", "must not be empty")
	}

	// Stage 1: ingest
	stageStart := time.Now()
	ingested, err := s.ingestor.IngestZip(archive, size)
	s.metrics.ObserveStage("ingest", stageStart)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to ingest archive: %w", err)
	}
	s.metrics.RecordEvents(ingested.Events)
	if ingested.Warning != nil {
		s.metrics.RecordPartialIngest()
	}
	if err := ctx.Err(); err != nil {
		return ProcessResult{}, err
	}

	// Stage 2: extract
	stageStart = time.Now()
	extractor := extract.NewExtractor(s.extractConfig(ctx))
	signals := extractor.Extract(ingested.Events)
	s.metrics.ObserveStage("extract", stageStart)
	if err := ctx.Err(); err != nil {
		return ProcessResult{}, err
	}

	// Stage 3: build
	stageStart = time.Now()
	p, err := s.builder.Build(userID, signals)
	s.metrics.ObserveStage("build", stageStart)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("failed to build profile: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ProcessResult{}, err
	}

	// Stage 4: persist
	stageStart = time.Now()
	err = s.profiles.SaveProfile(ctx, p)
	s.metrics.ObserveStage("persist", stageStart)
	if err != nil {
		return ProcessResult{}, err
	}

	return ProcessResult{RunID: runID, Profile: p, Warning: ingested.Warning}, nil
}

// extractConfig layers the venue catalogue's cuisine tags under the static ones
func (s *TasteService) extractConfig(ctx context.Context) extract.Config {
	cfg := s.opts.Extract
	if s.venues == nil {
		return cfg
	}
	tags, err := s.venues.CuisineTags(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Cuisine tags unavailable, continuing without catalogue tags")
		return cfg
	}
	if len(tags) > 0 {
		cfg.Cuisines = extract.ChainResolver{cfg.Cuisines, extract.MapCuisineResolver(tags)}
	}
	return cfg
}

// Onboard creates a profile from sign-up answers. An existing profile keeps its
// learned axes and cuisines and gains the new dishes and restrictions.
func (s *TasteService) Onboard(ctx context.Context, userID string, answers models.OnboardingAnswers) (models.TasteProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return models.TasteProfile{}, models.NewConfigurationError("user_id", "must not be empty")
	}

	fresh := profile.FromOnboarding(userID, answers)
	existing, err := s.profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		fresh = mergeOnboarding(existing, fresh)
	case !errors.Is(err, models.ErrProfileNotFound):
		s.metrics.RecordRun("onboarding", "error")
		return models.TasteProfile{}, err
	}

	if err := s.profiles.SaveProfile(ctx, fresh); err != nil {
		s.metrics.RecordRun("onboarding", "error")
		return models.TasteProfile{}, err
	}
	s.metrics.RecordRun("onboarding", "ok")
	log.Info().Str("user_id", userID).Int("restrictions", len(fresh.DietaryRestrictions)).Msg("User onboarded")
	return fresh, nil
}

// GetProfile returns the stored profile or models.ErrProfileNotFound
func (s *TasteService) GetProfile(ctx context.Context, userID string) (models.TasteProfile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

// FeedbackResult reports the profile after feedback and which axes moved
type FeedbackResult struct {
	Profile  models.TasteProfile `json:"profile"`
	Adjusted []models.FlavorAxis `json:"adjusted_axes"`
}

// SubmitFeedback records a restaurant rating and nudges the profile by the comment
func (s *TasteService) SubmitFeedback(ctx context.Context, userID string, fb models.Feedback) (FeedbackResult, error) {
	if strings.TrimSpace(fb.RestaurantName) == "" {
		return FeedbackResult{}, models.NewConfigurationError("restaurant_name", "must not be empty")
	}
	if fb.Favorability < 0 || fb.Favorability > 1 {
		return FeedbackResult{}, models.NewConfigurationError("favorability", "must be within [0, 1], got %v", fb.Favorability)
	}

	current, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return FeedbackResult{}, err
	}

	if s.feedback != nil {
		if err := s.feedback.RecordFeedback(ctx, userID, fb); err != nil {
			s.metrics.RecordRun("feedback", "error")
			return FeedbackResult{}, err
		}
	}

	updated, adjusted := profile.ApplyFeedback(current, fb.Comment)
	if len(adjusted) > 0 {
		if err := s.profiles.SaveProfile(ctx, updated); err != nil {
			s.metrics.RecordRun("feedback", "error")
			return FeedbackResult{}, err
		}
	}
	s.metrics.RecordRun("feedback", "ok")
	log.Info().
		Str("user_id", userID).
		Str("restaurant", fb.RestaurantName).
		Float64("favorability", fb.Favorability).
		Int("adjusted_axes", len(adjusted)).
		Msg("Feedback recorded")

	if adjusted == nil {
		adjusted = []models.FlavorAxis{}
	}
	return FeedbackResult{Profile: updated, Adjusted: adjusted}, nil
}

func mergeOnboarding(existing, fresh models.TasteProfile) models.TasteProfile {
	out := existing.Clone()

	seen := make(map[string]bool, len(out.FrequentDishes))
	for _, d := range out.FrequentDishes {
		seen[strings.ToLower(d)] = true
	}
	for _, d := range fresh.FrequentDishes {
		if !seen[strings.ToLower(d)] {
			seen[strings.ToLower(d)] = true
			out.FrequentDishes = append(out.FrequentDishes, d)
		}
	}

	restrictions := make(map[string]bool)
	for _, r := range existing.DietaryRestrictions {
		restrictions[r] = true
	}
	for _, r := range fresh.DietaryRestrictions {
		restrictions[r] = true
	}
	out.DietaryRestrictions = make([]string, 0, len(restrictions))
	for r := range restrictions {
		out.DietaryRestrictions = append(out.DietaryRestrictions, r)
	}
	sort.Strings(out.DietaryRestrictions)
	return out
}
