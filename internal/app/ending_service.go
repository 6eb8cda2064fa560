package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"story-endings/internal/logging"
	"story-endings/internal/model"
	"story-endings/internal/repository"
)

const (
	MinScore = 1
	MaxScore = 5

	maxEndingNameRunes        = 128
	maxEndingDescriptionRunes = 4000
)

// HighlightCache stores the landing page highlights under a generation counter.
// Invalidate bumps the generation, and Set drops values read under an older one.
type HighlightCache interface {
	Get(ctx context.Context) (*model.Highlights, bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, generation int64, highlights model.Highlights) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.EndingEvent) error
}

type Broadcaster interface {
	Broadcast(event model.EndingEvent)
}

// EndingServiceOptions wires the optional side channels. Nil fields are skipped.
type EndingServiceOptions struct {
	Highlights HighlightCache
	Events     EventPublisher
	Feed       Broadcaster
	Now        func() time.Time
}

// EndingInput holds the user-editable fields of an ending as submitted by a form.
type EndingInput struct {
	GenreName         string
	TypeName          string
	EndingName        string
	EndingDescription string
}

type EndingService struct {
	endingRepo   *repository.EndingRepository
	taxonomyRepo *repository.TaxonomyRepository
	ratingRepo   *repository.RatingRepository
	highlights   HighlightCache
	events       EventPublisher
	feed         Broadcaster
	logger       logging.Logger
	now          func() time.Time
}

func NewEndingService(
	endingRepo *repository.EndingRepository,
	taxonomyRepo *repository.TaxonomyRepository,
	ratingRepo *repository.RatingRepository,
	logger logging.Logger,
	opts EndingServiceOptions,
) *EndingService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &EndingService{
		endingRepo:   endingRepo,
		taxonomyRepo: taxonomyRepo,
		ratingRepo:   ratingRepo,
		highlights:   opts.Highlights,
		events:       opts.Events,
		feed:         opts.Feed,
		logger:       logger,
		now:          now,
	}
}

// Highlights returns the latest and the top rated ending. Either may be nil.
func (s *EndingService) Highlights(ctx context.Context) (model.Highlights, error) {
	generation, cacheable := int64(0), false
	if s.highlights != nil {
		cached, ok, err := s.highlights.Get(ctx)
		if err != nil {
			s.logger.Warn(ctx, "read highlight cache failed", "error", err)
		} else if ok {
			return *cached, nil
		}

		if generation, err = s.highlights.Generation(ctx); err != nil {
			s.logger.Warn(ctx, "read highlight generation failed", "error", err)
		} else {
			cacheable = true
		}
	}

	latest, err := s.endingRepo.Latest(ctx)
	if err != nil {
		return model.Highlights{}, err
	}
	top, err := s.endingRepo.TopRated(ctx)
	if err != nil {
		return model.Highlights{}, err
	}
	highlights := model.Highlights{Latest: latest, TopRated: top}

	if cacheable {
		if err := s.highlights.Set(ctx, generation, highlights); err != nil {
			s.logger.Warn(ctx, "write highlight cache failed", "error", err)
		}
	}
	return highlights, nil
}

func (s *EndingService) Get(ctx context.Context, id string) (*model.Ending, error) {
	key, ok := canonicalID(id)
	if !ok {
		return nil, ErrEndingNotFound
	}
	ending, err := s.endingRepo.GetByID(ctx, key)
	if err != nil {
		return nil, err
	}
	if ending == nil {
		return nil, ErrEndingNotFound
	}
	return ending, nil
}

// GetForEdit is Get restricted to the ending's author.
func (s *EndingService) GetForEdit(ctx context.Context, id, actor string) (*model.Ending, error) {
	ending, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ending.OwnedBy(actor) {
		return nil, ErrForbidden
	}
	return ending, nil
}

// Create stores a new ending. The date and author always come from the server
// side, never from input.
func (s *EndingService) Create(ctx context.Context, input EndingInput, createdBy string) (*model.Ending, error) {
	if createdBy == "" {
		return nil, invalidInput("author is required")
	}
	input, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	ending := &model.Ending{
		GenreName:         input.GenreName,
		EndingType:        input.TypeName,
		EndingName:        input.EndingName,
		EndingDescription: input.EndingDescription,
		EndingDate:        s.now().UTC(),
		CreatedBy:         createdBy,
	}
	if err := s.endingRepo.Create(ctx, ending); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, model.ActionCreated, ending, createdBy)
	return ending, nil
}

// Replace overwrites the ending with input, a fresh date and the actor as author.
// A missing id yields ErrEndingNotFound; only the author may replace.
func (s *EndingService) Replace(ctx context.Context, id string, input EndingInput, actor string) (*model.Ending, error) {
	existing, err := s.GetForEdit(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	input, err = s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	ending := &model.Ending{
		ID:                existing.ID,
		GenreName:         input.GenreName,
		EndingType:        input.TypeName,
		EndingName:        input.EndingName,
		EndingDescription: input.EndingDescription,
		EndingDate:        s.now().UTC(),
		CreatedBy:         actor,
		Rating:            existing.Rating,
	}
	matched, err := s.endingRepo.Replace(ctx, ending)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, ErrEndingNotFound
	}

	s.afterWrite(ctx, model.ActionUpdated, ending, actor)
	return ending, nil
}

// Delete removes the ending. Unknown ids succeed silently; someone else's ending
// yields ErrForbidden.
func (s *EndingService) Delete(ctx context.Context, id, actor string) error {
	key, ok := canonicalID(id)
	if !ok {
		return nil
	}
	ending, err := s.endingRepo.GetByID(ctx, key)
	if err != nil {
		return err
	}
	if ending == nil {
		return nil
	}
	if !ending.OwnedBy(actor) {
		return ErrForbidden
	}

	if err := s.endingRepo.Delete(ctx, key); err != nil {
		return err
	}

	s.afterWrite(ctx, model.ActionDeleted, ending, actor)
	return nil
}

// Rate records actor's score and returns the ending's new average.
func (s *EndingService) Rate(ctx context.Context, id, actor string, score int) (float64, error) {
	if actor == "" {
		return 0, invalidInput("rater is required")
	}
	if score < MinScore || score > MaxScore {
		return 0, invalidInput("score must be between %d and %d", MinScore, MaxScore)
	}
	ending, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	average, err := s.ratingRepo.Save(ctx, &model.Rating{
		EndingID: ending.ID,
		Username: actor,
		Score:    score,
	})
	if err != nil {
		return 0, err
	}
	ending.Rating = average

	s.afterWrite(ctx, model.ActionRated, ending, actor)
	return average, nil
}

// ScoreOf returns actor's current score for the ending, 0 when unrated.
func (s *EndingService) ScoreOf(ctx context.Context, endingID, actor string) (int, error) {
	if actor == "" {
		return 0, nil
	}
	return s.ratingRepo.ScoreOf(ctx, endingID, actor)
}

func (s *EndingService) ListByAuthor(ctx context.Context, username string) ([]model.Ending, error) {
	return s.endingRepo.ListByCreator(ctx, NormalizeUsername(username))
}

func (s *EndingService) ListGenres(ctx context.Context) ([]model.Genre, error) {
	return s.taxonomyRepo.ListGenres(ctx)
}

func (s *EndingService) ListTypes(ctx context.Context) ([]model.EndingType, error) {
	return s.taxonomyRepo.ListTypes(ctx)
}

func (s *EndingService) validate(ctx context.Context, input EndingInput) (EndingInput, error) {
	input.GenreName = strings.TrimSpace(input.GenreName)
	input.TypeName = strings.TrimSpace(input.TypeName)
	input.EndingName = strings.TrimSpace(input.EndingName)
	input.EndingDescription = strings.TrimSpace(input.EndingDescription)

	switch {
	case input.GenreName == "":
		return input, invalidInput("genre is required")
	case input.TypeName == "":
		return input, invalidInput("type is required")
	case input.EndingName == "":
		return input, invalidInput("ending name is required")
	case input.EndingDescription == "":
		return input, invalidInput("ending description is required")
	case utf8.RuneCountInString(input.EndingName) > maxEndingNameRunes:
		return input, invalidInput("ending name must be at most %d characters", maxEndingNameRunes)
	case utf8.RuneCountInString(input.EndingDescription) > maxEndingDescriptionRunes:
		return input, invalidInput("ending description must be at most %d characters", maxEndingDescriptionRunes)
	}

	ok, err := s.taxonomyRepo.GenreExists(ctx, input.GenreName)
	if err != nil {
		return input, err
	}
	if !ok {
		return input, invalidInput("unknown genre %q", input.GenreName)
	}
	ok, err = s.taxonomyRepo.TypeExists(ctx, input.TypeName)
	if err != nil {
		return input, err
	}
	if !ok {
		return input, invalidInput("unknown type %q", input.TypeName)
	}
	return input, nil
}

// afterWrite fans a mutation out to the cache, the broker and the live feed.
// Failures are logged and never reach the caller.
func (s *EndingService) afterWrite(ctx context.Context, action string, ending *model.Ending, actor string) {
	if s.highlights != nil {
		if err := s.highlights.Invalidate(ctx); err != nil {
			s.logger.Warn(ctx, "invalidate highlight cache failed", "error", err)
		}
	}

	event := model.EndingEvent{
		Action:     action,
		EndingID:   ending.ID,
		EndingName: ending.EndingName,
		Actor:      actor,
		OccurredAt: s.now().UTC(),
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn(ctx, "publish ending event failed", "action", action, "ending_id", ending.ID, "error", err)
		}
	}
	if s.feed != nil {
		s.feed.Broadcast(event)
	}

	s.logger.Info(ctx, "ending "+action, "ending_id", ending.ID, "actor", actor)
}

func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
