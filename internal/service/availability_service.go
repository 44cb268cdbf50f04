package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Freeeeeet/mentor_scheduler/internal/apperr"
	"github.com/Freeeeeet/mentor_scheduler/internal/model"
	"github.com/Freeeeeet/mentor_scheduler/internal/scheduling"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// windowCache кэш окон по ментору. Поколение защищает от записи в кэш
// значения, прочитанного до инвалидации.
type windowCache struct {
	mu          sync.Mutex
	entries     map[int64][]model.AvailabilityWindow
	generations map[int64]uint64
	group       singleflight.Group
}

func newWindowCache() *windowCache {
	return &windowCache{
		entries:     make(map[int64][]model.AvailabilityWindow),
		generations: make(map[int64]uint64),
	}
}

func (c *windowCache) get(mentorID int64) ([]model.AvailabilityWindow, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	windows, ok := c.entries[mentorID]
	return windows, c.generations[mentorID], ok
}

func (c *windowCache) put(mentorID int64, generation uint64, windows []model.AvailabilityWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[mentorID] == generation {
		c.entries[mentorID] = windows
	}
}

func (c *windowCache) invalidate(mentorID int64) {
	c.mu.Lock()
	delete(c.entries, mentorID)
	c.generations[mentorID]++
	c.mu.Unlock()
	c.group.Forget(strconv.FormatInt(mentorID, 10))
}

// AvailabilityService управляет еженедельными окнами менторов
type AvailabilityService struct {
	userRepo         UserStore
	availabilityRepo AvailabilityStore
	cache            *windowCache
	logger           *zap.Logger
}

func NewAvailabilityService(userRepo UserStore, availabilityRepo AvailabilityStore, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		userRepo:         userRepo,
		availabilityRepo: availabilityRepo,
		cache:            newWindowCache(),
		logger:           logger,
	}
}

// SetWindows заменяет весь набор окон ментора. Некорректный набор отклоняется целиком.
func (s *AvailabilityService) SetWindows(ctx context.Context, mentorID int64, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error) {
	ctx, span := tracer.Start(ctx, "AvailabilityService.SetWindows")
	defer span.End()
	span.SetAttributes(attribute.Int64("mentor_id", mentorID), attribute.Int("windows", len(windows)))

	user, err := s.userRepo.GetByID(ctx, mentorID)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("get mentor: %w", err))
	}
	if user == nil {
		return nil, recordError(span, apperr.NotFound("user %d not found", mentorID))
	}
	if !user.IsMentor {
		return nil, recordError(span, apperr.Permission("user %d is not a mentor", mentorID))
	}

	if err := scheduling.ValidateWindows(windows); err != nil {
		return nil, recordError(span, err)
	}

	sorted := make([]model.AvailabilityWindow, len(windows))
	copy(sorted, windows)
	for i := range sorted {
		sorted[i].ID = 0
		sorted[i].MentorID = mentorID
	}
	scheduling.SortWindows(sorted)

	saved, err := s.availabilityRepo.ReplaceWindows(ctx, mentorID, sorted)
	s.cache.invalidate(mentorID)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("replace windows: %w", err))
	}

	s.logger.Info("Availability windows replaced",
		zap.Int64("mentor_id", mentorID),
		zap.Int("windows", len(saved)),
	)

	return cloneWindows(saved), nil
}

// GetWindows возвращает окна ментора по (day_of_week, start_time) через кэш
func (s *AvailabilityService) GetWindows(ctx context.Context, mentorID int64) ([]model.AvailabilityWindow, error) {
	if windows, _, ok := s.cache.get(mentorID); ok {
		return cloneWindows(windows), nil
	}

	key := strconv.FormatInt(mentorID, 10)
	v, err, _ := s.cache.group.Do(key, func() (any, error) {
		_, generation, _ := s.cache.get(mentorID)

		if _, err := requireMentor(ctx, s.userRepo, mentorID); err != nil {
			return nil, err
		}
		windows, err := s.loadWindows(ctx, mentorID)
		if err != nil {
			return nil, err
		}

		s.cache.put(mentorID, generation, windows)
		return windows, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneWindows(v.([]model.AvailabilityWindow)), nil
}

// loadWindows читает окна из хранилища в обход кэша
func (s *AvailabilityService) loadWindows(ctx context.Context, mentorID int64) ([]model.AvailabilityWindow, error) {
	windows, err := s.availabilityRepo.ListWindows(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	scheduling.SortWindows(windows)
	return windows, nil
}

func cloneWindows(windows []model.AvailabilityWindow) []model.AvailabilityWindow {
	out := make([]model.AvailabilityWindow, len(windows))
	copy(out, windows)
	return out
}
