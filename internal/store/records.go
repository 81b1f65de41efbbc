package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

// weatherCacheLimit caps the locally cached weather records. The remote
// collection is not capped.
const weatherCacheLimit = 30

// RecordStore caches the three domain collections for the current user and
// owns every mutation applied to them. Writes follow write-then-reflect: a
// record enters the cache only as the canonical row the backend returned, so
// the cache never shows a record that does not exist remotely.
//
// The mutex guards the cached state only; it is never held across a remote
// call. Concurrent operations on the same collection therefore interleave at
// response arrival, and the last response to resolve wins. A fetch's full
// replace can overwrite a concurrent add and vice versa. Known hazard,
// inherited behavior.
//
// Owner ids are trusted from the caller; the store does not verify them
// against the current identity.
type RecordStore struct {
	data   remote.DataStore
	logger *zap.Logger

	mu         sync.RWMutex
	crops      []models.Crop
	activities []models.FarmActivity
	weather    []models.WeatherRecord
	loading    bool
	lastErr    *models.OpError
}

// NewRecordStore builds an empty record store over the given data store.
func NewRecordStore(data remote.DataStore, logger *zap.Logger) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{data: data, logger: logger}
}

// FetchCrops replaces the cached crops with every crop owned by userID,
// newest first. On failure the previous cache is kept (stale over empty) and
// the failure lands in LastError.
func (s *RecordStore) FetchCrops(ctx context.Context, userID string) {
	s.beginFetch()

	var rows []models.Crop
	err := s.data.SelectOwned(ctx, remote.Query{
		Collection: remote.CollectionCrops,
		OwnerID:    userID,
		OrderBy:    "created_at",
		Descending: true,
	}, &rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = models.NormalizeError(err)
		s.logger.Error("crop fetch failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if rows == nil {
		rows = []models.Crop{}
	}
	s.crops = rows
}

// AddCrop inserts the crop and prepends the canonical row. On failure the
// cache is unchanged.
func (s *RecordStore) AddCrop(ctx context.Context, crop models.Crop) error {
	var canonical models.Crop
	if err := s.data.Insert(ctx, remote.CollectionCrops, crop, &canonical); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.crops = append([]models.Crop{canonical}, s.crops...)
	s.mu.Unlock()
	return nil
}

// UpdateCrop sends the partial update plus a refreshed updated_at and
// replaces the matching cached crop with the canonical row.
func (s *RecordStore) UpdateCrop(ctx context.Context, id string, updates map[string]any) error {
	var canonical models.Crop
	if err := s.data.UpdateByID(ctx, remote.CollectionCrops, id, withUpdatedAt(updates), &canonical); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	for i := range s.crops {
		if s.crops[i].ID == id {
			s.crops[i] = canonical
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteCrop removes the crop remotely, then from the cache.
func (s *RecordStore) DeleteCrop(ctx context.Context, id string) error {
	if err := s.data.DeleteByID(ctx, remote.CollectionCrops, id); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.crops = slices.DeleteFunc(s.crops, func(c models.Crop) bool { return c.ID == id })
	s.mu.Unlock()
	return nil
}

// FetchActivities replaces the cached activities with every activity owned
// by userID, most recent activity date first.
func (s *RecordStore) FetchActivities(ctx context.Context, userID string) {
	s.beginFetch()

	var rows []models.FarmActivity
	err := s.data.SelectOwned(ctx, remote.Query{
		Collection: remote.CollectionActivities,
		OwnerID:    userID,
		OrderBy:    "date",
		Descending: true,
	}, &rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = models.NormalizeError(err)
		s.logger.Error("activity fetch failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if rows == nil {
		rows = []models.FarmActivity{}
	}
	s.activities = rows
}

// AddActivity inserts the activity and prepends the canonical row.
func (s *RecordStore) AddActivity(ctx context.Context, activity models.FarmActivity) error {
	var canonical models.FarmActivity
	if err := s.data.Insert(ctx, remote.CollectionActivities, activity, &canonical); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.activities = append([]models.FarmActivity{canonical}, s.activities...)
	s.mu.Unlock()
	return nil
}

// UpdateActivity sends the partial update plus a refreshed updated_at and
// replaces the matching cached activity with the canonical row.
func (s *RecordStore) UpdateActivity(ctx context.Context, id string, updates map[string]any) error {
	var canonical models.FarmActivity
	if err := s.data.UpdateByID(ctx, remote.CollectionActivities, id, withUpdatedAt(updates), &canonical); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	for i := range s.activities {
		if s.activities[i].ID == id {
			s.activities[i] = canonical
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteActivity removes the activity remotely, then from the cache.
func (s *RecordStore) DeleteActivity(ctx context.Context, id string) error {
	if err := s.data.DeleteByID(ctx, remote.CollectionActivities, id); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.activities = slices.DeleteFunc(s.activities, func(a models.FarmActivity) bool { return a.ID == id })
	s.mu.Unlock()
	return nil
}

// FetchWeather replaces the cached weather records with the 30 most recent
// ones owned by userID, newest recorded_at first.
func (s *RecordStore) FetchWeather(ctx context.Context, userID string) {
	s.beginFetch()

	var rows []models.WeatherRecord
	err := s.data.SelectOwned(ctx, remote.Query{
		Collection: remote.CollectionWeather,
		OwnerID:    userID,
		OrderBy:    "recorded_at",
		Descending: true,
		Limit:      weatherCacheLimit,
	}, &rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = models.NormalizeError(err)
		s.logger.Error("weather fetch failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if rows == nil {
		rows = []models.WeatherRecord{}
	}
	s.weather = rows
}

// AddWeather inserts the record, prepends the canonical row, and truncates
// the cache to the 30 most recent entries, dropping the oldest.
func (s *RecordStore) AddWeather(ctx context.Context, record models.WeatherRecord) error {
	var canonical models.WeatherRecord
	if err := s.data.Insert(ctx, remote.CollectionWeather, record, &canonical); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.weather = append([]models.WeatherRecord{canonical}, s.weather...)
	if len(s.weather) > weatherCacheLimit {
		s.weather = s.weather[:weatherCacheLimit]
	}
	s.mu.Unlock()
	return nil
}

// UpdateWeather replaces the matching cached record with the canonical row.
// Weather rows carry no updated_at column, so the partial is sent as-is.
func (s *RecordStore) UpdateWeather(ctx context.Context, id string, updates map[string]any) error {
	var canonical models.WeatherRecord
	if err := s.data.UpdateByID(ctx, remote.CollectionWeather, id, updates, &canonical); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	for i := range s.weather {
		if s.weather[i].ID == id {
			s.weather[i] = canonical
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// DeleteWeather removes the record remotely, then from the cache.
func (s *RecordStore) DeleteWeather(ctx context.Context, id string) error {
	if err := s.data.DeleteByID(ctx, remote.CollectionWeather, id); err != nil {
		return models.NormalizeError(err)
	}

	s.mu.Lock()
	s.weather = slices.DeleteFunc(s.weather, func(w models.WeatherRecord) bool { return w.ID == id })
	s.mu.Unlock()
	return nil
}

// Crops returns a snapshot copy of the cached crops.
func (s *RecordStore) Crops() []models.Crop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.crops)
}

// Activities returns a snapshot copy of the cached activities.
func (s *RecordStore) Activities() []models.FarmActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.activities)
}

// Weather returns a snapshot copy of the cached weather records.
func (s *RecordStore) Weather() []models.WeatherRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.weather)
}

// Loading reports whether a fetch is in flight.
func (s *RecordStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the most recent fetch failure, nil when the last fetch
// succeeded. Add/update/delete failures are returned per call and never land
// here.
func (s *RecordStore) LastError() *models.OpError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError discards the stored fetch failure.
func (s *RecordStore) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *RecordStore) beginFetch() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()
}

// withUpdatedAt copies the partial and stamps a fresh updated_at, leaving
// the caller's map untouched.
func withUpdatedAt(updates map[string]any) map[string]any {
	out := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	out["updated_at"] = time.Now().UTC()
	return out
}
