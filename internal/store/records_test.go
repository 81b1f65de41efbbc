package store

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

func cropRows(ids ...string) []models.Crop {
	rows := make([]models.Crop, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.Crop{ID: id, UserID: "user-1", Name: "crop-" + id, Status: models.CropPlanted})
	}
	return rows
}

func seededRecordStore(t *testing.T, data *mockData, crops []models.Crop) *RecordStore {
	t.Helper()
	prev := data.selectOwnedFn
	data.selectOwnedFn = func(ctx context.Context, q remote.Query, dest any) error {
		*dest.(*[]models.Crop) = crops
		return nil
	}
	s := NewRecordStore(data, nil)
	s.FetchCrops(context.Background(), "user-1")
	data.selectOwnedFn = prev
	return s
}

func TestRecordStore_FetchCrops_ReplacesCollection(t *testing.T) {
	var query remote.Query
	data := &mockData{
		selectOwnedFn: func(ctx context.Context, q remote.Query, dest any) error {
			query = q
			*dest.(*[]models.Crop) = cropRows("2", "1")
			return nil
		},
	}
	s := NewRecordStore(data, nil)

	s.FetchCrops(context.Background(), "user-1")

	if query.Collection != remote.CollectionCrops || query.OwnerID != "user-1" {
		t.Errorf("unexpected query %+v", query)
	}
	if query.OrderBy != "created_at" || !query.Descending {
		t.Errorf("crops must be ordered by creation time descending, got %+v", query)
	}
	if got := s.Crops(); len(got) != 2 || got[0].ID != "2" {
		t.Errorf("unexpected snapshot %+v", got)
	}
	if s.Loading() {
		t.Error("loading must clear after fetch")
	}
	if s.LastError() != nil {
		t.Errorf("unexpected lastError %v", s.LastError())
	}
}

func TestRecordStore_FetchCrops_FailureKeepsStaleData(t *testing.T) {
	data := &mockData{}
	s := seededRecordStore(t, data, cropRows("1"))

	data.selectOwnedFn = func(ctx context.Context, q remote.Query, dest any) error {
		return models.NewOpError("connection reset", 0)
	}
	s.FetchCrops(context.Background(), "user-1")

	if got := s.Crops(); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("failed fetch must keep the previous collection, got %+v", got)
	}
	if lastErr := s.LastError(); lastErr == nil || lastErr.Message != "connection reset" {
		t.Errorf("expected lastError, got %v", lastErr)
	}
	if s.Loading() {
		t.Error("loading must clear after a failed fetch")
	}

	s.ClearError()
	if s.LastError() != nil {
		t.Error("ClearError must drop the stored failure")
	}
}

func TestRecordStore_AddCrop_PrependsCanonicalRow(t *testing.T) {
	data := &mockData{
		insertFn: func(ctx context.Context, collection string, row any, dest any) error {
			crop := row.(models.Crop)
			crop.ID = "server-id"
			crop.CreatedAt = time.Now().UTC()
			*dest.(*models.Crop) = crop
			return nil
		},
	}
	s := seededRecordStore(t, data, cropRows("1"))

	err := s.AddCrop(context.Background(), models.Crop{UserID: "user-1", Name: "maize", Status: models.CropPlanted})
	if err != nil {
		t.Fatalf("AddCrop returned error: %v", err)
	}

	got := s.Crops()
	if len(got) != 2 {
		t.Fatalf("expected 2 crops, got %d", len(got))
	}
	if got[0].ID != "server-id" || got[0].UserID != "user-1" {
		t.Errorf("canonical row must sit at index 0 with the caller's owner id, got %+v", got[0])
	}
}

func TestRecordStore_AddCrop_FailureLeavesCollectionUnchanged(t *testing.T) {
	data := &mockData{
		insertFn: func(ctx context.Context, collection string, row any, dest any) error {
			return models.NewOpError("row-level security violation", 403)
		},
	}
	s := seededRecordStore(t, data, cropRows("1"))
	before := s.Crops()

	err := s.AddCrop(context.Background(), models.Crop{UserID: "user-1", Name: "maize"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(before, s.Crops()) {
		t.Error("failed add must leave the collection unchanged")
	}
}

func TestRecordStore_UpdateCrop_ReplacesMatchingElement(t *testing.T) {
	var partial map[string]any
	data := &mockData{
		updateByIDFn: func(ctx context.Context, collection, id string, p map[string]any, dest any) error {
			partial = p
			*dest.(*models.Crop) = models.Crop{ID: id, UserID: "user-1", Name: "crop-1", Status: models.CropGrowing}
			return nil
		},
	}
	s := seededRecordStore(t, data, cropRows("1"))

	updates := map[string]any{"status": "growing"}
	if err := s.UpdateCrop(context.Background(), "1", updates); err != nil {
		t.Fatalf("UpdateCrop returned error: %v", err)
	}

	got := s.Crops()
	if len(got) != 1 || got[0].Status != models.CropGrowing {
		t.Errorf("expected exactly one growing crop, got %+v", got)
	}
	if _, present := partial["updated_at"]; !present {
		t.Error("update partial must carry a refreshed updated_at")
	}
	if _, leaked := updates["updated_at"]; leaked {
		t.Error("caller's update map must not be mutated")
	}
}

func TestRecordStore_UpdateCrop_FailureLeavesCollectionUnchanged(t *testing.T) {
	data := &mockData{
		updateByIDFn: func(ctx context.Context, collection, id string, p map[string]any, dest any) error {
			return models.NewOpError("record not found", 404)
		},
	}
	s := seededRecordStore(t, data, cropRows("1"))
	before := s.Crops()

	if err := s.UpdateCrop(context.Background(), "missing", map[string]any{"status": "failed"}); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(before, s.Crops()) {
		t.Error("failed update must leave the collection unchanged")
	}
}

func TestRecordStore_DeleteCrop(t *testing.T) {
	data := &mockData{}
	s := seededRecordStore(t, data, cropRows("1", "2"))

	if err := s.DeleteCrop(context.Background(), "1"); err != nil {
		t.Fatalf("DeleteCrop returned error: %v", err)
	}
	if got := s.Crops(); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("expected only crop 2 to remain, got %+v", got)
	}

	data.deleteByIDFn = func(ctx context.Context, collection, id string) error {
		return models.NewOpError("permission denied", 403)
	}
	before := s.Crops()
	if err := s.DeleteCrop(context.Background(), "2"); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(before, s.Crops()) {
		t.Error("failed delete must leave the collection unchanged")
	}
}

func TestRecordStore_FetchActivities_OrderedByDate(t *testing.T) {
	var query remote.Query
	data := &mockData{
		selectOwnedFn: func(ctx context.Context, q remote.Query, dest any) error {
			query = q
			*dest.(*[]models.FarmActivity) = nil
			return nil
		},
	}
	s := NewRecordStore(data, nil)

	s.FetchActivities(context.Background(), "user-1")

	if query.Collection != remote.CollectionActivities || query.OrderBy != "date" || !query.Descending {
		t.Errorf("unexpected query %+v", query)
	}
	if got := s.Activities(); got == nil || len(got) != 0 {
		t.Errorf("zero rows must yield an empty, non-nil collection, got %#v", got)
	}
}

func TestRecordStore_AddWeather_CapsCacheAtThirty(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.WeatherRecord, weatherCacheLimit)
	for i := range rows {
		// Newest first, so the last element is the oldest.
		rows[i] = models.WeatherRecord{
			ID:         fmt.Sprintf("w-%d", weatherCacheLimit-i),
			UserID:     "user-1",
			RecordedAt: base.Add(-time.Duration(i) * time.Hour),
		}
	}

	data := &mockData{
		selectOwnedFn: func(ctx context.Context, q remote.Query, dest any) error {
			if q.Limit != weatherCacheLimit {
				t.Fatalf("weather fetch must limit to %d, got %d", weatherCacheLimit, q.Limit)
			}
			*dest.(*[]models.WeatherRecord) = rows
			return nil
		},
		insertFn: func(ctx context.Context, collection string, row any, dest any) error {
			record := row.(models.WeatherRecord)
			record.ID = "w-new"
			*dest.(*models.WeatherRecord) = record
			return nil
		},
	}
	s := NewRecordStore(data, nil)
	s.FetchWeather(context.Background(), "user-1")

	err := s.AddWeather(context.Background(), models.WeatherRecord{UserID: "user-1", RecordedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("AddWeather returned error: %v", err)
	}

	got := s.Weather()
	if len(got) != weatherCacheLimit {
		t.Fatalf("cache must stay at %d records, got %d", weatherCacheLimit, len(got))
	}
	if got[0].ID != "w-new" {
		t.Errorf("new record must sit at index 0, got %s", got[0].ID)
	}
	oldest := rows[len(rows)-1].ID
	for _, record := range got {
		if record.ID == oldest {
			t.Errorf("previous oldest record %s must be evicted", oldest)
		}
	}
}

// Two overlapping fetches: whichever response resolves last determines the
// final collection, regardless of call order. The store deliberately does
// not sequence them.
func TestRecordStore_ConcurrentFetches_LastResolveWins(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	calls := 0
	data := &mockData{}
	data.selectOwnedFn = func(ctx context.Context, q remote.Query, dest any) error {
		calls++
		if calls == 1 {
			close(firstStarted)
			<-releaseFirst
			*dest.(*[]models.Crop) = cropRows("slow")
			return nil
		}
		*dest.(*[]models.Crop) = cropRows("fast")
		return nil
	}
	s := NewRecordStore(data, nil)

	done := make(chan struct{})
	go func() {
		s.FetchCrops(context.Background(), "user-1")
		close(done)
	}()

	<-firstStarted
	// Second fetch starts later but resolves first.
	s.FetchCrops(context.Background(), "user-1")
	if got := s.Crops(); len(got) != 1 || got[0].ID != "fast" {
		t.Fatalf("expected the fast response to be applied, got %+v", got)
	}

	close(releaseFirst)
	<-done

	if got := s.Crops(); len(got) != 1 || got[0].ID != "slow" {
		t.Errorf("final state must equal the last-resolving response, got %+v", got)
	}
}
