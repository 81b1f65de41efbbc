package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bdiallo/farmtrack/internal/domain/models"
	"github.com/bdiallo/farmtrack/internal/remote"
)

func TestClient_SelectOwned_QueryBuilding(t *testing.T) {
	var captured *http.Request
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"c-1","user_id":"user-1","name":"maize"}]`))
	}))

	var crops []models.Crop
	err := client.SelectOwned(context.Background(), remote.Query{
		Collection: remote.CollectionCrops,
		OwnerID:    "user-1",
		OrderBy:    "created_at",
		Descending: true,
		Limit:      30,
	}, &crops)
	if err != nil {
		t.Fatalf("SelectOwned returned error: %v", err)
	}

	if captured.URL.Path != "/rest/v1/crops" {
		t.Errorf("unexpected path %s", captured.URL.Path)
	}
	params := captured.URL.Query()
	if params.Get("user_id") != "eq.user-1" {
		t.Errorf("unexpected owner filter %q", params.Get("user_id"))
	}
	if params.Get("order") != "created_at.desc" {
		t.Errorf("unexpected order %q", params.Get("order"))
	}
	if params.Get("limit") != "30" {
		t.Errorf("unexpected limit %q", params.Get("limit"))
	}
	if len(crops) != 1 || crops[0].Name != "maize" {
		t.Errorf("unexpected decode %+v", crops)
	}
}

func TestClient_SelectOwned_UsesSessionToken(t *testing.T) {
	var authorization string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/auth/v1/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "user-jwt",
				"refresh_token": "refresh",
				"expires_in":    3600,
				"user":          map[string]any{"id": "user-1"},
			})
			return
		}
		authorization = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))

	var crops []models.Crop
	if err := client.SelectOwned(context.Background(), remote.Query{Collection: remote.CollectionCrops, OwnerID: "user-1"}, &crops); err != nil {
		t.Fatalf("SelectOwned returned error: %v", err)
	}
	if authorization != "Bearer anon-key" {
		t.Errorf("signed-out requests must use the anonymous key, got %q", authorization)
	}

	if _, err := client.PasswordSignIn(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("PasswordSignIn returned error: %v", err)
	}
	if err := client.SelectOwned(context.Background(), remote.Query{Collection: remote.CollectionCrops, OwnerID: "user-1"}, &crops); err != nil {
		t.Fatalf("SelectOwned returned error: %v", err)
	}
	if authorization != "Bearer user-jwt" {
		t.Errorf("signed-in requests must use the session token, got %q", authorization)
	}
}

func TestClient_Insert_DecodesCanonicalRow(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("unexpected Prefer header %q", r.Header.Get("Prefer"))
		}
		if r.Header.Get("Accept") != acceptSingleObject {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}

		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if _, present := payload["id"]; present {
			t.Error("empty id must be stripped from the insert payload")
		}
		if _, present := payload["created_at"]; present {
			t.Error("zero created_at must be stripped from the insert payload")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c-9","user_id":"user-1","name":"maize","created_at":"2025-06-01T00:00:00Z"}`))
	}))

	var created models.Crop
	err := client.Insert(context.Background(), remote.CollectionCrops,
		models.Crop{UserID: "user-1", Name: "maize"}, &created)
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if created.ID != "c-9" || created.CreatedAt.IsZero() {
		t.Errorf("unexpected canonical row %+v", created)
	}
}

func TestClient_UpdateByID_FiltersByID(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Query().Get("id") != "eq.c-1" {
			t.Errorf("unexpected id filter %q", r.URL.Query().Get("id"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c-1","user_id":"user-1","status":"growing"}`))
	}))

	var updated models.Crop
	err := client.UpdateByID(context.Background(), remote.CollectionCrops, "c-1",
		map[string]any{"status": "growing"}, &updated)
	if err != nil {
		t.Fatalf("UpdateByID returned error: %v", err)
	}
	if updated.Status != models.CropGrowing {
		t.Errorf("unexpected canonical row %+v", updated)
	}
}

func TestClient_DeleteByID_ErrorNormalization(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"permission denied for table crops"}`))
	}))

	err := client.DeleteByID(context.Background(), remote.CollectionCrops, "c-1")
	var opErr *models.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *models.OpError, got %T", err)
	}
	if opErr.Status != http.StatusForbidden || opErr.Message != "permission denied for table crops" {
		t.Errorf("unexpected error %+v", opErr)
	}
}

func TestClient_Upsert_MergesDuplicates(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefer := r.Header.Get("Prefer")
		if prefer != "resolution=merge-duplicates,return=representation" {
			t.Errorf("unexpected Prefer header %q", prefer)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","email":"a@b.com"}`))
	}))

	err := client.Upsert(context.Background(), remote.CollectionProfiles,
		models.Profile{ID: "user-1", Email: "a@b.com"}, nil)
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
}

func TestInsertPayload_StripsServerAssignedFields(t *testing.T) {
	payload, err := insertPayload(models.Crop{
		UserID:    "user-1",
		Name:      "maize",
		CreatedAt: time.Time{},
	})
	if err != nil {
		t.Fatalf("insertPayload returned error: %v", err)
	}

	for _, key := range []string{"id", "created_at", "updated_at"} {
		if _, present := payload[key]; present {
			t.Errorf("server-assigned field %q must be stripped", key)
		}
	}
	if payload["user_id"] != "user-1" || payload["name"] != "maize" {
		t.Errorf("caller fields must survive, got %v", payload)
	}

	withID, err := insertPayload(models.Crop{ID: "c-1", UserID: "user-1"})
	if err != nil {
		t.Fatalf("insertPayload returned error: %v", err)
	}
	if withID["id"] != "c-1" {
		t.Error("non-empty ids must be kept")
	}
}
