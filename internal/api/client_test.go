package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/swdepot/depot-engine/internal/config"
	"github.com/swdepot/depot-engine/internal/models"
)

func testClient(t *testing.T, handler nethttp.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.BaseURL = server.URL
	cfg.APIKey = "test-key"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, server
}

func TestNewClientRejectsEmptyBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "k"

	if _, err := NewClient(cfg); err == nil {
		t.Fatal("NewClient() should fail with empty base URL")
	}
}

func TestRequestCarriesAuthToken(t *testing.T) {
	var gotAuth string
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []models.Software{}})
	}))

	if _, err := client.ListSoftware(context.Background()); err != nil {
		t.Fatalf("ListSoftware() error = %v", err)
	}
	if gotAuth != "Token test-key" {
		t.Errorf("Authorization = %q, want Token test-key", gotAuth)
	}
}

func TestListSoftwarePagination(t *testing.T) {
	var server *httptest.Server
	handler := nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []models.Software{{ID: 2, Name: "SimKit"}},
			})
			return
		}
		next := server.URL + "/api/v1/software/?page=2"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"next":    next,
			"results": []models.Software{{ID: 1, Name: "MeshLab"}},
		})
	})
	client, srv := testClient(t, handler)
	server = srv

	software, err := client.ListSoftware(context.Background())
	if err != nil {
		t.Fatalf("ListSoftware() error = %v", err)
	}
	if len(software) != 2 {
		t.Fatalf("len = %d, want 2 (pagination followed)", len(software))
	}
	if software[1].Name != "SimKit" {
		t.Errorf("second page entry = %q", software[1].Name)
	}
}

func TestUploadChunkIntermediateAndFinal(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("chunkIndex") == "0" {
			w.WriteHeader(nethttp.StatusAccepted)
			return
		}
		if got := r.FormValue("totalChunks"); got != "2" {
			t.Errorf("totalChunks = %q, want 2", got)
		}
		if got := r.FormValue("compatibleVersionIds"); got != "4,5" {
			t.Errorf("compatibleVersionIds = %q, want 4,5", got)
		}
		if got := r.FormValue("versionId"); got != "9" {
			t.Errorf("versionId = %q, want 9", got)
		}
		_ = json.NewEncoder(w).Encode(models.ContentItem{ID: 77, Kind: models.KindPatch, DisplayName: "big.bin"})
	}))

	payload := ItemPayload{
		SoftwareID:           1,
		Title:                "big.bin",
		Version:              models.ExistingVersion(9),
		CompatibleVersionIDs: []int{4, 5},
	}

	item, err := client.UploadChunk(context.Background(), ChunkRequest{
		Kind: models.KindPatch, ChunkIndex: 0, TotalChunks: 2,
		Payload: payload, FileName: "big.bin", Data: []byte("aaaa"),
	})
	if err != nil {
		t.Fatalf("chunk 0 error = %v", err)
	}
	if item != nil {
		t.Error("intermediate chunk should not return an item")
	}

	item, err = client.UploadChunk(context.Background(), ChunkRequest{
		Kind: models.KindPatch, ChunkIndex: 1, TotalChunks: 2,
		Payload: payload, FileName: "big.bin", Data: []byte("bb"),
	})
	if err != nil {
		t.Fatalf("final chunk error = %v", err)
	}
	if item == nil || item.ID != 77 {
		t.Fatalf("final chunk item = %+v, want id 77", item)
	}
}

func TestBulkMoveParsesPartialSuccess(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusMultiStatus)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"movedCount": 3,
			"conflictedItems": []models.ConflictedItem{
				{ID: 4, Name: "setup.exe", Reason: "name exists"},
				{ID: 5, Name: "notes.txt", Reason: "name exists"},
			},
		})
	}))

	result, err := client.BulkMove(context.Background(), models.KindDocument, []int{1, 2, 3, 4, 5}, 10)
	if err != nil {
		t.Fatalf("BulkMove() error = %v", err)
	}
	if result.SuccessCount != 3 {
		t.Errorf("SuccessCount = %d, want 3", result.SuccessCount)
	}
	if len(result.Conflicted) != 2 {
		t.Errorf("Conflicted = %d, want 2", len(result.Conflicted))
	}
	if !result.Partial() {
		t.Error("result should report partial success")
	}
}

func TestBulkMoveAllConflictedFailsEntirely(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusMultiStatus)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"movedCount": 0,
			"conflictedItems": []map[string]interface{}{
				{"id": 4, "name": "a.pdf"},
				{"id": 5, "name": "b.pdf"},
			},
		})
	}))

	result, err := client.BulkMove(context.Background(), models.KindDocument, []int{4, 5}, 10)
	if err != nil {
		t.Fatalf("BulkMove() error = %v", err)
	}
	if !result.FailedEntirely {
		t.Error("zero moves with conflicts must report FailedEntirely")
	}
	if result.Partial() {
		t.Error("total failure is not partial success")
	}
}

func TestBulkMoveRawUniquenessError(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusInternalServerError)
		_, _ = w.Write([]byte("ERROR: duplicate key value violates unique constraint"))
	}))

	_, err := client.BulkMove(context.Background(), models.KindDocument, []int{1}, 10)
	if !errors.Is(err, ErrNameConflict) {
		t.Errorf("error = %v, want ErrNameConflict", err)
	}
}

func TestServerErrorBodyIsSurfaced(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusInternalServerError)
		_, _ = w.Write([]byte("disk quota exceeded"))
	}))

	_, err := client.BulkDelete(context.Background(), models.KindDocument, []int{1})
	if err == nil {
		t.Fatal("BulkDelete() should fail on a 500")
	}
	if !strings.Contains(err.Error(), "disk quota exceeded") {
		t.Errorf("error = %v, want the raw server body surfaced", err)
	}
	if strings.Contains(err.Error(), "giving up") {
		t.Errorf("error = %v, transport must not swallow the final response", err)
	}
}

func TestBulkDelete(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var body struct {
			IDs []int `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]int{"deletedCount": len(body.IDs)})
	}))

	deleted, err := client.BulkDelete(context.Background(), models.KindLink, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
}

func TestBulkDownloadStreams(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK archive bytes"))
	}))

	stream, err := client.BulkDownload(context.Background(), models.KindDocument, []int{1})
	if err != nil {
		t.Fatalf("BulkDownload() error = %v", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.HasPrefix(string(data), "PK") {
		t.Errorf("stream = %q, want archive bytes", data)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodPost:
			w.WriteHeader(nethttp.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]int{"id": 31})
		case nethttp.MethodDelete:
			w.WriteHeader(nethttp.StatusNoContent)
		}
	}))

	id, err := client.AddFavorite(context.Background(), 5, models.KindDocument)
	if err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	if id != 31 {
		t.Errorf("favorite id = %d, want 31", id)
	}
	if err := client.RemoveFavorite(context.Background(), id); err != nil {
		t.Errorf("RemoveFavorite() error = %v", err)
	}
}

func TestCreateItemConflictDetection(t *testing.T) {
	client, _ := testClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"an item with this name already exists"}`))
	}))

	_, err := client.CreateItem(context.Background(), models.KindDocument, ItemPayload{
		SoftwareID: 1, Title: "dup", Version: models.ExistingVersion(2), URL: "https://x",
	})
	if !IsNameConflictError(err) {
		t.Errorf("error = %v, want name conflict", err)
	}
}

func TestIsNameConflictError(t *testing.T) {
	if IsNameConflictError(nil) {
		t.Error("nil is not a conflict")
	}
	if !IsNameConflictError(errors.New("UNIQUE constraint failed: items.name")) {
		t.Error("raw uniqueness message should match")
	}
	if IsNameConflictError(errors.New("connection refused")) {
		t.Error("transport error is not a conflict")
	}
}
