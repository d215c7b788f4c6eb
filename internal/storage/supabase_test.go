package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type bucketInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

type createBucketRequest struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Public           bool            `json:"public"`
	AllowedMIMETypes []string        `json:"allowed_mime_types"`
	FileSizeLimit    json.RawMessage `json:"file_size_limit"`
}

type fakeStorageAPI struct {
	mu      sync.Mutex
	buckets []bucketInfo
	created []createBucketRequest
	objects map[string]string
	types   map[string]string
	auth    []string
}

func newFakeStorageAPI() *fakeStorageAPI {
	return &fakeStorageAPI{objects: make(map[string]string), types: make(map[string]string)}
}

func (f *fakeStorageAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auth = append(f.auth, r.Header.Get("apikey"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/storage/v1/bucket":
		json.NewEncoder(w).Encode(f.buckets)
	case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/bucket":
		var req createBucketRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.created = append(f.created, req)
		f.buckets = append(f.buckets, bucketInfo{ID: req.ID, Name: req.Name, Public: req.Public})
		json.NewEncoder(w).Encode(map[string]string{"name": req.Name})
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
		key := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = string(data)
		f.types[key] = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"Key": key})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
		bucket := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")
		var req map[string][]string
		json.NewDecoder(r.Body).Decode(&req)
		removed := make([]map[string]string, 0)
		for _, p := range req["prefixes"] {
			key := bucket + "/" + p
			if _, ok := f.objects[key]; ok {
				delete(f.objects, key)
				removed = append(removed, map[string]string{"name": p})
			}
		}
		json.NewEncoder(w).Encode(removed)
	default:
		http.NotFound(w, r)
	}
}

func testConfig() BucketConfig {
	return BucketConfig{
		Name:             "evidence-files",
		Public:           true,
		AllowedMIMETypes: []string{"image/png", "image/jpeg", "application/pdf"},
		FileSizeLimit:    10485760,
	}
}

func TestEnsureBucketCreatesOnce(t *testing.T) {
	api := newFakeStorageAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL+"/", "anon", testConfig(), zap.NewNop().Sugar())
	ctx := context.Background()

	if err := s.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if err := s.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket (second): %v", err)
	}

	if len(api.created) != 1 {
		t.Fatalf("bucket created %d times, want 1", len(api.created))
	}
	got := api.created[0]
	if got.Name != "evidence-files" || !got.Public || !strings.Contains(string(got.FileSizeLimit), "10485760") || len(got.AllowedMIMETypes) != 3 {
		t.Fatalf("unexpected bucket request: %+v", got)
	}
	for _, key := range api.auth {
		if key != "anon" {
			t.Fatalf("apikey header = %q", key)
		}
	}
}

func TestUploadPublicURLAndRemove(t *testing.T) {
	api := newFakeStorageAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "anon", testConfig(), zap.NewNop().Sugar())
	ctx := context.Background()
	path := "evidence/abc_123.png"

	if err := s.Upload(ctx, path, "image/png", strings.NewReader("pngdata")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if api.objects["evidence-files/"+path] != "pngdata" {
		t.Fatalf("object not stored: %v", api.objects)
	}

	if ct := api.types["evidence-files/"+path]; !strings.HasPrefix(ct, "image/png") {
		t.Fatalf("content type = %q, want image/png", ct)
	}

	want := srv.URL + "/storage/v1/object/public/evidence-files/" + path
	if got := s.PublicURL(path); got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}

	if err := s.Remove(ctx, path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, path); err != ErrObjectNotFound {
		t.Fatalf("second Remove = %v, want ErrObjectNotFound", err)
	}
}

// cancelAfterFirstRead hands out one chunk, then cancels the upload's context
type cancelAfterFirstRead struct {
	cancel context.CancelFunc
	served bool
}

func (r *cancelAfterFirstRead) Read(p []byte) (int, error) {
	if r.served {
		return copy(p, "more"), nil
	}
	r.served = true
	r.cancel()
	return copy(p, "first"), nil
}

func TestUploadStopsWhenContextCancelled(t *testing.T) {
	api := newFakeStorageAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "anon", testConfig(), zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := s.Upload(ctx, "evidence/slow.pdf", "application/pdf", &cancelAfterFirstRead{cancel: cancel})
	if err == nil {
		t.Fatal("expected cancelled upload to fail")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if _, ok := api.objects["evidence-files/evidence/slow.pdf"]; ok {
		t.Fatal("cancelled upload was stored")
	}
}

func TestMemoryBucket(t *testing.T) {
	b := NewMemoryBucket("evidence-files", "http://localhost/storage")
	ctx := context.Background()

	if err := b.Upload(ctx, "evidence/a.pdf", "application/pdf", strings.NewReader("%PDF")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	data, ct, ok := b.Object("evidence/a.pdf")
	if !ok || string(data) != "%PDF" || ct != "application/pdf" {
		t.Fatalf("Object = %q %q %v", data, ct, ok)
	}
	if got := b.PublicURL("evidence/a.pdf"); got != "http://localhost/storage/evidence-files/evidence/a.pdf" {
		t.Fatalf("PublicURL = %q", got)
	}
	if err := b.Remove(ctx, "evidence/a.pdf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(b.Paths()) != 0 {
		t.Fatalf("Paths = %v, want empty", b.Paths())
	}
	if b.UploadCalls() != 1 || b.RemoveCalls() != 1 {
		t.Fatalf("calls = %d/%d", b.UploadCalls(), b.RemoveCalls())
	}
}
