package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/AlexLuu1/Memento/services"
	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/m-mizutani/gt"
)

const fakeCollectionID = "6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

// fakeChroma serves the subset of the Chroma v2 HTTP API the memory store
// uses, keeping records in insertion order.
type fakeChroma struct {
	mu       sync.Mutex
	ids      []string
	docs     map[string]string
	metas    map[string]map[string]any
	nResults []int
}

func newFakeChroma() *fakeChroma {
	return &fakeChroma{
		docs:  map[string]string{},
		metas: map[string]map[string]any{},
	}
}

func (f *fakeChroma) queryCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.nResults...)
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/collections"):
		var req struct {
			Name     string         `json:"name"`
			Metadata map[string]any `json:"metadata"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, map[string]any{
			"id":                 fakeCollectionID,
			"name":               req.Name,
			"metadata":           req.Metadata,
			"configuration_json": map[string]any{},
			"dimension":          nil,
			"tenant":             "default_tenant",
			"database":           "default_database",
			"log_position":       0,
			"version":            0,
		})

	case strings.HasSuffix(path, "/count"):
		writeJSON(w, len(f.ids))

	case strings.HasSuffix(path, "/upsert"), strings.HasSuffix(path, "/add"):
		var req struct {
			IDs       []string         `json:"ids"`
			Documents []string         `json:"documents"`
			Metadatas []map[string]any `json:"metadatas"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, id := range req.IDs {
			if _, ok := f.docs[id]; !ok {
				f.ids = append(f.ids, id)
			}
			if i < len(req.Documents) {
				f.docs[id] = req.Documents[i]
			}
			var meta map[string]any
			if i < len(req.Metadatas) {
				meta = req.Metadatas[i]
			}
			f.metas[id] = meta
		}
		writeJSON(w, map[string]any{})

	case strings.HasSuffix(path, "/get"):
		var req struct {
			IDs []string `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids := req.IDs
		if len(ids) == 0 {
			ids = f.ids
		}
		out := map[string]any{"ids": []string{}, "documents": []string{}, "metadatas": []map[string]any{}}
		var (
			gotIDs   []string
			gotDocs  []string
			gotMetas []map[string]any
		)
		for _, id := range ids {
			doc, ok := f.docs[id]
			if !ok {
				continue
			}
			gotIDs = append(gotIDs, id)
			gotDocs = append(gotDocs, doc)
			gotMetas = append(gotMetas, f.metas[id])
		}
		if len(gotIDs) > 0 {
			out["ids"], out["documents"], out["metadatas"] = gotIDs, gotDocs, gotMetas
		}
		out["include"] = []string{"documents", "metadatas"}
		writeJSON(w, out)

	case strings.HasSuffix(path, "/query"):
		var req struct {
			NResults int `json:"n_results"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.nResults = append(f.nResults, req.NResults)

		ids := f.ids
		if req.NResults < len(ids) {
			ids = ids[:req.NResults]
		}
		docs := make([]string, 0, len(ids))
		metas := make([]map[string]any, 0, len(ids))
		dists := make([]float32, 0, len(ids))
		for i, id := range ids {
			docs = append(docs, f.docs[id])
			metas = append(metas, f.metas[id])
			dists = append(dists, float32(i))
		}
		writeJSON(w, map[string]any{
			"ids":        [][]string{ids},
			"documents":  [][]string{docs},
			"metadatas":  [][]map[string]any{metas},
			"distances":  [][]float32{dists},
			"embeddings": nil,
			"include":    []string{"documents", "metadatas", "distances"},
		})

	case strings.HasSuffix(path, "/pre-flight-checks"):
		writeJSON(w, map[string]any{"max_batch_size": 1000})

	case strings.HasSuffix(path, "/auth/identity"):
		writeJSON(w, map[string]any{
			"user_id":   "",
			"tenant":    "default_tenant",
			"databases": []string{"default_database"},
		})

	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "NotFound", "message": path})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newFakeChromaStore returns a store backed by an in-process Chroma fake.
func newFakeChromaStore(t *testing.T, embedder services.Embedder) (services.MemoryStore, *fakeChroma, *httptest.Server) {
	t.Helper()
	fake := newFakeChroma()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	collection := openCollection(t, srv.URL)
	return services.NewChromaMemoryStore(collection, embedder), fake, srv
}

func openCollection(t *testing.T, url string) chromago.Collection {
	t.Helper()
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(url))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	collection, err := services.GetOrCreateCollection(context.Background(), client, "vectordb",
		chromago.WithEmbeddingFunctionCreate(embeddings.NewConsistentHashEmbeddingFunction()))
	gt.NoError(t, err)
	return collection
}
