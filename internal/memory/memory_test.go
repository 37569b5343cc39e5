// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/llm"
)

// --- test helpers ---

// countingEmbedder wraps an Embedder and counts calls.
type countingEmbedder struct {
	inner llm.Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, texts)
}

// constEmbedder maps every text to the same vector.
type constEmbedder struct{ vec []float32 }

func (c constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), c.vec...)
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

var sampleTexts = []string{
	"Graph neural networks propagate messages between neighboring nodes to learn molecular properties.",
	"Diffusion models generate protein backbones by iteratively denoising random coordinates.",
	"Transformers with sparse attention scale language modeling to very long documents.",
}

var sampleIDs = []string{"P1", "P2", "P3"}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(llm.NewHashEmbedder(128), filepath.Join(t.TempDir(), "memory.db"))
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	metas := []map[string]string{
		{"paper_id": "P1", "title": "GNNs for Molecules"},
		{"paper_id": "P2", "title": "Protein Diffusion"},
		{"paper_id": "P3", "title": "Sparse Transformers"},
	}
	if err := s.Insert(context.Background(), sampleTexts, sampleIDs, metas...); err != nil {
		t.Fatal(err)
	}
}

// --- tests ---

func TestSelfRetrieval(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	for i, text := range sampleTexts {
		got, err := s.Search(context.Background(), text, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("search %d: got %d results, want 1", i, len(got))
		}
		if got[0].ID != sampleIDs[i] {
			t.Errorf("search %d: got ID %q, want %q", i, got[0].ID, sampleIDs[i])
		}
		if got[0].Metadata["paper_id"] != sampleIDs[i] {
			t.Errorf("search %d: metadata paper_id = %q", i, got[0].Metadata["paper_id"])
		}
	}
}

func TestSearchWithScore_Ordering(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	results, err := s.SearchWithScore(context.Background(), sampleTexts[1], 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Entry.ID != "P2" {
		t.Errorf("top result = %q, want P2", results[0].Entry.ID)
	}
	if results[0].Score < 0.999 {
		t.Errorf("self score = %f, want ~1", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted: %f after %f", results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearch_KLimits(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	got, err := s.Search(context.Background(), "neural", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("k=2: got %d results", len(got))
	}

	got, err = s.Search(context.Background(), "neural", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("k=50: got %d results, want all 3", len(got))
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	s := New(constEmbedder{vec: []float32{1, 0, 0}}, "")
	if err := s.Insert(context.Background(), []string{"a", "b", "c"}, []string{"first", "second", "third"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "first,second,third" {
		t.Errorf("got order %v", ids)
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	emb := &countingEmbedder{inner: llm.NewHashEmbedder(16)}
	s := New(emb, "")

	got, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times on empty store", emb.calls)
	}
}

func TestInsert_AutoIDs(t *testing.T) {
	s := New(llm.NewHashEmbedder(16), "")
	if err := s.Insert(context.Background(), []string{"one", "two"}, nil); err != nil {
		t.Fatal(err)
	}
	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].ID == entries[1].ID {
		t.Errorf("auto IDs collide: %s", entries[0].ID)
	}
	for _, e := range entries {
		if _, err := uuid.Parse(e.ID); err != nil {
			t.Errorf("ID %q is not a UUID: %v", e.ID, err)
		}
	}
}

func TestInsert_LengthMismatch(t *testing.T) {
	s := New(llm.NewHashEmbedder(16), "")
	err := s.Insert(context.Background(), []string{"a", "b"}, []string{"only-one"})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}
	if s.Len() != 0 {
		t.Errorf("store modified on failed insert: len %d", s.Len())
	}
}

func TestInsert_DuplicatesAppend(t *testing.T) {
	s := New(llm.NewHashEmbedder(16), "")
	for i := 0; i < 2; i++ {
		if err := s.Insert(context.Background(), []string{"same"}, []string{"dup"}); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
}

func TestInsert_EmbedderError(t *testing.T) {
	s := New(failingEmbedder{}, "")
	if err := s.Insert(context.Background(), []string{"a"}, []string{"A"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestInsert_DimensionMismatch(t *testing.T) {
	s := New(constEmbedder{vec: []float32{1, 0}}, "")
	if err := s.Insert(context.Background(), []string{"a"}, nil); err != nil {
		t.Fatal(err)
	}
	s.embedder = constEmbedder{vec: []float32{1, 0, 0}}
	err := s.Insert(context.Background(), []string{"b"}, nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memory.db")
	s := New(llm.NewHashEmbedder(128), path)
	seed(t, s)

	before, err := s.SearchWithScore(context.Background(), "protein structure generation", 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	reloaded := New(llm.NewHashEmbedder(128), path)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 3 {
		t.Fatalf("reloaded len = %d, want 3", reloaded.Len())
	}

	after, err := reloaded.SearchWithScore(context.Background(), "protein structure generation", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("got %d results after reload, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].Entry.ID != before[i].Entry.ID || after[i].Score != before[i].Score {
			t.Errorf("result %d: got (%s, %f), want (%s, %f)",
				i, after[i].Entry.ID, after[i].Score, before[i].Entry.ID, before[i].Score)
		}
		if after[i].Entry.Metadata["title"] != before[i].Entry.Metadata["title"] {
			t.Errorf("result %d: metadata lost", i)
		}
	}
}

func TestSave_Overwrites(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.Clear()
	if err := s.Save(context.Background()); err != nil {
		t.Fatal(err)
	}

	reloaded := New(llm.NewHashEmbedder(128), s.Path())
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 0 {
		t.Errorf("len = %d after saving cleared store", reloaded.Len())
	}

	matches, _ := filepath.Glob(s.Path() + ".*.tmp")
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	s := newTestStore(t)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d", s.Len())
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	if err := os.WriteFile(s.Path(), []byte("this is not a sqlite database, just noise"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := s.Load(context.Background())
	if !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("got %v, want ErrIndexCorrupt", err)
	}
	if s.Len() != 0 {
		t.Errorf("corrupt load left %d entries", s.Len())
	}

	got, err := s.Search(context.Background(), "anything", 3)
	if err != nil || len(got) != 0 {
		t.Errorf("search after corrupt load: %v, %v", got, err)
	}
}

func TestNoPath(t *testing.T) {
	s := New(llm.NewHashEmbedder(16), "")
	seed(t, s)
	if err := s.Save(context.Background()); err != nil {
		t.Errorf("save: %v", err)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Errorf("load: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("load without path changed entries: %d", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	s.Clear()
	if s.Len() != 0 || s.Dimension() != 0 {
		t.Errorf("after clear: len %d dim %d", s.Len(), s.Dimension())
	}
	// A different dimension is accepted after Clear.
	s.embedder = constEmbedder{vec: []float32{0, 1}}
	if err := s.Insert(context.Background(), []string{"x"}, nil); err != nil {
		t.Fatal(err)
	}
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	got, err := decodeVector(encodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], v[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	var yb bytes.Buffer
	if err := s.ExportYAML(&yb); err != nil {
		t.Fatal(err)
	}
	var fromYAML []ExportEntry
	if err := yaml.Unmarshal(yb.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 3 || fromYAML[2].ID != "P3" || fromYAML[2].Metadata["title"] != "Sparse Transformers" {
		t.Errorf("YAML export: %+v", fromYAML)
	}

	var jb bytes.Buffer
	if err := s.ExportJSON(&jb); err != nil {
		t.Fatal(err)
	}
	var fromJSON []ExportEntry
	if err := json.Unmarshal(jb.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 3 || fromJSON[0].Text != sampleTexts[0] {
		t.Errorf("JSON export: %+v", fromJSON)
	}
	if strings.Contains(jb.String(), "vector") {
		t.Error("JSON export should not include vectors")
	}
}

func TestReturnedEntriesAreCopies(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	hits, err := s.SearchWithScore(ctx, sampleTexts[0], 1)
	if err != nil {
		t.Fatal(err)
	}
	hits[0].Entry.Metadata["title"] = "overwritten"
	hits[0].Entry.Vector[0] = 42

	entries := s.Entries()
	entries[1].Metadata["title"] = "overwritten"
	entries[1].Vector[0] = 42

	plain, err := s.Search(ctx, sampleTexts[2], 1)
	if err != nil {
		t.Fatal(err)
	}
	plain[0].Metadata["title"] = "overwritten"

	again := s.Entries()
	want := []string{"GNNs for Molecules", "Protein Diffusion", "Sparse Transformers"}
	for i, e := range again {
		if got := e.Metadata["title"]; got != want[i] {
			t.Errorf("entry %d title = %q, want %q", i, got, want[i])
		}
		if e.Vector[0] == 42 {
			t.Errorf("entry %d vector was modified through a returned copy", i)
		}
	}

	hits, err = s.SearchWithScore(ctx, sampleTexts[0], 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Entry.ID != "P1" || hits[0].Score < 0.999 {
		t.Errorf("self-retrieval after caller mutation = %s %.3f, want P1 ~1.0", hits[0].Entry.ID, hits[0].Score)
	}
}
