package seed

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"

	"altiora-site/pkg/db"
	"altiora-site/pkg/domain"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mimics UpsertDocument: one document per (collection, key, value),
// modified only when the content differs.
type memStore struct {
	docs  map[string]string
	calls int
}

func (m *memStore) UpsertDocument(_ context.Context, coll, key string, value interface{}, doc interface{}) (db.UpsertResult, error) {
	m.calls++
	if m.docs == nil {
		m.docs = map[string]string{}
	}
	id := fmt.Sprintf("%s/%s=%v", coll, key, value)
	body, err := json.Marshal(doc)
	if err != nil {
		return db.UpsertResult{}, err
	}
	prev, ok := m.docs[id]
	m.docs[id] = string(body)
	switch {
	case !ok:
		return db.UpsertResult{Inserted: true}, nil
	case prev != string(body):
		return db.UpsertResult{Modified: true}, nil
	default:
		return db.UpsertResult{}, nil
	}
}

func TestBuiltinSeedsAreValid(t *testing.T) {
	seeds, err := Builtin()
	require.NoError(t, err)
	require.NotEmpty(t, seeds)

	seen := map[string]bool{}
	for _, s := range seeds {
		for _, doc := range s.Documents {
			v, err := KeyValue(doc, s.Key)
			require.NoError(t, err)
			id := s.Collection + "/" + v
			assert.False(t, seen[id], "duplicate upsert key %s", id)
			seen[id] = true
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	seeds, err := Builtin()
	require.NoError(t, err)
	store := &memStore{}

	first, err := Run(context.Background(), store, seeds)
	require.NoError(t, err)
	docCount := len(store.docs)

	second, err := Run(context.Background(), store, seeds)
	require.NoError(t, err)

	assert.Equal(t, docCount, len(store.docs), "re-running must not create documents")
	for i := range second {
		assert.Equal(t, first[i].Inserted, second[i].Unchanged)
		assert.Zero(t, second[i].Inserted)
		assert.Zero(t, second[i].Updated)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	seeds, err := Builtin()
	require.NoError(t, err)

	reports, err := Run(context.Background(), nil, seeds)
	require.NoError(t, err)
	assert.Len(t, reports, len(seeds))
}

func TestSelect(t *testing.T) {
	seeds, err := Builtin()
	require.NoError(t, err)

	got, err := Select(seeds, []string{"projects", "mainpages"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "projects", got[0].Name)
	assert.Equal(t, db.CollectionMainPages, got[1].Collection)

	_, err = Select(seeds, []string{"nope"})
	assert.Error(t, err)

	_, err = Select(nil, nil)
	assert.ErrorIs(t, err, ErrNoSeeds)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"seeds/ok.json": {Data: []byte(`{"collection":"ai-ml-services","key":"serviceType","documents":[{"serviceType":"nlp","slug":"nlp","title":"NLP"}]}`)},
	}
	seeds, err := LoadFS(fsys, "seeds")
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	page := seeds[0].Documents[0].(*domain.ServicePage)
	assert.Equal(t, "NLP", page.Title)

	bad := []struct {
		name string
		body string
	}{
		{"unknown collection", `{"collection":"widgets","key":"slug","documents":[{"slug":"a"}]}`},
		{"missing key value", `{"collection":"mainpages","key":"pageId","documents":[{"slug":"a","title":"A"}]}`},
		{"missing title", `{"collection":"projects","key":"slug","documents":[{"slug":"a"}]}`},
		{"unknown field", `{"collection":"projects","key":"slug","documents":[{"slug":"a","title":"A","colour":"red"}]}`},
		{"no documents", `{"collection":"projects","key":"slug","documents":[]}`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(fstest.MapFS{"s/x.json": {Data: []byte(tt.body)}}, "s")
			assert.Error(t, err)
		})
	}
}
