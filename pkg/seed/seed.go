// Package seed holds the static page content of the site and writes it into
// MongoDB. Each file under data/ declares its collection and the field the
// upsert matches on, so re-running a seed only refreshes content.
package seed

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"altiora-site/pkg/db"
	"altiora-site/pkg/domain"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/validation"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
)

//go:embed data/*.json
var dataFS embed.FS

// ErrNoSeeds is returned when there is nothing to select from.
var ErrNoSeeds = errors.New("no seeds available")

// Seed is one data file: a set of documents for a single collection.
type Seed struct {
	Name       string
	Collection string
	Key        string
	Documents  []any
}

type seedFile struct {
	Collection string            `json:"collection"`
	Key        string            `json:"key"`
	Documents  []json.RawMessage `json:"documents"`
}

// Builtin returns the seeds compiled into the binary, sorted by name.
func Builtin() ([]Seed, error) {
	return LoadFS(dataFS, "data")
}

// LoadFS reads every *.json seed in dir.
func LoadFS(fsys fs.FS, dir string) ([]Seed, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	seeds := make([]Seed, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		s, err := parse(strings.TrimSuffix(path.Base(name), ".json"), raw)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

func parse(name string, raw []byte) (Seed, error) {
	var f seedFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return Seed{}, fmt.Errorf("seed %s: %w", name, err)
	}
	if f.Collection == "" || f.Key == "" {
		return Seed{}, fmt.Errorf("seed %s: collection and key are required", name)
	}
	if len(f.Documents) == 0 {
		return Seed{}, fmt.Errorf("seed %s: no documents", name)
	}

	s := Seed{Name: name, Collection: f.Collection, Key: f.Key}
	for i, rawDoc := range f.Documents {
		doc, err := decodeDocument(f.Collection, rawDoc)
		if err != nil {
			return Seed{}, fmt.Errorf("seed %s document %d: %w", name, i, err)
		}
		if verr := validation.ValidateStruct(doc); verr != nil {
			return Seed{}, fmt.Errorf("seed %s document %d: %w", name, i, verr)
		}
		if _, err := KeyValue(doc, f.Key); err != nil {
			return Seed{}, fmt.Errorf("seed %s document %d: %w", name, i, err)
		}
		s.Documents = append(s.Documents, doc)
	}
	return s, nil
}

// decodeDocument decodes into the typed model of collection so field names
// and types are checked the same way the API reads them back.
func decodeDocument(collection string, raw json.RawMessage) (any, error) {
	var doc any
	switch collection {
	case db.CollectionWeb3Services, db.CollectionAIMLServices, db.CollectionMainPages:
		doc = &domain.ServicePage{}
	case db.CollectionProjects:
		doc = &domain.Project{}
	case db.CollectionBlogPosts:
		doc = &domain.BlogPost{}
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// KeyValue returns the value of the stored field key in doc.
func KeyValue(doc any, key string) (string, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	v, _ := m[key].(string)
	if v == "" {
		return "", fmt.Errorf("upsert key %q is empty", key)
	}
	return v, nil
}

// Select returns the named seeds, or all of them when names is empty.
func Select(all []Seed, names []string) ([]Seed, error) {
	if len(all) == 0 {
		return nil, ErrNoSeeds
	}
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Seed, len(all))
	for _, s := range all {
		byName[s.Name] = s
	}
	out := make([]Seed, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown seed %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// Upserter writes one document keyed by a field.
type Upserter interface {
	UpsertDocument(ctx context.Context, collection, key string, value interface{}, doc interface{}) (db.UpsertResult, error)
}

// Report counts what a seed run did to one seed's documents.
type Report struct {
	Seed      string
	Inserted  int
	Updated   int
	Unchanged int
}

// Run upserts seeds in order and stops at the first failure. With a nil
// store nothing is written and every document counts as unchanged.
func Run(ctx context.Context, store Upserter, seeds []Seed) ([]Report, error) {
	reports := make([]Report, 0, len(seeds))
	for _, s := range seeds {
		r := Report{Seed: s.Name}
		for _, doc := range s.Documents {
			value, err := KeyValue(doc, s.Key)
			if err != nil {
				return reports, fmt.Errorf("seed %s: %w", s.Name, err)
			}
			if store == nil {
				logging.Info().Str("seed", s.Name).Str("collection", s.Collection).Str(s.Key, value).Msg("dry run: would upsert")
				r.Unchanged++
				continue
			}
			res, err := store.UpsertDocument(ctx, s.Collection, s.Key, value, doc)
			if err != nil {
				return reports, fmt.Errorf("seed %s: %w", s.Name, err)
			}
			switch {
			case res.Inserted:
				r.Inserted++
			case res.Modified:
				r.Updated++
			default:
				r.Unchanged++
			}
		}
		logging.Info().
			Str("seed", s.Name).
			Str("collection", s.Collection).
			Int("inserted", r.Inserted).
			Int("updated", r.Updated).
			Int("unchanged", r.Unchanged).
			Msg("seed applied")
		reports = append(reports, r)
	}
	return reports, nil
}
