package testutils

import (
	"context"
	"sort"
	"sync"

	"github.com/getzep/graphrag/pkg/models"
)

var _ models.GraphStore = &FakeGraphStore{}

type pairKey struct{ a, b string }

func newPairKey(s, t string) pairKey {
	if t < s {
		s, t = t, s
	}
	return pairKey{s, t}
}

// FakeGraphStore is an in-memory models.GraphStore. Communities are not
// detected: DetectCommunities returns Stats and CommunityInfo returns the
// entries of Communities whose level is requested.
type FakeGraphStore struct {
	mu sync.Mutex

	Stats       models.CommunityStats
	Communities []models.CommunityInfo
	PluginErr   error
	Err         error

	// Databases records the database argument of every call.
	Databases []string
	Closed    int

	Chunks                 map[string]string
	EntityDescs            map[string][]string
	EntityTypes            map[string]string
	EntitySummaries        map[string]string
	RelationshipDescs      map[pairKey][]string
	RelationshipSummaries  map[pairKey]models.RelationshipSummary
	Reports                map[string]models.CommunityReport
	ConstraintCalls        int
	DetectCommunitiesCalls int
}

func NewFakeGraphStore() *FakeGraphStore {
	return &FakeGraphStore{
		Chunks:                map[string]string{},
		EntityDescs:           map[string][]string{},
		EntityTypes:           map[string]string{},
		EntitySummaries:       map[string]string{},
		RelationshipDescs:     map[pairKey][]string{},
		RelationshipSummaries: map[pairKey]models.RelationshipSummary{},
		Reports:               map[string]models.CommunityReport{},
	}
}

func (f *FakeGraphStore) record(database string) error {
	f.Databases = append(f.Databases, database)
	return f.Err
}

func (f *FakeGraphStore) CheckPlugins(_ context.Context) error {
	return f.PluginErr
}

func (f *FakeGraphStore) EnsureConstraints(_ context.Context, database string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConstraintCalls++
	return f.record(database)
}

func (f *FakeGraphStore) ImportExtractions(
	_ context.Context,
	database string,
	extractions []models.ChunkExtraction,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return err
	}
	for _, ex := range extractions {
		f.Chunks[ex.Document.ID] = ex.Document.Text
		for _, e := range ex.Entities {
			f.EntityDescs[e.Name] = append(f.EntityDescs[e.Name], e.Description)
			f.EntityTypes[e.Name] = e.Type
		}
		for _, r := range ex.Relationships {
			k := newPairKey(r.Source, r.Target)
			f.RelationshipDescs[k] = append(f.RelationshipDescs[k], r.Description)
		}
	}
	return nil
}

func (f *FakeGraphStore) EntityDescriptions(_ context.Context, database string) ([]models.EntityDescriptions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return nil, err
	}
	var out []models.EntityDescriptions
	for _, name := range sortedKeys(f.EntityDescs) {
		if descs := f.EntityDescs[name]; len(descs) > 1 {
			out = append(out, models.EntityDescriptions{Name: name, Descriptions: descs})
		}
	}
	return out, nil
}

func (f *FakeGraphStore) PutEntitySummaries(
	_ context.Context,
	database string,
	summaries []models.EntitySummary,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return err
	}
	for _, s := range summaries {
		f.EntitySummaries[s.Name] = s.Summary
	}
	return nil
}

func (f *FakeGraphStore) CopySingleEntityDescriptions(_ context.Context, database string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return 0, err
	}
	n := 0
	for name, descs := range f.EntityDescs {
		if len(descs) == 1 {
			f.EntitySummaries[name] = descs[0]
			n++
		}
	}
	return n, nil
}

func (f *FakeGraphStore) RelationshipDescriptions(
	_ context.Context,
	database string,
) ([]models.RelationshipDescriptions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return nil, err
	}
	var out []models.RelationshipDescriptions
	for _, k := range sortedPairKeys(f.RelationshipDescs) {
		if descs := f.RelationshipDescs[k]; len(descs) > 1 {
			out = append(out, models.RelationshipDescriptions{
				Source:       k.a,
				Target:       k.b,
				Descriptions: descs,
			})
		}
	}
	return out, nil
}

func (f *FakeGraphStore) PutRelationshipSummaries(
	_ context.Context,
	database string,
	summaries []models.RelationshipSummary,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return err
	}
	for _, s := range summaries {
		f.RelationshipSummaries[newPairKey(s.Source, s.Target)] = s
	}
	return nil
}

func (f *FakeGraphStore) CopySingleRelationshipDescriptions(_ context.Context, database string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return 0, err
	}
	n := 0
	for k, descs := range f.RelationshipDescs {
		if len(descs) == 1 {
			f.RelationshipSummaries[k] = models.RelationshipSummary{
				Source: k.a, Target: k.b, Summary: descs[0], Weight: 1,
			}
			n++
		}
	}
	return n, nil
}

func (f *FakeGraphStore) DetectCommunities(_ context.Context, database string) (*models.CommunityStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DetectCommunitiesCalls++
	if err := f.record(database); err != nil {
		return nil, err
	}
	stats := f.Stats
	return &stats, nil
}

func (f *FakeGraphStore) CommunityLevels(_ context.Context, database string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	var levels []int
	for _, c := range f.Communities {
		if !seen[c.Level] {
			seen[c.Level] = true
			levels = append(levels, c.Level)
		}
	}
	sort.Ints(levels)
	return levels, nil
}

func (f *FakeGraphStore) CommunityInfo(
	_ context.Context,
	database string,
	levels []int,
) ([]models.CommunityInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return nil, err
	}
	want := map[int]bool{}
	for _, l := range levels {
		want[l] = true
	}
	var out []models.CommunityInfo
	for _, c := range f.Communities {
		if want[c.Level] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *FakeGraphStore) PutCommunityReports(
	_ context.Context,
	database string,
	reports []models.CommunityReport,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(database); err != nil {
		return err
	}
	for _, r := range reports {
		f.Reports[r.CommunityID] = r
	}
	return nil
}

func (f *FakeGraphStore) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
	return nil
}

// RelationshipSummary returns the summary stored for the unordered pair.
func (f *FakeGraphStore) RelationshipSummary(source, target string) (models.RelationshipSummary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.RelationshipSummaries[newPairKey(source, target)]
	return s, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedPairKeys(m map[pairKey][]string) []pairKey {
	keys := make([]pairKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	return keys
}
