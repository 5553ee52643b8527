package lessonplanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	activitiesKey  = "hanyun_activities"
	collectionsKey = "hanyun_collections"

	// UncategorizedName is shown for plans outside any known collection
	UncategorizedName = "Uncategorized"
)

// Library keeps saved plans and collections and rewrites them in full on every change
type Library struct {
	store KVStore
	now   func() time.Time

	mu          sync.RWMutex
	plans       []ActivityPlan
	collections []Collection
}

// CollectionGroup is one section of the grouped library view
type CollectionGroup struct {
	Collection *Collection    `json:"collection,omitempty"` // nil for Uncategorized
	Name       string         `json:"name"`
	Plans      []ActivityPlan `json:"plans"`
}

// OpenLibrary loads both lists from the store. An unreadable entry is logged and starts empty.
func OpenLibrary(ctx context.Context, store KVStore) (*Library, error) {
	l := &Library{store: store, now: time.Now}
	if err := l.load(ctx, activitiesKey, &l.plans); err != nil {
		return nil, err
	}
	if err := l.load(ctx, collectionsKey, &l.collections); err != nil {
		return nil, err
	}
	if l.plans == nil {
		l.plans = []ActivityPlan{}
	}
	if l.collections == nil {
		l.collections = []Collection{}
	}
	opLog("OpenLibrary").Infof("Loaded %d plans and %d collections", len(l.plans), len(l.collections))
	return l, nil
}

func (l *Library) load(ctx context.Context, key string, out interface{}) error {
	data, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		opLog("OpenLibrary").WithError(err).Errorf("Ignoring unreadable %s entry", key)
	}
	return nil
}

func (l *Library) persist(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := l.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// nextID returns the current unix millisecond time as a string, bumped past any taken ID
func (l *Library) nextID(taken func(string) bool) (string, int64) {
	ms := l.now().UnixMilli()
	id := ms
	for taken(strconv.FormatInt(id, 10)) {
		id++
	}
	return strconv.FormatInt(id, 10), ms
}

func (l *Library) planIndex(id string) int {
	for i := range l.plans {
		if l.plans[i].ID == id {
			return i
		}
	}
	return -1
}

// SavePlan stores a plan. A plan whose ID is already saved replaces the stored one but keeps
// its CreatedAt, and keeps its image when the incoming plan has none. Any other plan is new:
// it gets a fresh ID and CreatedAt and goes first.
func (l *Library) SavePlan(ctx context.Context, plan ActivityPlan) (*ActivityPlan, error) {
	const op = "SavePlan"
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.planIndex(plan.ID); i >= 0 {
		stored := l.plans[i]
		plan.CreatedAt = stored.CreatedAt
		if plan.ImageURL == "" {
			plan.ImageURL = stored.ImageURL
		}
	} else {
		if plan.ID != "" {
			VerboseLog("%s: ignoring unknown plan id %q", op, plan.ID)
		}
		plan.ID, plan.CreatedAt = l.nextID(func(id string) bool { return l.planIndex(id) >= 0 })
	}
	normalizePlanLists(&plan)

	var next []ActivityPlan
	if i := l.planIndex(plan.ID); i >= 0 {
		next = append([]ActivityPlan{}, l.plans...)
		next[i] = plan
	} else {
		next = append([]ActivityPlan{plan}, l.plans...)
	}
	if err := l.persist(ctx, activitiesKey, next); err != nil {
		return nil, newError(op, ErrExportFailed, err)
	}
	l.plans = next
	VerboseLog("%s: saved plan %s (%q)", op, plan.ID, plan.Title)

	saved := plan
	return &saved, nil
}

// modifyPlan applies fn to a copy of the stored plan and persists the result
func (l *Library) modifyPlan(ctx context.Context, op, id string, fn func(*ActivityPlan)) (*ActivityPlan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.planIndex(id)
	if i < 0 {
		return nil, newError(op, ErrNotFound, fmt.Errorf("plan %s", id))
	}
	next := append([]ActivityPlan{}, l.plans...)
	fn(&next[i])
	if err := l.persist(ctx, activitiesKey, next); err != nil {
		return nil, newError(op, ErrExportFailed, err)
	}
	l.plans = next

	updated := next[i]
	return &updated, nil
}

// UpdatePlan applies an editor change to a saved plan
func (l *Library) UpdatePlan(ctx context.Context, id string, edit PlanEdit) (*ActivityPlan, error) {
	return l.modifyPlan(ctx, "UpdatePlan", id, func(p *ActivityPlan) {
		*p = ApplyPlanEdit(*p, edit)
	})
}

// SetPlanImage attaches an illustration. An empty image never clears an existing one.
func (l *Library) SetPlanImage(ctx context.Context, id, imageURL string) (*ActivityPlan, error) {
	return l.modifyPlan(ctx, "SetPlanImage", id, func(p *ActivityPlan) {
		if imageURL != "" {
			p.ImageURL = imageURL
		}
	})
}

// MoveToCollection files a plan under a collection; an empty collection ID clears it
func (l *Library) MoveToCollection(ctx context.Context, planID, collectionID string) (*ActivityPlan, error) {
	return l.modifyPlan(ctx, "MoveToCollection", planID, func(p *ActivityPlan) {
		p.CollectionID = collectionID
	})
}

// DeletePlan removes a saved plan
func (l *Library) DeletePlan(ctx context.Context, id string) error {
	const op = "DeletePlan"
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.planIndex(id)
	if i < 0 {
		return newError(op, ErrNotFound, fmt.Errorf("plan %s", id))
	}
	next := make([]ActivityPlan, 0, len(l.plans)-1)
	next = append(next, l.plans[:i]...)
	next = append(next, l.plans[i+1:]...)
	if err := l.persist(ctx, activitiesKey, next); err != nil {
		return newError(op, ErrExportFailed, err)
	}
	l.plans = next
	return nil
}

// Plans returns the saved plans, newest first
func (l *Library) Plans() []ActivityPlan {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ActivityPlan{}, l.plans...)
}

// Plan looks up a saved plan by ID
func (l *Library) Plan(id string) (*ActivityPlan, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.planIndex(id)
	if i < 0 {
		return nil, newError("Plan", ErrNotFound, fmt.Errorf("plan %s", id))
	}
	plan := l.plans[i]
	return &plan, nil
}

// CreateCollection appends a new named collection
func (l *Library) CreateCollection(ctx context.Context, name, description string) (*Collection, error) {
	const op = "CreateCollection"
	if blank(name) {
		return nil, invalidInput(op, "collection name is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ms := l.nextID(func(id string) bool { return l.collectionIndex(id) >= 0 })
	coll := Collection{ID: id, Name: name, Description: description, CreatedAt: ms}
	next := append(append([]Collection{}, l.collections...), coll)
	if err := l.persist(ctx, collectionsKey, next); err != nil {
		return nil, newError(op, ErrExportFailed, err)
	}
	l.collections = next
	return &coll, nil
}

// Collections returns every collection in creation order
func (l *Library) Collections() []Collection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Collection{}, l.collections...)
}

func (l *Library) collectionIndex(id string) int {
	for i := range l.collections {
		if l.collections[i].ID == id {
			return i
		}
	}
	return -1
}

// CollectionName resolves the display name of a plan's collection
func (l *Library) CollectionName(plan ActivityPlan) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if plan.CollectionID == "" {
		return UncategorizedName
	}
	if i := l.collectionIndex(plan.CollectionID); i >= 0 {
		return l.collections[i].Name
	}
	return UncategorizedName
}

// GroupByCollection returns one group per collection in creation order, followed by
// Uncategorized for plans with no collection or one that no longer exists.
// Empty groups are kept so every collection shows up.
func (l *Library) GroupByCollection() []CollectionGroup {
	l.mu.RLock()
	defer l.mu.RUnlock()

	groups := make([]CollectionGroup, 0, len(l.collections)+1)
	for i := range l.collections {
		coll := l.collections[i]
		groups = append(groups, CollectionGroup{Collection: &coll, Name: coll.Name, Plans: []ActivityPlan{}})
	}
	uncategorized := CollectionGroup{Name: UncategorizedName, Plans: []ActivityPlan{}}
	for _, plan := range l.plans {
		if i := l.collectionIndex(plan.CollectionID); plan.CollectionID != "" && i >= 0 {
			groups[i].Plans = append(groups[i].Plans, plan)
			continue
		}
		uncategorized.Plans = append(uncategorized.Plans, plan)
	}
	return append(groups, uncategorized)
}

// Themes lists the distinct themes of saved plans
func (l *Library) Themes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	var themes []string
	for _, plan := range l.plans {
		if plan.Theme == "" || seen[plan.Theme] {
			continue
		}
		seen[plan.Theme] = true
		themes = append(themes, plan.Theme)
	}
	return themes
}
