package lessonplanner

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ImageBatch holds the scenario items of one batch image job
type ImageBatch struct {
	ID string

	mu       sync.RWMutex
	items    []ScenarioItem
	started  bool
	finished bool
}

// NewImageBatch creates one PENDING item per scenario, in order
func NewImageBatch(scenarios []Scenario) *ImageBatch {
	items := make([]ScenarioItem, 0, len(scenarios))
	for _, s := range scenarios {
		items = append(items, ScenarioItem{
			ID:          uuid.NewString(),
			Description: s.Description,
			Dialogue:    s.Dialogue,
			Status:      StatusPending,
		})
	}
	return &ImageBatch{
		ID:    uuid.NewString(),
		items: items,
	}
}

// Items returns a copy of the current items
func (b *ImageBatch) Items() []ScenarioItem {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ScenarioItem, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of items in the batch
func (b *ImageBatch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Finished reports whether every item has settled
func (b *ImageBatch) Finished() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.finished
}

// UpdateItem edits the prompt and dialogue of an item before the batch starts
func (b *ImageBatch) UpdateItem(index int, description, dialogue string) error {
	const op = "UpdateScenario"
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.items) {
		return newError(op, ErrNotFound, nil)
	}
	if b.started || b.items[index].Status != StatusPending {
		return invalidInput(op, "item %d can no longer be edited", index)
	}
	b.items[index].Description = description
	b.items[index].Dialogue = dialogue
	return nil
}

func (b *ImageBatch) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return false
	}
	b.started = true
	return true
}

func (b *ImageBatch) transition(index int, status ScenarioStatus, imageURL string) ScenarioItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	item := &b.items[index]
	item.Status = status
	if imageURL != "" {
		item.ImageURL = imageURL
	}
	return *item
}

func (b *ImageBatch) finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finished = true
}

// RunImageBatch generates the images one at a time in item order. The next
// request is issued only after the previous item settled to COMPLETED or FAILED.
// Every transition is sent on the returned channel, which is closed at the end.
func RunImageBatch(ctx context.Context, batch *ImageBatch, gen ImageGenerator) (<-chan ScenarioItem, error) {
	const op = "RunImageBatch"
	if !batch.begin() {
		return nil, invalidInput(op, "batch %s was already started", batch.ID)
	}

	n := batch.Len()
	updates := make(chan ScenarioItem, 2*n)

	go func() {
		defer close(updates)
		defer batch.finish()

		for i := 0; i < n; i++ {
			item := batch.transition(i, StatusGenerating, "")
			updates <- item
			VerboseLog("%s: scene %d/%d generating", op, i+1, n)

			imageURL, ok := gen.GenerateImage(ctx, item.Description)
			if ok {
				updates <- batch.transition(i, StatusCompleted, imageURL)
			} else {
				updates <- batch.transition(i, StatusFailed, "")
			}
		}
		opLog(op).WithField("batch", batch.ID).Infof("Batch of %d scenes settled", n)
	}()

	return updates, nil
}
