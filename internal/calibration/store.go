// Package calibration adjusts raw ensemble confidence using the realized
// accuracy of past predictions, tracked per sport and confidence bucket.
package calibration

import (
	"context"
	"sync"

	"github.com/siggy2543/mysportsbet-sub000/internal/models"
)

// BucketStore abstracts calibration bucket persistence. Update must apply
// the transition atomically with respect to concurrent updates on the
// same (sport, bucket) pair.
type BucketStore interface {
	Get(ctx context.Context, sport, bucket string) (models.CalibrationBucket, error)
	Update(ctx context.Context, sport, bucket string, apply func(models.CalibrationBucket) models.CalibrationBucket) (models.CalibrationBucket, error)
	List(ctx context.Context, sport string) ([]models.CalibrationBucket, error)
}

// MemoryStore is an in-memory BucketStore for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]models.CalibrationBucket
}

// NewMemoryStore creates an empty in-memory bucket store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]models.CalibrationBucket)}
}

// Get retrieves one bucket, or ErrNotFound when never written.
func (s *MemoryStore) Get(_ context.Context, sport, bucket string) (models.CalibrationBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[sport+":"+bucket]
	if !ok {
		return models.CalibrationBucket{}, models.ErrNotFound
	}
	return b, nil
}

// Update applies a transition function under the store lock.
func (s *MemoryStore) Update(_ context.Context, sport, bucket string, apply func(models.CalibrationBucket) models.CalibrationBucket) (models.CalibrationBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sport + ":" + bucket
	current, ok := s.buckets[key]
	if !ok {
		current = models.CalibrationBucket{Sport: sport, Bucket: bucket, AdjustmentFactor: 1.0}
	}
	next := apply(current)
	next.Sport = sport
	next.Bucket = bucket
	s.buckets[key] = next
	return next, nil
}

// List returns every stored bucket, optionally filtered by sport.
func (s *MemoryStore) List(_ context.Context, sport string) ([]models.CalibrationBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CalibrationBucket
	for _, b := range s.buckets {
		if sport != "" && b.Sport != sport {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
