package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/smartvillageshub/backend/internal/store"
	"github.com/smartvillageshub/backend/types"
)

const (
	defaultSearchLimit = 9
	maxSearchLimit     = 100

	// ListingEventsChannel carries listing lifecycle events for
	// downstream consumers such as a search indexer.
	ListingEventsChannel = "listing-events"
)

// Listing event types.
const (
	ListingCreated = "listing.created"
	ListingUpdated = "listing.updated"
	ListingDeleted = "listing.deleted"
)

// ListingRepository defines persistence operations for listings.
type ListingRepository interface {
	Get(ctx context.Context, id int64) (types.Listing, error)
	ListByUser(ctx context.Context, userID int) ([]types.Listing, error)
	Search(ctx context.Context, filter store.ListingFilter) ([]types.Listing, error)
	Create(ctx context.Context, listing types.Listing) (types.Listing, error)
	Update(ctx context.Context, listing types.Listing) (types.Listing, error)
	Delete(ctx context.Context, id int64) error
}

// EventPublisher sends a payload to a named channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ListingEvent is the payload published on listing lifecycle changes.
type ListingEvent struct {
	Type      string    `json:"type"`
	ListingID int64     `json:"listing_id"`
	UserID    int       `json:"user_id"`
	At        time.Time `json:"at"`
}

// ListingService encapsulates listing use-cases.
type ListingService struct {
	repo      ListingRepository
	publisher EventPublisher
}

// NewListingService constructs a ListingService. publisher may be nil,
// in which case lifecycle events are skipped.
func NewListingService(repo ListingRepository, publisher EventPublisher) *ListingService {
	return &ListingService{repo: repo, publisher: publisher}
}

func (s *ListingService) Get(ctx context.Context, id int64) (types.Listing, error) {
	return s.repo.Get(ctx, id)
}

func (s *ListingService) ListByUser(ctx context.Context, userID int) ([]types.Listing, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *ListingService) Search(ctx context.Context, filter store.ListingFilter) ([]types.Listing, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	if filter.Limit > maxSearchLimit {
		filter.Limit = maxSearchLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.Search(ctx, filter)
}

func (s *ListingService) Create(ctx context.Context, listing types.Listing) (types.Listing, error) {
	created, err := s.repo.Create(ctx, listing)
	if err != nil {
		return types.Listing{}, err
	}
	s.publishEvent(ctx, ListingCreated, created.ID, created.UserID)
	return created, nil
}

func (s *ListingService) Update(ctx context.Context, listing types.Listing) (types.Listing, error) {
	updated, err := s.repo.Update(ctx, listing)
	if err != nil {
		return types.Listing{}, err
	}
	s.publishEvent(ctx, ListingUpdated, updated.ID, updated.UserID)
	return updated, nil
}

func (s *ListingService) Delete(ctx context.Context, id int64, userID int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publishEvent(ctx, ListingDeleted, id, userID)
	return nil
}

// publishEvent is best-effort: a broker outage must not fail the
// request that already committed.
func (s *ListingService) publishEvent(ctx context.Context, eventType string, listingID int64, userID int) {
	if s.publisher == nil {
		return
	}

	event := ListingEvent{
		Type:      eventType,
		ListingID: listingID,
		UserID:    userID,
		At:        time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("listing event marshal failed: %v", err)
		return
	}

	attrs := map[string]string{
		"type":       eventType,
		"listing_id": strconv.FormatInt(listingID, 10),
	}
	if _, err := s.publisher.Publish(ctx, ListingEventsChannel, data, attrs); err != nil {
		log.Printf("listing event publish failed: %v", err)
	}
}
