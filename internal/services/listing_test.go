package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/smartvillageshub/backend/internal/store"
	"github.com/smartvillageshub/backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListingRepo struct {
	lastFilter store.ListingFilter
	nextID     int64
}

func (r *recordingListingRepo) Get(ctx context.Context, id int64) (types.Listing, error) {
	return types.Listing{ID: id}, nil
}

func (r *recordingListingRepo) ListByUser(ctx context.Context, userID int) ([]types.Listing, error) {
	return nil, nil
}

func (r *recordingListingRepo) Search(ctx context.Context, filter store.ListingFilter) ([]types.Listing, error) {
	r.lastFilter = filter
	return nil, nil
}

func (r *recordingListingRepo) Create(ctx context.Context, listing types.Listing) (types.Listing, error) {
	r.nextID++
	listing.ID = r.nextID
	return listing, nil
}

func (r *recordingListingRepo) Update(ctx context.Context, listing types.Listing) (types.Listing, error) {
	return listing, nil
}

func (r *recordingListingRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type recordingPublisher struct {
	channels []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	return "id", nil
}

func TestSearchClampsLimit(t *testing.T) {
	repo := &recordingListingRepo{}
	service := NewListingService(repo, nil)

	_, err := service.Search(context.Background(), store.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultSearchLimit, repo.lastFilter.Limit)

	_, err = service.Search(context.Background(), store.ListingFilter{Limit: 10_000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, maxSearchLimit, repo.lastFilter.Limit)
	assert.Equal(t, 0, repo.lastFilter.Offset)
}

func TestLifecycleEvents(t *testing.T) {
	repo := &recordingListingRepo{}
	publisher := &recordingPublisher{}
	service := NewListingService(repo, publisher)

	created, err := service.Create(context.Background(), types.Listing{Name: "A", UserID: 7})
	require.NoError(t, err)

	_, err = service.Update(context.Background(), created)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), created.ID, created.UserID))

	require.Len(t, publisher.payloads, 3)
	for _, channel := range publisher.channels {
		assert.Equal(t, ListingEventsChannel, channel)
	}

	wantTypes := []string{ListingCreated, ListingUpdated, ListingDeleted}
	for i, payload := range publisher.payloads {
		var event ListingEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, wantTypes[i], event.Type)
		assert.Equal(t, created.ID, event.ListingID)
		assert.Equal(t, 7, event.UserID)
	}
}

func TestNilPublisherSkipsEvents(t *testing.T) {
	service := NewListingService(&recordingListingRepo{}, nil)

	_, err := service.Create(context.Background(), types.Listing{Name: "A"})
	assert.NoError(t, err)
}
