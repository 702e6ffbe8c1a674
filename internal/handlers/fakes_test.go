package handlers

import (
	"context"
	"sync"

	"github.com/smartvillageshub/backend/internal/store"
	"github.com/smartvillageshub/backend/types"
)

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	f.nextID++
	user.ID = f.nextID
	if user.Avatar == "" {
		user.Avatar = types.DefaultAvatarURL
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) CreateIfAbsent(ctx context.Context, user types.User) (types.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return existing, false, nil
		}
	}
	f.nextID++
	user.ID = f.nextID
	if user.Avatar == "" {
		user.Avatar = types.DefaultAvatarURL
	}
	f.users[user.ID] = user
	return user, true, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range f.users {
		if id != user.ID && existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeListingRepo is an in-memory services.ListingRepository.
type fakeListingRepo struct {
	mu       sync.Mutex
	nextID   int64
	listings map[int64]types.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[int64]types.Listing)}
}

func (f *fakeListingRepo) Get(ctx context.Context, id int64) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[id]
	if !ok {
		return types.Listing{}, store.ErrNotFound
	}
	return listing, nil
}

func (f *fakeListingRepo) ListByUser(ctx context.Context, userID int) ([]types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]types.Listing, 0)
	for _, listing := range f.listings {
		if listing.UserID == userID {
			result = append(result, listing)
		}
	}
	return result, nil
}

func (f *fakeListingRepo) Search(ctx context.Context, filter store.ListingFilter) ([]types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]types.Listing, 0)
	for _, listing := range f.listings {
		if matchesFilter(listing, filter) {
			result = append(result, listing)
		}
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesFilter(listing types.Listing, filter store.ListingFilter) bool {
	if filter.Offer != nil && listing.Offer != *filter.Offer {
		return false
	}
	if filter.Furnished != nil && listing.Furnished != *filter.Furnished {
		return false
	}
	if filter.Parking != nil && listing.Parking != *filter.Parking {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, listingType := range filter.Types {
			if listing.Type == listingType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeListingRepo) Create(ctx context.Context, listing types.Listing) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	listing.ID = f.nextID
	f.listings[listing.ID] = listing
	return listing, nil
}

func (f *fakeListingRepo) Update(ctx context.Context, listing types.Listing) (types.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[listing.ID]; !ok {
		return types.Listing{}, store.ErrNotFound
	}
	f.listings[listing.ID] = listing
	return listing, nil
}

func (f *fakeListingRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.listings, id)
	return nil
}

// fakePublisher records published listing events.
type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.payloads = append(f.payloads, data)
	return "msg-1", nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}
