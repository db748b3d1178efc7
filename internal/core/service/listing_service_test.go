package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubListingRepo struct {
	listings  []*domain.Listing
	seq       int
	createErr error
	findAll   int // number of FindAll calls
}

func (r *stubListingRepo) Create(_ context.Context, l *domain.Listing) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.seq++
	l.ID = fmt.Sprintf("listing-%d", r.seq)
	clone := *l
	r.listings = append(r.listings, &clone)
	return nil
}

func (r *stubListingRepo) FindAll(_ context.Context) ([]*domain.Listing, error) {
	r.findAll++
	out := make([]*domain.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		clone := *l
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubListingRepo) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	for _, l := range r.listings {
		if l.ID == id {
			clone := *l
			return &clone, nil
		}
	}
	return nil, domain.ErrListingNotFound
}

func (r *stubListingRepo) Delete(_ context.Context, id string) (*domain.Listing, error) {
	for i, l := range r.listings {
		if l.ID == id {
			r.listings = append(r.listings[:i], r.listings[i+1:]...)
			return l, nil
		}
	}
	return nil, nil
}

type stubImageStore struct {
	ingestErr error
	ingested  []string
	discarded []string
}

func (s *stubImageStore) Ingest(_ context.Context, uploads []ports.ImageUpload, expected int) ([]string, error) {
	if len(uploads) != expected {
		return nil, domain.ErrWrongImageCount
	}
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	names := make([]string, 0, len(uploads))
	for i, u := range uploads {
		names = append(names, fmt.Sprintf("%d%s", 1700000000000+i, u.Filename))
	}
	s.ingested = append(s.ingested, names...)
	return names, nil
}

func (s *stubImageStore) Discard(_ context.Context, names []string) error {
	s.discarded = append(s.discarded, names...)
	return nil
}

// stubCache keeps one value per generation like the redis cache does.
type stubCache struct {
	mu          sync.Mutex
	gen         int64
	data        map[int64][]*domain.Listing
	getErr      error
	invalidated int
}

func (c *stubCache) Get(_ context.Context) ([]*domain.Listing, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	listings, ok := c.data[c.gen]
	return listings, c.gen, ok, nil
}

func (c *stubCache) Set(_ context.Context, gen int64, listings []*domain.Listing, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[int64][]*domain.Listing{}
	}
	c.data[gen] = listings
	return nil
}

func (c *stubCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.invalidated++
	return nil
}

func (c *stubCache) hit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[c.gen]
	return ok
}

// pausingRepo blocks the first FindAll after it took its snapshot until
// release is closed.
type pausingRepo struct {
	*stubListingRepo
	snapshotTaken chan struct{}
	release       chan struct{}
	once          sync.Once
}

func (r *pausingRepo) FindAll(ctx context.Context) ([]*domain.Listing, error) {
	out, err := r.stubListingRepo.FindAll(ctx)
	r.once.Do(func() {
		close(r.snapshotTaken)
		<-r.release
	})
	return out, err
}

type stubPurger struct {
	queued []string
}

func (p *stubPurger) EnqueueBatch(names []string) { p.queued = append(p.queued, names...) }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var alice = &domain.User{ID: "user-alice", Username: "alice"}

func twoImages() []ports.ImageUpload {
	return []ports.ImageUpload{
		{Filename: "front.jpg", Content: strings.NewReader("front")},
		{Filename: "back.jpg", Content: strings.NewReader("back")},
	}
}

func validInput() ports.CreateListingInput {
	return ports.CreateListingInput{
		Title:       "Sunny loft",
		Location:    "Lisbon",
		Price:       1200,
		Description: "Top floor, lots of light",
		Bedrooms:    2,
		Bathrooms:   1,
		Amenities:   `["Parking","Wifi"]`,
		Images:      twoImages(),
	}
}

func newListingSvc(repo *stubListingRepo, images *stubImageStore, cache *stubCache, opts ListingOptions) *ListingService {
	var c ports.ListingCache
	if cache != nil {
		c = cache
	}
	return NewListingService(repo, images, c, opts, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// CreateListing
// ---------------------------------------------------------------------------

func TestCreateListing_Success(t *testing.T) {
	repo := &stubListingRepo{}
	images := &stubImageStore{}
	svc := newListingSvc(repo, images, nil, ListingOptions{})

	listing, err := svc.CreateListing(context.Background(), validInput(), alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if listing.OwnerID != alice.ID {
		t.Fatalf("owner = %q, want %q", listing.OwnerID, alice.ID)
	}
	if !reflect.DeepEqual(listing.Images, images.ingested) {
		t.Fatalf("images = %v, want %v", listing.Images, images.ingested)
	}
	if len(listing.Images) != domain.ImagesPerListing {
		t.Fatalf("expected %d images, got %d", domain.ImagesPerListing, len(listing.Images))
	}
	if listing.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
	if len(repo.listings) != 1 {
		t.Fatalf("expected one stored listing, got %d", len(repo.listings))
	}
}

func TestCreateListing_AmenitiesRoundTrip(t *testing.T) {
	svc := newListingSvc(&stubListingRepo{}, &stubImageStore{}, nil, ListingOptions{})

	in := validInput()
	in.Amenities = `["Wifi","Parking","Wifi"]`
	listing, err := svc.CreateListing(context.Background(), in, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := append([]string(nil), listing.Amenities...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"Parking", "Wifi"}) {
		t.Fatalf("amenities = %v", listing.Amenities)
	}
}

func TestCreateListing_EmptyAmenities(t *testing.T) {
	svc := newListingSvc(&stubListingRepo{}, &stubImageStore{}, nil, ListingOptions{})

	in := validInput()
	in.Amenities = `[]`
	listing, err := svc.CreateListing(context.Background(), in, alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.Amenities == nil || len(listing.Amenities) != 0 {
		t.Fatalf("expected empty non-nil amenities, got %#v", listing.Amenities)
	}
}

func TestCreateListing_MalformedAmenities(t *testing.T) {
	for _, raw := range []string{"", "Parking,Wifi", `{"a":1}`, `[1,2]`, `["Pool"`} {
		t.Run(raw, func(t *testing.T) {
			repo := &stubListingRepo{}
			images := &stubImageStore{}
			svc := newListingSvc(repo, images, nil, ListingOptions{})

			in := validInput()
			in.Amenities = raw
			_, err := svc.CreateListing(context.Background(), in, alice)
			if !errors.Is(err, domain.ErrMalformedAmenities) {
				t.Fatalf("expected ErrMalformedAmenities, got %v", err)
			}
			if len(images.ingested) != 0 || len(repo.listings) != 0 {
				t.Fatalf("nothing may be written on malformed amenities")
			}
		})
	}
}

func TestCreateListing_WrongImageCount(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("%d images", n), func(t *testing.T) {
			repo := &stubListingRepo{}
			svc := newListingSvc(repo, &stubImageStore{}, nil, ListingOptions{})

			in := validInput()
			in.Images = make([]ports.ImageUpload, n)
			for i := range in.Images {
				in.Images[i] = ports.ImageUpload{Filename: fmt.Sprintf("%d.jpg", i), Content: strings.NewReader("x")}
			}
			_, err := svc.CreateListing(context.Background(), in, alice)
			if !errors.Is(err, domain.ErrWrongImageCount) {
				t.Fatalf("expected ErrWrongImageCount, got %v", err)
			}
			if len(repo.listings) != 0 {
				t.Fatalf("no listing may be created")
			}
		})
	}
}

func TestCreateListing_RequiresActor(t *testing.T) {
	svc := newListingSvc(&stubListingRepo{}, &stubImageStore{}, nil, ListingOptions{})

	if _, err := svc.CreateListing(context.Background(), validInput(), nil); !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestCreateListing_StorageFailure(t *testing.T) {
	repo := &stubListingRepo{}
	images := &stubImageStore{ingestErr: fmt.Errorf("write: %w", domain.ErrStorageWrite)}
	svc := newListingSvc(repo, images, nil, ListingOptions{})

	_, err := svc.CreateListing(context.Background(), validInput(), alice)
	if !errors.Is(err, domain.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if len(repo.listings) != 0 {
		t.Fatalf("no listing may be created when ingestion fails")
	}
}

func TestCreateListing_CompensatesOnPersistFailure(t *testing.T) {
	repo := &stubListingRepo{createErr: errors.New("mongo down")}
	images := &stubImageStore{}
	svc := newListingSvc(repo, images, nil, ListingOptions{})

	_, err := svc.CreateListing(context.Background(), validInput(), alice)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !reflect.DeepEqual(images.discarded, images.ingested) {
		t.Fatalf("discarded %v, want %v", images.discarded, images.ingested)
	}
}

func TestCreateListing_InvalidatesCache(t *testing.T) {
	cache := &stubCache{data: map[int64][]*domain.Listing{0: {}}}
	svc := newListingSvc(&stubListingRepo{}, &stubImageStore{}, cache, ListingOptions{})

	if _, err := svc.CreateListing(context.Background(), validInput(), alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.invalidated != 1 || cache.hit() {
		t.Fatalf("expected cache to be invalidated")
	}
}

// ---------------------------------------------------------------------------
// ListListings / GetListing
// ---------------------------------------------------------------------------

func TestListListings_CacheAside(t *testing.T) {
	repo := &stubListingRepo{}
	cache := &stubCache{}
	svc := newListingSvc(repo, &stubImageStore{}, cache, ListingOptions{})

	if _, err := svc.CreateListing(context.Background(), validInput(), alice); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.ListListings(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	second, err := svc.ListListings(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if repo.findAll != 1 {
		t.Fatalf("expected one store read, got %d", repo.findAll)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one listing in both reads")
	}
}

func TestListListings_CacheErrorFallsBack(t *testing.T) {
	repo := &stubListingRepo{}
	cache := &stubCache{getErr: errors.New("redis down")}
	svc := newListingSvc(repo, &stubImageStore{}, cache, ListingOptions{})

	if _, err := svc.ListListings(context.Background()); err != nil {
		t.Fatalf("cache errors must not surface, got %v", err)
	}
	if repo.findAll != 1 {
		t.Fatalf("expected fallback to store")
	}
}

func TestListListings_DeleteDuringMissIsNotCached(t *testing.T) {
	base := &stubListingRepo{}
	cache := &stubCache{}
	seed := NewListingService(base, &stubImageStore{}, nil, ListingOptions{}, zerolog.Nop())
	created, err := seed.CreateListing(context.Background(), validInput(), alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo := &pausingRepo{
		stubListingRepo: base,
		snapshotTaken:   make(chan struct{}),
		release:         make(chan struct{}),
	}
	svc := NewListingService(repo, &stubImageStore{}, cache, ListingOptions{}, zerolog.Nop())

	done := make(chan []*domain.Listing)
	go func() {
		stale, _ := svc.ListListings(context.Background())
		done <- stale
	}()

	<-repo.snapshotTaken
	if err := svc.DeleteListing(context.Background(), created.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	close(repo.release)

	if stale := <-done; len(stale) != 1 {
		t.Fatalf("in-flight read should return its snapshot, got %d", len(stale))
	}

	after, err := svc.ListListings(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("deleted listing served from cache: %+v", after)
	}
}

func TestGetListing(t *testing.T) {
	repo := &stubListingRepo{}
	svc := newListingSvc(repo, &stubImageStore{}, nil, ListingOptions{})

	created, err := svc.CreateListing(context.Background(), validInput(), alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetListing(context.Background(), created.ID)
	if err != nil || got.ID != created.ID {
		t.Fatalf("get: %v %+v", err, got)
	}
	if _, err := svc.GetListing(context.Background(), "missing"); !errors.Is(err, domain.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// DeleteListing
// ---------------------------------------------------------------------------

func TestDeleteListing_OpenPolicy(t *testing.T) {
	repo := &stubListingRepo{}
	svc := newListingSvc(repo, &stubImageStore{}, nil, ListingOptions{DeletePolicy: domain.DeleteOpen})

	created, _ := svc.CreateListing(context.Background(), validInput(), alice)

	if err := svc.DeleteListing(context.Background(), created.ID, nil); err != nil {
		t.Fatalf("anonymous delete must succeed under open policy, got %v", err)
	}
	if len(repo.listings) != 0 {
		t.Fatalf("listing not removed")
	}
}

func TestDeleteListing_UnknownIDIsNoop(t *testing.T) {
	for _, policy := range []domain.DeletePolicy{domain.DeleteOpen, domain.DeleteOwner} {
		t.Run(string(policy), func(t *testing.T) {
			cache := &stubCache{}
			svc := newListingSvc(&stubListingRepo{}, &stubImageStore{}, cache, ListingOptions{DeletePolicy: policy})

			if err := svc.DeleteListing(context.Background(), "never-existed", alice); err != nil {
				t.Fatalf("expected silent success, got %v", err)
			}
			if cache.invalidated != 0 {
				t.Fatalf("no-op delete must not touch the cache")
			}
		})
	}
}

func TestDeleteListing_OwnerPolicy(t *testing.T) {
	repo := &stubListingRepo{}
	svc := newListingSvc(repo, &stubImageStore{}, nil, ListingOptions{DeletePolicy: domain.DeleteOwner})
	created, _ := svc.CreateListing(context.Background(), validInput(), alice)

	bob := &domain.User{ID: "user-bob"}
	if err := svc.DeleteListing(context.Background(), created.ID, bob); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteListing(context.Background(), created.ID, nil); !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if len(repo.listings) != 1 {
		t.Fatalf("listing must survive denied deletes")
	}
	if err := svc.DeleteListing(context.Background(), created.ID, alice); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if len(repo.listings) != 0 {
		t.Fatalf("listing not removed")
	}
}

func TestDeleteListing_PurgesImagesWhenConfigured(t *testing.T) {
	purger := &stubPurger{}
	svc := newListingSvc(&stubListingRepo{}, &stubImageStore{}, nil, ListingOptions{Purger: purger})
	created, _ := svc.CreateListing(context.Background(), validInput(), alice)

	if err := svc.DeleteListing(context.Background(), created.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !reflect.DeepEqual(purger.queued, created.Images) {
		t.Fatalf("queued %v, want %v", purger.queued, created.Images)
	}
}

func TestDeleteListing_KeepsImagesByDefault(t *testing.T) {
	images := &stubImageStore{}
	svc := newListingSvc(&stubListingRepo{}, images, nil, ListingOptions{})
	created, _ := svc.CreateListing(context.Background(), validInput(), alice)

	if err := svc.DeleteListing(context.Background(), created.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(images.discarded) != 0 {
		t.Fatalf("images must be kept, discarded %v", images.discarded)
	}
}
