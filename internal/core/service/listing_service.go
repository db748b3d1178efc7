package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

const (
	defaultCacheTTL   = 30 * time.Second
	compensateTimeout = 10 * time.Second
)

// ListingOptions tunes the optional behaviour of ListingService.
type ListingOptions struct {
	DeletePolicy domain.DeletePolicy
	CacheTTL     time.Duration
	// Purger receives the images of deleted listings. Nil leaves them on disk.
	Purger ports.MediaPurger
}

type ListingService struct {
	repo   ports.ListingRepository
	images ports.ImageStore
	cache  ports.ListingCache
	opts   ListingOptions
	logger zerolog.Logger
}

// NewListingService wires the listing use cases. A nil cache disables caching.
func NewListingService(
	repo ports.ListingRepository,
	images ports.ImageStore,
	cache ports.ListingCache,
	opts ListingOptions,
	logger zerolog.Logger,
) *ListingService {
	if cache == nil {
		cache = nopCache{}
	}
	if !opts.DeletePolicy.Valid() {
		opts.DeletePolicy = domain.DeleteOpen
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &ListingService{repo: repo, images: images, cache: cache, opts: opts, logger: logger}
}

// CreateListing ingests the uploaded images and persists a listing owned by
// actor. If the record cannot be stored the ingested images are removed again.
func (s *ListingService) CreateListing(ctx context.Context, input ports.CreateListingInput, actor *domain.User) (*domain.Listing, error) {
	if actor == nil {
		return nil, domain.ErrMissingToken
	}

	amenities, err := parseAmenities(input.Amenities)
	if err != nil {
		return nil, err
	}

	names, err := s.images.Ingest(ctx, input.Images, domain.ImagesPerListing)
	if err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		Title:       input.Title,
		Location:    input.Location,
		Price:       input.Price,
		Description: input.Description,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		Amenities:   amenities,
		Images:      names,
		OwnerID:     actor.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		s.compensate(ctx, names)
		s.logger.Error().Err(err).Str("owner_id", actor.ID).Msg("failed to create listing")
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info().Str("listing_id", listing.ID).Str("owner_id", actor.ID).Strs("images", names).Msg("listing created")
	return listing, nil
}

func (s *ListingService) ListListings(ctx context.Context) ([]*domain.Listing, error) {
	// The generation is read before the store so that a write committed while
	// FindAll runs leaves this snapshot under a generation nobody reads.
	cached, gen, ok, cacheErr := s.cache.Get(ctx)
	if cacheErr != nil {
		s.logger.Warn().Err(cacheErr).Msg("listing cache read failed, falling back to store")
	} else if ok {
		return cached, nil
	}

	listings, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	if cacheErr == nil {
		if err := s.cache.Set(ctx, gen, listings, s.opts.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("listing cache write failed")
		}
	}
	return listings, nil
}

func (s *ListingService) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

// DeleteListing removes the listing with the given id. Unknown ids are a
// silent no-op under every policy.
func (s *ListingService) DeleteListing(ctx context.Context, id string, actor *domain.User) error {
	if s.opts.DeletePolicy.RequiresAuth() {
		if actor == nil {
			return domain.ErrMissingToken
		}
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrListingNotFound) {
				return nil
			}
			return fmt.Errorf("delete listing: %w", err)
		}
		if !domain.CanDelete(actor, existing) {
			s.logger.Warn().Str("listing_id", id).Str("user_id", actor.ID).Msg("delete denied")
			return domain.ErrForbidden
		}
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if removed == nil {
		s.logger.Debug().Str("listing_id", id).Msg("delete of unknown listing ignored")
		return nil
	}

	s.invalidate(ctx)
	if s.opts.Purger != nil && len(removed.Images) > 0 {
		s.opts.Purger.EnqueueBatch(removed.Images)
	}

	s.logger.Info().Str("listing_id", id).Msg("listing deleted")
	return nil
}

// compensate removes images whose listing record was never written. It runs
// on a detached context so a cancelled request still cleans up.
func (s *ListingService) compensate(ctx context.Context, names []string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	if err := s.images.Discard(cctx, names); err != nil {
		s.logger.Error().Err(err).Strs("images", names).Msg("failed to discard orphaned images")
	}
}

func (s *ListingService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("listing cache invalidation failed")
	}
}

// parseAmenities decodes the JSON-array encoding used by the upload form.
// Duplicates are dropped, first occurrence wins.
func parseAmenities(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrMalformedAmenities
	}

	var decoded []string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, domain.ErrMalformedAmenities
	}

	seen := make(map[string]struct{}, len(decoded))
	amenities := make([]string, 0, len(decoded))
	for _, a := range decoded {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		amenities = append(amenities, a)
	}
	return amenities, nil
}

type nopCache struct{}

func (nopCache) Get(context.Context) ([]*domain.Listing, int64, bool, error) {
	return nil, 0, false, nil
}
func (nopCache) Set(context.Context, int64, []*domain.Listing, time.Duration) error {
	return nil
}
func (nopCache) Invalidate(context.Context) error { return nil }
