package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/homefinder/listing-service/internal/core/domain"
)

const collectionListings = "listings"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(collectionListings)}
}

type mongoListing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Location    string             `bson:"location"`
	Price       float64            `bson:"price"`
	Description string             `bson:"description"`
	Bedrooms    int                `bson:"bedrooms"`
	Bathrooms   int                `bson:"bathrooms"`
	Amenities   []string           `bson:"amenities"`
	Images      []string           `bson:"images"`
	OwnerID     string             `bson:"owner_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func fromDomain(l *domain.Listing) mongoListing {
	amenities := l.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return mongoListing{
		Title:       l.Title,
		Location:    l.Location,
		Price:       l.Price,
		Description: l.Description,
		Bedrooms:    l.Bedrooms,
		Bathrooms:   l.Bathrooms,
		Amenities:   amenities,
		Images:      l.Images,
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt,
	}
}

func (ml mongoListing) toDomain() *domain.Listing {
	amenities := ml.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	images := ml.Images
	if images == nil {
		images = []string{}
	}
	return &domain.Listing{
		ID:          ml.ID.Hex(),
		Title:       ml.Title,
		Location:    ml.Location,
		Price:       ml.Price,
		Description: ml.Description,
		Bedrooms:    ml.Bedrooms,
		Bathrooms:   ml.Bathrooms,
		Amenities:   amenities,
		Images:      images,
		OwnerID:     ml.OwnerID,
		CreatedAt:   ml.CreatedAt.UTC(),
	}
}

// Create inserts a new listing document and sets l.ID.
func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, fromDomain(l))
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert listing: unexpected id type %T", res.InsertedID)
	}
	l.ID = id.Hex()
	return nil
}

// FindAll returns every listing ordered by _id, i.e. by insertion.
func (r *ListingRepository) FindAll(ctx context.Context) ([]*domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoListing
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	listings := make([]*domain.Listing, 0, len(docs))
	for _, d := range docs {
		listings = append(listings, d.toDomain())
	}
	return listings, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoListing
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return doc.toDomain(), nil
}

// Delete removes the listing and returns the removed document. Unknown and
// malformed ids yield (nil, nil).
func (r *ListingRepository) Delete(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoListing
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete listing: %w", err)
	}
	return doc.toDomain(), nil
}
