package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smartvillageshub/backend/types"
)

// ListingFilter narrows a listing search. Nil boolean filters and an
// empty type list match everything, mirroring the search form where an
// unchecked box means "don't care".
type ListingFilter struct {
	SearchTerm string
	Offer      *bool
	Furnished  *bool
	Parking    *bool
	Types      []string
	SortColumn string
	SortOrder  string
	Offset     int
	Limit      int
}

const listingColumns = `id, name, description, address, regular_price, discount_price,
		bathrooms, bedrooms, furnished, parking, type, offer, image_urls,
		user_id, created_at, updated_at`

// ListingRepository handles persistence for listings.
type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Get(ctx context.Context, id int64) (types.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns)
	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Listing{}, ErrNotFound
		}
		return types.Listing{}, err
	}
	return listing, nil
}

func (r *ListingRepository) ListByUser(ctx context.Context, userID int) ([]types.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE user_id = $1 ORDER BY created_at DESC`, listingColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *ListingRepository) Search(ctx context.Context, filter ListingFilter) ([]types.Listing, error) {
	conditions := []string{"TRUE"}
	args := []any{}

	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+term+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Offer != nil {
		args = append(args, *filter.Offer)
		conditions = append(conditions, fmt.Sprintf("offer = $%d", len(args)))
	}
	if filter.Furnished != nil {
		args = append(args, *filter.Furnished)
		conditions = append(conditions, fmt.Sprintf("furnished = $%d", len(args)))
	}
	if filter.Parking != nil {
		args = append(args, *filter.Parking)
		conditions = append(conditions, fmt.Sprintf("parking = $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, 0, len(filter.Types))
		for _, listingType := range filter.Types {
			args = append(args, listingType)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ", ")))
	}

	sortColumn := "created_at"
	if filter.SortColumn == "regular_price" {
		sortColumn = "regular_price"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	args = append(args, filter.Offset)
	offsetArg := len(args)
	args = append(args, filter.Limit)
	limitArg := len(args)

	query := fmt.Sprintf(
		`SELECT %s FROM listings WHERE %s ORDER BY %s %s OFFSET $%d LIMIT $%d`,
		listingColumns,
		strings.Join(conditions, " AND "),
		sortColumn,
		sortOrder,
		offsetArg,
		limitArg,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func (r *ListingRepository) Create(ctx context.Context, listing types.Listing) (types.Listing, error) {
	now := time.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	imagesJSON, err := json.Marshal(listing.ImageURLs)
	if err != nil {
		return types.Listing{}, err
	}

	const query = `
		INSERT INTO listings (
			name, description, address, regular_price, discount_price,
			bathrooms, bedrooms, furnished, parking, type, offer,
			image_urls, user_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		listing.Name,
		listing.Description,
		listing.Address,
		listing.RegularPrice,
		listing.DiscountPrice,
		listing.Bathrooms,
		listing.Bedrooms,
		listing.Furnished,
		listing.Parking,
		listing.Type,
		listing.Offer,
		imagesJSON,
		listing.UserID,
		listing.CreatedAt,
		listing.UpdatedAt,
	).Scan(&listing.ID); err != nil {
		return types.Listing{}, err
	}
	return listing, nil
}

func (r *ListingRepository) Update(ctx context.Context, listing types.Listing) (types.Listing, error) {
	listing.UpdatedAt = time.Now()

	imagesJSON, err := json.Marshal(listing.ImageURLs)
	if err != nil {
		return types.Listing{}, err
	}

	const query = `
		UPDATE listings
		SET name = $1,
			description = $2,
			address = $3,
			regular_price = $4,
			discount_price = $5,
			bathrooms = $6,
			bedrooms = $7,
			furnished = $8,
			parking = $9,
			type = $10,
			offer = $11,
			image_urls = $12,
			updated_at = $13
		WHERE id = $14`
	result, err := r.db.ExecContext(
		ctx,
		query,
		listing.Name,
		listing.Description,
		listing.Address,
		listing.RegularPrice,
		listing.DiscountPrice,
		listing.Bathrooms,
		listing.Bedrooms,
		listing.Furnished,
		listing.Parking,
		listing.Type,
		listing.Offer,
		imagesJSON,
		listing.UpdatedAt,
		listing.ID,
	)
	if err != nil {
		return types.Listing{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Listing{}, err
	}
	if affected == 0 {
		return types.Listing{}, ErrNotFound
	}
	return listing, nil
}

func (r *ListingRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM listings WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (types.Listing, error) {
	var listing types.Listing
	var imagesJSON []byte
	err := row.Scan(
		&listing.ID,
		&listing.Name,
		&listing.Description,
		&listing.Address,
		&listing.RegularPrice,
		&listing.DiscountPrice,
		&listing.Bathrooms,
		&listing.Bedrooms,
		&listing.Furnished,
		&listing.Parking,
		&listing.Type,
		&listing.Offer,
		&imagesJSON,
		&listing.UserID,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return types.Listing{}, err
	}
	_ = json.Unmarshal(imagesJSON, &listing.ImageURLs)
	return listing, nil
}

func collectListings(rows *sql.Rows) ([]types.Listing, error) {
	listings := make([]types.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}
