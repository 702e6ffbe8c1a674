package types

import "time"

// Listing types.
const (
	ListingTypeSale = "sale"
	ListingTypeRent = "rent"
)

// Listing represents a property advertised on the platform.
// It contains the property description, pricing, amenities, and a
// reference to the owning user.
type Listing struct {
	// ID is the unique identifier of the listing.
	ID int64 `json:"id" db:"id"`

	// Name is the short human-readable title of the listing.
	Name string `json:"name" db:"name"`

	// Description contains the full property description.
	Description string `json:"description" db:"description"`

	// Address is the street address of the property.
	Address string `json:"address" db:"address"`

	// RegularPrice is the asking price (sale) or monthly rent, in the
	// platform currency's smallest displayable unit.
	RegularPrice int64 `json:"regular_price" db:"regular_price"`

	// DiscountPrice is the reduced price when Offer is set.
	DiscountPrice int64 `json:"discount_price" db:"discount_price"`

	// Bathrooms is the number of bathrooms.
	Bathrooms int `json:"bathrooms" db:"bathrooms"`

	// Bedrooms is the number of bedrooms.
	Bedrooms int `json:"bedrooms" db:"bedrooms"`

	// Furnished indicates whether the property is let furnished.
	Furnished bool `json:"furnished" db:"furnished"`

	// Parking indicates whether the property has a parking spot.
	Parking bool `json:"parking" db:"parking"`

	// Type is either "sale" or "rent".
	Type string `json:"type" db:"type"`

	// Offer indicates whether DiscountPrice applies.
	Offer bool `json:"offer" db:"offer"`

	// ImageURLs are the photos of the property, in display order.
	ImageURLs []string `json:"image_urls" db:"image_urls"`

	// UserID is the identifier of the user that owns the listing.
	UserID int `json:"user_id" db:"user_id"`

	// CreatedAt is the timestamp at which the listing was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the listing.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
