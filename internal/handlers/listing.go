package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/smartvillageshub/backend/internal/services"
	"github.com/smartvillageshub/backend/internal/storage"
	"github.com/smartvillageshub/backend/internal/store"
	"github.com/smartvillageshub/backend/types"
)

const (
	maxUploadMemory   = 32 << 20
	maxImageBytes     = 10 << 20
	maxImagesPerBatch = 6
	formFieldImages   = "images"
)

// ListingHandler provides HTTP handlers for listings.
type ListingHandler struct {
	listingService *services.ListingService
	imageStorage   *storage.Storage
	publicBaseURL  string
}

// NewListingHandler constructs a handler with the provided dependencies.
// imageStorage may be nil when no object-storage backend is configured.
func NewListingHandler(listingService *services.ListingService, imageStorage *storage.Storage, publicBaseURL string) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		imageStorage:   imageStorage,
		publicBaseURL:  strings.TrimRight(publicBaseURL, "/"),
	}
}

// ListingRouter registers listing routes on the given router. Reads are
// public; mutations require authentication.
func ListingRouter(
	r chi.Router,
	listingService *services.ListingService,
	imageStorage *storage.Storage,
	publicBaseURL string,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewListingHandler(listingService, imageStorage, publicBaseURL)

	r.Get("/get", handler.SearchListings)
	r.Get("/get/{listingID}", handler.GetListing)
	r.With(authMiddleware).Post("/create", handler.CreateListing)
	r.With(authMiddleware).Put("/update/{listingID}", handler.UpdateListing)
	r.With(authMiddleware).Delete("/delete/{listingID}", handler.DeleteListing)
	r.With(authMiddleware).Post("/upload", handler.UploadImages)
}

func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseListingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing, err := h.listingService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found!")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (h *ListingHandler) SearchListings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListingFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listings, err := h.listingService.Search(r.Context(), filter)
	if err != nil {
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	subject, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ListingUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.listingService.Create(r.Context(), req.toListing(subject))
	if err != nil {
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseListingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	existing, err := h.listingService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found!")
			return
		}
		writeInternalError(w)
		return
	}
	if existing.UserID != subject {
		writeError(w, http.StatusUnauthorized, "You can only update your own listings!")
		return
	}

	var req ListingUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	listing := req.toListing(existing.UserID)
	listing.ID = id
	listing.CreatedAt = existing.CreatedAt

	updated, err := h.listingService.Update(r.Context(), listing)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found!")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseListingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	existing, err := h.listingService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found!")
			return
		}
		writeInternalError(w)
		return
	}
	if existing.UserID != subject {
		writeError(w, http.StatusUnauthorized, "You can only delete your own listings!")
		return
	}

	if err := h.listingService.Delete(r.Context(), id, existing.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Listing not found!")
			return
		}
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, "Listing has been deleted!")
}

// UploadImages stores listing photos in object storage and returns
// their public URLs.
func (h *ListingHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if h.imageStorage == nil {
		writeError(w, http.StatusServiceUnavailable, "image upload is not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldImages]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one image is required")
		return
	}
	if len(files) > maxImagesPerBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images per upload", maxImagesPerBatch))
		return
	}

	urls := make([]string, 0, len(files))
	for _, fileHeader := range files {
		if fileHeader.Size > maxImageBytes {
			writeError(w, http.StatusBadRequest, "image too large")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			writeInternalError(w)
			return
		}

		key := "listings/" + uuid.NewString() + strings.ToLower(path.Ext(fileHeader.Filename))
		contentType := fileHeader.Header.Get("Content-Type")
		err = h.imageStorage.Put(r.Context(), key, file, fileHeader.Size, contentType)
		_ = file.Close()
		if err != nil {
			writeInternalError(w)
			return
		}

		urls = append(urls, h.imageURL(key))
	}

	writeJSON(w, http.StatusCreated, UploadImagesResponse{Success: true, URLs: urls})
}

func (h *ListingHandler) imageURL(key string) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + "/" + key
	}
	return "/" + h.imageStorage.Bucket() + "/" + key
}

// ListingUpsertRequest is the JSON payload for create and update.
type ListingUpsertRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	RegularPrice  int64    `json:"regular_price"`
	DiscountPrice int64    `json:"discount_price"`
	Bathrooms     int      `json:"bathrooms"`
	Bedrooms      int      `json:"bedrooms"`
	Furnished     bool     `json:"furnished"`
	Parking       bool     `json:"parking"`
	Type          string   `json:"type"`
	Offer         bool     `json:"offer"`
	ImageURLs     []string `json:"image_urls"`
}

func (req *ListingUpsertRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return errors.New("description is required")
	}
	if strings.TrimSpace(req.Address) == "" {
		return errors.New("address is required")
	}
	if req.Type != types.ListingTypeSale && req.Type != types.ListingTypeRent {
		return errors.New(`type must be "sale" or "rent"`)
	}
	if req.RegularPrice < 0 || req.DiscountPrice < 0 {
		return errors.New("prices must not be negative")
	}
	if req.Offer && req.DiscountPrice >= req.RegularPrice {
		return errors.New("discount price must be below the regular price")
	}
	return nil
}

func (req *ListingUpsertRequest) toListing(userID int) types.Listing {
	return types.Listing{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		Address:       strings.TrimSpace(req.Address),
		RegularPrice:  req.RegularPrice,
		DiscountPrice: req.DiscountPrice,
		Bathrooms:     req.Bathrooms,
		Bedrooms:      req.Bedrooms,
		Furnished:     req.Furnished,
		Parking:       req.Parking,
		Type:          req.Type,
		Offer:         req.Offer,
		ImageURLs:     req.ImageURLs,
		UserID:        userID,
	}
}

// UploadImagesResponse lists the stored image URLs in upload order.
type UploadImagesResponse struct {
	Success bool     `json:"success"`
	URLs    []string `json:"urls"`
}

func parseListingID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "listingID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid listing id")
	}
	return id, nil
}

// parseListingFilter maps search-form query parameters onto a store
// filter. A checkbox param filters only when explicitly "true"; absent
// or "false" matches both states. type absent or "all" matches both.
func parseListingFilter(r *http.Request) (store.ListingFilter, error) {
	query := r.URL.Query()
	filter := store.ListingFilter{
		SearchTerm: strings.TrimSpace(query.Get("searchTerm")),
		SortColumn: sortColumn(query.Get("sort")),
		SortOrder:  query.Get("order"),
	}

	filter.Offer = checkboxFilter(query.Get("offer"))
	filter.Furnished = checkboxFilter(query.Get("furnished"))
	filter.Parking = checkboxFilter(query.Get("parking"))

	if listingType := strings.TrimSpace(query.Get("type")); listingType != "" && listingType != "all" {
		if listingType != types.ListingTypeSale && listingType != types.ListingTypeRent {
			return store.ListingFilter{}, errors.New("invalid type")
		}
		filter.Types = []string{listingType}
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return store.ListingFilter{}, errors.New("invalid limit")
		}
		filter.Limit = limit
	}

	if raw := strings.TrimSpace(query.Get("startIndex")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return store.ListingFilter{}, errors.New("invalid startIndex")
		}
		filter.Offset = offset
	}

	return filter, nil
}

func checkboxFilter(raw string) *bool {
	if strings.EqualFold(strings.TrimSpace(raw), "true") {
		value := true
		return &value
	}
	return nil
}

func sortColumn(raw string) string {
	if strings.TrimSpace(raw) == "regular_price" {
		return "regular_price"
	}
	return "created_at"
}
