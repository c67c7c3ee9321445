package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
	"github.com/freshvalley/dairy-shop-backend/internal/media"
	"github.com/freshvalley/dairy-shop-backend/internal/repository/ports"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductImageInvalid = errors.New("product image rejected")
	ErrImageStorageOff     = errors.New("image storage not configured")
)

const defaultMaxProductImageBytes = int64(5 * 1024 * 1024)

var allowedImageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

type CatalogServiceConfig struct {
	Bucket            string
	MaxImageBytes     int64
	ImageMaxDimension int
}

type ProductImageUpload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type CatalogService struct {
	products  ports.ProductRepository
	storage   ports.ObjectStorage
	processor media.Processor

	bucket        string
	maxImageBytes int64
	maxDimension  int
	now           func() time.Time
}

func NewCatalogService(products ports.ProductRepository, storage ports.ObjectStorage, processor media.Processor, cfg CatalogServiceConfig) *CatalogService {
	maxBytes := cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxProductImageBytes
	}
	return &CatalogService{
		products:      products,
		storage:       storage,
		processor:     processor,
		bucket:        cfg.Bucket,
		maxImageBytes: maxBytes,
		maxDimension:  cfg.ImageMaxDimension,
		now:           time.Now,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

// EnsureSeeded loads the Fresh Valley sample catalog the first time the
// service starts against an empty products table.
func (s *CatalogService) EnsureSeeded(ctx context.Context) error {
	count, err := s.products.Count(ctx)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, product := range sampleCatalog() {
		if _, err := s.products.Insert(ctx, product); err != nil {
			return fmt.Errorf("seed product %q: %w", product.Name, err)
		}
	}
	return nil
}

// AttachImage downscales an uploaded photo, stores it in the product image
// bucket, and records the public URL on the product row.
func (s *CatalogService) AttachImage(ctx context.Context, productID uuid.UUID, upload ProductImageUpload) (*domain.Product, error) {
	if s.storage == nil {
		return nil, ErrImageStorageOff
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if upload.Reader == nil || upload.Size <= 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrProductImageInvalid)
	}
	if upload.Size > s.maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrProductImageInvalid, s.maxImageBytes)
	}

	result, err := s.processor.Process(ctx, media.Upload{
		Reader:      upload.Reader,
		Size:        upload.Size,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
	}, s.maxDimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProductImageInvalid, err)
	}
	if _, ok := allowedImageMIMEs[result.ContentType]; !ok {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrProductImageInvalid, result.ContentType)
	}

	objectName := fmt.Sprintf("products/%s/%d%s", product.ID, s.now().UnixNano(), extensionFor(result.ContentType))
	url, err := s.storage.Upload(ctx, s.bucket, objectName, result.ContentType, bytes.NewReader(result.Bytes), int64(len(result.Bytes)))
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	updated, err := s.products.UpdateImageURL(ctx, product.ID, url)
	if err != nil {
		return nil, fmt.Errorf("record image url: %w", err)
	}
	return updated, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func sampleCatalog() []domain.Product {
	return []domain.Product{
		{Name: "Fresh Whole Milk", Category: domain.ProductCategoryDairy, Price: 4.99, Description: "Premium quality whole milk from grass-fed cows", Details: "Rich in calcium and protein. Perfect for drinking, cooking, and baking.", StockQuantity: 50},
		{Name: "Organic Butter", Category: domain.ProductCategoryDairy, Price: 6.99, Description: "Creamy organic butter made from fresh cream", Details: "Made from the cream of grass-fed cows. No artificial additives.", StockQuantity: 30},
		{Name: "Aged Cheddar Cheese", Category: domain.ProductCategoryDairy, Price: 12.99, Description: "Sharp aged cheddar cheese, aged for 12 months", Details: "Aged to perfection for 12 months. Rich, sharp flavor.", StockQuantity: 25},
		{Name: "Greek Yogurt", Category: domain.ProductCategoryDairy, Price: 5.99, Description: "Thick and creamy Greek yogurt", Details: "High in protein and probiotics. Made with live active cultures.", StockQuantity: 40},
		{Name: "Premium Ground Beef", Category: domain.ProductCategoryMeat, Price: 8.99, Description: "Lean ground beef from grass-fed cattle", Details: "85% lean ground beef from cattle raised on our farm.", StockQuantity: 20},
		{Name: "Free-Range Chicken", Category: domain.ProductCategoryMeat, Price: 12.99, Description: "Whole free-range chicken", Details: "Raised on open pastures with access to natural feed.", StockQuantity: 15},
		{Name: "Pork Tenderloin", Category: domain.ProductCategoryMeat, Price: 15.99, Description: "Tender pork tenderloin", Details: "Lean and tender cut from heritage breed pigs.", StockQuantity: 12},
		{Name: "Farm Fresh Eggs", Category: domain.ProductCategoryDairy, Price: 3.99, Description: "Fresh eggs from free-range hens", Details: "Collected daily from our free-range hens.", StockQuantity: 60},
	}
}
