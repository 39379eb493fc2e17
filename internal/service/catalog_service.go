package service

import (
	"context"
	"fmt"
	"strings"

	"backoffice-service/internal/apperrors"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles product and category management
type CatalogService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	CategoryID     int64           `json:"category_id" binding:"required"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	Stock          int             `json:"stock"`
	AlertThreshold int             `json:"alert_threshold"`
	Unit           string          `json:"unit"`
	Active         *bool           `json:"active"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// validateProduct collects every violated field constraint. Nothing is
// persisted when any check fails.
func validateProduct(req *CreateProductRequest) *apperrors.ValidationError {
	ve := apperrors.NewValidationError()
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "name is required")
	}
	if req.SalePrice.LessThanOrEqual(decimal.Zero) {
		ve.Add("sale_price", "sale price must be positive")
	}
	if req.Stock < 0 {
		ve.Add("stock", "stock cannot be negative")
	}
	if req.AlertThreshold < 0 {
		ve.Add("alert_threshold", "alert threshold cannot be negative")
	}
	if req.Unit != "" && !models.IsValidUnit(req.Unit) {
		ve.Add("unit", fmt.Sprintf("invalid unit %q", req.Unit))
	}
	return ve
}

// CreateProduct validates and persists a new product
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if ve := validateProduct(req); ve.HasErrors() {
		util.ValidationFailuresTotal.WithLabelValues("create_product").Inc()
		return nil, ve
	}

	if _, err := s.store.GetCategoryByID(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	unit := req.Unit
	if unit == "" {
		unit = models.UnitUnit
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	product := &models.Product{
		Name:           req.Name,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		SalePrice:      req.SalePrice,
		Stock:          req.Stock,
		AlertThreshold: req.AlertThreshold,
		Unit:           unit,
		Active:         active,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("sale_price", product.SalePrice.String()))

	return product, nil
}

// UpdateProduct validates and persists catalog changes to a product. Stock
// is not touched here; it only changes through movements and order lines.
func (s *CatalogService) UpdateProduct(ctx context.Context, productID int64, req *CreateProductRequest) (*models.Product, error) {
	if ve := validateProduct(req); ve.HasErrors() {
		util.ValidationFailuresTotal.WithLabelValues("update_product").Inc()
		return nil, ve
	}

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategoryByID(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product.Name = req.Name
	product.Description = req.Description
	product.CategoryID = req.CategoryID
	product.SalePrice = req.SalePrice
	product.AlertThreshold = req.AlertThreshold
	if req.Unit != "" {
		product.Unit = req.Unit
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return s.store.GetProductByID(ctx, productID)
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return s.store.GetProductByID(ctx, productID)
}

// ListProducts retrieves the whole catalog
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.GetProducts(ctx)
}

// ListLowStockProducts retrieves products at or below their alert threshold
func (s *CatalogService) ListLowStockProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.GetLowStockProducts(ctx)
}

// DeleteProduct removes a product from the catalog
func (s *CatalogService) DeleteProduct(ctx context.Context, productID int64) error {
	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", productID))
	return nil
}

// CreateCategory validates and persists a new category
func (s *CatalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		util.ValidationFailuresTotal.WithLabelValues("create_category").Inc()
		ve := apperrors.NewValidationError()
		ve.Add("name", "name is required")
		return nil, ve
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created",
		zap.Int64("category_id", category.ID),
		zap.String("name", category.Name))

	return category, nil
}

// ListCategories retrieves all categories
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.GetCategories(ctx)
}

// DeleteCategory removes a category. It fails with a conflict while the
// category still owns products; nothing is modified in that case.
func (s *CatalogService) DeleteCategory(ctx context.Context, categoryID int64) error {
	if _, err := s.store.GetCategoryByID(ctx, categoryID); err != nil {
		return err
	}

	count, err := s.store.CountProductsInCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("failed to count category products: %w", err)
	}
	if count > 0 {
		return apperrors.NewConflictError("category %d still owns %d product(s)", categoryID, count)
	}

	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}

	s.logger.Info("Category deleted", zap.Int64("category_id", categoryID))
	return nil
}
