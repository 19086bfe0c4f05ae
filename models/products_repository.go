package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductsRepository struct {
	db *gorm.DB
}

// Sort keys accepted by GetFilteredProducts.
const (
	SortByName      = "name"
	SortByPrice     = "price"
	SortByPriceDesc = "price_desc"
	SortByNewest    = "created_at"
	SortByStock     = "stock"
)

var productSortOrders = map[string]string{
	SortByName:      "products.name ASC",
	SortByPrice:     "products.price ASC",
	SortByPriceDesc: "products.price DESC",
	SortByNewest:    "products.created_at DESC",
	SortByStock:     "products.stock ASC",
}

type ProductFilters struct {
	Query      string
	CategoryID *uint
	Sort       string
}

// NormalizeProductSort returns sort when it is a known sort key and
// SortByName otherwise.
func NormalizeProductSort(sort string) string {
	if _, ok := productSortOrders[sort]; ok {
		return sort
	}
	return SortByName
}

// ProductSortOrder returns the ORDER BY clause for a sort key, falling back
// to name ascending for unknown keys.
func ProductSortOrder(sort string) string {
	if order, ok := productSortOrders[sort]; ok {
		return order
	}
	return productSortOrders[SortByName]
}

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{
		db: db,
	}
}

func (r *ProductsRepository) filtered(ctx context.Context, filters ProductFilters) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&Product{})

	if filters.Query != "" {
		pattern := containsPattern(filters.Query)
		query = query.Where(
			`LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(products.description, '')) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}
	if filters.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filters.CategoryID)
	}
	return query
}

func (r *ProductsRepository) GetFilteredProducts(ctx context.Context, offset, limit int, filters ProductFilters) ([]Product, int64, error) {
	var products []Product
	var total int64

	// Count total after filtering
	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.filtered(ctx, filters).
		Preload("Category").
		Order(ProductSortOrder(filters.Sort)).
		Order("products.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *ProductsRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err // Other DB error
	}
	return &product, nil
}

// CreateProduct inserts the product row only; the referenced category is never upserted.
func (r *ProductsRepository) CreateProduct(ctx context.Context, product *Product) error {
	active := product.IsActive
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(product).Error; err != nil {
			return err
		}
		return keepInactive(tx, &Product{}, product.ID, active)
	})
	if err != nil {
		return translateError(err)
	}
	product.IsActive = active
	return nil
}

// UpdateProduct writes the editable columns of an existing product.
// The slug column is only written while the stored slug is still empty.
func (r *ProductsRepository) UpdateProduct(ctx context.Context, product *Product) error {
	res := r.db.WithContext(ctx).
		Model(&Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":        product.Name,
			"category_id": product.CategoryID,
			"description": product.Description,
			"price":       product.Price,
			"stock":       product.Stock,
			"is_active":   product.IsActive,
			"image":       product.Image,
			"slug":        gorm.Expr("CASE WHEN slug = '' THEN ? ELSE slug END", product.Slug),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductsRepository) DeleteProduct(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductsRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.SlugTaken(ctx, slug, 0)
}

// SlugTaken reports whether a product other than excludeID uses the slug.
func (r *ProductsRepository) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&Product{}).Where("slug = ?", slug), excludeID)
}
