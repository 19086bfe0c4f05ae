package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type CategoriesRepository struct {
	db *gorm.DB
}

type CategoryFilters struct {
	// Query is matched case-insensitively against name and description.
	Query string
}

func NewCategoriesRepository(db *gorm.DB) *CategoriesRepository {
	return &CategoriesRepository{
		db: db,
	}
}

func (r *CategoriesRepository) filtered(ctx context.Context, filters CategoryFilters) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&Category{})
	if filters.Query != "" {
		pattern := containsPattern(filters.Query)
		query = query.Where(
			`LOWER(categories.name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(categories.description, '')) LIKE ? ESCAPE '\'`,
			pattern, pattern,
		)
	}
	return query
}

// GetFilteredCategories returns one page of categories ordered by name and
// the total number of categories matching the filters.
func (r *CategoriesRepository) GetFilteredCategories(ctx context.Context, offset, limit int, filters CategoryFilters) ([]Category, int64, error) {
	var categories []Category
	var total int64

	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.filtered(ctx, filters).
		Order("categories.name ASC").
		Order("categories.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&categories).Error; err != nil {
		return nil, 0, err
	}

	return categories, total, nil
}

// GetActiveCategories returns every active category ordered by name.
func (r *CategoriesRepository) GetActiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoriesRepository) GetByID(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts the category. The is_active column defaults to
// true in the store, so an inactive category is written in a second step.
func (r *CategoriesRepository) CreateCategory(ctx context.Context, category *Category) error {
	active := category.IsActive
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(category).Error; err != nil {
			return err
		}
		return keepInactive(tx, &Category{}, category.ID, active)
	})
	if err != nil {
		return translateError(err)
	}
	category.IsActive = active
	return nil
}

// UpdateCategory writes the editable columns of an existing category.
// The slug column is only written while the stored slug is still empty.
func (r *CategoriesRepository) UpdateCategory(ctx context.Context, category *Category) error {
	res := r.db.WithContext(ctx).
		Model(&Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]any{
			"name":        category.Name,
			"name_key":    CategoryNameKey(category.Name),
			"description": category.Description,
			"is_active":   category.IsActive,
			"slug":        gorm.Expr("CASE WHEN slug = '' THEN ? ELSE slug END", category.Slug),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes a category. The store refuses the delete while
// products still reference it, which surfaces as ErrCategoryProtected.
func (r *CategoriesRepository) DeleteCategory(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Category{}, id)
	if res.Error != nil {
		err := translateError(res.Error)
		if errors.Is(err, ErrForeignKey) {
			return fmt.Errorf("%w: %v", ErrCategoryProtected, res.Error)
		}
		return err
	}
	if res.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// CountProducts returns the number of products that reference the category.
func (r *CategoriesRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&Product{}).
		Where("category_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CanDelete reports whether no product references the category.
func (r *CategoriesRepository) CanDelete(ctx context.Context, id uint) (bool, error) {
	count, err := r.CountProducts(ctx, id)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *CategoriesRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.SlugTaken(ctx, slug, 0)
}

// SlugTaken reports whether a category other than excludeID uses the slug.
func (r *CategoriesRepository) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&Category{}).Where("slug = ?", slug), excludeID)
}

// NameTaken reports whether a category other than excludeID has the same
// name, ignoring case and surrounding spaces.
func (r *CategoriesRepository) NameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&Category{}).Where("name_key = ?", CategoryNameKey(name)), excludeID)
}
