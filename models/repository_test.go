package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- Helpers ---

var ctx = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Category{}, &Product{}))
	return db
}

func text(s string) *string {
	return &s
}

func createCategory(t *testing.T, repo *CategoriesRepository, name string, active bool) *Category {
	t.Helper()
	c := &Category{Name: name, IsActive: active}
	require.NoError(t, repo.CreateCategory(ctx, c))
	return c
}

func createProduct(t *testing.T, repo *ProductsRepository, name string, category *Category, price string, stock int) *Product {
	t.Helper()
	p := &Product{
		Name:       name,
		CategoryID: category.ID,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, repo.CreateProduct(ctx, p))
	return p
}

// --- Tests: slugs ---

func TestMakeSlug(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		maxLen int
		check  func(t *testing.T, slug string)
	}{
		{
			name: "Latin name", input: "  Running Shoes & Boots ", maxLen: 200,
			check: func(t *testing.T, slug string) { assert.Equal(t, "running-shoes-and-boots", slug) },
		},
		{
			name: "Cyrillic name is transliterated", input: "Тестовая категория", maxLen: 200,
			check: func(t *testing.T, slug string) {
				assert.NotEmpty(t, slug)
				assert.True(t, IsValidSlug(slug, 200), slug)
			},
		},
		{
			name: "Truncated to the category limit", input: strings.Repeat("a", 210), maxLen: CategorySlugMaxLength,
			check: func(t *testing.T, slug string) { assert.Len(t, slug, 200) },
		},
		{
			name: "Truncated to the product limit", input: strings.Repeat("a", 260), maxLen: ProductSlugMaxLength,
			check: func(t *testing.T, slug string) { assert.Len(t, slug, 255) },
		},
		{
			name: "No trailing hyphen after truncation", input: strings.Repeat("a", 9) + " bcd", maxLen: 10,
			check: func(t *testing.T, slug string) { assert.Equal(t, strings.Repeat("a", 9), slug) },
		},
		{
			name: "Only punctuation", input: "!!!", maxLen: 200,
			check: func(t *testing.T, slug string) { assert.Empty(t, slug) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, MakeSlug(tc.input, tc.maxLen))
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("test-product", 255))
	assert.False(t, IsValidSlug("", 255))
	assert.False(t, IsValidSlug("Test Product", 255))
	assert.False(t, IsValidSlug("toolong", 3))
}

func TestProductImagePath(t *testing.T) {
	assert.Equal(t, "products/test-product/front.jpg", ProductImagePath("test-product", "front.jpg"))
	assert.Equal(t, "products/test-product/passwd", ProductImagePath("test-product", "../../etc/passwd"))
}

// --- Tests: CategoriesRepository ---

func TestCategorySlugIsAssignedOnce(t *testing.T) {
	repo := NewCategoriesRepository(newTestDB(t))

	category := createCategory(t, repo, "Тестовая категория", true)
	original := category.Slug
	require.NotEmpty(t, original)

	category.Name = "Renamed category"
	category.Slug = "renamed-category"
	require.NoError(t, repo.UpdateCategory(ctx, category))

	stored, err := repo.GetByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed category", stored.Name)
	assert.Equal(t, original, stored.Slug, "slug never follows the name")
}

func TestCategoryDuplicates(t *testing.T) {
	repo := NewCategoriesRepository(newTestDB(t))
	createCategory(t, repo, "Shoes", true)

	err := repo.CreateCategory(ctx, &Category{Name: "Other shoes", Slug: "shoes"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	err = repo.CreateCategory(ctx, &Category{Name: "Shoes"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	err = repo.CreateCategory(ctx, &Category{Name: " SHOES ", Slug: "shoes-upper"})
	assert.ErrorIs(t, err, ErrDuplicateKey, "names differing only in case collide in the store")
}

func TestCategoryNameTakenNonASCII(t *testing.T) {
	repo := NewCategoriesRepository(newTestDB(t))
	category := createCategory(t, repo, "Тестовая категория", true)
	assert.Equal(t, "тестовая категория", category.NameKey)

	taken, err := repo.NameTaken(ctx, "тестовая категория", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.NameTaken(ctx, "ТЕСТОВАЯ КАТЕГОРИЯ ", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	// Renaming moves the key with the name.
	category.Name = "Обувь"
	require.NoError(t, repo.UpdateCategory(ctx, category))

	taken, err = repo.NameTaken(ctx, "тестовая категория", 0)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.NameTaken(ctx, "ОБУВЬ", 0)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestIsActiveDefault(t *testing.T) {
	db := newTestDB(t)
	categories := NewCategoriesRepository(db)
	products := NewProductsRepository(db)

	t.Run("Rows inserted without is_active are active", func(t *testing.T) {
		require.NoError(t, db.Exec(
			"INSERT INTO categories (name, name_key, slug, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			"Imported", "imported", "imported", time.Now(), time.Now(),
		).Error)

		var stored Category
		require.NoError(t, db.Where("slug = ?", "imported").First(&stored).Error)
		assert.True(t, stored.IsActive)
	})

	t.Run("Explicit false is kept", func(t *testing.T) {
		category := createCategory(t, categories, "Archive", false)
		assert.False(t, category.IsActive)

		stored, err := categories.GetByID(ctx, category.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)

		product := &Product{
			Name:       "Old boot",
			CategoryID: category.ID,
			Price:      decimal.RequireFromString("5.00"),
			IsActive:   false,
		}
		require.NoError(t, products.CreateProduct(ctx, product))
		assert.False(t, product.IsActive)

		storedProduct, err := products.GetByID(ctx, product.ID)
		require.NoError(t, err)
		assert.False(t, storedProduct.IsActive)
	})

	t.Run("Explicit true is kept", func(t *testing.T) {
		category := createCategory(t, categories, "Boots", true)

		stored, err := categories.GetByID(ctx, category.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
	})
}

func TestCategoryDeleteProtection(t *testing.T) {
	db := newTestDB(t)
	categories := NewCategoriesRepository(db)
	products := NewProductsRepository(db)

	category := createCategory(t, categories, "Shoes", true)
	product := createProduct(t, products, "Running shoe", category, "10.00", 1)

	count, err := categories.CountProducts(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	canDelete, err := categories.CanDelete(ctx, category.ID)
	require.NoError(t, err)
	assert.False(t, canDelete)

	err = categories.DeleteCategory(ctx, category.ID)
	assert.ErrorIs(t, err, ErrCategoryProtected)
	_, err = categories.GetByID(ctx, category.ID)
	assert.NoError(t, err, "the category survives")

	require.NoError(t, products.DeleteProduct(ctx, product.ID))
	canDelete, err = categories.CanDelete(ctx, category.ID)
	require.NoError(t, err)
	assert.True(t, canDelete)

	require.NoError(t, categories.DeleteCategory(ctx, category.ID))
	_, err = categories.GetByID(ctx, category.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.ErrorIs(t, categories.DeleteCategory(ctx, category.ID), ErrCategoryNotFound)
}

func TestGetFilteredCategories(t *testing.T) {
	repo := NewCategoriesRepository(newTestDB(t))
	for i := 1; i <= 25; i++ {
		createCategory(t, repo, fmt.Sprintf("Category %02d", i), true)
	}
	withDescription := &Category{Name: "Accessories", Description: text("Belts, BAGS and wallets"), IsActive: true}
	require.NoError(t, repo.CreateCategory(ctx, withDescription))
	createCategory(t, repo, "100% wool", false)

	t.Run("Ordered by name and paginated", func(t *testing.T) {
		page, total, err := repo.GetFilteredCategories(ctx, 0, 20, CategoryFilters{})
		require.NoError(t, err)
		assert.Equal(t, int64(27), total)
		require.Len(t, page, 20)
		assert.Equal(t, "100% wool", page[0].Name)
		assert.Equal(t, "Accessories", page[1].Name)
		assert.Equal(t, "Category 01", page[2].Name)

		rest, _, err := repo.GetFilteredCategories(ctx, 20, 20, CategoryFilters{})
		require.NoError(t, err)
		assert.Len(t, rest, 7)
	})

	t.Run("Search matches description ignoring case", func(t *testing.T) {
		page, total, err := repo.GetFilteredCategories(ctx, 0, 20, CategoryFilters{Query: "bags"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "Accessories", page[0].Name)
	})

	t.Run("Search matches name ignoring case", func(t *testing.T) {
		_, total, err := repo.GetFilteredCategories(ctx, 0, 20, CategoryFilters{Query: "CATEGORY 1"})
		require.NoError(t, err)
		assert.Equal(t, int64(10), total)
	})

	t.Run("Wildcards in the query are literal", func(t *testing.T) {
		page, total, err := repo.GetFilteredCategories(ctx, 0, 20, CategoryFilters{Query: "0%"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "100% wool", page[0].Name)
	})

	t.Run("Active categories only", func(t *testing.T) {
		active, err := repo.GetActiveCategories(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 26)
		for _, c := range active {
			assert.True(t, c.IsActive)
		}
	})
}

func TestCategoryLookups(t *testing.T) {
	repo := NewCategoriesRepository(newTestDB(t))
	shoes := createCategory(t, repo, "Shoes", true)

	taken, err := repo.NameTaken(ctx, "SHOES", 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.NameTaken(ctx, "shoes", shoes.ID)
	require.NoError(t, err)
	assert.False(t, taken, "the category being edited is excluded")

	exists, err := repo.SlugExists(ctx, "shoes")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, "boots")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, repo.UpdateCategory(ctx, &Category{ID: 999, Name: "Missing"}), ErrCategoryNotFound)
}

// --- Tests: ProductsRepository ---

func TestProductSlugIsAssignedOnce(t *testing.T) {
	db := newTestDB(t)
	category := createCategory(t, NewCategoriesRepository(db), "Shoes", true)
	repo := NewProductsRepository(db)

	product := createProduct(t, repo, "Old name", category, "10.50", 3)
	assert.Equal(t, "old-name", product.Slug)

	product.Name = "New name"
	product.Slug = "new-name"
	product.Price = decimal.RequireFromString("12.00")
	product.Image = text("products/old-name/front.jpg")
	require.NoError(t, repo.UpdateProduct(ctx, product))

	stored, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "New name", stored.Name)
	assert.Equal(t, "old-name", stored.Slug)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, "products/old-name/front.jpg", stored.ImagePath())
	assert.Equal(t, "Shoes", stored.Category.Name)
}

func TestProductConstraints(t *testing.T) {
	db := newTestDB(t)
	category := createCategory(t, NewCategoriesRepository(db), "Shoes", true)
	repo := NewProductsRepository(db)
	createProduct(t, repo, "Test", category, "1.00", 0)

	t.Run("Duplicate slug", func(t *testing.T) {
		err := repo.CreateProduct(ctx, &Product{Name: "Test 2", Slug: "test", CategoryID: category.ID, Price: decimal.NewFromInt(2)})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("Unknown category", func(t *testing.T) {
		err := repo.CreateProduct(ctx, &Product{Name: "Orphan", CategoryID: 999, Price: decimal.NewFromInt(2)})
		assert.ErrorIs(t, err, ErrForeignKey)
	})

	t.Run("Missing rows", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrProductNotFound)
		assert.ErrorIs(t, repo.DeleteProduct(ctx, 999), ErrProductNotFound)
		assert.ErrorIs(t, repo.UpdateProduct(ctx, &Product{ID: 999, Name: "x", CategoryID: category.ID}), ErrProductNotFound)
	})
}

func TestGetFilteredProducts(t *testing.T) {
	db := newTestDB(t)
	categories := NewCategoriesRepository(db)
	clothing := createCategory(t, categories, "Clothing", true)
	shoes := createCategory(t, categories, "Shoes", false)

	repo := NewProductsRepository(db)
	createProduct(t, repo, "Linen shirt", clothing, "19.99", 5)
	createProduct(t, repo, "Wool coat", clothing, "240.00", 1)
	createProduct(t, repo, "Running shoe", shoes, "95.50", 12)
	boot := &Product{Name: "Old boot", CategoryID: shoes.ID, Price: decimal.RequireFromString("10.00"), Description: text("Leather, hand STITCHED")}
	require.NoError(t, repo.CreateProduct(ctx, boot))

	names := func(products []Product) []string {
		out := make([]string, len(products))
		for i, p := range products {
			out[i] = p.Name
		}
		return out
	}

	testCases := []struct {
		name          string
		filters       ProductFilters
		expectedNames []string
	}{
		{name: "Default order is by name", filters: ProductFilters{}, expectedNames: []string{"Linen shirt", "Old boot", "Running shoe", "Wool coat"}},
		{name: "Unknown sort falls back to name", filters: ProductFilters{Sort: "popularity"}, expectedNames: []string{"Linen shirt", "Old boot", "Running shoe", "Wool coat"}},
		{name: "Price ascending", filters: ProductFilters{Sort: SortByPrice}, expectedNames: []string{"Old boot", "Linen shirt", "Running shoe", "Wool coat"}},
		{name: "Price descending", filters: ProductFilters{Sort: SortByPriceDesc}, expectedNames: []string{"Wool coat", "Running shoe", "Linen shirt", "Old boot"}},
		{name: "Stock", filters: ProductFilters{Sort: SortByStock}, expectedNames: []string{"Old boot", "Wool coat", "Linen shirt", "Running shoe"}},
		{name: "Category filter honors inactive categories", filters: ProductFilters{CategoryID: &shoes.ID}, expectedNames: []string{"Old boot", "Running shoe"}},
		{name: "Search in description", filters: ProductFilters{Query: "stitched"}, expectedNames: []string{"Old boot"}},
		{name: "Search combined with category", filters: ProductFilters{Query: "o", CategoryID: &clothing.ID}, expectedNames: []string{"Wool coat"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			products, total, err := repo.GetFilteredProducts(ctx, 0, 20, tc.filters)

			require.NoError(t, err)
			assert.Equal(t, int64(len(tc.expectedNames)), total)
			assert.Equal(t, tc.expectedNames, names(products))
			for _, p := range products {
				assert.NotEmpty(t, p.Category.Name, "category is preloaded")
			}
		})
	}

	t.Run("Newest first", func(t *testing.T) {
		require.NoError(t, db.Model(&Product{}).Where("id = ?", boot.ID).
			Update("created_at", boot.CreatedAt.AddDate(1, 0, 0)).Error)

		products, _, err := repo.GetFilteredProducts(ctx, 0, 1, ProductFilters{Sort: SortByNewest})
		require.NoError(t, err)
		assert.Equal(t, []string{"Old boot"}, names(products))
	})

	t.Run("Slug lookups", func(t *testing.T) {
		exists, err := repo.SlugExists(ctx, "old-boot")
		require.NoError(t, err)
		assert.True(t, exists)

		taken, err := repo.SlugTaken(ctx, "old-boot", boot.ID)
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

// --- Tests: error translation ---

func TestTranslateError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "gorm duplicate", err: gorm.ErrDuplicatedKey, expected: ErrDuplicateKey},
		{name: "gorm foreign key", err: gorm.ErrForeignKeyViolated, expected: ErrForeignKey},
		{name: "postgres unique violation", err: &pq.Error{Code: "23505"}, expected: ErrDuplicateKey},
		{name: "postgres foreign key violation", err: fmt.Errorf("exec: %w", &pq.Error{Code: "23503"}), expected: ErrForeignKey},
		{name: "sqlite unique message", err: errors.New("UNIQUE constraint failed: categories.slug"), expected: ErrDuplicateKey},
		{name: "sqlite foreign key message", err: errors.New("FOREIGN KEY constraint failed"), expected: ErrForeignKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := translateError(tc.err)
			assert.ErrorIs(t, err, tc.expected)
			assert.Contains(t, err.Error(), tc.err.Error(), "the driver error is kept in the message")
		})
	}

	assert.NoError(t, translateError(nil))
	other := errors.New("connection refused")
	assert.Same(t, other, translateError(other))
}
