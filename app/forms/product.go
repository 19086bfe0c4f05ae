package forms

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"github.com/mytheresa/catalog-admin/media"
	"github.com/mytheresa/catalog-admin/models"
)

// MaxImageSize is the largest accepted product image, in bytes.
const MaxImageSize = 5 << 20

// ProductStore is what the product form needs from persistence.
type ProductStore interface {
	SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
}

type productData struct {
	Name  string          `form:"name" validate:"required,min=2,max=255"`
	Price decimal.Decimal `form:"price" validate:"gt=0,lt=100000000"`
	Stock int             `form:"stock" validate:"gte=0"`
}

// AllowedCategories returns the categories a product may be assigned to:
// every active category plus the product's current one, which may have been
// deactivated since. The result keeps the order of active.
func AllowedCategories(active []models.Category, current *models.Category) []models.Category {
	allowed := make([]models.Category, 0, len(active)+1)
	allowed = append(allowed, active...)
	if current == nil || current.ID == 0 {
		return allowed
	}
	for _, c := range active {
		if c.ID == current.ID {
			return allowed
		}
	}
	return append(allowed, *current)
}

// ProductForm creates or edits a product. Instance is nil when creating.
type ProductForm struct {
	Instance    *models.Product
	Name        string
	Slug        string
	CategoryID  string
	Description string
	Price       string
	Stock       string
	IsActive    bool
	Image       *multipart.FileHeader
	ClearImage  bool
	Choices     []models.Category
	Fields      FieldTable
	Errors      Errors

	cleaned *models.Product
}

// NewProductForm prepares a form whose category field offers choices.
func NewProductForm(instance *models.Product, choices []models.Category) *ProductForm {
	f := &ProductForm{
		Instance: instance,
		Stock:    "0",
		IsActive: true,
		Choices:  choices,
		Fields:   ProductFields,
		Errors:   Errors{},
	}
	if instance != nil {
		f.Name = instance.Name
		f.Slug = instance.Slug
		f.CategoryID = strconv.FormatUint(uint64(instance.CategoryID), 10)
		f.Description = instance.DescriptionText()
		f.Price = instance.Price.StringFixed(2)
		f.Stock = strconv.Itoa(instance.Stock)
		f.IsActive = instance.IsActive
	}
	return f
}

func (f *ProductForm) SlugLocked() bool {
	return f.Instance != nil && f.Instance.Slug != ""
}

// IsSelected reports whether the category with id is the bound choice.
func (f *ProductForm) IsSelected(id uint) bool {
	return f.CategoryID == strconv.FormatUint(uint64(id), 10)
}

// CurrentImage returns the stored image key of the instance, if any.
func (f *ProductForm) CurrentImage() string {
	if f.Instance == nil {
		return ""
	}
	return f.Instance.ImagePath()
}

// Bind copies submitted values into the form. image is nil when no file was uploaded.
func (f *ProductForm) Bind(values url.Values, image *multipart.FileHeader) {
	f.Name = values.Get("name")
	f.CategoryID = strings.TrimSpace(values.Get("category"))
	f.Description = values.Get("description")
	f.Price = strings.TrimSpace(values.Get("price"))
	f.Stock = strings.TrimSpace(values.Get("stock"))
	f.IsActive = checkbox(values.Get("is_active"))
	f.ClearImage = checkbox(values.Get("image-clear"))
	f.Image = image
	if !f.SlugLocked() {
		f.Slug = strings.TrimSpace(values.Get("slug"))
	}
}

func (f *ProductForm) instanceID() uint {
	if f.Instance == nil {
		return 0
	}
	return f.Instance.ID
}

// Validate checks the bound values. It returns Errors when the input is
// invalid and any other error when a lookup fails.
func (f *ProductForm) Validate(ctx context.Context, store ProductStore) error {
	f.Errors = Errors{}
	f.cleaned = nil

	data := productData{Name: strings.TrimSpace(f.Name)}

	category := f.cleanCategory()

	if f.Price == "" {
		f.Errors.Add("price", msgRequired)
	} else if price, err := decimal.NewFromString(f.Price); err != nil {
		f.Errors.Add("price", "Enter a number.")
	} else if !price.Equal(price.Round(2)) {
		f.Errors.Add("price", "Ensure that there are no more than 2 decimal places.")
	} else {
		data.Price = price
	}

	if f.Stock == "" {
		f.Errors.Add("stock", msgRequired)
	} else if stock, err := strconv.Atoi(f.Stock); err != nil {
		f.Errors.Add("stock", "Enter a whole number.")
	} else {
		data.Stock = stock
	}

	validateStruct(data, f.Errors)

	if f.Image != nil {
		if msg := checkImage(f.Image); msg != "" {
			f.Errors.Add("image", msg)
		}
	}

	slug := ""
	if f.SlugLocked() {
		slug = f.Instance.Slug
	} else if !f.Errors.Has("name") {
		var err error
		slug, err = f.newSlug(ctx, store, data.Name)
		if err != nil {
			return err
		}
	}

	if err := f.Errors.orNil(); err != nil {
		return err
	}

	product := &models.Product{}
	if f.Instance != nil {
		*product = *f.Instance
	}
	product.Name = data.Name
	product.Slug = slug
	product.CategoryID = category.ID
	product.Category = *category
	product.Description = optionalText(f.Description)
	product.Price = data.Price
	product.Stock = data.Stock
	product.IsActive = f.IsActive
	if f.ClearImage && f.Image == nil {
		product.Image = nil
	}
	f.cleaned = product
	return nil
}

// cleanCategory resolves the bound category id against the allowed choices.
func (f *ProductForm) cleanCategory() *models.Category {
	if f.CategoryID == "" {
		f.Errors.Add("category", msgRequired)
		return nil
	}
	id, err := strconv.ParseUint(f.CategoryID, 10, 64)
	if err == nil {
		for i := range f.Choices {
			if uint64(f.Choices[i].ID) == id {
				return &f.Choices[i]
			}
		}
	}
	f.Errors.Add("category", msgInvalidChoice)
	return nil
}

func (f *ProductForm) newSlug(ctx context.Context, store ProductStore, name string) (string, error) {
	slug := f.Slug
	if slug != "" {
		if !models.IsValidSlug(slug, models.ProductSlugMaxLength) {
			f.Errors.Add("slug", msgInvalidSlug)
			return "", nil
		}
	} else {
		slug = models.MakeSlug(name, models.ProductSlugMaxLength)
		if slug == "" {
			f.Errors.Add("name", msgEmptySlug)
			return "", nil
		}
	}

	taken, err := store.SlugTaken(ctx, slug, f.instanceID())
	if err != nil {
		return "", err
	}
	if taken {
		f.Errors.Add("slug", "Product with this slug already exists.")
	}
	return slug, nil
}

// Save validates the form, stores an uploaded image under the product's
// slug and creates or updates the product.
func (f *ProductForm) Save(ctx context.Context, store ProductStore, files media.Store) (*models.Product, error) {
	if err := f.Validate(ctx, store); err != nil {
		return nil, err
	}
	product := f.cleaned

	stored := ""
	if f.Image != nil {
		key, err := saveImage(ctx, files, product.Slug, f.Image)
		if err != nil {
			return nil, err
		}
		stored = key
		product.Image = &stored
	}

	var err error
	if f.Instance == nil {
		err = store.CreateProduct(ctx, product)
	} else {
		err = store.UpdateProduct(ctx, product)
	}
	if err != nil {
		if stored != "" {
			_ = files.Delete(ctx, stored)
		}
		if errors.Is(err, models.ErrDuplicateKey) {
			f.Errors.Add(NonFieldErrors, "Product with this slug already exists.")
			return nil, f.Errors
		}
		return nil, err
	}
	return product, nil
}

// checkImage returns a validation message for an unacceptable upload.
// The declared content type is ignored; only the file's bytes decide.
func checkImage(fh *multipart.FileHeader) string {
	if fh.Size > MaxImageSize {
		return "Image size must not exceed 5 MB."
	}
	contentType, err := detectContentType(fh)
	if err != nil || !strings.HasPrefix(contentType, "image/") {
		return "File must be an image."
	}
	return ""
}

func detectContentType(fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	return mtype.String(), nil
}

func saveImage(ctx context.Context, files media.Store, slug string, fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	key := models.ProductImagePath(slug, media.ValidFilename(fh.Filename))
	stored, err := files.Save(ctx, key, file)
	if err != nil {
		return "", fmt.Errorf("store product image: %w", err)
	}
	return stored, nil
}
