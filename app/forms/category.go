package forms

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/mytheresa/catalog-admin/models"
)

// CategoryStore is what the category form needs from persistence.
type CategoryStore interface {
	NameTaken(ctx context.Context, name string, excludeID uint) (bool, error)
	SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
}

type categoryData struct {
	Name string `form:"name" validate:"required,max=200"`
}

// CategoryForm creates or edits a category. Instance is nil when creating.
type CategoryForm struct {
	Instance    *models.Category
	Name        string
	Slug        string
	Description string
	IsActive    bool
	Fields      FieldTable
	Errors      Errors

	cleaned *models.Category
}

func NewCategoryForm(instance *models.Category) *CategoryForm {
	f := &CategoryForm{
		Instance: instance,
		IsActive: true,
		Fields:   CategoryFields,
		Errors:   Errors{},
	}
	if instance != nil {
		f.Name = instance.Name
		f.Slug = instance.Slug
		f.Description = instance.DescriptionText()
		f.IsActive = instance.IsActive
	}
	return f
}

// SlugLocked reports whether the instance already has a slug, which can no longer change.
func (f *CategoryForm) SlugLocked() bool {
	return f.Instance != nil && f.Instance.Slug != ""
}

// Bind copies submitted values into the form.
func (f *CategoryForm) Bind(values url.Values) {
	f.Name = values.Get("name")
	f.Description = values.Get("description")
	f.IsActive = checkbox(values.Get("is_active"))
	if !f.SlugLocked() {
		f.Slug = strings.TrimSpace(values.Get("slug"))
	}
}

func (f *CategoryForm) instanceID() uint {
	if f.Instance == nil {
		return 0
	}
	return f.Instance.ID
}

// Validate checks the bound values. It returns Errors when the input is
// invalid and any other error when a lookup fails.
func (f *CategoryForm) Validate(ctx context.Context, store CategoryStore) error {
	f.Errors = Errors{}
	f.cleaned = nil

	name := strings.TrimSpace(f.Name)
	validateStruct(categoryData{Name: name}, f.Errors)

	if !f.Errors.Has("name") {
		taken, err := store.NameTaken(ctx, name, f.instanceID())
		if err != nil {
			return err
		}
		if taken {
			f.Errors.Add("name", "Category with this name already exists.")
		}
	}

	slug := ""
	if f.SlugLocked() {
		slug = f.Instance.Slug
	} else if !f.Errors.Has("name") {
		var err error
		slug, err = f.newSlug(ctx, store, name)
		if err != nil {
			return err
		}
	}

	if err := f.Errors.orNil(); err != nil {
		return err
	}

	category := &models.Category{}
	if f.Instance != nil {
		*category = *f.Instance
	}
	category.Name = name
	category.Slug = slug
	category.Description = optionalText(f.Description)
	category.IsActive = f.IsActive
	f.cleaned = category
	return nil
}

// newSlug picks the explicit slug or derives one from name and checks that
// no other category uses it.
func (f *CategoryForm) newSlug(ctx context.Context, store CategoryStore, name string) (string, error) {
	slug := f.Slug
	if slug != "" {
		if !models.IsValidSlug(slug, models.CategorySlugMaxLength) {
			f.Errors.Add("slug", msgInvalidSlug)
			return "", nil
		}
	} else {
		slug = models.MakeSlug(name, models.CategorySlugMaxLength)
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
		f.Errors.Add("slug", "Category with this slug already exists.")
	}
	return slug, nil
}

// Save validates the form and creates or updates the category.
func (f *CategoryForm) Save(ctx context.Context, store CategoryStore) (*models.Category, error) {
	if err := f.Validate(ctx, store); err != nil {
		return nil, err
	}

	category := f.cleaned
	var err error
	if f.Instance == nil {
		err = store.CreateCategory(ctx, category)
	} else {
		err = store.UpdateCategory(ctx, category)
	}
	if errors.Is(err, models.ErrDuplicateKey) {
		// lost a race against a concurrent insert of the same name or slug
		f.Errors.Add(NonFieldErrors, "Category with this name or slug already exists.")
		return nil, f.Errors
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}
