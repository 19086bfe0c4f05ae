package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mytheresa/catalog-admin/models"
)

// --- Fake Stores ---

type fakeCategoryStore struct {
	Categories []models.Category
	LookupErr  error
	CreateErr  error
	Created    *models.Category
	Updated    *models.Category
}

func (s *fakeCategoryStore) NameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	if s.LookupErr != nil {
		return false, s.LookupErr
	}
	for _, c := range s.Categories {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeCategoryStore) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	for _, c := range s.Categories {
		if c.ID != excludeID && c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeCategoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	s.Created = category
	if s.CreateErr != nil {
		return s.CreateErr
	}
	category.ID = uint(len(s.Categories) + 1)
	s.Categories = append(s.Categories, *category)
	return nil
}

func (s *fakeCategoryStore) UpdateCategory(ctx context.Context, category *models.Category) error {
	s.Updated = category
	return nil
}

type fakeProductStore struct {
	Products  []models.Product
	CreateErr error
	Created   *models.Product
	Updated   *models.Product
}

func (s *fakeProductStore) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	for _, p := range s.Products {
		if p.ID != excludeID && p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeProductStore) CreateProduct(ctx context.Context, product *models.Product) error {
	s.Created = product
	if s.CreateErr != nil {
		return s.CreateErr
	}
	product.ID = uint(len(s.Products) + 1)
	s.Products = append(s.Products, *product)
	return nil
}

func (s *fakeProductStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	s.Updated = product
	return nil
}

// --- Helpers ---

func newFileHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image"][0]
}

func fieldErrors(t *testing.T, err error) Errors {
	t.Helper()
	var errs Errors
	require.True(t, errors.As(err, &errs), "expected validation errors, got %v", err)
	return errs
}

var ctx = context.Background()
