package catalog

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mytheresa/catalog-admin/app/forms"
	"github.com/mytheresa/catalog-admin/app/pagination"
	"github.com/mytheresa/catalog-admin/app/web"
	"github.com/mytheresa/catalog-admin/media"
	"github.com/mytheresa/catalog-admin/models"
)

const (
	listURL = "/products/"

	// maxMemory is the part of a multipart body kept in memory; the rest
	// spills to temporary files.
	maxMemory = 8 << 20
)

type SortOption struct {
	Value string
	Label string
}

var SortOptions = []SortOption{
	{Value: models.SortByName, Label: "Name"},
	{Value: models.SortByPrice, Label: "Price: low to high"},
	{Value: models.SortByPriceDesc, Label: "Price: high to low"},
	{Value: models.SortByNewest, Label: "Newest first"},
	{Value: models.SortByStock, Label: "Stock"},
}

type ListView struct {
	web.Layout
	Products    []models.Product
	Categories  []models.Category
	SortOptions []SortOption
	Query       string
	CategoryID  uint
	Sort        string
	Page        pagination.Page
	Params      url.Values
}

type FormView struct {
	web.Layout
	Form *forms.ProductForm
}

type DeleteView struct {
	web.Layout
	Product *models.Product
}

type ProductProvider interface {
	forms.ProductStore
	GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// CategoryLister supplies the categories offered in filters and forms.
type CategoryLister interface {
	GetActiveCategories(ctx context.Context) ([]models.Category, error)
}

type ProductHandler struct {
	repo       ProductProvider
	categories CategoryLister
	files      media.Store
	renderer   *web.Renderer
	log        *zap.Logger
}

func NewProductHandler(r ProductProvider, c CategoryLister, files media.Store, renderer *web.Renderer, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		repo:       r,
		categories: c,
		files:      files,
		renderer:   renderer,
		log:        log.Named("products"),
	}
}

func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filters := models.ProductFilters{
		Query: strings.TrimSpace(params.Get("q")),
		Sort:  models.NormalizeProductSort(params.Get("sort")),
	}

	// A category id that is not a number is ignored.
	var categoryID uint
	if cStr := params.Get("category"); cStr != "" {
		if c, err := strconv.ParseUint(cStr, 10, 0); err == nil {
			categoryID = uint(c)
			filters.CategoryID = &categoryID
		}
	}

	products, page, err := pagination.Fetch(pagination.ParsePage(params.Get("page")), pagination.DefaultPerPage,
		func(offset, limit int) ([]models.Product, int64, error) {
			return h.repo.GetFilteredProducts(r.Context(), offset, limit, filters)
		})
	if err != nil {
		h.serverError(w, "failed to fetch products", err)
		return
	}

	categories, err := h.categories.GetActiveCategories(r.Context())
	if err != nil {
		h.serverError(w, "failed to fetch categories", err)
		return
	}

	h.render(w, r, http.StatusOK, "product_list.html", &ListView{
		Layout:      web.Layout{Title: "Products"},
		Products:    products,
		Categories:  categories,
		SortOptions: SortOptions,
		Query:       filters.Query,
		CategoryID:  categoryID,
		Sort:        filters.Sort,
		Page:        page,
		Params:      params,
	})
}

func (h *ProductHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	form, err := h.newForm(r.Context(), nil)
	if err != nil {
		h.serverError(w, "failed to fetch categories", err)
		return
	}
	h.render(w, r, http.StatusOK, "product_form.html", &FormView{
		Layout: web.Layout{Title: "Add product"},
		Form:   form,
	})
}

func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form, err := h.newForm(r.Context(), nil)
	if err != nil {
		h.serverError(w, "failed to fetch categories", err)
		return
	}
	h.save(w, r, form, "Add product", "Product created successfully.")
}

func (h *ProductHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	form, err := h.newForm(r.Context(), product)
	if err != nil {
		h.serverError(w, "failed to fetch categories", err)
		return
	}
	h.render(w, r, http.StatusOK, "product_form.html", &FormView{
		Layout: web.Layout{Title: "Edit: " + product.Name},
		Form:   form,
	})
}

func (h *ProductHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	form, err := h.newForm(r.Context(), product)
	if err != nil {
		h.serverError(w, "failed to fetch categories", err)
		return
	}
	h.save(w, r, form, "Edit: "+product.Name, "Product updated successfully.")
}

// newForm builds a product form offering the active categories plus the
// product's current one.
func (h *ProductHandler) newForm(ctx context.Context, product *models.Product) (*forms.ProductForm, error) {
	active, err := h.categories.GetActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	var current *models.Category
	if product != nil {
		current = &product.Category
	}
	return forms.NewProductForm(product, forms.AllowedCategories(active, current)), nil
}

func (h *ProductHandler) save(w http.ResponseWriter, r *http.Request, form *forms.ProductForm, title, notice string) {
	image, err := parseProductForm(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			web.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		web.WriteError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	form.Bind(r.PostForm, image)

	_, err = form.Save(r.Context(), h.repo, h.files)
	var formErrs forms.Errors
	switch {
	case errors.As(err, &formErrs):
		h.render(w, r, http.StatusOK, "product_form.html", &FormView{
			Layout: web.Layout{Title: title, Messages: []web.Message{web.Error("Please fix the errors in the form.")}},
			Form:   form,
		})
	case err != nil:
		h.serverError(w, "failed to save product", err)
	default:
		web.SetFlash(w, web.Success(notice))
		http.Redirect(w, r, listURL, http.StatusSeeOther)
	}
}

// parseProductForm reads a multipart or urlencoded body and returns the
// uploaded image, if any.
func parseProductForm(r *http.Request) (*multipart.FileHeader, error) {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 || files[0].Filename == "" {
		return nil, nil
	}
	return files[0], nil
}

func (h *ProductHandler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "product_delete.html", &DeleteView{
		Layout:  web.Layout{Title: "Delete product"},
		Product: product,
	})
}

// HandleDelete removes a product and then, best effort, its stored image.
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteProduct(r.Context(), product.ID); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			web.WriteError(w, http.StatusNotFound, "product not found")
			return
		}
		h.serverError(w, "failed to delete product", err, zap.Uint("product_id", product.ID))
		return
	}

	if image := product.ImagePath(); image != "" {
		if err := h.files.Delete(r.Context(), image); err != nil {
			h.log.Warn("failed to delete product image",
				zap.Uint("product_id", product.ID),
				zap.String("image", image),
				zap.Error(err),
			)
		}
	}

	web.SetFlash(w, web.Success(fmt.Sprintf(`Product "%s" deleted.`, product.Name)))
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

func (h *ProductHandler) HandleCheckSlug(w http.ResponseWriter, r *http.Request) {
	exists, err := h.repo.SlugExists(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		h.serverError(w, "failed to check slug", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *ProductHandler) product(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 0)
	if err != nil {
		web.WriteError(w, http.StatusNotFound, "product not found")
		return nil, false
	}

	product, err := h.repo.GetByID(r.Context(), uint(id))
	if errors.Is(err, models.ErrProductNotFound) {
		web.WriteError(w, http.StatusNotFound, "product not found")
		return nil, false
	}
	if err != nil {
		h.serverError(w, "failed to fetch product", err, zap.Uint64("product_id", id))
		return nil, false
	}
	return product, true
}

func (h *ProductHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, view web.View) {
	view.Flash(web.PopFlash(w, r))
	if err := h.renderer.Render(w, status, page, view); err != nil {
		h.serverError(w, "failed to render page", err, zap.String("page", page))
	}
}

func (h *ProductHandler) serverError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.log.Error(msg, append(fields, zap.Error(err))...)
	web.WriteError(w, http.StatusInternalServerError, msg)
}
