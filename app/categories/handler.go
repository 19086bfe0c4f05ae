package categories

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mytheresa/catalog-admin/app/forms"
	"github.com/mytheresa/catalog-admin/app/pagination"
	"github.com/mytheresa/catalog-admin/app/web"
	"github.com/mytheresa/catalog-admin/models"
)

const listURL = "/categories/"

type ListView struct {
	web.Layout
	Categories []models.Category
	Query      string
	Page       pagination.Page
	Params     url.Values
}

type FormView struct {
	web.Layout
	Form *forms.CategoryForm
}

type DeleteView struct {
	web.Layout
	Category      *models.Category
	ProductsCount int64
}

type CategoryProvider interface {
	forms.CategoryStore
	GetFilteredCategories(ctx context.Context, offset, limit int, filters models.CategoryFilters) ([]models.Category, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	CountProducts(ctx context.Context, id uint) (int64, error)
	CanDelete(ctx context.Context, id uint) (bool, error)
	DeleteCategory(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type CategoryHandler struct {
	repo     CategoryProvider
	renderer *web.Renderer
	log      *zap.Logger
}

func NewCategoryHandler(r CategoryProvider, renderer *web.Renderer, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		repo:     r,
		renderer: renderer,
		log:      log.Named("categories"),
	}
}

func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filters := models.CategoryFilters{Query: strings.TrimSpace(params.Get("q"))}

	categories, page, err := pagination.Fetch(pagination.ParsePage(params.Get("page")), pagination.DefaultPerPage,
		func(offset, limit int) ([]models.Category, int64, error) {
			return h.repo.GetFilteredCategories(r.Context(), offset, limit, filters)
		})
	if err != nil {
		h.serverError(w, "failed to fetch categories", err)
		return
	}

	h.render(w, r, http.StatusOK, "category_list.html", &ListView{
		Layout:     web.Layout{Title: "Categories"},
		Categories: categories,
		Query:      filters.Query,
		Page:       page,
		Params:     params,
	})
}

func (h *CategoryHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "category_form.html", &FormView{
		Layout: web.Layout{Title: "Add category"},
		Form:   forms.NewCategoryForm(nil),
	})
}

func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form := forms.NewCategoryForm(nil)
	h.save(w, r, form, "Add category", "Category created successfully.")
}

func (h *CategoryHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "category_form.html", &FormView{
		Layout: web.Layout{Title: "Edit: " + category.Name},
		Form:   forms.NewCategoryForm(category),
	})
}

func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	form := forms.NewCategoryForm(category)
	h.save(w, r, form, "Edit: "+category.Name, "Category updated successfully.")
}

func (h *CategoryHandler) save(w http.ResponseWriter, r *http.Request, form *forms.CategoryForm, title, notice string) {
	if err := r.ParseForm(); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	form.Bind(r.PostForm)

	_, err := form.Save(r.Context(), h.repo)
	var formErrs forms.Errors
	switch {
	case errors.As(err, &formErrs):
		h.render(w, r, http.StatusOK, "category_form.html", &FormView{
			Layout: web.Layout{Title: title, Messages: []web.Message{web.Error("Please fix the errors in the form.")}},
			Form:   form,
		})
	case err != nil:
		h.serverError(w, "failed to save category", err)
	default:
		web.SetFlash(w, web.Success(notice))
		http.Redirect(w, r, listURL, http.StatusSeeOther)
	}
}

func (h *CategoryHandler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	count, err := h.repo.CountProducts(r.Context(), category.ID)
	if err != nil {
		h.serverError(w, "failed to count products", err, zap.Uint("category_id", category.ID))
		return
	}
	h.render(w, r, http.StatusOK, "category_delete.html", &DeleteView{
		Layout:        web.Layout{Title: "Delete category"},
		Category:      category,
		ProductsCount: count,
	})
}

// HandleDelete removes a category unless products still reference it.
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	category, ok := h.category(w, r)
	if !ok {
		return
	}
	canDelete, err := h.repo.CanDelete(r.Context(), category.ID)
	if err != nil {
		h.serverError(w, "failed to check category products", err, zap.Uint("category_id", category.ID))
		return
	}

	if !canDelete {
		count, err := h.repo.CountProducts(r.Context(), category.ID)
		if err != nil {
			h.serverError(w, "failed to count products", err, zap.Uint("category_id", category.ID))
			return
		}
		web.SetFlash(w, web.Error(fmt.Sprintf(`Cannot delete category "%s": it contains %d products.`, category.Name, count)))
		http.Redirect(w, r, listURL, http.StatusSeeOther)
		return
	}

	if err := h.repo.DeleteCategory(r.Context(), category.ID); err != nil {
		h.serverError(w, "failed to delete category", err, zap.Uint("category_id", category.ID))
		return
	}
	web.SetFlash(w, web.Success("Category deleted successfully."))
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}

func (h *CategoryHandler) HandleCheckSlug(w http.ResponseWriter, r *http.Request) {
	exists, err := h.repo.SlugExists(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		h.serverError(w, "failed to check slug", err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// category loads the category named by the id path value. It writes the
// error response itself and reports whether the handler may continue.
func (h *CategoryHandler) category(w http.ResponseWriter, r *http.Request) (*models.Category, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 0)
	if err != nil {
		web.WriteError(w, http.StatusNotFound, "category not found")
		return nil, false
	}

	category, err := h.repo.GetByID(r.Context(), uint(id))
	if errors.Is(err, models.ErrCategoryNotFound) {
		web.WriteError(w, http.StatusNotFound, "category not found")
		return nil, false
	}
	if err != nil {
		h.serverError(w, "failed to fetch category", err, zap.Uint64("category_id", id))
		return nil, false
	}
	return category, true
}

func (h *CategoryHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, view web.View) {
	view.Flash(web.PopFlash(w, r))
	if err := h.renderer.Render(w, status, page, view); err != nil {
		h.serverError(w, "failed to render page", err, zap.String("page", page))
	}
}

func (h *CategoryHandler) serverError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.log.Error(msg, append(fields, zap.Error(err))...)
	web.WriteError(w, http.StatusInternalServerError, msg)
}
