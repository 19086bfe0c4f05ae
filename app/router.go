package app

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mytheresa/catalog-admin/app/catalog"
	"github.com/mytheresa/catalog-admin/app/categories"
	"github.com/mytheresa/catalog-admin/app/web"
)

type RouterConfig struct {
	MediaRoot    string
	MediaURL     string
	MaxBodyBytes int64
}

// NewRouter registers the admin pages and wraps them in the request middleware.
func NewRouter(cfg RouterConfig, cat *categories.CategoryHandler, prod *catalog.ProductHandler, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /categories/{$}", cat.HandleList)
	mux.HandleFunc("GET /categories/new/{$}", cat.HandleNew)
	mux.HandleFunc("POST /categories/new/{$}", cat.HandleCreate)
	mux.HandleFunc("GET /categories/{id}/edit/{$}", cat.HandleEdit)
	mux.HandleFunc("POST /categories/{id}/edit/{$}", cat.HandleUpdate)
	mux.HandleFunc("GET /categories/{id}/delete/{$}", cat.HandleConfirmDelete)
	mux.HandleFunc("POST /categories/{id}/delete/{$}", cat.HandleDelete)
	mux.HandleFunc("GET /categories/check-slug/{$}", cat.HandleCheckSlug)

	mux.HandleFunc("GET /products/{$}", prod.HandleList)
	mux.HandleFunc("GET /products/new/{$}", prod.HandleNew)
	mux.HandleFunc("POST /products/new/{$}", prod.HandleCreate)
	mux.HandleFunc("GET /products/{id}/edit/{$}", prod.HandleEdit)
	mux.HandleFunc("POST /products/{id}/edit/{$}", prod.HandleUpdate)
	mux.HandleFunc("GET /products/{id}/delete/{$}", prod.HandleConfirmDelete)
	mux.HandleFunc("POST /products/{id}/delete/{$}", prod.HandleDelete)
	mux.HandleFunc("GET /products/check-slug/{$}", prod.HandleCheckSlug)

	mediaURL := cfg.MediaURL
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}
	mux.Handle("GET "+mediaURL, http.StripPrefix(mediaURL, http.FileServer(http.Dir(cfg.MediaRoot))))

	mux.Handle("GET /{$}", http.RedirectHandler("/products/", http.StatusFound))

	var handler http.Handler = mux
	handler = web.LimitBody(cfg.MaxBodyBytes)(handler)
	handler = web.RequestLogger(log)(handler)
	handler = web.Recoverer(log)(handler)
	return handler
}
