package api

import (
	"net/http"

	"github.com/shehryarbajwa/deckard-mini/internal/console"
	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// CatalogHandler serves what the console can display
type CatalogHandler struct {
	tabs *console.Manager
}

// NewCatalogHandler creates a new catalog HTTP handler
func NewCatalogHandler(tabs *console.Manager) *CatalogHandler {
	return &CatalogHandler{
		tabs: tabs,
	}
}

type catalogResponse struct {
	Modules []moduleResponse     `json:"modules"`
	Locales []models.LocaleEntry `json:"locales"`
}

type moduleResponse struct {
	Name    string   `json:"name"`
	Screens []string `json:"screens"`
}

// GetCatalog handles GET /v1/catalog
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	cat := h.tabs.Catalog()

	resp := catalogResponse{
		Modules: make([]moduleResponse, 0, len(cat.Modules)),
		Locales: cat.BaseLocales(),
	}
	for _, m := range cat.Modules {
		resp.Modules = append(resp.Modules, moduleResponse{Name: m.Name, Screens: m.Screens})
	}

	writeJSON(w, http.StatusOK, resp)
}
