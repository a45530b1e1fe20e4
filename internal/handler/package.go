package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/analyze"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/metadata"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
)

// PackageHandler serves the per-package composite views: the badge
// artifact and metadata categories.
type PackageHandler struct {
	apps     *analyze.Apps
	search   *analyze.Search
	metadata *metadata.Client
	logger   *slog.Logger
}

// NewPackageHandler creates a PackageHandler. meta may be nil; the
// categories endpoint then answers 404.
func NewPackageHandler(apps *analyze.Apps, search *analyze.Search, meta *metadata.Client, logger *slog.Logger) *PackageHandler {
	return &PackageHandler{
		apps:     apps,
		search:   search,
		metadata: meta,
		logger:   logger.With("component", "handler.package"),
	}
}

// Badge computes the badge artifact for one package over an optional
// date window. The field names mirror the exported JSON files.
// GET /api/v1/packages/{packageID}/badge?start=&end=
func (h *PackageHandler) Badge(w http.ResponseWriter, r *http.Request) {
	packageID := chi.URLParam(r, "packageID")
	if packageID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "package id required")
		return
	}

	start, end, err := dateRangeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "start/end must be YYYY-MM-DD")
		return
	}

	var appDates, searchDates []string
	if start != "" || end != "" {
		all, err := h.apps.AvailableDates()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		appDates = filterDates(all, start, end)

		allSearch, err := h.search.AvailableDates()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		searchDates = filterDates(allSearch, start, end)
	}

	downloads, err := h.apps.PackageDownloads(packageID, appDates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	searchCount, err := h.search.QueryCountForPackage(packageID, searchDates)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.PackageSummary{
		PackageID:      packageID,
		TotalDownloads: downloads.TotalDownloads,
		APIHits:        downloads.APIHits,
		Versions:       len(downloads.Versions),
		SearchCount:    searchCount,
	})
}

// Categories returns the package's metadata categories with the primary
// one resolved, falling back to a name-pattern guess.
// GET /api/v1/packages/{packageID}/categories
func (h *PackageHandler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.metadata == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "metadata lookups not configured")
		return
	}

	packageID := chi.URLParam(r, "packageID")
	if packageID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "package id required")
		return
	}

	categories, err := h.metadata.Categories(r.Context(), packageID)
	if err != nil {
		h.logger.Error("metadata lookup failed", "package", packageID, "error", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM", "metadata lookup failed")
		return
	}
	primary, err := h.metadata.PrimaryCategory(r.Context(), packageID)
	if err != nil {
		primary = metadata.GuessCategory(packageID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"package_id": packageID,
		"categories": categories,
		"primary":    primary,
	})
}
