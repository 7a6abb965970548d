package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/linkcut/linkcut/internal/database"
	"github.com/linkcut/linkcut/internal/models"
	"github.com/linkcut/linkcut/internal/service"
	"github.com/linkcut/linkcut/pkg/response"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// urlRequest represents the request payload for shortening a URL.
type urlRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// urlResponse represents the response payload for a shortened URL operation.
type urlResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	URL         string    `json:"url"`
	AccessCount int64     `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// toURLResponse converts a URL model from the business layer into a response
// payload.
func toURLResponse(url *models.URL) urlResponse {
	return urlResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		URL:         url.OriginalURL,
		AccessCount: url.AccessCount,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
	}
}

// listResponse represents one page of shortened URLs.
type listResponse struct {
	URLs       []urlResponse `json:"urls"`
	Page       int64         `json:"page"`
	Limit      int64         `json:"limit"`
	TotalCount int64         `json:"total_count"`
	TotalPages int64         `json:"total_pages"`
}

// renderServiceError maps core errors onto the shared error envelope.
// Validation and not-found failures are the client's; everything else is
// logged and reported as a server-side failure.
func renderServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL), errors.Is(err, service.ErrInvalidPagination):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.BadRequestResponse)
	case errors.Is(err, database.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	case errors.Is(err, database.ErrStoreUnavailable):
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.ServiceUnavailableResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The request must contain a valid http(s) URL. Re-submitting an already
// shortened URL returns its existing record rather than minting a new code.
func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.URL)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url)))
	}
}

// handleResolveShortCode handles GET requests to resolve a short code into
// the original URL, counting the access.
func handleResolveShortCode(svc URLService) http.HandlerFunc {
	const op = "api.http.handleResolveShortCode"
	const successMsg = "The short code was successfully resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url)))
	}
}

// handleRedirect handles GET requests on the short path itself, redirecting
// the client to the original URL and counting the access.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		http.Redirect(w, r, url.OriginalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests to retrieve usage statistics for a
// shortened URL without affecting its access count.
func handleGetURLStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURLStats(r.Context(), shortCode)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url)))
	}
}

// parsePositiveQueryParam extracts a positive integer query parameter, falling back to
// def when absent. A present but malformed or non-positive value is an error.
func parsePositiveQueryParam(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("parameter %q must be a positive integer", name)
	}

	return v, nil
}

// handleListURLs handles GET requests to list shortened URLs, newest first,
// with offset pagination via the page and limit query parameters.
func handleListURLs(svc URLService) http.HandlerFunc {
	const op = "api.http.handleListURLs"
	const successMsg = "The URLs retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePositiveQueryParam(r, "page", defaultPage)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		limit, err := parsePositiveQueryParam(r, "limit", defaultLimit)
		if err != nil || limit > maxLimit {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		urlPage, err := svc.ListURLs(r.Context(), page, limit)
		if err != nil {
			renderServiceError(w, r, op, err)
			return
		}

		data := listResponse{
			URLs:       make([]urlResponse, 0, len(urlPage.URLs)),
			Page:       page,
			Limit:      limit,
			TotalCount: urlPage.TotalCount,
			TotalPages: (urlPage.TotalCount + limit - 1) / limit,
		}
		for _, url := range urlPage.URLs {
			data.URLs = append(data.URLs, toURLResponse(url))
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, data))
	}
}
