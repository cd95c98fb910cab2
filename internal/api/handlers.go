package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardledger/soldscraper/internal/scraper"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// SoldPriceService is what the handlers need from the application service
type SoldPriceService interface {
	ScrapeCard(ctx context.Context, q scraper.CardQuery) (*scraper.ScrapeResult, error)
	ScrapeByID(ctx context.Context, uniqueID string) (*scraper.ScrapeResult, error)
}

// Handler serves the scraping routes
type Handler struct {
	svc SoldPriceService
}

// NewHandler creates a handler backed by svc
func NewHandler(svc SoldPriceService) *Handler {
	return &Handler{svc: svc}
}

// Health reports that the process is up
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ScrapeCard scrapes the card described by the JSON body. Numeric fields
// are accepted as well as strings.
func (h *Handler) ScrapeCard(c *gin.Context) {
	var q scraper.CardQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.svc.ScrapeCard(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// ScrapeCardByID scrapes a catalogue card looked up by its unique id
func (h *Handler) ScrapeCardByID(c *gin.Context) {
	result, err := h.svc.ScrapeByID(c.Request.Context(), c.Param("uniqueId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"status": "error", "message": errorMessage(err)})
}

func statusFor(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.TypeOf(err) == apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text, without type or source decoration
func errorMessage(err error) string {
	var se *apperrors.ScrapeError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
