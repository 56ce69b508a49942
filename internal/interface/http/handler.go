package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
	"github.com/yanqian/faq-matcher/internal/infra/config"
	apperrors "github.com/yanqian/faq-matcher/pkg/errors"
	"github.com/yanqian/faq-matcher/pkg/util"
)

// Handler wires the HTTP transport to the FAQ service.
type Handler struct {
	faqSvc      faq.Service
	disclaimer  string
	unavailable string
	logger      *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(faqSvc faq.Service, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		faqSvc:      faqSvc,
		disclaimer:  cfg.FAQ.Disclaimer,
		unavailable: cfg.FAQ.UnavailableMessage,
		logger:      logger.With("component", "http.handler"),
	}
}

type askRequest struct {
	Query *string `json:"query"`
}

type askResponse struct {
	Response        string      `json:"response"`
	Disclaimer      string      `json:"disclaimer"`
	Confidence      float64     `json:"confidence"`
	MatchedQuestion *string     `json:"matched_question"`
	Outcome         faq.Outcome `json:"outcome"`
}

// Ask answers a user question from the curated FAQ corpus.
func (h *Handler) Ask(c *gin.Context) {
	if !h.faqSvc.Ready() {
		h.respondUnavailable(c)
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "No query provided", err))
		return
	}
	if req.Query == nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "No query provided", nil))
		return
	}
	if strings.TrimSpace(*req.Query) == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "Empty query provided", nil))
		return
	}

	resp, err := h.faqSvc.Ask(c.Request.Context(), faq.Request{Query: *req.Query})
	if err != nil {
		if apperrors.IsCode(err, faq.CodeServiceUnavailable) {
			h.respondUnavailable(c)
			return
		}
		abortWithError(c, fromAskError(err))
		return
	}

	c.JSON(http.StatusOK, askResponse{
		Response:        resp.Response,
		Disclaimer:      h.disclaimer,
		Confidence:      resp.Confidence,
		MatchedQuestion: resp.MatchedQuestion,
		Outcome:         resp.Outcome,
	})
}

// Health reports process liveness; it does not depend on the matcher.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": util.NowUTC()})
}

// Ready reports whether the matcher was built at startup.
func (h *Handler) Ready(c *gin.Context) {
	if !h.faqSvc.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "corpusSize": h.faqSvc.CorpusSize()})
}

func (h *Handler) respondUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"response":   h.unavailable,
		"disclaimer": h.disclaimer,
	})
}
