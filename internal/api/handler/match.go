package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/eligo-vote/facematch/internal/domain"
)

// MatchService interface for the service
type MatchService interface {
	Verify(ctx context.Context, identityID int64, query domain.Embedding, threshold *float64) (*domain.MatchResult, error)
	Identify(ctx context.Context, query domain.Embedding, threshold *float64) (*domain.MatchResult, error)
	Enroll(ctx context.Context, identityID int64, set domain.EmbeddingSet) error
}

// MatchHandler handles enrollment and matching requests
type MatchHandler struct {
	service MatchService
	logger  *slog.Logger
}

func NewMatchHandler(service MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		service: service,
		logger:  logger,
	}
}

// MatchRequest carries a query embedding and an optional per-request
// threshold override.
type MatchRequest struct {
	Embedding domain.Embedding `json:"embedding"`
	Threshold *float64         `json:"threshold,omitempty"`
}

// EnrollRequest carries a new enrollment set. The embeddings field accepts
// both the legacy single-vector shape and a list of vectors.
type EnrollRequest struct {
	Embeddings domain.EmbeddingSet `json:"embeddings"`
}

// EnrollResponse response for enroll endpoint
type EnrollResponse struct {
	IdentityID int64 `json:"identity_id"`
	Samples    int   `json:"samples"`
}

// Enroll POST /v1/identities/:id/embeddings - replace an identity's enrollment set
func (h *MatchHandler) Enroll(c *fiber.Ctx) error {
	identityID, err := parseIdentityID(c)
	if err != nil {
		return err
	}

	var req EnrollRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}
	if len(req.Embeddings) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("embeddings is required"))
	}

	if err := h.service.Enroll(c.Context(), identityID, req.Embeddings); err != nil {
		return err
	}

	h.logger.Info("enrollment replaced",
		slog.Int64("identity_id", identityID),
		slog.Int("samples", len(req.Embeddings)),
	)

	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{
		IdentityID: identityID,
		Samples:    len(req.Embeddings),
	})
}

// Verify POST /v1/identities/:id/verify - 1:1 verification
func (h *MatchHandler) Verify(c *fiber.Ctx) error {
	identityID, err := parseIdentityID(c)
	if err != nil {
		return err
	}

	req, err := parseMatchRequest(c)
	if err != nil {
		return err
	}

	result, err := h.service.Verify(c.Context(), identityID, req.Embedding, req.Threshold)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Identify POST /v1/identify - 1:N identification
func (h *MatchHandler) Identify(c *fiber.Ctx) error {
	req, err := parseMatchRequest(c)
	if err != nil {
		return err
	}

	result, err := h.service.Identify(c.Context(), req.Embedding, req.Threshold)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

func parseIdentityID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, domain.ErrValidationFailed.WithError(errors.New("identity id must be numeric"))
	}
	return id, nil
}

func parseMatchRequest(c *fiber.Ctx) (*MatchRequest, error) {
	var req MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}
	if len(req.Embedding) == 0 {
		return nil, domain.ErrValidationFailed.WithError(errors.New("embedding is required"))
	}
	return &req, nil
}
