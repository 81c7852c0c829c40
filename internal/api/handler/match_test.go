package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eligo-vote/facematch/internal/api/middleware"
	"github.com/eligo-vote/facematch/internal/domain"
)

// MockMatchService is a mock implementation of MatchService
type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) Verify(ctx context.Context, identityID int64, query domain.Embedding, threshold *float64) (*domain.MatchResult, error) {
	args := m.Called(ctx, identityID, query, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchResult), args.Error(1)
}

func (m *MockMatchService) Identify(ctx context.Context, query domain.Embedding, threshold *float64) (*domain.MatchResult, error) {
	args := m.Called(ctx, query, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MatchResult), args.Error(1)
}

func (m *MockMatchService) Enroll(ctx context.Context, identityID int64, set domain.EmbeddingSet) error {
	args := m.Called(ctx, identityID, set)
	return args.Error(0)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupApp(svc *MockMatchService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})

	h := NewMatchHandler(svc, testLogger())
	app.Post("/v1/identities/:id/embeddings", h.Enroll)
	app.Post("/v1/identities/:id/verify", h.Verify)
	app.Post("/v1/identify", h.Identify)

	return app
}

type testResponse struct {
	Code int
	Body []byte
}

func postJSON(t *testing.T, app *fiber.App, path string, body string) testResponse {
	t.Helper()

	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return testResponse{Code: resp.StatusCode, Body: data}
}

func TestMatchHandler_Verify(t *testing.T) {
	svc := new(MockMatchService)
	svc.On("Verify", mock.Anything, int64(42), domain.Embedding{1, 0, 0}, (*float64)(nil)).
		Return(&domain.MatchResult{Matched: true, Score: 0.97, BestIndex: 1}, nil)

	app := setupApp(svc)
	rec := postJSON(t, app, "/v1/identities/42/verify", `{"embedding": [1, 0, 0]}`)

	assert.Equal(t, fiber.StatusOK, rec.Code)

	var result domain.MatchResult
	require.NoError(t, json.Unmarshal(rec.Body, &result))
	assert.True(t, result.Matched)
	assert.InDelta(t, 0.97, result.Score, 1e-9)
	svc.AssertExpectations(t)
}

func TestMatchHandler_Verify_ThresholdOverride(t *testing.T) {
	svc := new(MockMatchService)
	svc.On("Verify", mock.Anything, int64(1), domain.Embedding{1, 0}, mock.MatchedBy(func(p *float64) bool {
		return p != nil && *p == 0.9
	})).Return(&domain.MatchResult{Matched: false, Score: 0.5, BestIndex: 0}, nil)

	app := setupApp(svc)
	rec := postJSON(t, app, "/v1/identities/1/verify", `{"embedding": [1, 0], "threshold": 0.9}`)

	assert.Equal(t, fiber.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestMatchHandler_Verify_Validation(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{
			name:     "non-numeric identity id",
			path:     "/v1/identities/abc/verify",
			body:     `{"embedding": [1, 0]}`,
			wantCode: fiber.StatusUnprocessableEntity,
		},
		{
			name:     "missing embedding",
			path:     "/v1/identities/1/verify",
			body:     `{}`,
			wantCode: fiber.StatusUnprocessableEntity,
		},
		{
			name:     "malformed body",
			path:     "/v1/identities/1/verify",
			body:     `{not json`,
			wantCode: fiber.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(new(MockMatchService))
			rec := postJSON(t, app, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestMatchHandler_Verify_ServiceError(t *testing.T) {
	svc := new(MockMatchService)
	svc.On("Verify", mock.Anything, int64(1), mock.Anything, (*float64)(nil)).
		Return(nil, domain.ErrDimensionMismatch)

	app := setupApp(svc)
	rec := postJSON(t, app, "/v1/identities/1/verify", `{"embedding": [1, 0]}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body, &body))
	assert.Equal(t, "DIMENSION_MISMATCH", body.Error.Code)
}

func TestMatchHandler_Identify(t *testing.T) {
	identityID := int64(3)
	svc := new(MockMatchService)
	svc.On("Identify", mock.Anything, domain.Embedding{0, 1}, (*float64)(nil)).
		Return(&domain.MatchResult{Matched: true, Score: 0.99, BestIndex: 0, IdentityID: &identityID}, nil)

	app := setupApp(svc)
	rec := postJSON(t, app, "/v1/identify", `{"embedding": [0, 1]}`)

	assert.Equal(t, fiber.StatusOK, rec.Code)

	var result domain.MatchResult
	require.NoError(t, json.Unmarshal(rec.Body, &result))
	require.NotNil(t, result.IdentityID)
	assert.Equal(t, int64(3), *result.IdentityID)
}

func TestMatchHandler_Enroll(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantSet  domain.EmbeddingSet
		wantCode int
	}{
		{
			name:     "list of vectors",
			body:     `{"embeddings": [[1, 0], [0, 1]]}`,
			wantSet:  domain.EmbeddingSet{{1, 0}, {0, 1}},
			wantCode: fiber.StatusCreated,
		},
		{
			name:     "legacy single vector shape",
			body:     `{"embeddings": [0.1, 0.2, 0.3]}`,
			wantSet:  domain.EmbeddingSet{{0.1, 0.2, 0.3}},
			wantCode: fiber.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMatchService)
			svc.On("Enroll", mock.Anything, int64(5), tt.wantSet).Return(nil)

			app := setupApp(svc)
			rec := postJSON(t, app, "/v1/identities/5/embeddings", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)

			var resp EnrollResponse
			require.NoError(t, json.Unmarshal(rec.Body, &resp))
			assert.Equal(t, int64(5), resp.IdentityID)
			assert.Equal(t, len(tt.wantSet), resp.Samples)
			svc.AssertExpectations(t)
		})
	}
}

func TestMatchHandler_Enroll_EmptySet(t *testing.T) {
	app := setupApp(new(MockMatchService))
	rec := postJSON(t, app, "/v1/identities/5/embeddings", `{"embeddings": []}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, rec.Code)
}
