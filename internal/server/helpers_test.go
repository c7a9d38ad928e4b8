package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clanhub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", models.NewNotFoundError("Clan", 1), http.StatusNotFound},
		{"permission", models.NewPermissionDeniedError("no"), http.StatusForbidden},
		{"invalid state", models.NewInvalidStateError(models.ReasonNotBanned, "no"), http.StatusConflict},
		{"conflict", models.NewConflictError(models.ReasonRequestPending, "no"), http.StatusConflict},
		{"validation", models.NewValidationError("no"), http.StatusBadRequest},
		{"self targeting", models.NewSelfTargetingError(models.ReasonSelfBan, "no"), http.StatusBadRequest},
		{"store", models.NewStoreUnavailableError(errors.New("down")), http.StatusServiceUnavailable},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHumanizeParam(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "user ID", humanizeParam("userId"))
	assert.Equal(t, "new owner ID", humanizeParam("newOwnerId"))
	assert.Equal(t, "slug", humanizeParam("slug"))
}

func TestParsePagination(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePagination(c, 50)
		return nil
	})

	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 50}},
		{"?limit=10&offset=20", Pagination{Limit: 10, Offset: 20}},
		{"?limit=1000", Pagination{Limit: maxPaginationLimit}},
		{"?limit=-1&offset=-5", Pagination{Limit: 50}},
	}
	for _, tt := range tests {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.query)
	}
}
