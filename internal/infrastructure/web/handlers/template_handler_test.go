package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/domain/entities"
	"finboard-service/internal/infrastructure/web/respond"
)

type fakeApplier struct {
	calls   int
	applied []entities.Widget
}

func (f *fakeApplier) ApplyLayout(_ context.Context, ws []entities.Widget) []entities.Widget {
	f.calls++
	f.applied = ws
	return ws
}

func TestTemplateHandler_List(t *testing.T) {
	store := newStore()
	addWidget(t, store, "Stocks")
	h := NewTemplateHandler(store, &fakeApplier{})

	rec := httptest.NewRecorder()
	h.List(rec, request(http.MethodGet, "/api/v1/layout/templates", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.TemplateListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Templates, 3)
	assert.Len(t, resp.Categories, 4)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "crypto-tracker", resp.Suggestions[0].ID)
}

func TestTemplateHandler_ListByCategory(t *testing.T) {
	h := NewTemplateHandler(newStore(), &fakeApplier{})

	rec := httptest.NewRecorder()
	h.List(rec, request(http.MethodGet, "/api/v1/layout/templates?category=Trading", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.TemplateListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Templates, 1)
	assert.Equal(t, "stock-trader", resp.Templates[0].ID)
	assert.Len(t, resp.Suggestions, 2)
}

func TestTemplateHandler_Apply(t *testing.T) {
	applier := &fakeApplier{}
	h := NewTemplateHandler(newStore(), applier)

	rec := httptest.NewRecorder()
	h.Apply(rec, request(http.MethodPost, "/api/v1/layout/templates/crypto-tracker", "",
		map[string]string{"id": "crypto-tracker"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, applier.calls)
	require.Len(t, applier.applied, 1)
	assert.Equal(t, entities.SourceCrypto, applier.applied[0].Config.DataSource)
	assert.Empty(t, applier.applied[0].ID)

	var resp dto.ApplyTemplateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "crypto-tracker", resp.Template)
	require.Len(t, resp.Widgets, 1)
	assert.Equal(t, "Top Cryptocurrencies", resp.Widgets[0].Title)
}

func TestTemplateHandler_ApplyUnknown(t *testing.T) {
	applier := &fakeApplier{}
	h := NewTemplateHandler(newStore(), applier)

	rec := httptest.NewRecorder()
	h.Apply(rec, request(http.MethodPost, "/api/v1/layout/templates/nope", "",
		map[string]string{"id": "nope"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, respond.CodeNotFound, errorCode(t, rec))
	assert.Zero(t, applier.calls)
}
