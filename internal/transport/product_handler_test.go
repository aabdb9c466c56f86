package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"goldsmith-supplies/internal/domain"
	"goldsmith-supplies/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryProductRepo struct {
	products map[uuid.UUID]*domain.Product
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *memoryProductRepo) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *memoryProductRepo) Update(ctx context.Context, product *domain.Product) error {
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *memoryProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryProductRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	product.IsActive = active
	return product, nil
}

func (m *memoryProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *memoryProductRepo) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	result := []*domain.Product{}
	for _, id := range ids {
		if product, exists := m.products[id]; exists && product.IsActive {
			result = append(result, product)
		}
	}
	return result, nil
}

func (m *memoryProductRepo) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	result := []*domain.Product{}
	for _, product := range m.products {
		if !filter.IncludeInactive && !product.IsActive {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		result = append(result, product)
	}
	return result, len(result), nil
}

func newProductRouter(repo repository.ProductRepository) chi.Router {
	r := chi.NewRouter()
	handler := NewProductHandler(repo, zap.NewNop())
	handler.RegisterRoutes(r, passThrough, passThrough)
	return r
}

func seedCatalogProduct(repo *memoryProductRepo, active bool) *domain.Product {
	now := time.Now()
	product := &domain.Product{
		ID:           uuid.New(),
		Name:         "Crucible No. 4",
		Description:  "Graphite melting crucible",
		Image:        "/images/crucible.jpg",
		Category:     domain.CategoryGoldsmithTools,
		Price:        10.0,
		CountInStock: 5,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	repo.products[product.ID] = product
	return product
}

func TestProductHandlerListHidesInactive(t *testing.T) {
	repo := newMemoryProductRepo()
	active := seedCatalogProduct(repo, true)
	seedCatalogProduct(repo, false)

	router := newProductRouter(repo)

	req := httptest.NewRequest("GET", "/api/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, active.ID, resp.Products[0].ID)
	assert.Equal(t, 1, resp.Pagination.Total)
	assert.Equal(t, 12, resp.Pagination.Limit)
}

func TestProductHandlerListClampsPagination(t *testing.T) {
	repo := newMemoryProductRepo()
	router := newProductRouter(repo)

	req := httptest.NewRequest("GET", "/api/products?page=-3&limit=1000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 100, resp.Pagination.Limit)
}

func TestProductHandlerGet(t *testing.T) {
	repo := newMemoryProductRepo()
	active := seedCatalogProduct(repo, true)
	inactive := seedCatalogProduct(repo, false)
	router := newProductRouter(repo)

	t.Run("active product is returned", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/products/"+active.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("inactive product reads as not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/products/"+inactive.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/products/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProductHandlerCreate(t *testing.T) {
	repo := newMemoryProductRepo()
	router := newProductRouter(repo)

	body := map[string]interface{}{
		"name":           "Half-round file",
		"description":    "Cut 2 jeweller's file",
		"image":          "/images/file.jpg",
		"category":       "Goldsmith Tools",
		"subcategory":    "File",
		"price":          4.5,
		"count_in_stock": 12,
	}
	reqBody, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/admin/products", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.IsActive, "new products default to active")
	require.NotNil(t, created.Subcategory)
	assert.Equal(t, "File", *created.Subcategory)
	assert.Len(t, repo.products, 1)
}

func TestProductHandlerCreateRejectsBadCategory(t *testing.T) {
	repo := newMemoryProductRepo()
	router := newProductRouter(repo)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"unknown category", map[string]interface{}{
			"name": "X", "description": "Y", "image": "/x.jpg",
			"category": "Fireworks", "price": 1.0,
		}},
		{"subcategory from another category", map[string]interface{}{
			"name": "X", "description": "Y", "image": "/x.jpg",
			"category": "Gemstones", "subcategory": "Crucible", "price": 1.0,
		}},
		{"negative price", map[string]interface{}{
			"name": "X", "description": "Y", "image": "/x.jpg",
			"category": "Gemstones", "price": -2.0,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqBody, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/api/admin/products", bytes.NewReader(reqBody))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, repo.products)
		})
	}
}

func TestProductHandlerActivateDeactivate(t *testing.T) {
	repo := newMemoryProductRepo()
	product := seedCatalogProduct(repo, true)
	router := newProductRouter(repo)

	req := httptest.NewRequest("PATCH", "/api/admin/products/"+product.ID.String()+"/deactivate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, product.IsActive)

	req = httptest.NewRequest("PATCH", "/api/admin/products/"+product.ID.String()+"/activate", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, product.IsActive)
}

func TestProductHandlerDelete(t *testing.T) {
	repo := newMemoryProductRepo()
	product := seedCatalogProduct(repo, true)
	router := newProductRouter(repo)

	req := httptest.NewRequest("DELETE", "/api/admin/products/"+product.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, repo.products)

	// Deleting again is a 404.
	req = httptest.NewRequest("DELETE", "/api/admin/products/"+product.ID.String(), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
