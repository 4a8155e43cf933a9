package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	partnerapp "github.com/invoicely/backend/internal/application/partner"
	"github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/interfaces/http/dto"
)

// MockCustomerRepository is a mock implementation of partner.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter partner.CustomerFilter) ([]partner.Customer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter partner.CustomerFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) SaveWithLock(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// newCustomerTestRouter wires a CustomerHandler behind routes with an
// injected principal. A nil principal simulates an unauthenticated request.
func newCustomerTestRouter(repo partner.CustomerRepository, p *identity.Principal) *gin.Engine {
	handler := NewCustomerHandler(partnerapp.NewCustomerService(repo))

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if p != nil {
			setPrincipal(c, *p)
		}
		c.Next()
	})

	engine.POST("/customers", handler.Create)
	engine.GET("/customers", handler.List)
	engine.GET("/customers/:id", handler.GetByID)
	engine.PUT("/customers/:id", handler.Update)
	engine.DELETE("/customers/:id", handler.Delete)
	engine.POST("/customers/:id/users/:userId", handler.LinkUser)
	engine.DELETE("/customers/:id/users/:userId", handler.UnlinkUser)

	return engine
}

func TestCustomerHandlerCreate(t *testing.T) {
	t.Run("creates a customer", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		repo.On("ExistsByEmail", mock.Anything, "billing@acme.com").Return(false, nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)

		p := testPrincipal(identity.RoleUser)
		router := newCustomerTestRouter(repo, &p)

		body, _ := json.Marshal(partnerapp.CreateCustomerRequest{
			Name:  "Acme Corp",
			Email: "billing@acme.com",
		})
		req := httptest.NewRequest("POST", "/customers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		repo.AssertExpectations(t)
	})

	t.Run("rejects a duplicate email with 409", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		repo.On("ExistsByEmail", mock.Anything, "billing@acme.com").Return(true, nil)

		p := testPrincipal(identity.RoleAdmin)
		router := newCustomerTestRouter(repo, &p)

		body, _ := json.Marshal(partnerapp.CreateCustomerRequest{
			Name:  "Acme Corp",
			Email: "billing@acme.com",
		})
		req := httptest.NewRequest("POST", "/customers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
	})

	t.Run("rejects a customer principal with 403", func(t *testing.T) {
		repo := new(MockCustomerRepository)

		p := testPrincipal(identity.RoleCustomer)
		router := newCustomerTestRouter(repo, &p)

		body, _ := json.Marshal(partnerapp.CreateCustomerRequest{
			Name:  "Acme Corp",
			Email: "billing@acme.com",
		})
		req := httptest.NewRequest("POST", "/customers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("rejects an invalid body with 400", func(t *testing.T) {
		repo := new(MockCustomerRepository)

		p := testPrincipal(identity.RoleUser)
		router := newCustomerTestRouter(repo, &p)

		req := httptest.NewRequest("POST", "/customers", bytes.NewReader([]byte(`{"name":""}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an unauthenticated request with 401", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		router := newCustomerTestRouter(repo, nil)

		body, _ := json.Marshal(partnerapp.CreateCustomerRequest{
			Name:  "Acme Corp",
			Email: "billing@acme.com",
		})
		req := httptest.NewRequest("POST", "/customers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCustomerHandlerGetByID(t *testing.T) {
	t.Run("returns the customer", func(t *testing.T) {
		customer, err := partner.NewCustomer("Acme Corp", "", "billing@acme.com", "", "")
		require.NoError(t, err)

		repo := new(MockCustomerRepository)
		repo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)

		p := testPrincipal(identity.RoleAdmin)
		router := newCustomerTestRouter(repo, &p)

		req := httptest.NewRequest("GET", "/customers/"+customer.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

		p := testPrincipal(identity.RoleAdmin)
		router := newCustomerTestRouter(repo, &p)

		req := httptest.NewRequest("GET", "/customers/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 400 for a malformed ID", func(t *testing.T) {
		repo := new(MockCustomerRepository)

		p := testPrincipal(identity.RoleAdmin)
		router := newCustomerTestRouter(repo, &p)

		req := httptest.NewRequest("GET", "/customers/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCustomerHandlerList(t *testing.T) {
	customer, err := partner.NewCustomer("Acme Corp", "", "billing@acme.com", "", "")
	require.NoError(t, err)

	repo := new(MockCustomerRepository)
	repo.On("FindAll", mock.Anything, mock.Anything).Return([]partner.Customer{*customer}, nil)
	repo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	p := testPrincipal(identity.RoleAdmin)
	router := newCustomerTestRouter(repo, &p)

	req := httptest.NewRequest("GET", "/customers?skip=0&take=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestCustomerHandlerDelete(t *testing.T) {
	customer, err := partner.NewCustomer("Acme Corp", "", "billing@acme.com", "", "")
	require.NoError(t, err)

	repo := new(MockCustomerRepository)
	repo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	repo.On("Delete", mock.Anything, customer.ID).Return(nil)

	p := testPrincipal(identity.RoleAdmin)
	router := newCustomerTestRouter(repo, &p)

	req := httptest.NewRequest("DELETE", "/customers/"+customer.ID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
}

func TestCustomerHandlerLinkUser(t *testing.T) {
	customer, err := partner.NewCustomer("Acme Corp", "", "billing@acme.com", "", "")
	require.NoError(t, err)

	repo := new(MockCustomerRepository)
	repo.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)

	p := testPrincipal(identity.RoleAdmin)
	router := newCustomerTestRouter(repo, &p)

	userID := uuid.New()
	req := httptest.NewRequest("POST", "/customers/"+customer.ID.String()+"/users/"+userID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}
