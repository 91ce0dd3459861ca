package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	transferapp "github.com/dukapos/backend/internal/application/transfer"
	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
)

// memTransferRepository is an in-memory TransferRepository for handler tests
type memTransferRepository struct {
	transfers map[uuid.UUID]*transfer.Transfer
}

func newMemTransferRepository() *memTransferRepository {
	return &memTransferRepository{transfers: make(map[uuid.UUID]*transfer.Transfer)}
}

func (m *memTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	if t, ok := m.transfers[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memTransferRepository) FindByNumber(ctx context.Context, transferNumber string) (*transfer.Transfer, error) {
	for _, t := range m.transfers {
		if t.TransferNumber == transferNumber {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memTransferRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*transfer.Transfer], error) {
	var result []*transfer.Transfer
	for _, t := range m.transfers {
		if t.FromBranchID == branchID || t.ToBranchID == branchID {
			result = append(result, t)
		}
	}
	page := shared.NewPaginated(result, int64(len(result)), filter.Page, filter.PageSize)
	return &page, nil
}

func (m *memTransferRepository) Save(ctx context.Context, t *transfer.Transfer) error {
	m.transfers[t.ID] = t
	return nil
}

func (m *memTransferRepository) SaveWithLock(ctx context.Context, t *transfer.Transfer) error {
	stored, ok := m.transfers[t.ID]
	if ok && stored.Version != t.Version-1 {
		return shared.ErrVersionConflict
	}
	m.transfers[t.ID] = t
	return nil
}

func (m *memTransferRepository) ExistsByNumber(ctx context.Context, transferNumber string) (bool, error) {
	for _, t := range m.transfers {
		if t.TransferNumber == transferNumber {
			return true, nil
		}
	}
	return false, nil
}

func newTransferTestRouter(t *testing.T, operator identity.Operator) (*gin.Engine, *memTransferRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transferRepo := newMemTransferRepository()
	stockRepo := newMemStockRepository()
	productRepo := newMemProductRepository()
	scope := transferapp.NewNoOpTransactionScope(transferRepo, stockRepo, productRepo, nil)
	service := transferapp.NewTransferService(scope, transferRepo, zap.NewNop())

	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(setOperator(operator))
	NewTransferHandler(service).RegisterRoutes(api)

	return engine, transferRepo
}

func seedTransfer(t *testing.T, repo *memTransferRepository, fromBranchID, toBranchID uuid.UUID) *transfer.Transfer {
	t.Helper()
	items := []transfer.RequestedItem{{ProductID: uuid.New(), Quantity: 5}}
	tr, err := transfer.NewTransfer(transfer.GenerateTransferNumber(time.Now()),
		fromBranchID, toBranchID, uuid.New(), items, "")
	require.NoError(t, err)
	tr.ClearDomainEvents()
	require.NoError(t, repo.Save(context.Background(), tr))
	return tr
}

func TestTransferHandler_List(t *testing.T) {
	cashier := identity.Operator{ID: uuid.New(), Role: identity.RoleCashier, HomeBranchID: uuid.New()}
	engine, repo := newTransferTestRouter(t, cashier)

	seedTransfer(t, repo, cashier.HomeBranchID, uuid.New())
	seedTransfer(t, repo, uuid.New(), uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers?branch_id="+cashier.HomeBranchID.String(), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w.Body)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestTransferHandler_ListMissingBranch(t *testing.T) {
	cashier := identity.Operator{ID: uuid.New(), Role: identity.RoleCashier, HomeBranchID: uuid.New()}
	engine, _ := newTransferTestRouter(t, cashier)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestTransferHandler_GetNotFound(t *testing.T) {
	cashier := identity.Operator{ID: uuid.New(), Role: identity.RoleCashier, HomeBranchID: uuid.New()}
	engine, _ := newTransferTestRouter(t, cashier)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}
