package partner

import (
	"context"

	"github.com/dukapos/backend/internal/domain/partner"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DirectoryService answers read-only branch lookups. Every stock
// record, sale and transfer is scoped to a branch, so clients need the
// directory to resolve branch IDs to display names.
type DirectoryService struct {
	repo   partner.Repository
	logger *zap.Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(repo partner.Repository, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		repo:   repo,
		logger: logger,
	}
}

// ListBranches lists branches matching the filter
func (s *DirectoryService) ListBranches(ctx context.Context, filter BranchListFilter) (*shared.Paginated[BranchResponse], error) {
	repoFilter := shared.DefaultFilter()
	repoFilter.Search = filter.Search
	if filter.Page > 0 {
		repoFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		repoFilter.PageSize = filter.PageSize
	}
	if filter.Active != nil {
		repoFilter.Filters["active"] = *filter.Active
	}

	branches, err := s.repo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]BranchResponse, 0, len(branches.Items))
	for _, branch := range branches.Items {
		responses = append(responses, ToBranchResponse(branch))
	}

	page := shared.NewPaginated(responses, branches.Total, branches.Page, branches.PageSize)
	return &page, nil
}

// GetBranch returns a single branch by ID
func (s *DirectoryService) GetBranch(ctx context.Context, id uuid.UUID) (*BranchResponse, error) {
	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToBranchResponse(branch)
	return &response, nil
}
