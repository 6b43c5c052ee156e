package catalog

import (
	"context"
	"errors"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/media"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/domain/shared/valueobject"
	"github.com/b2bmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var (
	ErrUnknownCategory = shared.NewDomainError("INVALID_CATEGORY", "Category does not exist")
	ErrInvalidImage    = shared.NewDomainError("INVALID_IMAGE", "Images must be assets uploaded by your company")
	ErrInvalidCurrency = shared.NewDomainError("INVALID_CURRENCY", "Currency must be a three letter ISO code")
)

// ListingService manages the products and services of the actor's company
type ListingService struct {
	listings   catalog.ListingRepository
	categories catalog.CategoryRepository
	companies  company.Repository
	assets     media.Repository
	metrics    *telemetry.MarketMetrics
	logger     *zap.Logger
}

// NewListingService creates a new listing service
func NewListingService(
	listings catalog.ListingRepository,
	categories catalog.CategoryRepository,
	companies company.Repository,
	assets media.Repository,
	metrics *telemetry.MarketMetrics,
	logger *zap.Logger,
) *ListingService {
	return &ListingService{
		listings:   listings,
		categories: categories,
		companies:  companies,
		assets:     assets,
		metrics:    metrics,
		logger:     logger,
	}
}

// List returns the actor company's listings of kind
func (s *ListingService) List(ctx context.Context, actor *identity.User, kind catalog.Kind, filter OwnListingFilter) (shared.Paginated[ListingDTO], error) {
	page, err := s.listings.ListByCompany(ctx, actor.CompanyID, catalog.ListingFilter{
		Pagination: shared.NewPagination(filter.Page, filter.PageSize),
		Kind:       kind,
		Search:     filter.Search,
		Published:  filter.Published,
	})
	if err != nil {
		return shared.Paginated[ListingDTO]{}, err
	}
	return shared.Paginated[ListingDTO]{
		Items:      ToListingDTOs(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// own loads a listing of kind owned by the actor's company. Anything else
// is reported as not found.
func (s *ListingService) own(ctx context.Context, actor *identity.User, kind catalog.Kind, id string) (*catalog.Listing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Kind != kind || !l.IsOwnedBy(actor.CompanyID) {
		return nil, shared.ErrNotFound
	}
	return l, nil
}

// Get returns one listing of the actor's company
func (s *ListingService) Get(ctx context.Context, actor *identity.User, kind catalog.Kind, id string) (*ListingDTO, error) {
	l, err := s.own(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	dto := ToListingDTO(l)
	return &dto, nil
}

func (s *ListingService) requireActiveCompany(ctx context.Context, actor *identity.User) error {
	c, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return err
	}
	return c.EnsureCanTransact()
}

func parsePrice(amount, currency string) (valueobject.Money, error) {
	cur, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return valueobject.Money{}, ErrInvalidCurrency
	}
	price, err := valueobject.NewMoneyFromString(amount, cur)
	if err != nil {
		return valueobject.Money{}, catalog.ErrInvalidPrice
	}
	return price, nil
}

// Create adds a product or service
func (s *ListingService) Create(ctx context.Context, actor *identity.User, kind catalog.Kind, input ListingInput) (*ListingDTO, error) {
	if err := s.requireActiveCompany(ctx, actor); err != nil {
		return nil, err
	}
	price, err := parsePrice(input.Price, input.Currency)
	if err != nil {
		return nil, err
	}
	l, err := catalog.NewListing(kind, actor.CompanyID, input.Name, price)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, l, input); err != nil {
		return nil, err
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}

	s.metrics.RecordListingCreated(ctx, string(kind))
	s.logger.Info("Listing created",
		zap.String("listing_id", l.ID),
		zap.String("kind", string(kind)),
		zap.String("company_id", actor.CompanyID),
	)
	return s.Get(ctx, actor, kind, l.ID)
}

// Update replaces the fields of a listing
func (s *ListingService) Update(ctx context.Context, actor *identity.User, kind catalog.Kind, id string, input ListingInput) (*ListingDTO, error) {
	if err := s.requireActiveCompany(ctx, actor); err != nil {
		return nil, err
	}
	l, err := s.own(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	if err := l.Rename(input.Name); err != nil {
		return nil, err
	}
	price, err := parsePrice(input.Price, input.Currency)
	if err != nil {
		return nil, err
	}
	if err := l.SetPrice(price); err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, l, input); err != nil {
		return nil, err
	}
	if err := s.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	s.logger.Info("Listing updated", zap.String("listing_id", l.ID), zap.String("kind", string(kind)))
	return s.Get(ctx, actor, kind, l.ID)
}

// apply sets the optional fields shared by create and update
func (s *ListingService) apply(ctx context.Context, actor *identity.User, l *catalog.Listing, input ListingInput) error {
	if err := l.SetDescription(input.Description); err != nil {
		return err
	}
	if l.Kind == catalog.KindProduct {
		l.SetUnit(input.Unit)
	} else if input.PricingModel != "" {
		if err := l.SetPricingModel(catalog.PricingModel(input.PricingModel)); err != nil {
			return err
		}
	}

	category, err := s.categories.FindByID(ctx, input.CategoryID)
	if errors.Is(err, shared.ErrNotFound) {
		return ErrUnknownCategory
	}
	if err != nil {
		return err
	}
	if err := l.AssignCategory(category); err != nil {
		return err
	}

	for _, id := range input.ImageIDs {
		asset, err := s.assets.FindByID(ctx, id)
		if errors.Is(err, shared.ErrNotFound) {
			return ErrInvalidImage
		}
		if err != nil {
			return err
		}
		if asset.CompanyID != actor.CompanyID {
			return ErrInvalidImage
		}
	}
	if err := l.SetImages(input.ImageIDs); err != nil {
		return err
	}
	l.SetTags(input.Tags)

	if input.Published != nil {
		if *input.Published {
			l.Publish()
		} else {
			l.Unpublish()
		}
	}
	return nil
}

// Delete removes a listing
func (s *ListingService) Delete(ctx context.Context, actor *identity.User, kind catalog.Kind, id string) error {
	l, err := s.own(ctx, actor, kind, id)
	if err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, l.ID); err != nil {
		return err
	}
	s.logger.Info("Listing deleted", zap.String("listing_id", l.ID), zap.String("kind", string(kind)))
	return nil
}
