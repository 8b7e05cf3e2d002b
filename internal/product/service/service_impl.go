package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/product/domain"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	currency string
}

func New(p Params) domain.Service {
	currency := strings.ToLower(strings.TrimSpace(p.Cfg.Commerce.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		currency: currency,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	productType := domain.ProductType(strings.ToLower(strings.TrimSpace(string(req.ProductType))))
	if productType == "" {
		productType = domain.ProductTypeRetail
	}
	if !productType.Valid() {
		return nil, domain.ErrInvalidProductType
	}

	now := s.clock.Now()
	product := &domain.Product{
		ID:               s.genID.Generate(),
		Code:             code,
		Slug:             slug.Make(code + " " + name),
		Name:             name,
		ProductType:      productType,
		DefaultPriceType: strings.TrimSpace(req.DefaultPriceType),
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if desc := strings.TrimSpace(ptrToString(req.Description)); desc != "" {
		product.Description = &desc
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if req.Metadata != nil {
		product.Metadata = datatypes.JSONMap(req.Metadata)
	}

	prices := make([]domain.Price, 0, len(req.Prices))
	for _, in := range req.Prices {
		price, err := s.buildPrice(product.ID, in)
		if err != nil {
			return nil, err
		}
		price.CreatedAt, price.UpdatedAt = now, now
		prices = append(prices, price)
	}
	if product.DefaultPriceType == "" && len(prices) > 0 {
		product.DefaultPriceType = prices[0].PriceType
	}
	if !hasPriceType(prices, product.DefaultPriceType) {
		return nil, domain.ErrDefaultPrice
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, product); err != nil {
			return err
		}
		for i := range prices {
			if err := s.repo.CreatePrice(ctx, tx, &prices[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}

	resp := s.toResponse(product, prices)
	return &resp, nil
}

func (s *Service) buildPrice(productID snowflake.ID, in domain.PriceInput) (domain.Price, error) {
	priceType := strings.TrimSpace(in.PriceType)
	if priceType == "" || in.AmountCents < 0 {
		return domain.Price{}, domain.ErrInvalidPrice
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}
	if len(currency) != 3 {
		return domain.Price{}, domain.ErrInvalidCurrency
	}

	price := domain.Price{
		ID:                     s.genID.Generate(),
		ProductID:              productID,
		PriceType:              priceType,
		AmountCents:            in.AmountCents,
		Currency:               currency,
		RecurringIntervalCount: 1,
		Active:                 true,
	}
	if interval := domain.Interval(strings.ToLower(strings.TrimSpace(string(in.RecurringInterval)))); interval != "" {
		if !interval.Valid() {
			return domain.Price{}, domain.ErrInvalidInterval
		}
		price.RecurringInterval = &interval
		if in.RecurringIntervalCount > 0 {
			price.RecurringIntervalCount = in.RecurringIntervalCount
		}
	}
	if ref := strings.TrimSpace(in.ProcessorPriceID); ref != "" {
		price.ProcessorPriceID = &ref
	}
	return price, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	items, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	prices, err := s.repo.ListPrices(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byProduct := map[snowflake.ID][]domain.Price{}
	for _, p := range prices {
		byProduct[p.ProductID] = append(byProduct[p.ProductID], p)
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, s.toResponse(&items[i], byProduct[items[i].ID]))
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	prices, err := s.repo.ListPrices(ctx, s.db, []snowflake.ID{item.ID})
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(item, prices)
	return &resp, nil
}

func (s *Service) ResolvePrice(ctx context.Context, productID snowflake.ID, priceType string) (*domain.Product, *domain.Price, error) {
	product, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil || !product.Active {
		return nil, nil, domain.ErrNotFound
	}

	priceType = strings.TrimSpace(priceType)
	if priceType == "" {
		priceType = product.DefaultPriceType
	}
	price, err := s.repo.FindPrice(ctx, s.db, product.ID, priceType)
	if err != nil {
		return nil, nil, err
	}
	if price == nil {
		return nil, nil, domain.ErrPriceNotFound
	}
	if !price.Active {
		return nil, nil, domain.ErrPriceInactive
	}
	return product, price, nil
}

func (s *Service) toResponse(p *domain.Product, prices []domain.Price) domain.Response {
	if prices == nil {
		prices = []domain.Price{}
	}
	resp := domain.Response{
		ID:               p.ID.String(),
		Code:             p.Code,
		Slug:             p.Slug,
		Name:             p.Name,
		Description:      p.Description,
		ProductType:      p.ProductType,
		DefaultPriceType: p.DefaultPriceType,
		Active:           p.Active,
		Prices:           prices,
	}
	if len(p.Metadata) > 0 {
		resp.Metadata = map[string]any(p.Metadata)
	}
	return resp
}

func hasPriceType(prices []domain.Price, priceType string) bool {
	for _, p := range prices {
		if p.PriceType == priceType && p.Active {
			return true
		}
	}
	return false
}

func ptrToString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
