package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/normalize"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/order/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	productdomain "github.com/smallbiznis/frontdesk/internal/product/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Clock     clock.Clock
	Cfg       config.Config
	Products  productdomain.Service
	Members   memberdomain.Service
	Processor paymentdomain.Processor `optional:"true"`
	PDF       pdf.Provider
	Email     email.Provider
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	clock     clock.Clock
	products  productdomain.Service
	members   memberdomain.Service
	processor paymentdomain.Processor
	pdf       pdf.Provider
	email     email.Provider
	metrics   *metrics.Metrics

	commerce config.CommerceConfig
	gymName  string
	baseURL  string
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		clock:     p.Clock,
		products:  p.Products,
		members:   p.Members,
		processor: p.Processor,
		pdf:       p.PDF,
		email:     p.Email,
		metrics:   p.Metrics,
		commerce:  p.Cfg.Commerce,
		gymName:   p.Cfg.Email.GymName,
		baseURL:   strings.TrimRight(p.Cfg.BaseURL, "/"),
	}
}

// line is a validated cart entry.
type line struct {
	product *productdomain.Product
	price   *productdomain.Price
	qty     int64
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreateResult, error) {
	if !s.commerce.Enabled {
		return nil, domain.ErrCommerceDisabled
	}
	if s.processor == nil || !s.processor.Configured() {
		return nil, domain.ErrProcessorNotConfigured
	}

	lines, err := s.resolveCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	customer, err := s.resolveCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:            s.genID.Generate(),
		MemberID:      customer.memberID,
		CustomerName:  memberdomain.StringPtr(customer.name),
		CustomerEmail: memberdomain.StringPtr(customer.email),
		CustomerPhone: memberdomain.StringPtr(customer.phone),
		OrderType:     orderType(lines),
		Status:        domain.StatusPending,
		Currency:      lines[0].price.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(req.Metadata) > 0 {
		meta := datatypes.JSONMap{}
		for k, v := range req.Metadata {
			meta[k] = v
		}
		order.Metadata = meta
	}

	items := make([]domain.OrderItem, 0, len(lines))
	recurring := false
	for _, l := range lines {
		total := l.price.AmountCents * l.qty
		order.SubtotalCents += total
		recurring = recurring || l.price.Recurring()
		items = append(items, domain.OrderItem{
			ID:              s.genID.Generate(),
			OrderID:         order.ID,
			ProductID:       l.product.ID,
			PriceID:         l.price.ID,
			PriceType:       l.price.PriceType,
			Description:     l.product.Name,
			Quantity:        l.qty,
			UnitAmountCents: l.price.AmountCents,
			TotalCents:      total,
			Recurring:       l.price.Recurring(),
		})
	}
	order.TotalCents = order.SubtotalCents

	var checkoutURL string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.insertWithNumber(ctx, tx, order); err != nil {
			return err
		}
		for i := range items {
			if err := s.repo.InsertItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}

		session, err := s.processor.CreateCheckoutSession(ctx, s.checkoutRequest(order, lines, recurring, req))
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}

		order.Status = domain.StatusAwaitingPayment
		order.CheckoutSessionID = memberdomain.StringPtr(session.ID)
		if !recurring {
			order.PaymentIntentID = memberdomain.StringPtr(session.PaymentIntentID)
		}
		order.PaymentLinkURL = memberdomain.StringPtr(session.URL)
		order.ExpiresAt = session.ExpiresAt
		if order.ExpiresAt == nil && s.commerce.SessionLifetime > 0 {
			exp := now.Add(s.commerce.SessionLifetime)
			order.ExpiresAt = &exp
		}
		order.UpdatedAt = s.clock.Now()
		checkoutURL = session.URL
		return s.repo.AttachCheckout(ctx, tx, order)
	})
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			s.log.Warn("checkout session failed, order rolled back",
				zap.String("order_number", order.OrderNumber),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.metrics.RecordOrderTransition(ctx, string(domain.StatusPending), string(domain.StatusAwaitingPayment))
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_cents", order.TotalCents),
	)
	return &domain.CreateResult{Order: *order, Items: items, CheckoutURL: checkoutURL}, nil
}

// insertWithNumber retries once when the random suffix collides.
func (s *Service) insertWithNumber(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		order.OrderNumber, err = newOrderNumber(order.CreatedAt)
		if err != nil {
			return err
		}
		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.repo.Insert(ctx, sp, order)
		})
		if err == nil || !db.IsDuplicateKeyErr(err) {
			return err
		}
	}
	return err
}

func (s *Service) checkoutRequest(order *domain.Order, lines []line, recurring bool, req domain.CreateRequest) paymentdomain.CheckoutRequest {
	mode := paymentdomain.ModePayment
	if recurring {
		mode = paymentdomain.ModeSubscription
	}
	out := paymentdomain.CheckoutRequest{
		Mode:              mode,
		CustomerEmail:     memberdomain.Deref(order.CustomerEmail),
		ClientReferenceID: order.OrderNumber,
		SuccessURL:        firstNonEmpty(req.SuccessURL, s.commerce.SuccessURL),
		CancelURL:         firstNonEmpty(req.CancelURL, s.commerce.CancelURL),
		Metadata: map[string]string{
			paymentdomain.MetaOrderID:     order.ID.String(),
			paymentdomain.MetaOrderNumber: order.OrderNumber,
			paymentdomain.MetaFlow:        paymentdomain.FlowCommerce,
		},
		IdempotencyKey: "order:" + order.ID.String(),
	}
	if s.commerce.SessionLifetime > 0 {
		exp := order.CreatedAt.Add(s.commerce.SessionLifetime)
		out.ExpiresAt = &exp
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, paymentdomain.CheckoutLine{
			PriceRef: memberdomain.Deref(l.price.ProcessorPriceID),
			Quantity: l.qty,
		})
	}
	return out
}

func (s *Service) resolveCart(ctx context.Context, items []domain.CartItem) ([]line, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	lines := make([]line, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > domain.MaxQuantity {
			return nil, domain.ErrInvalidQuantity
		}
		productID, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
		if err != nil {
			return nil, domain.ErrInvalidProduct
		}
		product, price, err := s.products.ResolvePrice(ctx, productID, item.PriceType)
		switch {
		case errors.Is(err, productdomain.ErrNotFound):
			return nil, domain.ErrUnknownProduct
		case errors.Is(err, productdomain.ErrPriceNotFound):
			return nil, domain.ErrUnknownPrice
		case errors.Is(err, productdomain.ErrPriceInactive):
			return nil, domain.ErrPriceInactive
		case err != nil:
			return nil, err
		}
		if memberdomain.Deref(price.ProcessorPriceID) == "" {
			return nil, domain.ErrMissingProcessorPrice
		}
		lines = append(lines, line{product: product, price: price, qty: item.Quantity})
	}

	for _, l := range lines[1:] {
		if l.price.Recurring() != lines[0].price.Recurring() {
			return nil, domain.ErrMixedRecurring
		}
		if l.price.Currency != lines[0].price.Currency {
			return nil, domain.ErrMixedCurrency
		}
	}
	return lines, nil
}

type customerInfo struct {
	memberID *snowflake.ID
	name     string
	email    string
	phone    string
}

func (s *Service) resolveCustomer(ctx context.Context, in domain.Customer) (customerInfo, error) {
	out := customerInfo{
		name:  normalize.Text(in.Name),
		email: normalize.EmailOrEmpty(in.Email),
		phone: normalize.PhoneOrEmpty(in.Phone),
	}
	raw := strings.TrimSpace(in.MemberID)
	if raw == "" {
		return out, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return customerInfo{}, domain.ErrInvalidMember
	}
	m, err := s.members.Get(ctx, id)
	if err != nil {
		if errors.Is(err, memberdomain.ErrNotFound) {
			return customerInfo{}, domain.ErrInvalidMember
		}
		return customerInfo{}, err
	}
	out.memberID = &m.ID
	out.name = firstNonEmpty(out.name, m.Name)
	out.email = firstNonEmpty(out.email, memberdomain.Deref(m.EmailLower))
	out.phone = firstNonEmpty(out.phone, memberdomain.Deref(m.PhoneE164))
	return out, nil
}

func orderType(lines []line) domain.OrderType {
	t := lines[0].product.ProductType
	for _, l := range lines[1:] {
		if l.product.ProductType != t {
			return domain.OrderTypeMixed
		}
	}
	return domain.OrderType(t)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Detail, error) {
	orderID, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, order)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Detail, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, domain.ErrNotFound
	}
	order, err := s.repo.FindByNumber(ctx, s.db, number)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, order)
}

func (s *Service) detail(ctx context.Context, order *domain.Order) (*domain.Detail, error) {
	if order == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.Items(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.Payments(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.OrderItem{}
	}
	if payments == nil {
		payments = []domain.OrderPayment{}
	}
	return &domain.Detail{Order: *order, Items: items, Payments: payments}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = domain.Status(strings.ToLower(status))
		if _, known := statusSet[filter.Status]; !known {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}
	if raw := strings.TrimSpace(req.MemberID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidMember
		}
		filter.MemberID = &id
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Trim(items, req.Pagination.Size(), func(o domain.Order) string {
		return o.ID.String()
	})
	if items == nil {
		items = []domain.Order{}
	}
	return domain.ListResponse{Orders: items, PageInfo: pageInfo}, nil
}

var statusSet = map[domain.Status]struct{}{
	domain.StatusDraft:           {},
	domain.StatusPending:         {},
	domain.StatusAwaitingPayment: {},
	domain.StatusPaid:            {},
	domain.StatusFailed:          {},
	domain.StatusExpired:         {},
	domain.StatusRefunded:        {},
}

func (s *Service) Receipt(ctx context.Context, id string) ([]byte, string, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	order := detail.Order
	if order.Status != domain.StatusPaid && order.Status != domain.StatusRefunded {
		return nil, "", domain.ErrNotPaid
	}

	data := pdf.ReceiptData{
		GymName:       s.gymName,
		OrderNumber:   order.OrderNumber,
		CustomerName:  memberdomain.Deref(order.CustomerName),
		CustomerEmail: memberdomain.Deref(order.CustomerEmail),
		Subtotal:      formatMoney(order.SubtotalCents, order.Currency),
		Total:         formatMoney(order.TotalCents, order.Currency),
	}
	if order.PaidAt != nil {
		data.DatePaid = order.PaidAt.UTC().Format("Jan 2, 2006")
	}
	for _, p := range detail.Payments {
		if p.Status == domain.PaymentSucceeded {
			data.PaymentReference = firstNonEmpty(memberdomain.Deref(p.ChargeID), memberdomain.Deref(p.PaymentIntentID))
		}
	}
	for _, it := range detail.Items {
		data.Items = append(data.Items, pdf.ReceiptItem{
			Description: it.Description,
			Qty:         int(it.Quantity),
			UnitPrice:   formatMoney(it.UnitAmountCents, order.Currency),
			Amount:      formatMoney(it.TotalCents, order.Currency),
		})
	}

	body, err := s.pdf.OrderReceipt(ctx, data)
	if err != nil {
		return nil, "", err
	}
	return body, "receipt-" + order.OrderNumber + ".pdf", nil
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
