package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	auditrepo "github.com/smallbiznis/frontdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/frontdesk/internal/audit/service"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	checkindomain "github.com/smallbiznis/frontdesk/internal/checkin/domain"
	checkinrepo "github.com/smallbiznis/frontdesk/internal/checkin/repository"
	checkinservice "github.com/smallbiznis/frontdesk/internal/checkin/service"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	memberrepo "github.com/smallbiznis/frontdesk/internal/member/repository"
	memberservice "github.com/smallbiznis/frontdesk/internal/member/service"
	"github.com/smallbiznis/frontdesk/internal/observability"
	orderdomain "github.com/smallbiznis/frontdesk/internal/order/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	productdomain "github.com/smallbiznis/frontdesk/internal/product/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	rosterservice "github.com/smallbiznis/frontdesk/internal/roster/service"
	signupdomain "github.com/smallbiznis/frontdesk/internal/signup/domain"
	staffdomain "github.com/smallbiznis/frontdesk/internal/staff/domain"
	staffrepo "github.com/smallbiznis/frontdesk/internal/staff/repository"
	staffservice "github.com/smallbiznis/frontdesk/internal/staff/service"
	"github.com/smallbiznis/frontdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProducts struct {
	productdomain.Service
	created productdomain.CreateRequest
}

func (f *fakeProducts) Create(_ context.Context, req productdomain.CreateRequest) (*productdomain.Response, error) {
	f.created = req
	if req.Code == "" {
		return nil, productdomain.ErrInvalidCode
	}
	return &productdomain.Response{ID: "1", Code: req.Code, Name: req.Name}, nil
}

func (f *fakeProducts) List(context.Context, productdomain.ListRequest) ([]productdomain.Response, error) {
	return nil, nil
}

type fakeOrders struct {
	orderdomain.Service
	createErr error
}

func (f *fakeOrders) Create(_ context.Context, req orderdomain.CreateRequest) (*orderdomain.CreateResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &orderdomain.CreateResult{CheckoutURL: "https://checkout.test/cs_1"}, nil
}

func (f *fakeOrders) Get(_ context.Context, id string) (*orderdomain.Detail, error) {
	if id == "404" {
		return nil, orderdomain.ErrNotFound
	}
	return &orderdomain.Detail{}, nil
}

func (f *fakeOrders) GetByNumber(_ context.Context, number string) (*orderdomain.Detail, error) {
	return &orderdomain.Detail{Order: orderdomain.Order{OrderNumber: number}}, nil
}

func (f *fakeOrders) Receipt(_ context.Context, id string) ([]byte, string, error) {
	if id == "unpaid" {
		return nil, "", orderdomain.ErrNotPaid
	}
	return []byte("%PDF-1.4"), "receipt-ORD-1.pdf", nil
}

type fakeSignup struct {
	signupdomain.Service
	err error
}

func (f *fakeSignup) StartCheckout(context.Context, signupdomain.Request) (*signupdomain.Checkout, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &signupdomain.Checkout{SessionID: "cs_1", URL: "https://checkout.test/cs_1"}, nil
}

type fakeWebhooks struct {
	err error
}

func (f *fakeWebhooks) Ingest(context.Context, []byte, http.Header) (paymentdomain.IngestResult, error) {
	if f.err != nil {
		return paymentdomain.IngestResult{}, f.err
	}
	return paymentdomain.IngestResult{EventID: "evt_1", Type: "checkout.session.completed", Handler: "commerce"}, nil
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Record(ctx context.Context, entry auditdomain.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAudit) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(auditdomain.ListResponse), args.Error(1)
}

type harness struct {
	engine   *gin.Engine
	members  memberdomain.Service
	staff    staffdomain.Service
	orders   *fakeOrders
	signup   *fakeSignup
	webhooks *fakeWebhooks
	products *fakeProducts
	adminPIN string
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	return newHarnessWithAudit(t, cfg, nil)
}

func newHarnessWithAudit(t *testing.T, cfg config.Config, audit auditdomain.Service) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t,
		&memberdomain.Member{},
		&checkindomain.CheckIn{},
		&checkindomain.Location{},
		&staffdomain.Staff{},
		&auditdomain.AuditLog{},
	)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg.Checkin.LocationID = 1
	cfg.BaseURL = "http://frontdesk.test"

	members := memberservice.New(memberservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  memberrepo.Provide(),
		Clock: clk,
		Cfg:   cfg,
		Email: email.NewLogProvider(log),
	})
	checkins := checkinservice.New(checkinservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Repo:    checkinrepo.Provide(),
		Members: members,
		Clock:   clk,
		Cfg:     cfg,
		Settings: config.NewStaticCheckinSettings(config.CheckinSettings{
			DupWindowMinutes: 5,
			DefaultDeviceID:  "kiosk-1",
		}),
	})
	staff := staffservice.New(staffservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  staffrepo.Provide(),
		Clock: clk,
	})
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	if audit == nil {
		audit = auditservice.New(auditservice.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Repo:  auditrepo.Provide(),
			Clock: clk,
		})
	}

	h := &harness{
		engine:   NewEngine(observability.Config{}, nil),
		members:  members,
		staff:    staff,
		orders:   &fakeOrders{},
		signup:   &fakeSignup{},
		webhooks: &fakeWebhooks{},
		products: &fakeProducts{},
		adminPIN: "2468",
	}
	_, err = staff.CreateOrRotate(context.Background(), "Owner", h.adminPIN, staffdomain.RoleAdmin)
	require.NoError(t, err)

	NewServer(ServerParams{
		Gin:        h.engine,
		Cfg:        cfg,
		Log:        log,
		MemberSvc:  members,
		CheckinSvc: checkins,
		RosterSvc:  rosterservice.New(rosterservice.Params{DB: db, Log: log, Members: members}),
		ProductSvc: h.products,
		OrderSvc:   h.orders,
		SignupSvc:  h.signup,
		StaffSvc:   staff,
		AuthzSvc:   authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		AuditSvc:   audit,
		WebhookSvc: h.webhooks,
	})
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func (h *harness) admin(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set(HeaderStaffPIN, h.adminPIN)
	return h.do(req)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func csvUpload(t *testing.T, target, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	h := newHarness(t, config.Config{})
	rec := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckInOutcomes(t *testing.T) {
	h := newHarness(t, config.Config{})
	id, err := h.members.ResolveOrCreate(context.Background(), memberdomain.Identity{Name: "Jane Doe", Email: "jane@x.com"})
	require.NoError(t, err)

	rec := h.do(jsonRequest(t, http.MethodPost, "/api/checkin", map[string]any{"member_id": json.Number(id.String())}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Jane Doe", body["member_name"])
	assert.NotContains(t, body, "message")

	form := url.Values{"email": {"JANE@x.com"}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, checkindomain.MessageSuppressed, body["message"])

	rec = h.do(jsonRequest(t, http.MethodPost, "/api/checkin", map[string]any{"email": "nobody@x.com"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, checkindomain.MessageNotFound, body["error"])
}

func TestKioskSuggest(t *testing.T) {
	h := newHarness(t, config.Config{})
	_, err := h.members.ResolveOrCreate(context.Background(), memberdomain.Identity{Name: "Janet Smith", Email: "janet@x.com"})
	require.NoError(t, err)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/kiosk/suggest?q=j", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/kiosk/suggest?q=jan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Janet Smith", got[0]["name"])
	assert.NotContains(t, got[0], "email")
}

func TestResendQR(t *testing.T) {
	h := newHarness(t, config.Config{})
	_, err := h.members.ResolveOrCreate(context.Background(), memberdomain.Identity{Name: "Jane Doe", Email: "jane@x.com"})
	require.NoError(t, err)

	rec := h.do(jsonRequest(t, http.MethodPost, "/api/qr/resend", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email or phone required", decode(t, rec)["error"])

	rec = h.do(jsonRequest(t, http.MethodPost, "/api/qr/resend", map[string]any{"email": "ghost@x.com"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(jsonRequest(t, http.MethodPost, "/api/qr/resend", map[string]any{"email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "ok")
}

func TestMemberQRCode(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/member/qr.png", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/member/qr.png?token=abc123", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestMemberQRLinkResolves(t *testing.T) {
	h := newHarness(t, config.Config{Email: config.EmailConfig{GymName: "Atlas Gym"}})

	rec := h.admin(jsonRequest(t, http.MethodPost, "/api/members", map[string]any{"name": "Jane Doe", "email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	link, err := url.Parse(data["qr_url"].(string))
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	rec = h.do(httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Atlas Gym")
	assert.Contains(t, rec.Body.String(), "/member/qr.png?token=")

	rec = h.do(httptest.NewRequest(http.MethodGet, "/member/qr.png?token="+url.QueryEscape(token), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = h.do(httptest.NewRequest(http.MethodGet, "/member/qr", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResendQRWithoutEmailOnFile(t *testing.T) {
	h := newHarness(t, config.Config{})
	_, err := h.members.ResolveOrCreate(context.Background(), memberdomain.Identity{Name: "Sam", Phone: "5550001111"})
	require.NoError(t, err)

	rec := h.do(jsonRequest(t, http.MethodPost, "/api/qr/resend", map[string]any{"phone": "555-000-1111"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
}

func TestKioskMalformedJSONIsTreatedAsEmpty(t *testing.T) {
	h := newHarness(t, config.Config{})

	for _, target := range []string{"/api/checkin", "/api/qr/resend"} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rec := h.do(req)
		body := decode(t, rec)
		assert.Equal(t, false, body["ok"], target)
		assert.NotEqual(t, "invalid_request", body["error"], target)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/checkin", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, checkindomain.MessageNotFound, decode(t, rec)["error"])
}

func TestAdminRoutesRequireStaffPIN(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/admin/checkins", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/checkins", nil)
	req.Header.Set(HeaderStaffPIN, "0000")
	assert.Equal(t, http.StatusUnauthorized, h.do(req).Code)

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/admin/checkins", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestFrontdeskRoleCannotImport(t *testing.T) {
	h := newHarness(t, config.Config{})
	_, err := h.staff.CreateOrRotate(context.Background(), "Desk", "1357", staffdomain.RoleFrontdesk)
	require.NoError(t, err)

	req := csvUpload(t, "/api/import_preview", "name,email\nJane,jane@x.com\n")
	req.Header.Set(HeaderStaffPIN, "1357")
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/members/search?q=j", nil)
	req.Header.Set(HeaderStaffPIN, "1357")
	assert.Equal(t, http.StatusOK, h.do(req).Code)
}

func TestRosterUploadAndPreview(t *testing.T) {
	h := newHarness(t, config.Config{})
	roster := "Name,Email,Phone,Membership Tier\nJane Doe,jane@x.com,,Gold\nBob Roe,,555-123-4567,Silver\n"

	rec := h.admin(csvUpload(t, "/api/import_preview", roster))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	counts := body["counts"].(map[string]any)
	assert.EqualValues(t, 2, counts["inserts"])
	assert.EqualValues(t, 2, counts["total_rows"])

	rec = h.admin(csvUpload(t, "/api/upload_csv?commit=0", roster))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, false, body["committed"])
	assert.EqualValues(t, 2, body["imported"])

	rec = h.admin(csvUpload(t, "/api/upload_csv", roster))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["committed"])
	assert.Equal(t, false, body["deactivate_missing"])

	all, err := h.members.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAuditTrail(t *testing.T) {
	h := newHarness(t, config.Config{})
	_, err := h.staff.CreateOrRotate(context.Background(), "Desk", "1357", staffdomain.RoleFrontdesk)
	require.NoError(t, err)

	rec := h.admin(jsonRequest(t, http.MethodPost, "/api/members", map[string]any{"name": "Jane Doe", "email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.admin(csvUpload(t, "/api/upload_csv?commit=0", "name,email\nBob,bob@x.com\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.admin(csvUpload(t, "/api/upload_csv", "name,email\nBob,bob@x.com\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/admin/audit_logs", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data []auditdomain.AuditLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "roster.import", body.Data[0].Action)
	assert.Equal(t, "member.create", body.Data[1].Action)
	assert.Equal(t, "staff", body.Data[1].ActorType)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/audit_logs", nil)
	req.Header.Set(HeaderStaffPIN, "1357")
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/admin/audit_logs?start_at=2026-03-02T00:00:00Z&end_at=2026-03-01T00:00:00Z", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditFailureDoesNotFailRequest(t *testing.T) {
	audit := &mockAudit{}
	audit.On("Record", mock.Anything, mock.MatchedBy(func(e auditdomain.Entry) bool {
		return e.Action == "product.create" && e.TargetID == "1"
	})).Return(errors.New("audit store down")).Once()
	h := newHarnessWithAudit(t, config.Config{}, audit)

	rec := h.admin(jsonRequest(t, http.MethodPost, "/api/products", map[string]any{"code": "DAY", "name": "Day Pass"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	audit.AssertExpectations(t)
}

func TestRosterUploadWithoutFile(t *testing.T) {
	h := newHarness(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/upload_csv", nil)
	rec := h.admin(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])
}

func TestCreateMemberResolvesExisting(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.admin(jsonRequest(t, http.MethodPost, "/api/members", map[string]any{"name": "Jane Doe", "email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode(t, rec)["data"].(map[string]any)
	assert.Contains(t, first["qr_url"], "http://frontdesk.test")

	rec = h.admin(jsonRequest(t, http.MethodPost, "/api/members", map[string]any{"name": "Jane D.", "email": "JANE@x.com", "phone": "555-000-1111"}))
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, first["id"], second["id"])
	assert.Equal(t, "Jane D.", second["name"])

	rec = h.admin(jsonRequest(t, http.MethodPost, "/api/members", map[string]any{"email": "x@x.com"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec)["error"].(map[string]any)["type"])
}

func TestProductValidationMapsTo400(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.admin(jsonRequest(t, http.MethodPost, "/api/products", map[string]any{"name": "Water"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.admin(jsonRequest(t, http.MethodPost, "/api/products", map[string]any{"code": " water ", "name": "Water"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "water", h.products.created.Code)

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestOrderErrors(t *testing.T) {
	h := newHarness(t, config.Config{})

	h.orders.createErr = orderdomain.ErrCommerceDisabled
	rec := h.admin(jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{}))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	h.orders.createErr = orderdomain.ErrMixedCurrency
	rec = h.admin(jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.orders.createErr = errors.Join(orderdomain.ErrUpstream, errors.New("stripe down"))
	rec = h.admin(jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	h.orders.createErr = nil
	rec = h.admin(jsonRequest(t, http.MethodPost, "/api/orders", map[string]any{}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://checkout.test/cs_1", decode(t, rec)["data"].(map[string]any)["checkout_url"])

	assert.Equal(t, http.StatusNotFound, h.admin(httptest.NewRequest(http.MethodGet, "/api/orders/404", nil)).Code)

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/orders/ORD-20260301-ABCDEF", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORD-20260301-ABCDEF")
}

func TestOrderReceipt(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.admin(httptest.NewRequest(http.MethodGet, "/api/orders/1/receipt.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-ORD-1.pdf")

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/orders/unpaid/receipt.pdf", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInitStaffPIN(t *testing.T) {
	h := newHarness(t, config.Config{})
	rec := h.do(jsonRequest(t, http.MethodPost, "/api/admin/staff/init", map[string]any{"pin": "9999"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	h = newHarness(t, config.Config{Staff: config.StaffConfig{EnableInitPIN: true}})
	rec = h.do(jsonRequest(t, http.MethodPost, "/api/admin/staff/init", map[string]any{"pin": "9999"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "pin_hash")

	assert.True(t, h.staff.Verify(context.Background(), "9999"))
	assert.False(t, h.staff.Verify(context.Background(), h.adminPIN))
}

func TestSignupCheckoutSession(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(jsonRequest(t, http.MethodPost, "/api/signup/checkout_session", map[string]any{"name": "Jane", "email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"url":"https://checkout.test/cs_1"}`, rec.Body.String())

	h.signup.err = signupdomain.ErrDisabled
	rec = h.do(jsonRequest(t, http.MethodPost, "/api/signup/checkout_session", map[string]any{"name": "Jane"}))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ok"])

	h.signup.err = signupdomain.ErrInvalidRequest
	rec = h.do(jsonRequest(t, http.MethodPost, "/api/signup/checkout_session", map[string]any{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhook(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.do(httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["received"])
	assert.Len(t, rec.Header().Get("X-Correlation-Id"), 26)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("X-Correlation-Id", "delivery-9")
	rec = h.do(req)
	assert.Equal(t, "delivery-9", rec.Header().Get("X-Correlation-Id"))

	h.webhooks.err = paymentdomain.ErrInvalidSignature
	rec = h.do(httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.webhooks.err = errors.New("db down")
	rec = h.do(httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(orderdomain.ErrEmptyCart)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "empty_cart", code)

	kind, _ = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "internal_error", kind)

	kind, _ = classifyErrorForLog(authorization.ErrForbidden)
	assert.Equal(t, "forbidden", kind)
}

func TestListProductsFilter(t *testing.T) {
	h := newHarness(t, config.Config{})

	rec := h.admin(httptest.NewRequest(http.MethodGet, "/api/products?active=true", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = h.admin(httptest.NewRequest(http.MethodGet, "/api/products?active=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
