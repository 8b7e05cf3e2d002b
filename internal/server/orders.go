package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	orderdomain "github.com/smallbiznis/frontdesk/internal/order/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
)

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.Entry{
		Action:     auditActionOrderCreate,
		TargetType: "order",
		TargetID:   resp.Order.ID.String(),
		Metadata: map[string]any{
			"order_number": resp.Order.OrderNumber,
			"total_cents":  resp.Order.TotalCents,
			"status":       string(resp.Order.Status),
		},
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		Status   string `form:"status"`
		MemberID string `form:"member_id"`
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListRequest{
		Status:     strings.TrimSpace(query.Status),
		MemberID:   strings.TrimSpace(query.MemberID),
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Orders,
		"page_info": resp.PageInfo,
	})
}

// GetOrder accepts either the order id or its ORD- number.
func (s *Server) GetOrder(c *gin.Context) {
	key := strings.TrimSpace(c.Param("id"))

	var (
		resp *orderdomain.Detail
		err  error
	)
	if strings.HasPrefix(strings.ToUpper(key), orderdomain.NumberPrefix) {
		resp, err = s.orderSvc.GetByNumber(c.Request.Context(), key)
	} else {
		resp, err = s.orderSvc.Get(c.Request.Context(), key)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) OrderReceipt(c *gin.Context) {
	body, filename, err := s.orderSvc.Receipt(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", body)
}
