package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	signupdomain "github.com/smallbiznis/frontdesk/internal/signup/domain"
)

func (s *Server) SignupCheckoutSession(c *gin.Context) {
	fields, err := kioskFields(c, "name", "email", "phone", "birthday", "address", "price_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	checkout, err := s.signupSvc.StartCheckout(c.Request.Context(), signupdomain.Request{
		Name:     fields["name"],
		Email:    fields["email"],
		Phone:    fields["phone"],
		Birthday: fields["birthday"],
		Address:  fields["address"],
		PriceID:  fields["price_id"],
	})
	if err != nil {
		status, payload := mapError(err)
		message := payload.Message
		if status == http.StatusBadRequest {
			message = "Name and email or phone required"
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": checkout.URL})
}
