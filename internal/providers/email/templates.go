package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	TemplateMemberCredential = "member_credential"
	TemplateOrderPaid        = "order_paid"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// CredentialData fills the member check-in credential email.
type CredentialData struct {
	GymName    string
	MemberName string
	Link       string
	Token      string
}

func (d CredentialData) Subject() string {
	return fmt.Sprintf("Your %s Check-In Code", d.GymName)
}

// OrderPaidData fills the order confirmation email.
type OrderPaidData struct {
	GymName      string
	CustomerName string
	OrderNumber  string
	Total        string
	ReceiptLink  string
}

func (d OrderPaidData) Subject() string {
	return fmt.Sprintf("%s order %s confirmed", d.GymName, d.OrderNumber)
}

func render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return body.String(), nil
}
