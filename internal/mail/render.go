package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
)

//go:embed templates/*
var templateFS embed.FS

// Company is the branding printed on outgoing mail.
type Company struct {
	Name    string
	Tagline string
	Address string
	Phone   string
	Email   string
	Website string
}

type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type itemView struct {
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   string
	TotalPrice  string
}

type newOrderView struct {
	Company       Company
	ShortOrderID  string
	CustomerName  string
	PhoneNumber   string
	FullAddress   string
	TotalAmount   string
	TotalItems    int
	Items         []itemView
	OrderPlacedAt string
}

// Renderer turns email jobs into subject and bodies.
type Renderer struct {
	company   Company
	newOrderH *htmltemplate.Template
	newOrderT *texttemplate.Template
}

func NewRenderer(company Company) (*Renderer, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/new_order.html")
	if err != nil {
		return nil, fmt.Errorf("parse new order html template: %w", err)
	}
	t, err := texttemplate.New("new_order.txt").Option("missingkey=zero").ParseFS(templateFS, "templates/new_order.txt")
	if err != nil {
		return nil, fmt.Errorf("parse new order text template: %w", err)
	}
	return &Renderer{company: company, newOrderH: h, newOrderT: t}, nil
}

func (r *Renderer) NewOrder(job notification.EmailJob) (Rendered, error) {
	md := job.Metadata
	view := newOrderView{
		Company:       r.company,
		ShortOrderID:  shortID(md.OrderID),
		CustomerName:  md.CustomerName,
		PhoneNumber:   md.PhoneNumber,
		FullAddress:   md.FullAddress,
		TotalAmount:   FormatINR(md.TotalAmount),
		TotalItems:    md.TotalItems,
		OrderPlacedAt: md.OrderPlacedAt,
	}
	for _, it := range md.OrderItems {
		view.Items = append(view.Items, itemView{
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   FormatINR(it.UnitPrice),
			TotalPrice:  FormatINR(it.TotalPrice),
		})
	}

	var html, text bytes.Buffer
	if err := r.newOrderH.Execute(&html, view); err != nil {
		return Rendered{}, fmt.Errorf("render new order html: %w", err)
	}
	if err := r.newOrderT.Execute(&text, view); err != nil {
		return Rendered{}, fmt.Errorf("render new order text: %w", err)
	}
	return Rendered{
		Subject: "New Order Received - Order #" + view.ShortOrderID,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// FormatINR formats an amount in rupees with Indian digit grouping,
// e.g. 1234567.5 -> ₹12,34,567.50.
func FormatINR(amount decimal.Decimal) string {
	s := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var grouped string
	if len(whole) <= 3 {
		grouped = whole
	} else {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		grouped = strings.Join(parts, ",") + "," + tail
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + "₹" + grouped + "." + frac
}
