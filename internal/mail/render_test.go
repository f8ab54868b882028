package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
	"github.com/yungbote/ordersignal-backend/internal/platform/sendgrid"
)

func TestFormatINR(t *testing.T) {
	cases := map[string]string{
		"0":          "₹0.00",
		"499":        "₹499.00",
		"1234.5":     "₹1,234.50",
		"123456":     "₹1,23,456.00",
		"1234567.89": "₹12,34,567.89",
		"-2500":      "-₹2,500.00",
	}
	for in, want := range cases {
		if got := FormatINR(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatINR(%s): got=%q want=%q", in, got, want)
		}
	}
}

func sampleJob() notification.EmailJob {
	return notification.EmailJob{
		EventID:        "evt-1",
		EventType:      notification.EmailNewOrder,
		RecipientEmail: "admin@example.com",
		Metadata: notification.EmailMetadata{
			OrderID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
			CustomerName: "Jane <Doe>",
			FullAddress:  "12 MG Road, Bengaluru",
			TotalAmount:  decimal.RequireFromString("1499.00"),
			TotalItems:   2,
			OrderItems: []notification.OrderItem{
				{ProductName: "Gear Pump", ProductSKU: "GP-1", Quantity: 1, UnitPrice: decimal.RequireFromString("999"), TotalPrice: decimal.RequireFromString("999")},
				{ProductName: "Seal Kit", Quantity: 1, UnitPrice: decimal.RequireFromString("500"), TotalPrice: decimal.RequireFromString("500")},
			},
		},
	}
}

func TestRendererNewOrder(t *testing.T) {
	r, err := NewRenderer(Company{Name: "Acme Works", Website: "https://acme.example"})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	msg, err := r.NewOrder(sampleJob())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "New Order Received - Order #0f8fad5b" {
		t.Fatalf("subject: %q", msg.Subject)
	}
	for _, want := range []string{"Acme Works", "Gear Pump", "₹1,499.00", "Jane &lt;Doe&gt;"} {
		if !strings.Contains(msg.HTML, want) {
			t.Fatalf("html missing %q", want)
		}
	}
	if !strings.Contains(msg.Text, "Seal Kit x1 @ ₹500.00 = ₹500.00") {
		t.Fatalf("text body:\n%s", msg.Text)
	}
}

type captureClient struct {
	req sendgrid.SendEmailRequest
}

func (c *captureClient) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	c.req = req
	return &sendgrid.SendEmailResult{StatusCode: 202, MessageID: "m-1"}, nil
}

func TestTemplateSenderBuildsRequest(t *testing.T) {
	r, err := NewRenderer(Company{Name: "Acme Works"})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	client := &captureClient{}
	s := NewTemplateSender(nil, r, client)

	if err := s.SendNewOrder(context.Background(), sampleJob()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(client.req.To) != 1 || client.req.To[0].Email != "admin@example.com" {
		t.Fatalf("recipients: %+v", client.req.To)
	}
	if client.req.HTML == "" || client.req.Text == "" {
		t.Fatalf("missing bodies")
	}
	if client.req.CustomArgs["event_id"] != "evt-1" {
		t.Fatalf("custom args: %+v", client.req.CustomArgs)
	}
}
