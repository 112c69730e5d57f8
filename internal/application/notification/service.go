package notification

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/go-shop-nosql/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Transport delivers a rendered email.
type Transport interface {
	Send(ctx context.Context, e domain.Email) error
}

type Service interface {
	OrderConfirmed(ctx context.Context, buyer domain.Identity, o domain.Order) error
}

type sendObserver interface {
	NotificationSent(transport string, err error)
}

type service struct {
	transport     Transport
	transportName string
	from          string
	breaker       *gobreaker.CircuitBreaker
	metrics       sendObserver
}

type ServiceDeps struct {
	Transport     Transport
	TransportName string
	From          string
	Metrics       sendObserver
	Logger        *zap.Logger
	// BreakerTimeout is how long the breaker stays open before probing again. Defaults to 30s.
	BreakerTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := deps.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &service{
		transport:     deps.Transport,
		transportName: deps.TransportName,
		from:          deps.From,
		metrics:       deps.Metrics,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "email-" + deps.TransportName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit_breaker_state_change",
					zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
			},
		}),
	}
}

func (s *service) OrderConfirmed(ctx context.Context, buyer domain.Identity, o domain.Order) error {
	e, err := RenderOrderConfirmation(s.from, buyer, o)
	if err != nil {
		return err
	}
	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.transport.Send(ctx, e)
	})
	if s.metrics != nil {
		s.metrics.NotificationSent(s.transportName, err)
	}
	if err != nil {
		return fmt.Errorf("send order confirmation via %s: %w", s.transportName, err)
	}
	return nil
}

type orderView struct {
	Name    string
	OrderID string
	Date    string
	Items   []domain.OrderItem
	Total   float64
}

var funcs = map[string]interface{}{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}

var textTmpl = texttemplate.Must(texttemplate.New("order.txt").Funcs(funcs).Parse(
	`Hi {{.Name}}, thanks for your purchase!
Order confirmation #{{.OrderID}}
Date: {{.Date}}

Items:
{{range .Items}}- {{.ProductID}} x{{.Quantity}} {{money .Price}} = {{money .Subtotal}}
{{end}}
Total: {{money .Total}}
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("order.html").Funcs(funcs).Parse(
	`<div style="font-family:Arial,Helvetica,sans-serif;color:#222">
  <h2>Hi {{.Name}}, thanks for your purchase!</h2>
  <p>Order confirmation <b>#{{.OrderID}}</b></p>
  <p>Date: {{.Date}}</p>
  <table style="border-collapse:collapse;width:100%;max-width:640px">
    <thead>
      <tr>
        <th style="text-align:left;padding:6px 10px;border-bottom:2px solid #555">Product</th>
        <th style="text-align:center;padding:6px 10px;border-bottom:2px solid #555">Qty</th>
        <th style="text-align:right;padding:6px 10px;border-bottom:2px solid #555">Price</th>
        <th style="text-align:right;padding:6px 10px;border-bottom:2px solid #555">Subtotal</th>
      </tr>
    </thead>
    <tbody>
{{range .Items}}      <tr>
        <td style="padding:6px 10px;border-bottom:1px solid #eee">{{.ProductID}}</td>
        <td style="padding:6px 10px;border-bottom:1px solid #eee;text-align:center">{{.Quantity}}</td>
        <td style="padding:6px 10px;border-bottom:1px solid #eee;text-align:right">{{money .Price}}</td>
        <td style="padding:6px 10px;border-bottom:1px solid #eee;text-align:right">{{money .Subtotal}}</td>
      </tr>
{{end}}    </tbody>
    <tfoot>
      <tr>
        <td colspan="3" style="text-align:right;padding:8px 10px;font-weight:bold">Total</td>
        <td style="text-align:right;padding:8px 10px;font-weight:bold">{{money .Total}}</td>
      </tr>
    </tfoot>
  </table>
  <p style="color:#666;font-size:12px">This is an automated message. Please do not reply.</p>
</div>
`))

// RenderOrderConfirmation builds the text and HTML confirmation for o.
func RenderOrderConfirmation(from string, buyer domain.Identity, o domain.Order) (domain.Email, error) {
	name := buyer.Name
	if name == "" {
		name = buyer.Email
	}
	to := buyer.Email
	if to == "" {
		to = buyer.UserID
	}
	view := orderView{
		Name:    name,
		OrderID: o.OrderID,
		Date:    o.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		Items:   o.Items,
		Total:   o.Total,
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, view); err != nil {
		return domain.Email{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return domain.Email{}, fmt.Errorf("render html: %w", err)
	}
	return domain.Email{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("Your order #%s was confirmed", o.OrderID),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
