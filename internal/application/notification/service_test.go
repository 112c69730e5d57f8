package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockTransport struct{ mock.Mock }

func (m *mockTransport) Send(ctx context.Context, e domain.Email) error {
	return m.Called(ctx, e).Error(0)
}

var (
	buyer = domain.Identity{UserID: "alice@example.com", Email: "alice@example.com", Name: "Alice"}
	order = domain.Order{
		OrderID: "01HZXORDER",
		Items: []domain.OrderItem{
			{ProductID: "futbol-0001", Quantity: 2, Price: 50, Subtotal: 100},
		},
		Total:     100,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
)

func TestRenderOrderConfirmation(t *testing.T) {
	e, err := RenderOrderConfirmation("shop@example.com", buyer, order)
	require.NoError(t, err)
	assert.Equal(t, "shop@example.com", e.From)
	assert.Equal(t, "alice@example.com", e.To)
	assert.Equal(t, "Your order #01HZXORDER was confirmed", e.Subject)
	assert.Contains(t, e.Text, "Hi Alice")
	assert.Contains(t, e.Text, "- futbol-0001 x2 $50.00 = $100.00")
	assert.Contains(t, e.Text, "Total: $100.00")
	assert.Contains(t, e.HTML, "<b>#01HZXORDER</b>")
	assert.Contains(t, e.HTML, "$100.00")
}

func TestRenderOrderConfirmation_EscapesHTML(t *testing.T) {
	e, err := RenderOrderConfirmation("", domain.Identity{Email: "x@example.com", Name: "<script>"}, order)
	require.NoError(t, err)
	assert.NotContains(t, e.HTML, "<script>")
	assert.Contains(t, e.HTML, "&lt;script&gt;")
}

func TestRenderOrderConfirmation_FallsBackToEmail(t *testing.T) {
	e, err := RenderOrderConfirmation("", domain.Identity{Email: "bob@example.com"}, order)
	require.NoError(t, err)
	assert.Contains(t, e.Text, "Hi bob@example.com")
}

func TestOrderConfirmed_Sends(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Send", mock.Anything, mock.MatchedBy(func(e domain.Email) bool {
		return e.To == "alice@example.com" && e.From == "shop@example.com"
	})).Return(nil)

	svc := NewService(ServiceDeps{Transport: tr, TransportName: "console", From: "shop@example.com"})
	require.NoError(t, svc.OrderConfirmed(context.Background(), buyer, order))
	tr.AssertExpectations(t)
}

func TestOrderConfirmed_BreakerOpensAfterFailures(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	svc := NewService(ServiceDeps{Transport: tr, TransportName: "smtp", BreakerTimeout: time.Hour})

	for range 5 {
		assert.ErrorContains(t, svc.OrderConfirmed(context.Background(), buyer, order), "smtp down")
	}
	err := svc.OrderConfirmed(context.Background(), buyer, order)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	tr.AssertNumberOfCalls(t, "Send", 5)
}

func TestConsole_LogsPreview(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'x'
	}
	err := NewConsole(zap.New(core)).Send(context.Background(), domain.Email{To: "a@b.co", Subject: "s", Text: string(long)})
	require.NoError(t, err)

	entries := logs.FilterMessage("email_mock").All()
	require.Len(t, entries, 1)
	preview := entries[0].ContextMap()["preview"].(string)
	assert.Equal(t, previewLen+1, len([]rune(preview)))
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(context.Background(), &config.Config{EmailTransport: "console"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Console{}, tr)

	_, err = NewTransport(context.Background(), &config.Config{EmailTransport: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}
