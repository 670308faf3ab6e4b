package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakyProvider struct {
	err   error
	calls int
}

func (p *flakyProvider) CreateCheckoutSession(_ context.Context, _ SessionRequest) (*Session, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &Session{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil
}

func (p *flakyProvider) CheckoutSessionPaid(_ context.Context, _ string) (bool, error) {
	p.calls++
	return p.err == nil, p.err
}

func TestBreakerPassesThrough(t *testing.T) {
	provider := &flakyProvider{}
	b := NewBreaker(provider, zap.NewNop())

	sess, err := b.CreateCheckoutSession(context.Background(), SessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)

	paid, err := b.CheckoutSessionPaid(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	boom := errors.New("stripe down")
	provider := &flakyProvider{err: boom}
	b := NewBreaker(provider, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := b.CreateCheckoutSession(context.Background(), SessionRequest{})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.CreateCheckoutSession(context.Background(), SessionRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 5, provider.calls, "open circuit must not reach the provider")
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(3000), MinorUnits(decimal.RequireFromString("30.00")))
	assert.Equal(t, int64(4550), MinorUnits(decimal.RequireFromString("45.5")))
	assert.Equal(t, int64(1000), MinorUnits(decimal.RequireFromString("9.995")))
}
