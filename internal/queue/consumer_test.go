package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirmer struct {
	confirmed []uint64
	err       error
}

func (f *fakeConfirmer) ConfirmPayment(ctx context.Context, reservationID uint64) error {
	f.confirmed = append(f.confirmed, reservationID)
	return f.err
}

func TestHandleMessage(t *testing.T) {
	fc := &fakeConfirmer{}
	c := &PaymentConsumer{confirmer: fc}

	body := []byte(`{"event_id":"e1","reservation_id":42,"transaction_ref":"tx-9","amount_cents":7500,"paid_at":"2025-03-10T12:00:00Z"}`)
	require.NoError(t, c.handleMessage(body))
	assert.Equal(t, []uint64{42}, fc.confirmed)
}

func TestHandleMessageBadJSON(t *testing.T) {
	fc := &fakeConfirmer{}
	c := &PaymentConsumer{confirmer: fc}

	assert.Error(t, c.handleMessage([]byte(`{not json`)))
	assert.Empty(t, fc.confirmed)
}

func TestHandleMessageMissingReservationID(t *testing.T) {
	fc := &fakeConfirmer{}
	c := &PaymentConsumer{confirmer: fc}

	assert.Error(t, c.handleMessage([]byte(`{"event_id":"e1"}`)))
	assert.Empty(t, fc.confirmed)
}

func TestHandleMessageConfirmerError(t *testing.T) {
	fc := &fakeConfirmer{err: errors.New("db down")}
	c := &PaymentConsumer{confirmer: fc}

	body := []byte(`{"reservation_id":42}`)
	err := c.handleMessage(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42")
}
