package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
)

type published struct {
	queue string
	n     Notification
}

type fakePublisher struct {
	msgs   []published
	failOn string
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, body []byte) error {
	if queueName == f.failOn {
		return errors.New("channel closed")
	}
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return err
	}
	f.msgs = append(f.msgs, published{queue: queueName, n: n})
	return nil
}

func encode(t *testing.T, ev contracts.SettlementEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestJobs(t *testing.T) {
	parties := contracts.SettlementEvent{ShipmentID: 1, Buyer: "B", Supplier: "S", Carrier: "C", Oracle: "O"}

	tests := []struct {
		name      string
		mutate    func(ev *contracts.SettlementEvent)
		wantEmail []string
		wantSMS   []string
	}{
		{
			name: "created notifies the other parties",
			mutate: func(ev *contracts.SettlementEvent) {
				ev.Type = contracts.EventShipmentCreated
				ev.Escrow = 1000
			},
			wantEmail: []string{"S", "C", "O"},
		},
		{
			name: "status update notifies the buyer",
			mutate: func(ev *contracts.SettlementEvent) {
				ev.Type = contracts.EventStatusUpdated
				ev.Status = "Delayed"
				ev.Penalty = 200
			},
			wantEmail: []string{"B"},
		},
		{
			name: "finalize pays out by email and sms, skipping zero amounts",
			mutate: func(ev *contracts.SettlementEvent) {
				ev.Type = contracts.EventShipmentFinalized
				ev.Payout = &contracts.Distribution{SupplierAmount: 500, CarrierAmount: 500}
			},
			wantEmail: []string{"S", "C"},
			wantSMS:   []string{"S", "C"},
		},
		{
			name: "full penalty refunds only the buyer",
			mutate: func(ev *contracts.SettlementEvent) {
				ev.Type = contracts.EventShipmentFinalized
				ev.Payout = &contracts.Distribution{BuyerRefund: 1000}
			},
			wantEmail: []string{"B"},
			wantSMS:   []string{"B"},
		},
		{
			name: "rejected finalize tells the caller",
			mutate: func(ev *contracts.SettlementEvent) {
				ev.Type = contracts.EventFinalizeRejected
				ev.Actor = "B"
				ev.Reason = "AlreadyFinalized"
			},
			wantEmail: []string{"B"},
		},
		{
			name:   "unknown event",
			mutate: func(ev *contracts.SettlementEvent) { ev.Type = "shipment.archived" },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := parties
			tc.mutate(&ev)

			var email, sms []string
			for _, j := range Jobs(ev) {
				if j.SMS {
					sms = append(sms, j.Recipient)
				} else {
					email = append(email, j.Recipient)
				}
			}
			assert.Equal(t, tc.wantEmail, email)
			assert.Equal(t, tc.wantSMS, sms)
		})
	}
}

func TestHandlePublishesToQueues(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)

	ev := contracts.SettlementEvent{
		EventID:    "e-1",
		Type:       contracts.EventShipmentFinalized,
		ShipmentID: 2,
		Buyer:      "B",
		Supplier:   "S",
		Carrier:    "C",
		Payout:     &contracts.Distribution{SupplierAmount: 400, CarrierAmount: 400, BuyerRefund: 200},
	}
	require.NoError(t, d.Handle(context.Background(), []byte("2"), encode(t, ev)))

	require.Len(t, pub.msgs, 6)
	counts := map[string]int{}
	for _, m := range pub.msgs {
		counts[m.queue]++
		assert.Equal(t, "e-1", m.n.EventID)
		assert.Equal(t, uint64(2), m.n.ShipmentID)
	}
	assert.Equal(t, 3, counts[EmailQueue])
	assert.Equal(t, 3, counts[SMSQueue])
}

func TestHandleCustomQueues(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil).WithQueues("mail", "text")

	ev := contracts.SettlementEvent{Type: contracts.EventStatusUpdated, ShipmentID: 1, Buyer: "B", Status: "OnTime"}
	require.NoError(t, d.Handle(context.Background(), nil, encode(t, ev)))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "mail", pub.msgs[0].queue)
}

func TestHandleDropsUndecodableEvent(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)

	require.NoError(t, d.Handle(context.Background(), []byte("k"), []byte("{not json")))
	assert.Empty(t, pub.msgs)
}

func TestHandleReturnsPublishFailure(t *testing.T) {
	pub := &fakePublisher{failOn: SMSQueue}
	d := NewDispatcher(pub, nil)

	ev := contracts.SettlementEvent{
		Type:       contracts.EventShipmentFinalized,
		ShipmentID: 3,
		Supplier:   "S",
		Payout:     &contracts.Distribution{SupplierAmount: 10},
	}
	err := d.Handle(context.Background(), nil, encode(t, ev))
	require.Error(t, err)
	assert.Contains(t, err.Error(), SMSQueue)
}
