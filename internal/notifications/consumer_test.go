package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	rows      []models.Notification
	createErr error
	byRole    map[enums.Role][]uuid.UUID
}

func (m *memoryStore) CreateMany(_ context.Context, rows []models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memoryStore) ActiveUsersByRole(_ context.Context, role enums.Role) ([]uuid.UUID, error) {
	return m.byRole[role], nil
}

type memoryClaims struct {
	claimed  map[uuid.UUID]bool
	released []uuid.UUID
	err      error
}

func (m *memoryClaims) Claim(_ context.Context, _ string, id uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.claimed[id] {
		return false, nil
	}
	m.claimed[id] = true
	return true, nil
}

func (m *memoryClaims) Release(_ context.Context, _ string, id uuid.UUID) error {
	delete(m.claimed, id)
	m.released = append(m.released, id)
	return nil
}

func newTestConsumer(store *memoryStore, claims *memoryClaims) *Consumer {
	return &Consumer{
		repo:        store,
		directory:   store,
		idempotency: claims,
		logg:        logger.Discard(),
	}
}

func envelope(t *testing.T, id uuid.UUID, eventType enums.OutboxEventType, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		EventType:  string(eventType),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return body
}

func TestConsumerNotifiesRiderOnce(t *testing.T) {
	store := &memoryStore{}
	claims := &memoryClaims{claimed: map[uuid.UUID]bool{}}
	c := newTestConsumer(store, claims)

	rider := uuid.New()
	eventID := uuid.New()
	body := envelope(t, eventID, enums.EventOrderRiderAssigned, payloads.OrderRiderAssignedEvent{
		OrderID: uuid.New(), OrderNumber: 77, RiderID: rider, RiderName: "Baraka",
	})

	assert.Equal(t, OutcomeAck, c.Handle(context.Background(), "m1", string(enums.EventOrderRiderAssigned), body))
	assert.Equal(t, OutcomeAck, c.Handle(context.Background(), "m2", string(enums.EventOrderRiderAssigned), body))

	require.Len(t, store.rows, 1)
	assert.Equal(t, rider, store.rows[0].UserID)
	assert.Equal(t, enums.NotificationTypeRiderAssigned, store.rows[0].Type)
	assert.Contains(t, store.rows[0].Message, "#77")
	assert.Equal(t, eventID, *store.rows[0].EventID)
}

func TestConsumerFansInvoiceOutToFinance(t *testing.T) {
	f1, f2 := uuid.New(), uuid.New()
	store := &memoryStore{byRole: map[enums.Role][]uuid.UUID{enums.RoleFinanceManager: {f1, f2}}}
	c := newTestConsumer(store, &memoryClaims{claimed: map[uuid.UUID]bool{}})

	body := envelope(t, uuid.New(), enums.EventInvoiceCreated, payloads.InvoiceCreatedEvent{
		InvoiceID: uuid.New(), InvoiceNumber: "INV-202605-ABCDEF12", SupplierID: uuid.New(),
		TotalAmount: decimal.RequireFromString("1160"),
	})
	require.Equal(t, OutcomeAck, c.Handle(context.Background(), "m", "", body))

	require.Len(t, store.rows, 2)
	assert.ElementsMatch(t, []uuid.UUID{f1, f2}, []uuid.UUID{store.rows[0].UserID, store.rows[1].UserID})
	assert.Contains(t, store.rows[0].Message, "1160.00")
}

func TestConsumerFeedbackGoesToOtherParty(t *testing.T) {
	customer, agent := uuid.New(), uuid.New()
	store := &memoryStore{byRole: map[enums.Role][]uuid.UUID{enums.RoleCustomerService: {agent}}}
	c := newTestConsumer(store, &memoryClaims{claimed: map[uuid.UUID]bool{}})

	staffReply := envelope(t, uuid.New(), enums.EventFeedbackReplied, payloads.FeedbackRepliedEvent{
		ThreadID: uuid.New(), CustomerID: customer, Subject: "Late", AuthorID: agent, AuthorRole: enums.RoleCustomerService,
	})
	customerReply := envelope(t, uuid.New(), enums.EventFeedbackReplied, payloads.FeedbackRepliedEvent{
		ThreadID: uuid.New(), CustomerID: customer, Subject: "Late", AuthorID: customer, AuthorRole: enums.RoleCustomer,
	})
	c.Handle(context.Background(), "a", string(enums.EventFeedbackReplied), staffReply)
	c.Handle(context.Background(), "b", string(enums.EventFeedbackReplied), customerReply)

	require.Len(t, store.rows, 2)
	assert.Equal(t, customer, store.rows[0].UserID)
	assert.Equal(t, agent, store.rows[1].UserID)
}

func TestConsumerAcksMalformedAndIgnoredEvents(t *testing.T) {
	store := &memoryStore{}
	claims := &memoryClaims{claimed: map[uuid.UUID]bool{}}
	c := newTestConsumer(store, claims)

	assert.Equal(t, OutcomeAck, c.Handle(context.Background(), "x", string(enums.EventTaskAssigned), []byte("not json")))

	bad, err := json.Marshal(outbox.PayloadEnvelope{EventID: uuid.NewString(), Data: json.RawMessage(`"oops"`)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAck, c.Handle(context.Background(), "y", string(enums.EventTaskAssigned), bad))

	ignored := envelope(t, uuid.New(), enums.EventOrderRated, payloads.OrderRatedEvent{OrderID: uuid.New()})
	assert.Equal(t, OutcomeAck, c.Handle(context.Background(), "z", string(enums.EventOrderRated), ignored))

	assert.Empty(t, store.rows)
	assert.Empty(t, claims.released)
}

func TestConsumerNacksAndReleasesOnStoreFailure(t *testing.T) {
	store := &memoryStore{createErr: errors.New("connection refused")}
	claims := &memoryClaims{claimed: map[uuid.UUID]bool{}}
	c := newTestConsumer(store, claims)

	eventID := uuid.New()
	body := envelope(t, eventID, enums.EventTaskAssigned, payloads.TaskAssignedEvent{
		TaskID: uuid.New(), AssigneeID: uuid.New(), Title: "Restock ribbons",
	})
	assert.Equal(t, OutcomeNack, c.Handle(context.Background(), "m", string(enums.EventTaskAssigned), body))
	assert.Equal(t, []uuid.UUID{eventID}, claims.released)

	claims.err = errors.New("redis down")
	assert.Equal(t, OutcomeNack, c.Handle(context.Background(), "m", string(enums.EventTaskAssigned), body))
}
