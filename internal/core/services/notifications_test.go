package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"ordercast/internal/core/domain"
)

func newOrder() *domain.Notification {
	return &domain.Notification{
		Type:      domain.NotificationOrder,
		ItemID:    "o1",
		MessageVI: "Đơn hàng mới",
		MessageEN: "New order",
		IsSeen:    true,
	}
}

func TestNotificationService_PublishStoresAndFansOutToAdmins(t *testing.T) {
	repo, bus, tx := &fakeRepo{}, &fakeBus{}, &fakeTx{}
	svc := NewNotificationService(testLogger(), repo, tx, bus)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	n := newOrder()
	require.NoError(t, svc.PublishNewOrder(t.Context(), n))

	assert.NotEmpty(t, n.ID)
	assert.False(t, n.IsSeen, "new notifications start unseen")
	assert.Equal(t, fixed, n.CreatedAt)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, 1, tx.calls)

	require.Len(t, bus.sent, 1)
	assert.Equal(t, domain.AdminRoom, bus.sent[0].room)
	frame := bus.sent[0].frame
	assert.Equal(t, domain.EventOrderNew, gjson.GetBytes(frame, "event").String())
	assert.Equal(t, "o1", gjson.GetBytes(frame, "data.itemId").String())
	assert.Equal(t, "Đơn hàng mới", gjson.GetBytes(frame, "data.message_vi").String())
	assert.False(t, gjson.GetBytes(frame, "data.isSeen").Bool())
}

func TestNotificationService_PublishWithoutRepoOnlyBroadcasts(t *testing.T) {
	bus := &fakeBus{}
	svc := NewNotificationService(testLogger(), nil, nil, bus)

	require.NoError(t, svc.PublishNewOrder(t.Context(), newOrder()))
	assert.Len(t, bus.sent, 1)

	list, err := svc.List(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, svc.MarkSeen(t.Context(), "x"), domain.ErrNotificationNotFound)
}

func TestNotificationService_RejectsInvalid(t *testing.T) {
	bus := &fakeBus{}
	svc := NewNotificationService(testLogger(), &fakeRepo{}, nil, bus)

	cases := map[string]*domain.Notification{
		"nil":        nil,
		"no type":    {ItemID: "o1", MessageEN: "x"},
		"bad type":   {Type: "REFUND", ItemID: "o1", MessageEN: "x"},
		"no item":    {Type: domain.NotificationOrder, MessageEN: "x"},
		"no message": {Type: domain.NotificationOrder, ItemID: "o1"},
	}
	for name, n := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, svc.PublishNewOrder(t.Context(), n), domain.ErrInvalidNotification)
		})
	}
	assert.Empty(t, bus.sent)
}

func TestNotificationService_StoreFailureSkipsBroadcast(t *testing.T) {
	bus := &fakeBus{}
	svc := NewNotificationService(testLogger(), &fakeRepo{err: errBoom}, &fakeTx{}, bus)

	assert.ErrorIs(t, svc.PublishNewOrder(t.Context(), newOrder()), errBoom)
	assert.Empty(t, bus.sent)
}

func TestNotificationService_OrderUpdateGoesToTableRoomVerbatim(t *testing.T) {
	bus := &fakeBus{}
	svc := NewNotificationService(testLogger(), nil, nil, bus)

	update := []byte(`{"orderId":"o1","status":"SERVED","extra":[1,2]}`)
	require.NoError(t, svc.PublishOrderUpdate(t.Context(), " t1 ", update))

	require.Len(t, bus.sent, 1)
	assert.Equal(t, "table:t1", bus.sent[0].room)
	assert.Equal(t, domain.EventOrderUpdate, gjson.GetBytes(bus.sent[0].frame, "event").String())
	assert.JSONEq(t, string(update), gjson.GetBytes(bus.sent[0].frame, "data").Raw)
}

func TestNotificationService_OrderUpdateValidation(t *testing.T) {
	bus := &fakeBus{}
	svc := NewNotificationService(testLogger(), nil, nil, bus)

	assert.ErrorIs(t, svc.PublishOrderUpdate(t.Context(), "", []byte(`{}`)), domain.ErrInvalidScope)
	assert.ErrorIs(t, svc.PublishOrderUpdate(t.Context(), "t1", []byte(`{oops`)), domain.ErrInvalidPayload)
	assert.ErrorIs(t, svc.PublishOrderUpdate(t.Context(), "t1", nil), domain.ErrInvalidPayload)
	assert.Empty(t, bus.sent)
}

func TestNotificationService_ListClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(testLogger(), repo, nil, &fakeBus{})

	_, err := svc.List(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultListLimit, repo.lastLim)

	_, err = svc.List(t.Context(), 10_000)
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, repo.lastLim)
}

func TestNotificationService_MarkSeen(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewNotificationService(testLogger(), repo, nil, &fakeBus{})
	n := newOrder()
	require.NoError(t, svc.PublishNewOrder(t.Context(), n))

	require.NoError(t, svc.MarkSeen(t.Context(), n.ID))
	assert.True(t, repo.saved[0].IsSeen)
	assert.ErrorIs(t, svc.MarkSeen(t.Context(), "  "), domain.ErrNotificationNotFound)
}
