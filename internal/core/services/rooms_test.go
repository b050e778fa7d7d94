package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordercast/internal/core/domain"
)

func TestRoomService_JoinRoutesByRole(t *testing.T) {
	reg, pres := &fakeRegistry{}, &fakePresence{}
	svc := NewRoomService(testLogger(), reg, pres, RoomOptions{PresenceTTL: 30 * time.Second})
	c := &stubClient{id: "c1"}

	scope, err := svc.Join(t.Context(), c, Identity{}, []byte(`{"role":"USER","tableId":"t1"}`))
	require.NoError(t, err)
	assert.Equal(t, "table:t1", scope.Room())

	scope, err = svc.Join(t.Context(), c, Identity{}, []byte(`{"role":"ADMIN","tableId":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.AdminRoom, scope.Room())

	assert.Equal(t, []string{"table:t1", "admin"}, reg.Rooms(c))
	require.Equal(t, 2, pres.touchCount())
	assert.Equal(t, touch{"table:t1", "c1", 30 * time.Second}, pres.touches[0])
}

func TestRoomService_JoinRejectsBadPayloads(t *testing.T) {
	reg := &fakeRegistry{}
	svc := NewRoomService(testLogger(), reg, nil, RoomOptions{})
	c := &stubClient{id: "c1"}

	for _, payload := range []string{`nope`, `{"role":"USER"}`, `{"role":"USER","tableId":"  "}`, `{"role":"CHEF"}`, `null`} {
		_, err := svc.Join(t.Context(), c, Identity{}, []byte(payload))
		assert.ErrorIs(t, err, domain.ErrInvalidScope, payload)
	}
	assert.Empty(t, reg.Rooms(c))
}

func TestRoomService_AdminTokenRequired(t *testing.T) {
	reg := &fakeRegistry{}
	svc := NewRoomService(testLogger(), reg, nil, RoomOptions{RequireAdminToken: true})
	c := &stubClient{id: "c1"}

	_, err := svc.Join(t.Context(), c, Identity{Subject: "t1", Role: domain.RoleCustomer}, []byte(`{"role":"ADMIN"}`))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Join(t.Context(), c, Identity{}, []byte(`{"role":"USER","tableId":"t1"}`))
	require.NoError(t, err, "customer joins need no token")

	_, err = svc.Join(t.Context(), c, Identity{Subject: "staff", Role: domain.RoleAdmin}, []byte(`{"role":"ADMIN"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"table:t1", "admin"}, reg.Rooms(c))
}

func TestRoomService_PresenceFailureDoesNotBlockJoin(t *testing.T) {
	reg := &fakeRegistry{}
	svc := NewRoomService(testLogger(), reg, &fakePresence{err: errBoom}, RoomOptions{})
	c := &stubClient{id: "c1"}

	_, err := svc.Join(t.Context(), c, Identity{}, []byte(`{"role":"ADMIN"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, reg.Rooms(c))
}

func TestRoomService_HeartbeatAndLeave(t *testing.T) {
	reg, pres := &fakeRegistry{}, &fakePresence{}
	svc := NewRoomService(testLogger(), reg, pres, RoomOptions{PresenceTTL: 60 * time.Millisecond, Heartbeat: 5 * time.Millisecond})
	c := &stubClient{id: "c1"}
	_, err := svc.Join(t.Context(), c, Identity{}, []byte(`{"role":"ADMIN"}`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		svc.Heartbeat(ctx, c)
		close(done)
	}()
	require.Eventually(t, func() bool { return pres.touchCount() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done

	svc.Leave(t.Context(), c)
	assert.Equal(t, []string{"admin/c1"}, pres.left)
}

func TestRoomService_OnlineWithoutPresenceIsEmpty(t *testing.T) {
	svc := NewRoomService(testLogger(), &fakeRegistry{}, nil, RoomOptions{})
	ids, err := svc.Online(t.Context(), "admin")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRoomService_LocalCountsJoinedClients(t *testing.T) {
	reg := &fakeRegistry{}
	svc := NewRoomService(testLogger(), reg, nil, RoomOptions{})
	_, err := svc.Join(t.Context(), &stubClient{id: "c1"}, Identity{}, []byte(`{"role":"USER","tableId":"t1"}`))
	require.NoError(t, err)
	_, err = svc.Join(t.Context(), &stubClient{id: "c2"}, Identity{}, []byte(`{"role":"USER","tableId":"t1"}`))
	require.NoError(t, err)

	assert.Equal(t, 2, svc.Local("table:t1"))
	assert.Equal(t, 0, svc.Local("admin"))
}
