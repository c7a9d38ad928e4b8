package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"clanhub/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T) (*Notifier, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewNotifier(rdb), rdb
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), Event{Type: EventUserBanned}))
	assert.NoError(t, n.StartStaffSubscriber(context.Background(), func(Event) {}))

	var unset *Notifier
	assert.NoError(t, unset.Publish(context.Background(), Event{Type: EventUserBanned}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
	}
}

func TestNotifier_PublishFansOutToRecipients(t *testing.T) {
	n, rdb := newTestNotifier(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, StaffChannel, UserChannel(7), UserChannel(9))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	before := testutil.ToFloat64(observability.EventsPublished.WithLabelValues(string(EventJoinRequestAccepted), "ok"))
	require.NoError(t, n.Publish(ctx, Event{
		Type:       EventJoinRequestAccepted,
		ActorID:    3,
		ClanID:     11,
		SubjectID:  7,
		Recipients: []uint{7, 9, 7, 0},
	}))

	got := map[string]Event{}
	for len(got) < 3 {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		got[msg.Channel] = event
	}
	assert.Contains(t, got, StaffChannel)
	assert.Contains(t, got, UserChannel(9))
	staff := got[StaffChannel]
	assert.Equal(t, EventJoinRequestAccepted, staff.Type)
	assert.Equal(t, uint(11), staff.ClanID)
	assert.NotEmpty(t, staff.ID)
	assert.False(t, staff.OccurredAt.IsZero())
	assert.Equal(t, staff.ID, got[UserChannel(7)].ID)

	after := testutil.ToFloat64(observability.EventsPublished.WithLabelValues(string(EventJoinRequestAccepted), "ok"))
	assert.Equal(t, before+1, after)
}

func TestNotifier_StaffSubscriberStopsOnCancel(t *testing.T) {
	n, _ := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	require.NoError(t, n.StartStaffSubscriber(ctx, func(e Event) { events <- e }))

	require.NoError(t, n.Publish(context.Background(), Event{Type: EventReportFiled, ActorID: 1}))
	select {
	case e := <-events:
		assert.Equal(t, EventReportFiled, e.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.Publish(context.Background(), Event{Type: EventReportDismissed, ActorID: 1}))
	assert.Never(t, func() bool {
		select {
		case e := <-events:
			return e.Type == EventReportDismissed
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)
}
