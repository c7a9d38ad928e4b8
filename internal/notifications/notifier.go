// Package notifications publishes moderation events into Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"clanhub/internal/middleware"
	"clanhub/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StaffChannel carries every moderation event for site staff dashboards.
const StaffChannel = "notifications:staff"

// EventType names a completed moderation transition.
type EventType string

const (
	EventJoinRequestSubmitted EventType = "join_request.submitted"
	EventJoinRequestAccepted  EventType = "join_request.accepted"
	EventJoinRequestRejected  EventType = "join_request.rejected"
	EventJoinRequestUnblocked EventType = "join_request.unblocked"
	EventJoinRequestRecalled  EventType = "join_request.recalled"
	EventUserBanned           EventType = "ban.user_banned"
	EventUserUnbanned         EventType = "ban.user_unbanned"
	EventClanBanned           EventType = "ban.clan_banned"
	EventClanUnbanned         EventType = "ban.clan_unbanned"
	EventMemberBanned         EventType = "ban.member_banned"
	EventMemberUnbanned       EventType = "ban.member_unbanned"
	EventAppealSubmitted      EventType = "appeal.submitted"
	EventAppealInReview       EventType = "appeal.in_review"
	EventAppealApproved       EventType = "appeal.approved"
	EventAppealDenied         EventType = "appeal.denied"
	EventAppealUnblocked      EventType = "appeal.unblocked"
	EventVerificationApplied  EventType = "verification.applied"
	EventVerificationApproved EventType = "verification.approved"
	EventVerificationDenied   EventType = "verification.denied"
	EventVerificationRevoked  EventType = "verification.revoked"
	EventOwnershipTransferred EventType = "clan.ownership_transferred"
	EventReportFiled          EventType = "report.filed"
	EventReportDismissed      EventType = "report.dismissed"
	EventRoleChanged          EventType = "role.changed"
	EventMemberRemoved        EventType = "clan.member_removed"
)

// Event is the payload published for a completed transition.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ActorID    uint      `json:"actor_id"`
	ClanID     uint      `json:"clan_id,omitempty"`
	SubjectID  uint      `json:"subject_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	// Recipients get a copy on their personal channel.
	Recipients []uint      `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

// UserChannel returns the personal channel of a user.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
	now func() time.Time
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, now: time.Now}
}

// Publish sends the event to the staff channel and each recipient's channel.
// Delivery is best effort; the transition it describes is already committed.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = n.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		observability.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := n.rdb.Pipeline()
	pipe.Publish(ctx, StaffChannel, payload)
	seen := make(map[uint]struct{}, len(event.Recipients))
	for _, userID := range event.Recipients {
		if _, dup := seen[userID]; dup || userID == 0 {
			continue
		}
		seen[userID] = struct{}{}
		pipe.Publish(ctx, UserChannel(userID), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		observability.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	observability.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

// Notify publishes and logs failures instead of returning them.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	if err := n.Publish(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// StartStaffSubscriber subscribes to the staff channel and calls onEvent for
// each decoded event until ctx is cancelled.
func (n *Notifier) StartStaffSubscriber(ctx context.Context, onEvent func(Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, StaffChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", StaffChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("dropping malformed event", slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in staff subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
