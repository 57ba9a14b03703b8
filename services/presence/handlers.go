package presence

import (
	"context"
	"fmt"

	"admissions-crm/models"
	"admissions-crm/services/kafka"
)

// Signal is the payload of the desktop client's presence events.
type Signal struct {
	CounselorID int64 `json:"counselor_id"`
}

// Register wires the inbound presence events into c. The tracker's own
// outbound events share the topic and are acknowledged without action.
func (t *Tracker) Register(c *kafka.Consumer) {
	c.Register(kafka.EventCounselorLogin, t.signalHandler(t.RecordLogin))
	c.Register(kafka.EventCounselorHeartbeat, t.signalHandler(t.UpdateActivity))
	c.Register(kafka.EventCounselorLogout, t.signalHandler(t.RecordLogout))
	c.Register(kafka.EventStatusChanged, ignore)
	c.Register(kafka.EventSessionsReleased, ignore)
}

type presenceOp func(ctx context.Context, counselorID int64) (*models.CounselorPresence, error)

func (t *Tracker) signalHandler(op presenceOp) kafka.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var sig Signal
		if err := msg.Decode(&sig); err != nil {
			return fmt.Errorf("decoding %s: %w", msg.Name, err)
		}
		if sig.CounselorID <= 0 {
			return fmt.Errorf("%s without counselor_id", msg.Name)
		}
		_, err := op(ctx, sig.CounselorID)
		return err
	}
}

func ignore(context.Context, kafka.Message) error { return nil }
