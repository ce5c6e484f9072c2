//go:build integration

package activity_test

import (
	"encoding/json"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	"github.com/nats-io/nats.go/jetstream"
)

func decode(msg jetstream.Msg) (activity.Event, error) {
	var event activity.Event
	err := json.Unmarshal(msg.Data(), &event)
	return event, err
}
