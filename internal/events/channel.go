package events

import (
	"time"

	"github.com/kelindar/event"
	"github.com/smazurov/palmcam/internal/logging"
)

// SubscribeToChannel delivers events of type T into ch for select-loop
// consumers such as SSE handlers. Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// ForwardSession delivers every capture related event into ch. Log entries
// are not included. The returned func removes all subscriptions.
func ForwardSession(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[SessionStateChangedEvent](bus, ch),
		SubscribeToChannel[AcquisitionAttemptEvent](bus, ch),
		SubscribeToChannel[FrameCapturedEvent](bus, ch),
		SubscribeToChannel[DeviceChangedEvent](bus, ch),
		SubscribeToChannel[LadderReloadedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// NewLogEntryEvent converts a buffered log entry for publishing.
func NewLogEntryEvent(entry logging.LogEntry) LogEntryEvent {
	return LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
