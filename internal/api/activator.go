package api

import (
	"github.com/nerrad567/sensord/internal/capability"
	"github.com/nerrad567/sensord/internal/location"
	"github.com/nerrad567/sensord/internal/scan"
	"github.com/nerrad567/sensord/internal/stream"
)

// Publisher receives normalized events from activated producers.
type Publisher interface {
	Publish(ev capability.Event)
}

// activator routes registry activation requests to the collaborator that
// produces each capability class: hardware sensors to the source, scan
// kinds to the coordinator, location to the streamer. Touch is ambient and
// needs no activation.
type activator struct {
	source    capability.Source
	scans     *scan.Coordinator
	location  *location.Streamer
	publisher Publisher
}

// NewActivator builds the stream.Activator wiring producers to the
// dispatcher.
func NewActivator(source capability.Source, scans *scan.Coordinator, loc *location.Streamer, publisher Publisher) stream.Activator {
	return &activator{
		source:    source,
		scans:     scans,
		location:  loc,
		publisher: publisher,
	}
}

// Activate starts event production for a capability type.
// Called by the registry on 0→1 reference transitions, under its lock;
// producers start work on their own goroutines and never call back into
// the registry synchronously.
func (a *activator) Activate(capType string) error {
	switch capability.ClassOf(capType) {
	case capability.ClassScan:
		return a.scans.Activate(capType)
	case capability.ClassLocation:
		return a.location.Activate(capType)
	case capability.ClassTouch:
		return nil
	default:
		return a.source.Subscribe(capType, a.publisher.Publish)
	}
}

// Deactivate stops event production for a capability type.
// Called by the registry on 1→0 reference transitions.
func (a *activator) Deactivate(capType string) {
	switch capability.ClassOf(capType) {
	case capability.ClassScan:
		a.scans.Deactivate(capType)
	case capability.ClassLocation:
		a.location.Deactivate(capType)
	case capability.ClassTouch:
	default:
		a.source.Unsubscribe(capType)
	}
}
