package mqtt

// Topic prefix for all sensord messages.
const topicPrefix = "sensord"

// Topics builds the broker topic names used by sensord.
//
// Layout:
//
//	sensord/event/<capability>   one message per dispatched event
//	sensord/system/status        retained online/offline status + LWT
type Topics struct{}

// Event returns the egress topic for a capability's events.
func (Topics) Event(capType string) string {
	return topicPrefix + "/event/" + capType
}

// SystemStatus returns the retained status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}
