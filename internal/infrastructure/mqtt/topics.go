package mqtt

import "fmt"

// TopicRoot is the first level of every carrierd topic.
const TopicRoot = "carrier"

// Topics builds the topic tree for one carrier client:
//
//	carrier/{client_id}/status            online/offline, retained, LWT
//	carrier/{client_id}/session           session status, retained
//	carrier/{client_id}/event/{kind}      one message per delivered event
//	carrier/{client_id}/appdata/uplink    host payloads for the App Data Container
//	carrier/{client_id}/appdata/sent      acknowledgements of accepted uplinks
type Topics struct {
	ClientID string
}

// Status returns the connection status topic.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicRoot, t.ClientID)
}

// Session returns the retained session status topic.
func (t Topics) Session() string {
	return fmt.Sprintf("%s/%s/session", TopicRoot, t.ClientID)
}

// Event returns the topic for events of the named kind.
//
// Example: carrier/tracker-01/event/lte_link_up
func (t Topics) Event(kind string) string {
	return fmt.Sprintf("%s/%s/event/%s", TopicRoot, t.ClientID, kind)
}

// AllEvents returns a wildcard matching every event topic of this client.
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/%s/event/+", TopicRoot, t.ClientID)
}

// AppDataUplink returns the topic the host publishes App Data payloads to.
func (t Topics) AppDataUplink() string {
	return fmt.Sprintf("%s/%s/appdata/uplink", TopicRoot, t.ClientID)
}

// AppDataSent returns the topic acknowledging accepted uplink payloads.
func (t Topics) AppDataSent() string {
	return fmt.Sprintf("%s/%s/appdata/sent", TopicRoot, t.ClientID)
}
