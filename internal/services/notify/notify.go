// Package notify delivers user facing notifications over the bus
//
// The api publishes envelopes, the notifier binary consumes them on a
// queue group and turns them into mail. Anything that can go wrong on
// the publish side degrades to a log line, a notification is never
// worth failing the request that triggered it.
package notify

import "time"

// Subjects the envelopes travel on
const (
	SubjectPrefix   = "badgehub.notify."
	SubjectWildcard = "badgehub.notify.>"
	Queue           = "notifier"
)

// Notification kinds
const (
	KindWelcome        = "welcome"
	KindBadgeAwarded   = "badge_awarded"
	KindBadgeExpiring  = "badge_expiring"
	KindImportFinished = "import_finished"
	KindNetworkInvite  = "network_invite"
)

// EnvelopeVersion guards against wire drift between api and notifier
const EnvelopeVersion = 1

// Envelope is the versioned wire format for one notification
type Envelope struct {
	V         int               `json:"v"`
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Recipient string            `json:"recipient"`
	Params    map[string]string `json:"params,omitempty"`
	At        time.Time         `json:"at"`
}
