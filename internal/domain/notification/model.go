package notification

import (
	"fmt"
	"strconv"
)

// UserID identifies a recipient. The zero value is the anonymous,
// unauthenticated identity and never owns notification state.
type UserID int64

// IsAnonymous reports whether the id is the anonymous identity.
func (u UserID) IsAnonymous() bool { return u == 0 }

func (u UserID) String() string { return strconv.FormatInt(int64(u), 10) }

// Notification is a persisted notification record. NID is caller
// supplied and mandatory; PID ties the notification to the subject it
// concerns (0 means no subject) and drives deduplication together with
// Importance. Datetime is assigned at persistence time, in unix
// milliseconds, and is immutable afterwards.
type Notification struct {
	NID        string `json:"nid"`
	BodyShort  string `json:"bodyShort"`
	Path       string `json:"path"`
	PID        int64  `json:"pid,omitempty"`
	Type       string `json:"type,omitempty"`
	Importance int    `json:"importance,omitempty"`
	Datetime   int64  `json:"datetime"`

	// Extra carries caller-specific display fields that this subsystem
	// stores but never inspects.
	Extra map[string]string `json:"extra,omitempty"`
}

// reserved field names of the flat record representation.
var reservedFields = map[string]bool{
	"nid":        true,
	"bodyShort":  true,
	"path":       true,
	"pid":        true,
	"type":       true,
	"importance": true,
	"datetime":   true,
}

// toFields flattens the record into the field mapping stored under its
// record key. Optional fields are omitted when unset.
func (n *Notification) toFields() map[string]string {
	fields := map[string]string{
		"nid":       n.NID,
		"bodyShort": n.BodyShort,
		"path":      n.Path,
		"datetime":  strconv.FormatInt(n.Datetime, 10),
	}
	if n.PID != 0 {
		fields["pid"] = strconv.FormatInt(n.PID, 10)
	}
	if n.Type != "" {
		fields["type"] = n.Type
	}
	if n.Importance != 0 {
		fields["importance"] = strconv.Itoa(n.Importance)
	}
	for k, v := range n.Extra {
		if !reservedFields[k] {
			fields[k] = v
		}
	}
	return fields
}

// fromFields rebuilds a record from its stored field mapping.
func fromFields(fields map[string]string) *Notification {
	if len(fields) == 0 {
		return nil
	}
	n := &Notification{
		NID:       fields["nid"],
		BodyShort: fields["bodyShort"],
		Path:      fields["path"],
		Type:      fields["type"],
	}
	n.PID, _ = strconv.ParseInt(fields["pid"], 10, 64)
	n.Datetime, _ = strconv.ParseInt(fields["datetime"], 10, 64)
	n.Importance, _ = strconv.Atoi(fields["importance"])
	for k, v := range fields {
		if reservedFields[k] {
			continue
		}
		if n.Extra == nil {
			n.Extra = make(map[string]string)
		}
		n.Extra[k] = v
	}
	return n
}

// Index key layout. The global index is authoritative for existence;
// per-recipient indexes hold delivery and read-transition times.
const globalIndexKey = "notifications"

func recordKey(nid string) string { return "notifications:" + nid }

func subjectKey(pid int64) string {
	return fmt.Sprintf("notifications:pid:%d", pid)
}

func unreadKey(uid UserID) string {
	return fmt.Sprintf("uid:%d:notifications:unread", uid)
}

func readKey(uid UserID) string {
	return fmt.Sprintf("uid:%d:notifications:read", uid)
}

// NotifyRequest is the API request payload for creating and delivering
// a notification.
type NotifyRequest struct {
	NID        string            `json:"nid"`
	BodyShort  string            `json:"bodyShort" binding:"required"`
	Path       string            `json:"path"`
	PID        int64             `json:"pid"`
	Type       string            `json:"type"`
	Importance int               `json:"importance"`
	Extra      map[string]string `json:"extra"`

	// Delivery targets. Any combination; all empty means create-only.
	UIDs   []UserID `json:"uids"`
	Groups []string `json:"groups"`
}

// NotifyResponse is the API response after a notification is accepted.
type NotifyResponse struct {
	NID        string `json:"nid,omitempty"`
	Suppressed bool   `json:"suppressed"`
	Status     string `json:"status"`
}

// Inbox holds a recipient's notifications split by read state, each
// ordered by newest state transition first.
type Inbox struct {
	Unread []*Notification `json:"unread"`
	Read   []*Notification `json:"read"`
}
