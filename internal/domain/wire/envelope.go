// Package wire defines the JSON envelopes exchanged with clients, independent
// of the transport that frames them.
package wire

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SourceServer marks envelopes originated by the relay itself rather than a peer.
const SourceServer = "SERVER"

// Inbound operation tags. The tag selects the routing action.
const (
	TypeAddGroup     = "add_group"
	TypeSideText     = "side_txt"
	TypeGroupText    = "group_txt"
	TypeExile        = "exile"
	TypeGroupInfoReq = "get_group_info"
)

// Outbound payload tags.
const (
	TypeText      = "txt"
	TypeError     = "error"
	TypeConsole   = "console"
	TypeRoster    = "update_user"
	TypeGroupInfo = "group_info"
	TypeExit      = "exit"
)

// Inbound is the client-to-server envelope. Only Type is contractually present;
// the remaining fields are interpreted per routing action.
type Inbound struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Target  string `json:"target"`
	GroupID string `json:"group_id"`
}

// Envelope is the server-to-client unit. Every delivery constructs a fresh
// Envelope per recipient; instances are never shared across consumers.
type Envelope struct {
	Source  string `json:"source"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// DecodeInbound parses a raw client frame. Malformed payloads yield an error
// for the caller to surface to the sender; decoding never panics.
func DecodeInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode inbound envelope: %w", err)
	}
	return &in, nil
}

// Encode serializes an outbound envelope.
func Encode(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode outbound envelope: %w", err)
	}
	return data, nil
}

type groupInfo struct {
	Members []string `json:"members"`
}

// GroupInfoContent renders the content field of a group_info envelope: a JSON
// object carrying the member list, empty for an unknown group.
func GroupInfoContent(members []string) string {
	if members == nil {
		members = []string{}
	}
	sort.Strings(members)
	data, _ := json.Marshal(groupInfo{Members: members})
	return string(data)
}

// RosterContent renders an update_user payload: usernames joined with "^",
// a single "^" when nobody else is online. Clients split on the separator.
func RosterContent(usernames []string) string {
	if len(usernames) == 0 {
		return "^"
	}
	sorted := make([]string, len(usernames))
	copy(sorted, usernames)
	sort.Strings(sorted)
	return strings.Join(sorted, "^")
}
