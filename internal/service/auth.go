package service

import "github.com/webitel/im-relay-service/config"

// Privileged actions consulted through Auther.
const ActionExile = "exile"

// Auther decides whether a sender identity may perform a privileged action.
type Auther interface {
	Authorize(username, action string) bool
}

// Interface guard
var _ Auther = (*ReservedIdentityAuth)(nil)

// ReservedIdentityAuth grants every privileged action to a single reserved
// identity and nothing to anyone else. The identity is trusted verbatim from
// the transport, exactly like any other username.
type ReservedIdentityAuth struct {
	admin string
}

func NewReservedIdentityAuth(cfg *config.Config) *ReservedIdentityAuth {
	return &ReservedIdentityAuth{admin: cfg.Relay.AdminUser}
}

func (a *ReservedIdentityAuth) Authorize(username, action string) bool {
	return username != "" && username == a.admin
}
