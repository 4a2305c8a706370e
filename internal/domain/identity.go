package domain

// Identity names a chat participant. Username is the stable routing key
// (protocol-level address); Nickname is display-only and may be empty.
// Identities are values, created per message and never mutated.
type Identity struct {
	Username string
	Nickname string
}

// Message is an inbound chat message as decoded by a transport.
//
// Exactly one of To/Group is meaningful: a direct message carries To (the
// receiving identity) and an empty Group; a group message carries Group and
// a nil To. Messages are immutable once constructed.
type Message struct {
	Chat  Chat // originating chat, for reply helpers
	From  Identity
	To    *Identity
	Group string
	Text  string
}

// IsDirect reports whether the message was addressed to a single user
// rather than a group.
func (m Message) IsDirect() bool { return m.Group == "" }
