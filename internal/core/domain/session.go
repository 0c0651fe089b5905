package domain

import (
	"encoding/json"
	"fmt"
)

const (
	SessionKeyCart     = "cart"
	SessionKeyUserID   = "user_id"
	SessionKeyMessages = "messages"
)

type MessageLevel string

const (
	MessageInfo    MessageLevel = "info"
	MessageSuccess MessageLevel = "success"
	MessageWarning MessageLevel = "warning"
	MessageError   MessageLevel = "error"
)

// Message is a one-shot notice shown on the next page the client reads.
type Message struct {
	Level MessageLevel `json:"level"`
	Text  string       `json:"text"`
}

// Session is the per-client state bag. Values are kept encoded so that a
// session loaded from storage round-trips keys this package does not know.
type Session struct {
	ID       string
	IsNew    bool
	values   map[string]json.RawMessage
	modified bool
}

func NewSession(id string) *Session {
	return &Session{ID: id, IsNew: true, values: make(map[string]json.RawMessage)}
}

// RestoreSession decodes a session previously produced by Encode.
func RestoreSession(id string, data []byte) (*Session, error) {
	s := &Session{ID: id, values: make(map[string]json.RawMessage)}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, nil
}

func (s *Session) Encode() ([]byte, error) {
	return json.Marshal(s.values)
}

// Get decodes key into dst. It reports false when the key is absent, in
// which case dst is left as the caller's default.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode session key %q: %w", key, err)
	}
	return true, nil
}

func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode session key %q: %w", key, err)
	}
	s.values[key] = raw
	s.modified = true
	return nil
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

// Rekey moves the session contents to a new ID. The caller deletes the old
// record; used on login and logout so an ID seen before authentication is
// never reused after it.
func (s *Session) Rekey(id string) {
	s.ID = id
	s.IsNew = true
	s.modified = true
}

func (s *Session) MarkModified() {
	s.modified = true
}

func (s *Session) Modified() bool {
	return s.modified
}

// Cart returns a copy of the stored cart. A missing or undecodable cart
// reads as empty.
func (s *Session) Cart() Cart {
	cart := Cart{}
	if ok, err := s.Get(SessionKeyCart, &cart); !ok || err != nil {
		return Cart{}
	}
	return cart
}

func (s *Session) SetCart(c Cart) {
	// map[int64]int always encodes
	_ = s.Set(SessionKeyCart, c)
}

func (s *Session) UserID() (int64, bool) {
	var id int64
	ok, err := s.Get(SessionKeyUserID, &id)
	if !ok || err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (s *Session) SetUserID(id int64) {
	_ = s.Set(SessionKeyUserID, id)
}

// Logout drops the identity and everything tied to it, cart included.
func (s *Session) Logout() {
	clear(s.values)
	s.modified = true
}

func (s *Session) AddMessage(level MessageLevel, text string) {
	var msgs []Message
	_, _ = s.Get(SessionKeyMessages, &msgs)
	msgs = append(msgs, Message{Level: level, Text: text})
	_ = s.Set(SessionKeyMessages, msgs)
}

// PopMessages returns pending messages and removes them from the session.
func (s *Session) PopMessages() []Message {
	var msgs []Message
	if ok, _ := s.Get(SessionKeyMessages, &msgs); !ok {
		return nil
	}
	s.Delete(SessionKeyMessages)
	return msgs
}
