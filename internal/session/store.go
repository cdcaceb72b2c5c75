// Package session keeps the locally held account and inbox in step with the
// mailbox server.
package session

import (
	"sync"

	"github.com/restan/tethbox/internal/tethbox"
)

// AccountObserver receives a copy of the account after every account mutation.
// A nil account means there is no active session.
type AccountObserver func(account *tethbox.Account)

// MessagesObserver receives a copy of the message list after every list mutation
type MessagesObserver func(messages []tethbox.Message)

type accountSub struct {
	id int
	fn AccountObserver
}

type messagesSub struct {
	id int
	fn MessagesObserver
}

// Store holds the current account and its messages. Observers run on the
// mutating goroutine after the store lock is released and must not block.
type Store struct {
	mu       sync.RWMutex
	account  *tethbox.Account
	messages []tethbox.Message

	obsMu       sync.Mutex
	nextID      int
	accountObs  []accountSub
	messagesObs []messagesSub
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{messages: []tethbox.Message{}}
}

// Account returns a copy of the current account, or nil
func (s *Store) Account() *tethbox.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAccount(s.account)
}

// Messages returns a copy of the cached message list
func (s *Store) Messages() []tethbox.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages)
}

// Message returns a copy of the cached message with key
func (s *Store) Message(key string) (tethbox.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(key); i >= 0 {
		return s.messages[i].Clone(), true
	}
	return tethbox.Message{}, false
}

// UnreadCount returns how many cached messages are unread
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if !m.Read {
			n++
		}
	}
	return n
}

// SetAccount applies a server account. Nil tears the session down and clears
// the messages. A different email is an account rotation: the account is
// replaced and the previous account's messages are dropped. The same email
// only refreshes the countdown.
func (s *Store) SetAccount(account *tethbox.Account) {
	s.mu.Lock()
	messagesCleared := false
	switch {
	case account == nil:
		s.account = nil
		messagesCleared = len(s.messages) > 0
		s.messages = []tethbox.Message{}
	case s.account != nil && s.account.Email == account.Email:
		s.account.ExpireIn = account.ExpireIn
	default:
		messagesCleared = len(s.messages) > 0
		s.account = copyAccount(account)
		s.messages = []tethbox.Message{}
	}
	acct := copyAccount(s.account)
	var msgs []tethbox.Message
	if messagesCleared {
		msgs = []tethbox.Message{}
	}
	s.mu.Unlock()

	s.notifyAccount(acct)
	if messagesCleared {
		s.notifyMessages(msgs)
	}
}

// SetMessages replaces the message list with incoming summaries. Fetched
// detail and the read flag of already cached messages are carried over by
// key, so a poll never reverts what the user has opened.
func (s *Store) SetMessages(incoming []tethbox.Message) {
	s.mu.Lock()
	cached := make(map[string]tethbox.Message, len(s.messages))
	for _, m := range s.messages {
		cached[m.Key] = m
	}

	next := make([]tethbox.Message, 0, len(incoming))
	for _, in := range incoming {
		m := in.Clone()
		if old, ok := cached[m.Key]; ok {
			if old.Fetched {
				m.Fetched = true
				m.HTML = old.HTML
				m.Attachments = old.Clone().Attachments
			}
			m.Read = m.Read || old.Read
		}
		next = append(next, m)
	}
	s.messages = next
	snapshot := cloneMessages(next)
	s.mu.Unlock()

	s.notifyMessages(snapshot)
}

// MarkRead flags a cached message as read. It reports false when key is unknown.
func (s *Store) MarkRead(key string) bool {
	s.mu.Lock()
	i := s.indexLocked(key)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.messages[i].Read = true
	snapshot := cloneMessages(s.messages)
	s.mu.Unlock()

	s.notifyMessages(snapshot)
	return true
}

// MergeDetail caches a fetched message body on its summary. It reports false
// when the summary is no longer cached.
func (s *Store) MergeDetail(detail tethbox.Message) bool {
	s.mu.Lock()
	i := s.indexLocked(detail.Key)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	d := detail.Clone()
	s.messages[i].HTML = d.HTML
	s.messages[i].Attachments = d.Attachments
	s.messages[i].Fetched = true
	snapshot := cloneMessages(s.messages)
	s.mu.Unlock()

	s.notifyMessages(snapshot)
	return true
}

// DecrementLocalExpiry counts the cached account down by one second, never
// below zero. It reports whether anything changed.
func (s *Store) DecrementLocalExpiry() bool {
	s.mu.Lock()
	if s.account == nil || s.account.ExpireIn <= 0 {
		s.mu.Unlock()
		return false
	}
	s.account.ExpireIn--
	acct := copyAccount(s.account)
	s.mu.Unlock()

	s.notifyAccount(acct)
	return true
}

// OnAccountChanged subscribes fn to account changes and returns its unsubscribe func
func (s *Store) OnAccountChanged(fn AccountObserver) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextID++
	id := s.nextID
	s.accountObs = append(s.accountObs, accountSub{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.accountObs {
			if sub.id == id {
				s.accountObs = append(s.accountObs[:i], s.accountObs[i+1:]...)
				return
			}
		}
	}
}

// OnMessagesChanged subscribes fn to message list changes and returns its unsubscribe func
func (s *Store) OnMessagesChanged(fn MessagesObserver) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextID++
	id := s.nextID
	s.messagesObs = append(s.messagesObs, messagesSub{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.messagesObs {
			if sub.id == id {
				s.messagesObs = append(s.messagesObs[:i], s.messagesObs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notifyAccount(acct *tethbox.Account) {
	s.obsMu.Lock()
	subs := append([]accountSub(nil), s.accountObs...)
	s.obsMu.Unlock()
	for _, sub := range subs {
		sub.fn(copyAccount(acct))
	}
}

func (s *Store) notifyMessages(msgs []tethbox.Message) {
	s.obsMu.Lock()
	subs := append([]messagesSub(nil), s.messagesObs...)
	s.obsMu.Unlock()
	for _, sub := range subs {
		sub.fn(cloneMessages(msgs))
	}
}

func (s *Store) indexLocked(key string) int {
	for i := range s.messages {
		if s.messages[i].Key == key {
			return i
		}
	}
	return -1
}

func copyAccount(a *tethbox.Account) *tethbox.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func cloneMessages(msgs []tethbox.Message) []tethbox.Message {
	out := make([]tethbox.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
