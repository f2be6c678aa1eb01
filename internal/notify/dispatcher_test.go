package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// staticContacts serves a fixed contact snapshot.
type staticContacts map[int64]Contact

func (s staticContacts) Contacts() map[int64]Contact {
	return s
}

// recordingSender records deliveries and can be made to fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (s *recordingSender) Send(to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("delivery failed")
	}
	s.sent = append(s.sent, fmt.Sprintf("%s|%s", to, text))
	return nil
}

func (s *recordingSender) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestDrainDeliversBothChannels(t *testing.T) {
	q := NewQueue()
	email := &recordingSender{}
	phone := &recordingSender{}
	contacts := staticContacts{
		7: {Email: "ana@example.com", Phone: "+34600000001"},
	}

	d := NewDispatcher(q, contacts, email, phone, time.Second)

	q.Enqueue(7, "dev-1", "Lost connection to IoT device #dev-1")
	d.Drain()

	if got := email.snapshot(); len(got) != 1 || got[0] != "ana@example.com|Lost connection to IoT device #dev-1" {
		t.Errorf("email deliveries = %v", got)
	}
	if got := phone.snapshot(); len(got) != 1 || got[0] != "+34600000001|Lost connection to IoT device #dev-1" {
		t.Errorf("phone deliveries = %v", got)
	}

	// The item was consumed; draining again delivers nothing new.
	d.Drain()
	if len(email.snapshot()) != 1 {
		t.Errorf("message delivered twice")
	}
}

func TestDrainDropsUndeliverable(t *testing.T) {
	q := NewQueue()
	email := &recordingSender{}
	contacts := staticContacts{
		7: {Email: "ana@example.com"},
		8: {}, // no contact details
	}

	d := NewDispatcher(q, contacts, email, nil, time.Second)

	q.Enqueue(0, "dev-1", "unlinked device alert") // no owning user
	q.Enqueue(8, "dev-2", "no contact details")
	q.Enqueue(99, "dev-3", "unknown user")
	q.Enqueue(7, "dev-4", "deliverable")
	d.Drain()

	got := email.snapshot()
	if len(got) != 1 || got[0] != "ana@example.com|deliverable" {
		t.Errorf("deliveries = %v", got)
	}
	if q.Len() != 0 {
		t.Errorf("dropped items left in queue: %d", q.Len())
	}
}

func TestDrainFailureDoesNotBlockOthers(t *testing.T) {
	q := NewQueue()
	email := &recordingSender{fail: true}
	phone := &recordingSender{}
	contacts := staticContacts{
		7: {Email: "ana@example.com", Phone: "+34600000001"},
		8: {Email: "bob@example.com"},
	}

	d := NewDispatcher(q, contacts, email, phone, time.Second)

	q.Enqueue(7, "dev-1", "first")
	q.Enqueue(8, "dev-2", "second")
	d.Drain()

	// Email fails for both, but the phone channel of user 7 still
	// receives its copy and the queue ends empty.
	if got := phone.snapshot(); len(got) != 1 || got[0] != "+34600000001|first" {
		t.Errorf("phone deliveries = %v", got)
	}
	if q.Len() != 0 {
		t.Errorf("failed items left in queue: %d", q.Len())
	}
}

func TestDrainNilSenders(t *testing.T) {
	q := NewQueue()
	contacts := staticContacts{7: {Email: "ana@example.com"}}

	d := NewDispatcher(q, contacts, nil, nil, time.Second)

	q.Enqueue(7, "dev-1", "message")
	d.Drain() // must not panic
	if q.Len() != 0 {
		t.Errorf("queue not drained")
	}
}

func TestDispatcherLoop(t *testing.T) {
	q := NewQueue()
	email := &recordingSender{}
	contacts := staticContacts{7: {Email: "ana@example.com"}}

	d := NewDispatcher(q, contacts, email, nil, 10*time.Millisecond)
	d.Start(context.Background())

	q.Enqueue(7, "dev-1", "message")

	deadline := time.After(2 * time.Second)
	for len(email.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("dispatcher never drained the queue")
		case <-time.After(5 * time.Millisecond):
		}
	}

	d.Close()
}

func TestDispatcherCloseWithoutStart(t *testing.T) {
	d := NewDispatcher(NewQueue(), staticContacts{}, nil, nil, time.Second)
	d.Close() // must not panic or block
}

func TestWhatsappSender(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding gateway body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWhatsappSender(WhatsappConfig{URL: srv.URL, Token: "gw-token"})
	if err := s.Send("+34600000001", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotAuth != "Bearer gw-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["phone"] != "+34600000001" || gotBody["message"] != "hello" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestWhatsappSenderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWhatsappSender(WhatsappConfig{URL: srv.URL})
	if err := s.Send("+34600000001", "hello"); err == nil {
		t.Errorf("Send() succeeded despite gateway error")
	}
}

func TestWhatsappSenderUnreachable(t *testing.T) {
	s := NewWhatsappSender(WhatsappConfig{URL: "http://127.0.0.1:1/send"})
	if err := s.Send("+34600000001", "hello"); err == nil {
		t.Errorf("Send() succeeded despite unreachable gateway")
	}
}

func TestSMTPSenderSubjectDefault(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 587})
	if s.cfg.Subject != defaultSubject {
		t.Errorf("Subject = %q, want %q", s.cfg.Subject, defaultSubject)
	}

	s = NewSMTPSender(SMTPConfig{Subject: "Custom"})
	if s.cfg.Subject != "Custom" {
		t.Errorf("Subject = %q, want Custom", s.cfg.Subject)
	}
}
