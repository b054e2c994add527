package services

import (
	"context"
	"sync"
	"time"

	"github.com/wattrewards/wattrewards/internal/push"
	"github.com/wattrewards/wattrewards/internal/realtime"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []realtime.Message
	users    []string
}

func (b *recordingBroadcaster) BroadcastToUser(_ string, userID string, message realtime.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, userID)
	b.messages = append(b.messages, message)
}

func (b *recordingBroadcaster) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, msg := range b.messages {
		out = append(out, msg.Event)
	}
	return out
}

// fakeSender returns the configured error per token; unknown tokens succeed.
type fakeSender struct {
	mu    sync.Mutex
	errs  map[string]error
	block map[string]bool
	sent  map[string]push.Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		errs:  map[string]error{},
		block: map[string]bool{},
		sent:  map[string]push.Message{},
	}
}

func (s *fakeSender) Send(ctx context.Context, token string, msg push.Message) error {
	s.mu.Lock()
	err := s.errs[token]
	block := s.block[token]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sent[token] = msg
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) sentTo(token string) (push.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.sent[token]
	return msg, ok
}

type fakeProvider struct {
	name  string
	err   error
	hang  bool
	mu    sync.Mutex
	codes []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Send(ctx context.Context, _ string, code string) error {
	if p.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.codes = append(p.codes, code)
	p.mu.Unlock()
	return nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.codes)
}

func (p *fakeProvider) lastCode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.codes) == 0 {
		return ""
	}
	return p.codes[len(p.codes)-1]
}

type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}
