// Package stub is an in-memory upstream.Client used by internal/ingest's
// tests: a real dependency swapped for a hand-built one behind the same
// interface rather than a generated mock.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/liveforge/dmcap/internal/ingest/upstream"
)

// Script is a scripted upstream backing one test scenario. All fields are
// read/written under Mu so a test can mutate it from the goroutine driving
// the pipeline while the pipeline's own goroutines read it concurrently.
type Script struct {
	Mu sync.Mutex

	LiveLists      [][]upstream.LiveEntry // consumed one per ListLive call; last one repeats
	StreamMeta     map[string]upstream.StreamMeta
	Summaries      map[string][]upstream.Summary // consumed one per Summary() call; last one repeats
	UserLiveInfos  map[uint64]upstream.UserLiveInfo
	MedalRanks     map[uint64]upstream.MedalRank
	GiftCatalogs   map[string][]upstream.GiftCatalogEntry
	Sessions       map[uint64]*Session // keyed by liverUID

	listCalls int
	summaryCalls map[string]int
}

func NewScript() *Script {
	return &Script{
		StreamMeta:    make(map[string]upstream.StreamMeta),
		Summaries:     make(map[string][]upstream.Summary),
		UserLiveInfos: make(map[uint64]upstream.UserLiveInfo),
		MedalRanks:    make(map[uint64]upstream.MedalRank),
		GiftCatalogs:  make(map[string][]upstream.GiftCatalogEntry),
		Sessions:      make(map[uint64]*Session),
		summaryCalls:  make(map[string]int),
	}
}

// Session is a scripted ChatSession: a fixed queue of events, ending with
// an io.EOF-equivalent once drained.
type Session struct {
	Mu       sync.Mutex
	Live     string
	OpenErr  error
	Events   []upstream.Event
	pos      int
	closed   bool
}

func (s *Session) LiveID() string { return s.Live }

func (s *Session) Next(ctx context.Context) (upstream.Event, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.pos >= len(s.Events) {
		return upstream.Event{}, upstream.ErrSessionDone
	}
	ev := s.Events[s.pos]
	s.pos++
	return ev, nil
}

func (s *Session) Close(ctx context.Context) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.closed = true
	return nil
}

// client is the upstream.Client backed by a shared Script.
type client struct {
	script *Script
}

// factory builds clients that all share the same Script, so a test can
// observe one consistent world no matter how many clients the pipeline
// constructs.
type factory struct {
	script *Script
}

func NewFactory(script *Script) upstream.Factory {
	return &factory{script: script}
}

func (f *factory) Build(ctx context.Context) (upstream.Client, error) {
	return &client{script: f.script}, nil
}

func (c *client) ListLive(ctx context.Context, limit, offset int) ([]upstream.LiveEntry, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if len(s.LiveLists) == 0 {
		return nil, nil
	}
	idx := s.listCalls
	if idx >= len(s.LiveLists) {
		idx = len(s.LiveLists) - 1
	}
	s.listCalls++
	return s.LiveLists[idx], nil
}

func (c *client) OpenChat(ctx context.Context, liverUID uint64) (upstream.ChatSession, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	sess, ok := s.Sessions[liverUID]
	if !ok {
		return nil, fmt.Errorf("stub: no scripted session for uid %d", liverUID)
	}
	if sess.OpenErr != nil {
		return nil, sess.OpenErr
	}
	return sess, nil
}

func (c *client) StreamMeta(ctx context.Context, entry upstream.LiveEntry) (upstream.StreamMeta, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	meta, ok := s.StreamMeta[entry.LiveID]
	if !ok {
		return upstream.StreamMeta{}, fmt.Errorf("stub: no scripted stream meta for %s", entry.LiveID)
	}
	return meta, nil
}

func (c *client) Summary(ctx context.Context, liveID string) (upstream.Summary, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	list := s.Summaries[liveID]
	if len(list) == 0 {
		return upstream.Summary{}, fmt.Errorf("stub: no scripted summary for %s", liveID)
	}
	idx := s.summaryCalls[liveID]
	if idx >= len(list) {
		idx = len(list) - 1
	}
	s.summaryCalls[liveID] = idx + 1
	return list[idx], nil
}

func (c *client) UserLiveInfo(ctx context.Context, liverUID uint64) (upstream.UserLiveInfo, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	info, ok := s.UserLiveInfos[liverUID]
	if !ok {
		return upstream.UserLiveInfo{}, nil
	}
	return info, nil
}

func (c *client) MedalRank(ctx context.Context, liverUID uint64) (upstream.MedalRank, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.MedalRanks[liverUID], nil
}

func (c *client) GiftCatalog(ctx context.Context, liveID string) ([]upstream.GiftCatalogEntry, error) {
	s := c.script
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.GiftCatalogs[liveID], nil
}
