// Package catalog holds the token roster shared by the backend gateway and
// the tool CLI: a mapping from bearer token to principal (Admin or a
// specific streamer), plus the opt-in capture set consulted by the ingest
// supervisor. Every mutation is followed by a synchronous save — there is
// no write-behind, because a crash between mutation and save would silently
// roll back an operator's add/remove.
package catalog

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
)

const tokenLength = 20

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrNotFound is returned by Lookup when a token is not present in the
// roster.
var ErrNotFound = errors.New("catalog: token not found")

// Principal is a sum type: exactly one of Admin or Streamer is meaningful,
// selected by Kind.
type Principal struct {
	Kind PrincipalKind
	UID  uint64 // meaningful only when Kind == Streamer
}

type PrincipalKind int

const (
	Admin PrincipalKind = iota
	Streamer
)

func AdminPrincipal() Principal { return Principal{Kind: Admin} }

func StreamerPrincipal(uid uint64) Principal { return Principal{Kind: Streamer, UID: uid} }

// document is the serialized shape persisted inside the encryption
// envelope. It is kept separate from Roster so that json tags don't leak
// into the in-memory API.
type document struct {
	StreamerTokens map[string]uint64 `json:"streamer_tokens,omitempty"`
	AdminTokens    map[string]bool   `json:"admin_tokens,omitempty"`
	// Capture is populated only in the data-center process's own copy of
	// this document; the backend's roster file leaves it empty.
	Capture map[uint64]bool `json:"capture,omitempty"`
}

func newDocument() document {
	return document{
		StreamerTokens: make(map[string]uint64),
		AdminTokens:    make(map[string]bool),
		Capture:        make(map[uint64]bool),
	}
}

// clone deep-copies doc's maps so the result can be mutated independently
// of doc, to snapshot state before a mutation that might need to be rolled
// back on a save failure.
func (doc document) clone() document {
	out := document{
		StreamerTokens: make(map[string]uint64, len(doc.StreamerTokens)),
		AdminTokens:    make(map[string]bool, len(doc.AdminTokens)),
		Capture:        make(map[uint64]bool, len(doc.Capture)),
	}
	for k, v := range doc.StreamerTokens {
		out.StreamerTokens[k] = v
	}
	for k, v := range doc.AdminTokens {
		out.AdminTokens[k] = v
	}
	for k, v := range doc.Capture {
		out.Capture[k] = v
	}
	return out
}

// Roster is the in-memory, mutex-guarded token roster. Every exported
// mutation persists via the Store passed to New before returning:
// mutate, then synchronously save.
type Roster struct {
	mu    sync.Mutex
	doc   document
	store *Store
}

// New loads an existing roster from store, or starts empty if none exists
// yet. A decrypt failure from store.Load is returned unwrapped so the
// caller can treat it as fatal per the Config error kind.
func New(store *Store) (*Roster, error) {
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Roster{doc: doc, store: store}, nil
}

// Lookup resolves a bearer token to its principal. Token length is not
// validated here — callers (the gateway) reject wrong-length tokens before
// ever calling Lookup, per spec.
func (r *Roster) Lookup(token string) (Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc.AdminTokens[token] {
		return AdminPrincipal(), nil
	}
	if uid, ok := r.doc.StreamerTokens[token]; ok {
		return StreamerPrincipal(uid), nil
	}
	return Principal{}, ErrNotFound
}

// EnsureAdmin returns the existing admin token if one exists, or generates,
// inserts, and persists a new one. Idempotent across restarts.
func (r *Roster) EnsureAdmin() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for tok := range r.doc.AdminTokens {
		return tok, nil
	}

	tok, err := generateToken()
	if err != nil {
		return "", err
	}
	r.doc.AdminTokens[tok] = true
	if err := r.store.Save(r.doc); err != nil {
		delete(r.doc.AdminTokens, tok)
		return "", err
	}
	return tok, nil
}

// AddResult reports whether a streamer token already existed prior to this
// call, and carries the freshly issued token.
type AddResult struct {
	Preexisting bool
	Token       string
}

// AddStreamer issues a new token for uid, revoking any token previously
// issued to that uid first — the unique-uid invariant. viaTool only
// affects what the caller reports upstream (signal-bus side effects); it
// has no bearing on roster mutation semantics.
func (r *Roster) AddStreamer(uid uint64) (AddResult, error) {
	if uid == 0 {
		return AddResult{}, fmt.Errorf("catalog: uid must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.doc.clone()
	preexisting := removeStreamerTokens(&r.doc, uid)

	tok, err := generateToken()
	if err != nil {
		r.doc = prev
		return AddResult{}, err
	}
	r.doc.StreamerTokens[tok] = uid

	if err := r.store.Save(r.doc); err != nil {
		r.doc = prev
		return AddResult{}, err
	}
	return AddResult{Preexisting: preexisting, Token: tok}, nil
}

// RemoveResult reports whether any token existed for the uid being removed.
type RemoveResult struct {
	Preexisting bool
}

// RemoveStreamer strips every token whose principal is Streamer(uid).
func (r *Roster) RemoveStreamer(uid uint64) (RemoveResult, error) {
	if uid == 0 {
		return RemoveResult{}, fmt.Errorf("catalog: uid must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.doc.clone()
	preexisting := removeStreamerTokens(&r.doc, uid)

	if !preexisting {
		return RemoveResult{Preexisting: false}, nil
	}

	if err := r.store.Save(r.doc); err != nil {
		r.doc = prev
		return RemoveResult{}, err
	}
	return RemoveResult{Preexisting: true}, nil
}

// removeStreamerTokens deletes every token mapped to uid from doc and
// reports whether any were present. doc.StreamerTokens is mutated in
// place; callers are responsible for locking and for restoring a snapshot
// on a later save failure.
func removeStreamerTokens(doc *document, uid uint64) bool {
	found := false
	for tok, mappedUID := range doc.StreamerTokens {
		if mappedUID == uid {
			delete(doc.StreamerTokens, tok)
			found = true
		}
	}
	return found
}

func generateToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("catalog: generate token: %w", err)
	}
	out := make([]byte, tokenLength)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}

// TokenLength is exported so the gateway can reject wrong-length tokens
// before ever calling Lookup.
const TokenLength = tokenLength
