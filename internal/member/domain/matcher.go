package domain

import (
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/normalize"
)

// Key names one of the three identity keys a member can be matched on.
type Key string

const (
	KeyExternalID Key = "external_id"
	KeyEmail      Key = "email"
	KeyPhone      Key = "phone"
)

// DefaultPriority is the tie-break order applied when several members match.
var DefaultPriority = []Key{KeyExternalID, KeyEmail, KeyPhone}

// Probe holds normalized identity keys. Empty fields are absent keys.
type Probe struct {
	ExternalID string
	Email      string
	Phone      string
}

// NewProbe normalizes raw identity fields into a Probe.
func NewProbe(externalID, email, phone string) Probe {
	return Probe{
		ExternalID: normalize.Text(externalID),
		Email:      normalize.EmailOrEmpty(email),
		Phone:      normalize.PhoneOrEmpty(phone),
	}
}

func (p Probe) Value(k Key) string {
	switch k {
	case KeyExternalID:
		return p.ExternalID
	case KeyEmail:
		return p.Email
	case KeyPhone:
		return p.Phone
	default:
		return ""
	}
}

func (p Probe) Empty() bool {
	return p.ExternalID == "" && p.Email == "" && p.Phone == ""
}

func (p Probe) present() int {
	n := 0
	for _, k := range DefaultPriority {
		if p.Value(k) != "" {
			n++
		}
	}
	return n
}

// RowKey picks a single representative key: external id, else email, else phone.
func (p Probe) RowKey() string {
	for _, k := range DefaultPriority {
		if v := p.Value(k); v != "" {
			return v
		}
	}
	return ""
}

// Index answers which members carry a given key value.
type Index interface {
	Lookup(key Key, value string) []snowflake.ID
}

// MemoryIndex is an in-memory Index over a member snapshot.
type MemoryIndex struct {
	byKey map[Key]map[string][]snowflake.ID
}

func NewIndex(members []Member) *MemoryIndex {
	ix := &MemoryIndex{byKey: map[Key]map[string][]snowflake.ID{
		KeyExternalID: {},
		KeyEmail:      {},
		KeyPhone:      {},
	}}
	for _, m := range members {
		ix.Add(m)
	}
	return ix
}

func (ix *MemoryIndex) Add(m Member) {
	ix.put(KeyExternalID, Deref(m.ExternalID), m.ID)
	ix.put(KeyEmail, Deref(m.EmailLower), m.ID)
	ix.put(KeyPhone, Deref(m.PhoneE164), m.ID)
}

func (ix *MemoryIndex) put(k Key, value string, id snowflake.ID) {
	if value == "" {
		return
	}
	ids := ix.byKey[k][value]
	pos, found := slices.BinarySearch(ids, id)
	if found {
		return
	}
	ix.byKey[k][value] = slices.Insert(ids, pos, id)
}

// Lookup returns matching ids in ascending order.
func (ix *MemoryIndex) Lookup(k Key, value string) []snowflake.ID {
	if value == "" {
		return nil
	}
	return ix.byKey[k][value]
}

// Matcher picks the canonical member for a probe.
type Matcher interface {
	Match(index Index, probe Probe) (snowflake.ID, bool)
}

// AnyKeyMatcher accepts a match on any single key. The first key in Priority
// with at least one hit wins; within a key the oldest (lowest) id wins.
type AnyKeyMatcher struct {
	Priority []Key
}

func (m AnyKeyMatcher) Match(index Index, probe Probe) (snowflake.ID, bool) {
	priority := m.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	for _, k := range priority {
		if ids := index.Lookup(k, probe.Value(k)); len(ids) > 0 {
			return ids[0], true
		}
	}
	return 0, false
}

// QuorumMatcher only accepts a member that agrees with the probe on at least
// Quorum keys, capped at the number of keys the probe carries.
type QuorumMatcher struct {
	Quorum   int
	Priority []Key
}

func (m QuorumMatcher) Match(index Index, probe Probe) (snowflake.ID, bool) {
	priority := m.Priority
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	need := m.Quorum
	if need <= 0 {
		need = 2
	}
	need = min(need, probe.present())
	if need == 0 {
		return 0, false
	}

	type tally struct {
		hits int
		best int
	}
	tallies := map[snowflake.ID]*tally{}
	for rank, k := range priority {
		for _, id := range index.Lookup(k, probe.Value(k)) {
			t, ok := tallies[id]
			if !ok {
				t = &tally{best: rank}
				tallies[id] = t
			}
			t.hits++
		}
	}

	var (
		winner snowflake.ID
		wt     *tally
	)
	for id, t := range tallies {
		if t.hits < need {
			continue
		}
		if wt == nil ||
			t.hits > wt.hits ||
			(t.hits == wt.hits && t.best < wt.best) ||
			(t.hits == wt.hits && t.best == wt.best && id < winner) {
			winner, wt = id, t
		}
	}
	return winner, wt != nil
}

// FindCandidate resolves raw identity keys against index with the default matcher.
func FindCandidate(index Index, externalID, email, phone string) (snowflake.ID, bool) {
	return AnyKeyMatcher{}.Match(index, NewProbe(externalID, email, phone))
}
