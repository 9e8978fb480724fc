package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fareone/bookings/internal/geo"
)

// MaxStops limits intermediate stops between pickup and dropoff.
const MaxStops = 3

// DefaultDebounce is the quiet period a waypoint field waits for after a
// keystroke before issuing a remote suggestion lookup.
const DefaultDebounce = 300 * time.Millisecond

// minQueryLen is the shortest input worth sending to the geocoder. Shorter
// non-empty input clears the suggestion list instead.
const minQueryLen = 3

type SlotID string

const (
	SlotPickup  SlotID = "pickup"
	SlotDropoff SlotID = "dropoff"
)

// StopSlot returns the slot id for the n-th intermediate stop (1-based).
func StopSlot(n int) SlotID {
	return SlotID(fmt.Sprintf("stop-%d", n))
}

// Listener receives state changes derived inside the Manager. Calls are made
// without the manager lock held, but from whichever goroutine completed the
// work, so implementations must be safe for concurrent use.
type Listener interface {
	SuggestionsUpdated(slot SlotID, items []geo.Suggestion)
	RouteUpdated(result *geo.RouteResult, miles float64)
	RouteUnavailable(err error)
	BookableChanged(bookable bool)
}

// NopListener ignores every notification. Useful as an embedding base.
type NopListener struct{}

func (NopListener) SuggestionsUpdated(SlotID, []geo.Suggestion) {}
func (NopListener) RouteUpdated(*geo.RouteResult, float64)      {}
func (NopListener) RouteUnavailable(error)                      {}
func (NopListener) BookableChanged(bool)                        {}

type slot struct {
	text        string
	coord       *geo.Coordinate
	suggestions []geo.Suggestion
	timer       *time.Timer
	seq         uint64 // last issued suggestion lookup for this slot
}

// Manager owns the waypoint state for one quoting session: the pickup,
// dropoff and stop slots, their resolved coordinates, suggestion lists and
// the routed distance. Every mutation funnels through it so that derived
// state (bookability, route, price inputs) never reads a stale text/coord
// combination.
//
// Each suggestion lookup and route request carries a monotonically increasing
// sequence number; responses for superseded sequences are discarded, so a
// slow early response can never overwrite the result of a later request.
type Manager struct {
	mu sync.Mutex

	suggester geo.Suggester
	router    geo.Router
	listener  Listener
	debounce  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	slots    map[SlotID]*slot
	stopIDs  []SlotID
	stopSeq  int // last issued stop number, never reused
	routeSeq uint64

	distanceMiles float64
	lastRoute     *geo.RouteResult
	bookable      bool
}

func NewManager(suggester geo.Suggester, router geo.Router, listener Listener, debounce time.Duration) *Manager {
	if listener == nil {
		listener = NopListener{}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		suggester: suggester,
		router:    router,
		listener:  listener,
		debounce:  debounce,
		ctx:       ctx,
		cancel:    cancel,
		slots: map[SlotID]*slot{
			SlotPickup:  {},
			SlotDropoff: {},
		},
	}
}

// Close cancels any in-flight lookups and pending debounce timers.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, s := range m.slots {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	}
	m.mu.Unlock()
	m.cancel()
}

// AddStop creates a new intermediate stop slot.
func (m *Manager) AddStop() (SlotID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.stopIDs) >= MaxStops {
		return "", fmt.Errorf("at most %d stops allowed", MaxStops)
	}
	m.stopSeq++
	id := StopSlot(m.stopSeq)
	m.slots[id] = &slot{}
	m.stopIDs = append(m.stopIDs, id)
	return id, nil
}

// RemoveStop drops a stop slot. Removing a resolved stop changes the
// waypoint sequence, so the route is recomputed.
func (m *Manager) RemoveStop(id SlotID) {
	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok || (id == SlotPickup || id == SlotDropoff) {
		m.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	resolved := s.coord != nil
	delete(m.slots, id)
	for i, sid := range m.stopIDs {
		if sid == id {
			m.stopIDs = append(m.stopIDs[:i], m.stopIDs[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if resolved {
		m.recomputeRoute()
	}
}

// Focus handles a waypoint field gaining focus: all other suggestion lists
// close, and the focused slot re-runs the same lookup typing would have
// triggered (presets when empty). Focusing does not clear the resolved
// coordinate; only editing the text does.
func (m *Manager) Focus(id SlotID) {
	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok {
		m.mu.Unlock()
		return
	}

	var closed []SlotID
	for sid, other := range m.slots {
		if sid == id || len(other.suggestions) == 0 {
			continue
		}
		other.suggestions = nil
		closed = append(closed, sid)
	}
	text := s.text
	m.mu.Unlock()

	for _, sid := range closed {
		m.listener.SuggestionsUpdated(sid, nil)
	}

	m.lookup(id, text)
}

// SetText handles a keystroke in a waypoint field. The edited text always
// invalidates the slot's prior geocode until a suggestion is chosen again.
func (m *Manager) SetText(id SlotID, text string) {
	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	s.text = text
	s.coord = nil
	bookable, changed := m.refreshBookableLocked()
	m.mu.Unlock()

	if changed {
		m.listener.BookableChanged(bookable)
	}

	m.lookup(id, text)
}

// SelectSuggestion confirms a candidate for a slot: the label becomes the
// display text, the coordinate resolves, the slot's list closes, and the
// route is recomputed. Header rows are not selectable.
func (m *Manager) SelectSuggestion(id SlotID, sg geo.Suggestion) {
	if sg.Header {
		return
	}

	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++ // supersede any in-flight lookup for this slot
	s.text = sg.Label
	coord := sg.Coord
	s.coord = &coord
	s.suggestions = nil
	bookable, changed := m.refreshBookableLocked()
	m.mu.Unlock()

	m.listener.SuggestionsUpdated(id, nil)
	if changed {
		m.listener.BookableChanged(bookable)
	}

	m.recomputeRoute()
}

// lookup routes a text value to the right suggestion behavior: presets for
// empty input, nothing for too-short input, a debounced remote lookup
// otherwise.
func (m *Manager) lookup(id SlotID, text string) {
	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	seq := s.seq

	switch {
	case len(text) == 0:
		s.suggestions = geo.Presets()
		items := s.suggestions
		m.mu.Unlock()
		m.listener.SuggestionsUpdated(id, items)
		return
	case len(text) < minQueryLen:
		s.suggestions = nil
		m.mu.Unlock()
		m.listener.SuggestionsUpdated(id, nil)
		return
	}

	s.timer = time.AfterFunc(m.debounce, func() {
		m.runLookup(id, seq, text)
	})
	m.mu.Unlock()
}

func (m *Manager) runLookup(id SlotID, seq uint64, text string) {
	items, err := m.suggester.Suggest(m.ctx, text)

	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok || s.seq != seq {
		// A newer keystroke or selection superseded this lookup.
		m.mu.Unlock()
		return
	}
	if err != nil {
		// Suggestion failures show no list; nothing else to do.
		s.suggestions = nil
		m.mu.Unlock()
		m.listener.SuggestionsUpdated(id, nil)
		return
	}
	s.suggestions = items
	m.mu.Unlock()

	m.listener.SuggestionsUpdated(id, items)
}

// recomputeRoute issues a route request when both endpoints are resolved.
// Unresolved stops are skipped, not blocking. On provider failure the prior
// distance stands and the listener is told the route is unavailable.
func (m *Manager) recomputeRoute() {
	m.mu.Lock()
	coords, ok := m.routeCoordsLocked()
	if !ok {
		m.mu.Unlock()
		return
	}
	m.routeSeq++
	seq := m.routeSeq
	m.mu.Unlock()

	go func() {
		result, err := m.router.Route(m.ctx, coords)

		m.mu.Lock()
		if seq != m.routeSeq {
			m.mu.Unlock()
			return
		}
		if err != nil {
			m.mu.Unlock()
			m.listener.RouteUnavailable(err)
			return
		}
		m.distanceMiles = result.Miles()
		m.lastRoute = result
		miles := m.distanceMiles
		m.mu.Unlock()

		m.listener.RouteUpdated(result, miles)
	}()
}

func (m *Manager) routeCoordsLocked() ([]geo.Coordinate, bool) {
	pickup := m.slots[SlotPickup].coord
	dropoff := m.slots[SlotDropoff].coord
	if pickup == nil || dropoff == nil {
		return nil, false
	}

	coords := []geo.Coordinate{*pickup}
	for _, sid := range m.stopIDs {
		if c := m.slots[sid].coord; c != nil {
			coords = append(coords, *c)
		}
	}
	coords = append(coords, *dropoff)
	return coords, true
}

func (m *Manager) refreshBookableLocked() (bookable, changed bool) {
	bookable = m.slots[SlotPickup].coord != nil && m.slots[SlotDropoff].coord != nil
	changed = bookable != m.bookable
	m.bookable = bookable
	return bookable, changed
}

// Text returns a slot's current display text.
func (m *Manager) Text(id SlotID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		return s.text
	}
	return ""
}

// Coordinate returns a slot's resolved coordinate, or nil when the text has
// not been confirmed against a suggestion.
func (m *Manager) Coordinate(id SlotID) *geo.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok && s.coord != nil {
		c := *s.coord
		return &c
	}
	return nil
}

// Suggestions returns the currently open suggestion list for a slot.
func (m *Manager) Suggestions(id SlotID) []geo.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		return append([]geo.Suggestion(nil), s.suggestions...)
	}
	return nil
}

// DistanceMiles returns the last successfully routed distance.
func (m *Manager) DistanceMiles() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.distanceMiles
}

// Bookable reports whether both endpoints are resolved.
func (m *Manager) Bookable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookable
}
