package quote_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fareone/bookings/internal/geo"
	"github.com/fareone/bookings/internal/quote"
)

// ---------- Mocks ----------

type fakeSuggester struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]geo.Suggestion
	err     error
	block   chan struct{} // when set, Suggest waits on it before returning
}

func (f *fakeSuggester) Suggest(ctx context.Context, query string) ([]geo.Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSuggester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSuggester) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

type fakeRouter struct {
	mu     sync.Mutex
	calls  [][]geo.Coordinate
	meters float64
	err    error
}

func (f *fakeRouter) Route(_ context.Context, coords []geo.Coordinate) (*geo.RouteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]geo.Coordinate(nil), coords...))
	if f.err != nil {
		return nil, f.err
	}
	return &geo.RouteResult{DistanceMeters: f.meters}, nil
}

func (f *fakeRouter) lastCall() []geo.Coordinate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type recordingListener struct {
	mu           sync.Mutex
	suggestions  map[quote.SlotID][][]geo.Suggestion
	routeMiles   []float64
	routeErrs    []error
	bookableLog  []bool
}

func newRecordingListener() *recordingListener {
	return &recordingListener{suggestions: make(map[quote.SlotID][][]geo.Suggestion)}
}

func (l *recordingListener) SuggestionsUpdated(slot quote.SlotID, items []geo.Suggestion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.suggestions[slot] = append(l.suggestions[slot], items)
}

func (l *recordingListener) RouteUpdated(_ *geo.RouteResult, miles float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routeMiles = append(l.routeMiles, miles)
}

func (l *recordingListener) RouteUnavailable(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routeErrs = append(l.routeErrs, err)
}

func (l *recordingListener) BookableChanged(b bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookableLog = append(l.bookableLog, b)
}

func (l *recordingListener) routeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.routeMiles)
}

func (l *recordingListener) routeErrCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.routeErrs)
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-6
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func suggestion(label string, lng, lat float64) geo.Suggestion {
	return geo.Suggestion{Label: label, Coord: geo.Coordinate{Lng: lng, Lat: lat}}
}

// ---------- Tests ----------

func TestDebounceCollapsesKeystrokes(t *testing.T) {
	sg := &fakeSuggester{results: map[string][]geo.Suggestion{
		"heathrow": {suggestion("Heathrow Terminal 5", -0.4889, 51.4700)},
	}}
	m := quote.NewManager(sg, &fakeRouter{}, nil, 30*time.Millisecond)
	defer m.Close()

	for _, text := range []string{"hea", "heat", "heath", "heathr", "heathrow"} {
		m.SetText(quote.SlotPickup, text)
	}

	waitFor(t, func() bool { return sg.callCount() >= 1 }, "no lookup issued")
	time.Sleep(100 * time.Millisecond)

	if got := sg.callCount(); got != 1 {
		t.Errorf("lookups = %d, want 1 for a rapid burst", got)
	}
	if got := sg.lastCall(); got != "heathrow" {
		t.Errorf("lookup text = %q, want final text", got)
	}
}

func TestStaleSuggestionResponseDiscarded(t *testing.T) {
	block := make(chan struct{})
	sg := &fakeSuggester{
		block: block,
		results: map[string][]geo.Suggestion{
			"southampton": {suggestion("Southampton Airport (SOU)", -1.3568, 50.9503)},
		},
	}
	listener := newRecordingListener()
	m := quote.NewManager(sg, &fakeRouter{}, listener, 10*time.Millisecond)
	defer m.Close()

	m.SetText(quote.SlotPickup, "southampton")
	waitFor(t, func() bool { return sg.callCount() == 1 }, "first lookup not issued")

	// While the first response is stuck in flight, the user picks a
	// suggestion. The manager must not let the late list reopen.
	m.SelectSuggestion(quote.SlotPickup, suggestion("Southampton Port", -1.4273, 50.8969))
	close(block)
	time.Sleep(60 * time.Millisecond)

	if got := m.Suggestions(quote.SlotPickup); len(got) != 0 {
		t.Errorf("stale response reopened the list: %v", got)
	}
	if got := m.Text(quote.SlotPickup); got != "Southampton Port" {
		t.Errorf("text = %q, want the selected label", got)
	}
}

func TestEmptyInputShowsPresets(t *testing.T) {
	sg := &fakeSuggester{}
	m := quote.NewManager(sg, &fakeRouter{}, nil, 10*time.Millisecond)
	defer m.Close()

	m.Focus(quote.SlotPickup)

	items := m.Suggestions(quote.SlotPickup)
	if len(items) == 0 {
		t.Fatal("expected preset suggestions for empty input")
	}
	if !items[0].Header {
		t.Errorf("expected a category header first, got %+v", items[0])
	}
	time.Sleep(40 * time.Millisecond)
	if sg.callCount() != 0 {
		t.Error("presets must not hit the remote geocoder")
	}
}

func TestShortInputClearsList(t *testing.T) {
	sg := &fakeSuggester{}
	m := quote.NewManager(sg, &fakeRouter{}, nil, 10*time.Millisecond)
	defer m.Close()

	m.Focus(quote.SlotPickup)
	if len(m.Suggestions(quote.SlotPickup)) == 0 {
		t.Fatal("expected presets before typing")
	}

	m.SetText(quote.SlotPickup, "he")
	if got := m.Suggestions(quote.SlotPickup); len(got) != 0 {
		t.Errorf("short input should clear the list, got %d items", len(got))
	}
	time.Sleep(40 * time.Millisecond)
	if sg.callCount() != 0 {
		t.Error("short input must not hit the remote geocoder")
	}
}

func TestHeaderRowsNotSelectable(t *testing.T) {
	m := quote.NewManager(&fakeSuggester{}, &fakeRouter{}, nil, 10*time.Millisecond)
	defer m.Close()

	m.SelectSuggestion(quote.SlotPickup, geo.Suggestion{Label: "Airports", Header: true})

	if got := m.Text(quote.SlotPickup); got != "" {
		t.Errorf("header selection changed text to %q", got)
	}
	if m.Coordinate(quote.SlotPickup) != nil {
		t.Error("header selection resolved a coordinate")
	}
}

func TestEditInvalidatesCoordinate(t *testing.T) {
	listener := newRecordingListener()
	rt := &fakeRouter{meters: 16093.4}
	m := quote.NewManager(&fakeSuggester{}, rt, listener, 10*time.Millisecond)
	defer m.Close()

	m.SelectSuggestion(quote.SlotPickup, suggestion("A", -1.4, 50.9))
	m.SelectSuggestion(quote.SlotDropoff, suggestion("B", -0.5, 51.5))
	waitFor(t, m.Bookable, "expected bookable after both endpoints resolved")
	waitFor(t, func() bool { return listener.routeCount() == 1 }, "route not computed")

	m.SetText(quote.SlotPickup, "A edited")

	if m.Coordinate(quote.SlotPickup) != nil {
		t.Error("editing text must clear the resolved coordinate")
	}
	if m.Bookable() {
		t.Error("expected not bookable with an unresolved pickup")
	}
	if !approx(m.DistanceMiles(), 10) {
		t.Errorf("DistanceMiles = %v, want last routed value to stand", m.DistanceMiles())
	}
}

func TestFocusKeepsCoordinate(t *testing.T) {
	m := quote.NewManager(&fakeSuggester{}, &fakeRouter{meters: 5000}, nil, 10*time.Millisecond)
	defer m.Close()

	m.SelectSuggestion(quote.SlotPickup, suggestion("A", -1.4, 50.9))
	m.Focus(quote.SlotPickup)

	if m.Coordinate(quote.SlotPickup) == nil {
		t.Error("focus alone must not clear the coordinate")
	}
}

func TestUnresolvedStopsSkipped(t *testing.T) {
	listener := newRecordingListener()
	rt := &fakeRouter{meters: 32186.8}
	m := quote.NewManager(&fakeSuggester{}, rt, listener, 10*time.Millisecond)
	defer m.Close()

	stop, err := m.AddStop()
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	m.SetText(stop, "somewhere not chosen yet")

	m.SelectSuggestion(quote.SlotPickup, suggestion("A", -1.4, 50.9))
	m.SelectSuggestion(quote.SlotDropoff, suggestion("B", -0.5, 51.5))
	waitFor(t, func() bool { return listener.routeCount() >= 1 }, "route not computed")

	coords := rt.lastCall()
	if len(coords) != 2 {
		t.Fatalf("routed %d waypoints, want 2 with the unresolved stop skipped", len(coords))
	}
	if !approx(m.DistanceMiles(), 20) {
		t.Errorf("DistanceMiles = %v, want 20", m.DistanceMiles())
	}
}

func TestResolvedStopIncludedAndRemovalRecomputes(t *testing.T) {
	listener := newRecordingListener()
	rt := &fakeRouter{meters: 16093.4}
	m := quote.NewManager(&fakeSuggester{}, rt, listener, 10*time.Millisecond)
	defer m.Close()

	m.SelectSuggestion(quote.SlotPickup, suggestion("A", -1.4, 50.9))
	m.SelectSuggestion(quote.SlotDropoff, suggestion("B", -0.5, 51.5))
	waitFor(t, func() bool { return listener.routeCount() == 1 }, "initial route not computed")

	stop, err := m.AddStop()
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	m.SelectSuggestion(stop, suggestion("C", -1.0, 51.1))
	waitFor(t, func() bool { return listener.routeCount() == 2 }, "route not recomputed for stop")

	coords := rt.lastCall()
	if len(coords) != 3 {
		t.Fatalf("routed %d waypoints, want 3", len(coords))
	}
	if coords[1] != (geo.Coordinate{Lng: -1.0, Lat: 51.1}) {
		t.Errorf("stop coordinate = %+v, want it between the endpoints", coords[1])
	}

	m.RemoveStop(stop)
	waitFor(t, func() bool { return listener.routeCount() == 3 }, "route not recomputed after removal")
	if got := rt.lastCall(); len(got) != 2 {
		t.Errorf("routed %d waypoints after removal, want 2", len(got))
	}
}

func TestStopLimit(t *testing.T) {
	m := quote.NewManager(&fakeSuggester{}, &fakeRouter{}, nil, 10*time.Millisecond)
	defer m.Close()

	for i := 0; i < quote.MaxStops; i++ {
		if _, err := m.AddStop(); err != nil {
			t.Fatalf("AddStop %d: %v", i+1, err)
		}
	}
	if _, err := m.AddStop(); err == nil {
		t.Error("expected an error past the stop limit")
	}
}

func TestStopIDsNotReusedAfterRemoval(t *testing.T) {
	listener := newRecordingListener()
	rt := &fakeRouter{meters: 16093.4}
	m := quote.NewManager(&fakeSuggester{}, rt, listener, 10*time.Millisecond)
	defer m.Close()

	m.SelectSuggestion(quote.SlotPickup, suggestion("A", -1.4, 50.9))
	m.SelectSuggestion(quote.SlotDropoff, suggestion("B", -0.5, 51.5))

	first, err := m.AddStop()
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	second, err := m.AddStop()
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	m.SelectSuggestion(second, suggestion("C", -1.0, 51.1))
	waitFor(t, func() bool { return m.Coordinate(second) != nil }, "stop not resolved")

	m.RemoveStop(first)

	third, err := m.AddStop()
	if err != nil {
		t.Fatalf("AddStop: %v", err)
	}
	if third == second {
		t.Fatalf("new stop reused id %v still held by an existing stop", second)
	}
	if got := m.Coordinate(second); got == nil || *got != (geo.Coordinate{Lng: -1.0, Lat: 51.1}) {
		t.Errorf("surviving stop coordinate = %v, want it untouched by the new stop", got)
	}
}

func TestRouteFailureKeepsLastDistance(t *testing.T) {
	listener := newRecordingListener()
	rt := &fakeRouter{meters: 16093.4}
	m := quote.NewManager(&fakeSuggester{}, rt, listener, 10*time.Millisecond)
	defer m.Close()

	m.SelectSuggestion(quote.SlotPickup, suggestion("A", -1.4, 50.9))
	m.SelectSuggestion(quote.SlotDropoff, suggestion("B", -0.5, 51.5))
	waitFor(t, func() bool { return listener.routeCount() == 1 }, "route not computed")

	rt.mu.Lock()
	rt.err = errors.New("provider down")
	rt.mu.Unlock()

	m.SelectSuggestion(quote.SlotDropoff, suggestion("B2", -0.6, 51.6))
	waitFor(t, func() bool { return listener.routeErrCount() == 1 }, "route failure not surfaced")

	if !approx(m.DistanceMiles(), 10) {
		t.Errorf("DistanceMiles = %v, want prior distance kept on failure", m.DistanceMiles())
	}
	if !m.Bookable() {
		t.Error("bookability depends on resolved endpoints, not the route")
	}
}

func TestSuggestionFailureClearsList(t *testing.T) {
	sg := &fakeSuggester{err: errors.New("geocoder down")}
	listener := newRecordingListener()
	m := quote.NewManager(sg, &fakeRouter{}, listener, 10*time.Millisecond)
	defer m.Close()

	m.SetText(quote.SlotPickup, "heathrow")
	waitFor(t, func() bool { return sg.callCount() == 1 }, "lookup not issued")
	time.Sleep(30 * time.Millisecond)

	if got := m.Suggestions(quote.SlotPickup); len(got) != 0 {
		t.Errorf("expected no list after a failed lookup, got %d items", len(got))
	}
}
