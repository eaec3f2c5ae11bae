package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	aggregatex "github.com/tanpawarit/Chative-Crop-Advisor/agent/aggregate"
	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	nodex "github.com/tanpawarit/Chative-Crop-Advisor/agent/nodes"
	reportx "github.com/tanpawarit/Chative-Crop-Advisor/agent/report"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
	metricsx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/metrics"
)

type fakeProvider struct {
	kind   contractx.ProviderKind
	result contractx.ProviderResult
	calls  atomic.Int32
}

func (f *fakeProvider) Kind() contractx.ProviderKind {
	return f.kind
}

func (f *fakeProvider) Fetch(ctx context.Context, q contractx.Query) contractx.ProviderResult {
	f.calls.Add(1)
	return f.result
}

type fakeStore struct {
	loadErr error
	saveErr error
}

func (f *fakeStore) Load(ctx context.Context, conversationID string) (*statex.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return nil, statex.ErrStateNotFound
}

func (f *fakeStore) Save(ctx context.Context, s *statex.Session) error {
	return f.saveErr
}

func (f *fakeStore) Delete(ctx context.Context, conversationID string) error {
	return nil
}

type harness struct {
	svc       *Service
	store     *statex.MemoryStore
	providers []*fakeProvider
	metrics   *metricsx.Metrics
}

func (h *harness) providerCalls() int {
	total := 0
	for _, p := range h.providers {
		total += int(p.calls.Load())
	}
	return total
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	humidity := 55.0
	providers := []*fakeProvider{
		{
			kind: contractx.ProviderWeather,
			result: contractx.Success(contractx.ProviderWeather, contractx.WeatherData{
				TemperatureC: 22.5,
				Condition:    "clear sky",
				HumidityPct:  &humidity,
			}),
		},
		{
			kind:   contractx.ProviderImagery,
			result: contractx.Success(contractx.ProviderImagery, contractx.ImageryData{URL: "https://img.test/a.png"}),
		},
		{
			kind:   contractx.ProviderWater,
			result: contractx.Failure(contractx.ProviderWater, "No water data available."),
		},
	}

	list := make([]contractx.Provider, 0, len(providers))
	for _, p := range providers {
		list = append(list, p)
	}

	m := metricsx.New(prometheus.NewRegistry())
	agg, err := aggregatex.New(list, aggregatex.Config{ProviderTimeout: time.Second}, aggregatex.WithMetrics(m))
	if err != nil {
		t.Fatalf("aggregate.New() error = %v", err)
	}

	store := statex.NewMemoryStore(time.Hour)
	svc, err := New(store, agg, reportx.Formatter{}, WithMetrics(m))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{svc: svc, store: store, providers: providers, metrics: m}
}

func send(t *testing.T, svc *Service, ev contractx.Event) contractx.Reply {
	t.Helper()

	reply, err := svc.HandleEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("HandleEvent(%s) error = %v", ev.Kind, err)
	}
	return reply
}

func start(id string) contractx.Event {
	return contractx.Event{ConversationID: id, Kind: contractx.EventStart}
}

func location(id string, lat, lon float64) contractx.Event {
	return contractx.Event{ConversationID: id, Kind: contractx.EventLocation, Latitude: lat, Longitude: lon}
}

func text(id, body string) contractx.Event {
	return contractx.Event{ConversationID: id, Kind: contractx.EventText, Text: body}
}

func cancel(id string) contractx.Event {
	return contractx.Event{ConversationID: id, Kind: contractx.EventCancel}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	store := statex.NewMemoryStore(time.Minute)
	agg, err := aggregatex.New(nil, aggregatex.Config{})
	if err != nil {
		t.Fatalf("aggregate.New() error = %v", err)
	}

	if _, err := New(nil, agg, reportx.Formatter{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(store, nil, reportx.Formatter{}); err == nil {
		t.Fatal("expected error for nil aggregator")
	}
	if _, err := New(store, agg, nil); err == nil {
		t.Fatal("expected error for nil formatter")
	}
}

func TestHappyPathProducesReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	reply := send(t, h.svc, start("chat-1"))
	if reply.Kind != contractx.ReplyLocationPrompt || reply.Text != nodex.MsgWelcome {
		t.Fatalf("start reply = %#v", reply)
	}
	if reply.State != string(statex.AwaitingLocation) {
		t.Fatalf("state after start = %q", reply.State)
	}

	reply = send(t, h.svc, location("chat-1", 40, -75))
	want := "Location received! Latitude: 40, Longitude: -75. Now, enter the date (YYYY-MM-DD)."
	if reply.Text != want {
		t.Fatalf("location reply = %q, want %q", reply.Text, want)
	}
	if reply.State != string(statex.AwaitingDate) {
		t.Fatalf("state after location = %q", reply.State)
	}

	reply = send(t, h.svc, text("chat-1", "2024-06-01"))
	if reply.Text != "Date '2024-06-01' received. Now, enter the crop name." {
		t.Fatalf("date reply = %q", reply.Text)
	}
	if reply.State != string(statex.AwaitingCrop) {
		t.Fatalf("state after date = %q", reply.State)
	}

	reply = send(t, h.svc, text("chat-1", "corn"))
	if reply.Kind != contractx.ReplyFormatted || reply.Markup != contractx.MarkupMarkdownV2 {
		t.Fatalf("report reply = %#v", reply)
	}
	if reply.State != string(statex.Complete) {
		t.Fatalf("state after crop = %q", reply.State)
	}
	for _, fragment := range []string{
		`Crop\: corn`,
		`Date\: 2024\-06\-01`,
		`Latitude 40, Longitude \-75`,
		`Temperature\: 22\.50°C`,
		`Condition\: Clear sky`,
		`Humidity\: 55%`,
		`https\://img\.test/a\.png`,
		`Water data\: No water data available\.`,
	} {
		if !strings.Contains(reply.Text, fragment) {
			t.Fatalf("report missing %q:\n%s", fragment, reply.Text)
		}
	}

	if got := h.providerCalls(); got != 3 {
		t.Fatalf("provider calls = %d, want 3", got)
	}
	if h.store.Len() != 0 {
		t.Fatalf("completed session should be deleted, store has %d", h.store.Len())
	}

	if got := testutil.ToFloat64(h.metrics.ReportsGenerated); got != 1 {
		t.Fatalf("reports generated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.metrics.ActiveSessions); got != 0 {
		t.Fatalf("active sessions = %v, want 0", got)
	}
	if got := testutil.ToFloat64(h.metrics.Transitions.WithLabelValues("AWAITING_CROP", "COMPLETE")); got != 1 {
		t.Fatalf("crop->complete transitions = %v, want 1", got)
	}
}

func TestCancelCallsNoProviders(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	send(t, h.svc, start("chat-2"))

	reply := send(t, h.svc, cancel("chat-2"))
	if reply.Text != nodex.MsgCancelled || reply.State != string(statex.Cancelled) {
		t.Fatalf("cancel reply = %#v", reply)
	}
	if got := h.providerCalls(); got != 0 {
		t.Fatalf("provider calls = %d, want 0", got)
	}

	// The conversation is over; further text is ignored.
	reply = send(t, h.svc, text("chat-2", "corn"))
	if reply.Kind != contractx.ReplyNone {
		t.Fatalf("reply after cancel = %#v, want none", reply)
	}
}

func TestCancelMidFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	send(t, h.svc, start("chat-3"))
	send(t, h.svc, location("chat-3", 1, 2))
	send(t, h.svc, text("chat-3", "2024-01-01"))

	reply := send(t, h.svc, cancel("chat-3"))
	if reply.Text != nodex.MsgCancelled {
		t.Fatalf("cancel reply = %q", reply.Text)
	}
	if h.providerCalls() != 0 {
		t.Fatal("cancel must not call providers")
	}
	if _, err := h.store.Load(context.Background(), "chat-3"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestInvalidInputRePrompts(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	send(t, h.svc, start("chat-4"))

	reply := send(t, h.svc, location("chat-4", 95, 0))
	if reply.Kind != contractx.ReplyLocationPrompt || reply.State != string(statex.AwaitingLocation) {
		t.Fatalf("invalid location reply = %#v", reply)
	}

	send(t, h.svc, location("chat-4", 10, 20))

	reply = send(t, h.svc, text("chat-4", "next tuesday"))
	if reply.Text != nodex.MsgInvalidDate || reply.State != string(statex.AwaitingDate) {
		t.Fatalf("invalid date reply = %#v", reply)
	}

	reply = send(t, h.svc, text("chat-4", "2024-02-30"))
	if reply.State != string(statex.AwaitingCrop) {
		t.Fatalf("syntactically valid date should be accepted, state = %q", reply.State)
	}
}

func TestEventsBeforeStartAreIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, ev := range []contractx.Event{
		text("chat-5", "hello"),
		location("chat-5", 1, 1),
		cancel("chat-5"),
	} {
		reply := send(t, h.svc, ev)
		if reply.Kind != contractx.ReplyNone {
			t.Fatalf("%s before start: reply = %#v", ev.Kind, reply)
		}
	}
	if h.store.Len() != 0 {
		t.Fatalf("no session should be created, store has %d", h.store.Len())
	}
}

func TestRestartDiscardsPreviousSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	send(t, h.svc, start("chat-6"))
	send(t, h.svc, location("chat-6", 1, 1))
	send(t, h.svc, text("chat-6", "2024-03-01"))

	reply := send(t, h.svc, start("chat-6"))
	if reply.State != string(statex.AwaitingLocation) {
		t.Fatalf("state after restart = %q", reply.State)
	}

	sess, err := h.store.Load(context.Background(), "chat-6")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess.HasLocation() || sess.HasDate() {
		t.Fatalf("restart kept old data: %#v", sess)
	}

	// Text in AWAITING_LOCATION is not routed.
	reply = send(t, h.svc, text("chat-6", "corn"))
	if reply.Kind != contractx.ReplyNone {
		t.Fatalf("text in AWAITING_LOCATION reply = %#v", reply)
	}
}

func TestHandleEventValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, err := h.svc.HandleEvent(context.Background(), contractx.Event{Kind: contractx.EventStart}); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("HandleEvent() error = %v, want ErrInvalidConversation", err)
	}
	if _, err := h.svc.HandleEvent(context.Background(), contractx.Event{ConversationID: "x", Kind: "sticker"}); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("HandleEvent() error = %v, want ErrUnknownEvent", err)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	agg, err := aggregatex.New(nil, aggregatex.Config{})
	if err != nil {
		t.Fatalf("aggregate.New() error = %v", err)
	}

	loadErr := errors.New("redis down")
	svc, err := New(&fakeStore{loadErr: loadErr}, agg, reportx.Formatter{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := svc.HandleEvent(context.Background(), start("c")); !errors.Is(err, loadErr) {
		t.Fatalf("HandleEvent() error = %v, want %v", err, loadErr)
	}

	saveErr := errors.New("write failed")
	svc, err = New(&fakeStore{saveErr: saveErr}, agg, reportx.Formatter{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := svc.HandleEvent(context.Background(), start("c")); !errors.Is(err, saveErr) {
		t.Fatalf("HandleEvent() error = %v, want %v", err, saveErr)
	}
}

func TestConversationsAreIndependent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("chat-%d", 100+i)
			steps := []contractx.Event{
				start(id),
				location(id, float64(i), float64(-i)),
				text(id, "2024-06-01"),
				text(id, fmt.Sprintf("crop%d", i)),
			}
			var last contractx.Reply
			for _, ev := range steps {
				reply, err := h.svc.HandleEvent(context.Background(), ev)
				if err != nil {
					errs <- err
					return
				}
				last = reply
			}
			if !strings.Contains(last.Text, fmt.Sprintf(`Crop\: crop%d`, i)) {
				errs <- fmt.Errorf("%s: report for wrong crop:\n%s", id, last.Text)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(h.metrics.ReportsGenerated); got != n {
		t.Fatalf("reports generated = %v, want %d", got, n)
	}
}

func TestSameConversationIsSerialized(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	send(t, h.svc, start("chat-7"))
	send(t, h.svc, location("chat-7", 5, 5))
	send(t, h.svc, text("chat-7", "2024-06-01"))

	const n = 5
	var wg sync.WaitGroup
	replies := make(chan contractx.Reply, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := h.svc.HandleEvent(context.Background(), text("chat-7", "rice"))
			if err != nil {
				t.Errorf("HandleEvent() error = %v", err)
				return
			}
			replies <- reply
		}()
	}
	wg.Wait()
	close(replies)

	formatted := 0
	for r := range replies {
		if r.Kind == contractx.ReplyFormatted {
			formatted++
		}
	}
	if formatted != 1 {
		t.Fatalf("formatted replies = %d, want exactly 1", formatted)
	}
	if got := h.providerCalls(); got != 3 {
		t.Fatalf("provider calls = %d, want 3", got)
	}
}
