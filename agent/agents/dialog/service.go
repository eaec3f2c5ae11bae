package dialog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
	nodex "github.com/tanpawarit/Chative-Crop-Advisor/agent/nodes"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
	metricsx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/metrics"
)

var (
	ErrInvalidConversation = nodex.ErrInvalidConversation
	ErrUnknownEvent        = nodex.ErrUnknownEvent
)

type Option func(*Service)

func WithMetrics(m *metricsx.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service drives the location -> date -> crop dialog. Events for the same
// conversation are handled one at a time; different conversations run in
// parallel.
type Service struct {
	store      statex.Store
	aggregator contractx.Aggregator
	formatter  contractx.Formatter
	metrics    *metricsx.Metrics

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	mu    sync.Mutex
	locks map[string]*convLock

	now func() time.Time
}

type convLock struct {
	mu   sync.Mutex
	refs int
}

func New(
	store statex.Store,
	aggregator contractx.Aggregator,
	formatter contractx.Formatter,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if formatter == nil {
		return nil, errors.New("formatter is required")
	}

	s := &Service{
		store:      store,
		aggregator: aggregator,
		formatter:  formatter,
		locks:      make(map[string]*convLock),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	graphRunner, err := s.compileHandleEventGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// HandleEvent applies one inbound event and returns the reply to send. A
// reply with an empty Kind means nothing should be sent.
func (s *Service) HandleEvent(ctx context.Context, ev contractx.Event) (contractx.Reply, error) {
	unlock := s.lock(ev.ConversationID)
	defer unlock()

	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{Event: ev})
	if err != nil {
		return contractx.Reply{}, err
	}

	s.observe(out)
	return out.Reply, nil
}

// observe updates dialog metrics. Sessions dropped by TTL expiry are not
// counted as ended.
func (s *Service) observe(out nodex.GraphOutput) {
	if s.metrics == nil || out.To == "" {
		return
	}
	from := string(out.From)
	if out.From == "" {
		from = "NONE"
		s.metrics.SessionStarted()
	}
	s.metrics.ObserveTransition(from, string(out.To))
	if out.To.IsTerminal() {
		s.metrics.SessionEnded()
	}
	if out.To == statex.Complete && out.Reply.Kind == contractx.ReplyFormatted {
		s.metrics.ReportDelivered()
	}
}

func (s *Service) lock(conversationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &convLock{}
		s.locks[conversationID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, conversationID)
		}
		s.mu.Unlock()
	}
}
