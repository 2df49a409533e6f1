package groupcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/groupcast/interfaces"
)

// stubService is a scriptable GroupService for tests that need exact control
// over statuses and call counts.
type stubService struct {
	mu      sync.Mutex
	next    interfaces.Handle
	handles []interfaces.Handle
	calls   map[string]int
	groups  [][]byte
	sent    [][][]byte

	connectStatus   interfaces.Status
	joinStatus      interfaces.Status
	multicastStatus interfaces.Status
	finalizeStatus  interfaces.Status

	onFinalize func(h interfaces.Handle)

	delay       time.Duration
	inFlight    int32
	maxInFlight int32
}

func newStubService() *stubService {
	return &stubService{next: 100, calls: make(map[string]int)}
}

func okOr(s interfaces.Status) interfaces.Status {
	if s == 0 {
		return interfaces.StatusOK
	}
	return s
}

func (s *stubService) record(call string) {
	s.mu.Lock()
	s.calls[call]++
	s.mu.Unlock()
}

func (s *stubService) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[call]
}

func (s *stubService) enter() {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&s.maxInFlight)
		if n <= peak || atomic.CompareAndSwapInt32(&s.maxInFlight, peak, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func (s *stubService) leave() {
	atomic.AddInt32(&s.inFlight, -1)
}

func (s *stubService) Connect(model *interfaces.ModelDescriptor) (interfaces.Handle, interfaces.Status) {
	s.record("connect")
	s.mu.Lock()
	defer s.mu.Unlock()

	if status := okOr(s.connectStatus); !status.IsOK() {
		return 0, status
	}
	if len(s.handles) > 0 {
		h := s.handles[0]
		s.handles = s.handles[1:]
		return h, interfaces.StatusOK
	}
	s.next++
	return s.next, interfaces.StatusOK
}

func (s *stubService) Finalize(h interfaces.Handle) interfaces.Status {
	s.record("finalize")
	if s.onFinalize != nil {
		s.onFinalize(h)
	}
	return okOr(s.finalizeStatus)
}

func (s *stubService) Join(h interfaces.Handle, group []byte) interfaces.Status {
	s.record("join")
	s.enter()
	defer s.leave()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, append([]byte(nil), group...))
	return okOr(s.joinStatus)
}

func (s *stubService) Multicast(h interfaces.Handle, mode interfaces.OrderingMode, buffers [][]byte) interfaces.Status {
	s.record("multicast")
	s.enter()
	defer s.leave()

	s.mu.Lock()
	defer s.mu.Unlock()
	// The caller clears its staging slice on return, so keep a copy.
	staged := make([][]byte, len(buffers))
	copy(staged, buffers)
	s.sent = append(s.sent, staged)
	return okOr(s.multicastStatus)
}

func (s *stubService) DescribeStatus(status interfaces.Status) string {
	return interfaces.DescribeStatus(status)
}

func (s *stubService) IsSimulation() bool {
	return true
}
