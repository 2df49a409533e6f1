package testing

import (
	"sort"
	"sync"

	"github.com/eapache/queue"
	"github.com/opd-ai/groupcast/interfaces"
	"github.com/opd-ai/groupcast/limits"
	"github.com/sirupsen/logrus"
)

// Call names one GroupService primitive for fault injection and call counting.
type Call string

const (
	CallConnect   Call = "connect"
	CallFinalize  Call = "finalize"
	CallJoin      Call = "join"
	CallMulticast Call = "multicast"
)

// firstHandle is the first handle issued; later handles count up from it.
const firstHandle interfaces.Handle = 0x6b8b456700000001

// Delivery is one message as observed by one member of one group.
type Delivery struct {
	// Sequence is the global agreed position of the message. Every member
	// observes the same Sequence for the same multicast.
	Sequence uint64
	Sender   interfaces.Handle
	Group    string
	Mode     interfaces.OrderingMode
	Buffers  [][]byte
}

type simSession struct {
	groups []string
	inbox  *queue.Queue
}

// SimulatedGroupService implements interfaces.GroupService in memory.
//
// A single mutex totally orders every call, so multicasts receive consecutive
// sequence numbers and are appended to every recipient inbox in the same
// order: agreed ordering holds by construction.
type SimulatedGroupService struct {
	mu         sync.Mutex
	config     *interfaces.ServiceConfig
	nextHandle interfaces.Handle
	sessions   map[interfaces.Handle]*simSession
	groups     map[string]map[interfaces.Handle]struct{}
	sequence   uint64
	faults     map[Call][]interfaces.Status
	calls      map[Call]int

	maxGroupsPerSession int
	inboxLimit          int
}

// SimOption customizes a SimulatedGroupService.
type SimOption func(*SimulatedGroupService)

// WithMaxGroupsPerSession caps how many groups one session may join.
// Zero means unlimited.
func WithMaxGroupsPerSession(n int) SimOption {
	return func(s *SimulatedGroupService) {
		s.maxGroupsPerSession = n
	}
}

// WithInboxLimit makes multicast fail with StatusErrTryAgain once any
// recipient holds n undrained deliveries. Zero means unlimited.
func WithInboxLimit(n int) SimOption {
	return func(s *SimulatedGroupService) {
		s.inboxLimit = n
	}
}

// NewSimulatedGroupService creates a new simulation implementation for testing
func NewSimulatedGroupService(config *interfaces.ServiceConfig, opts ...SimOption) *SimulatedGroupService {
	if config == nil {
		config = &interfaces.ServiceConfig{UseSimulation: true, DialTimeout: 1000, RequestTimeout: 1000}
	}

	s := &SimulatedGroupService{
		config:     config,
		nextHandle: firstHandle,
		sessions:   make(map[interfaces.Handle]*simSession),
		groups:     make(map[string]map[interfaces.Handle]struct{}),
		faults:     make(map[Call][]interfaces.Status),
		calls:      make(map[Call]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":        "NewSimulatedGroupService",
		"max_groups":      s.maxGroupsPerSession,
		"inbox_limit":     s.inboxLimit,
		"request_timeout": config.RequestTimeout,
	}).Info("Created simulated group service")

	return s
}

// InjectFault queues status as the result of the next call of the given kind.
// Faulted calls have no side effects.
func (s *SimulatedGroupService) InjectFault(call Call, status interfaces.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[call] = append(s.faults[call], status)
}

// takeFault must be called with s.mu held.
func (s *SimulatedGroupService) takeFault(call Call) (interfaces.Status, bool) {
	pending := s.faults[call]
	if len(pending) == 0 {
		return 0, false
	}
	s.faults[call] = pending[1:]
	return pending[0], true
}

// begin records a call and returns any injected fault. Must hold s.mu.
func (s *SimulatedGroupService) begin(call Call) (interfaces.Status, bool) {
	s.calls[call]++
	return s.takeFault(call)
}

// Connect implements GroupService.Connect.
func (s *SimulatedGroupService) Connect(model *interfaces.ModelDescriptor) (interfaces.Handle, interfaces.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, faulted := s.begin(CallConnect); faulted {
		return 0, status
	}
	if model == nil {
		return 0, interfaces.StatusErrInvalidParam
	}
	if model.Version != interfaces.ModelV1 {
		return 0, interfaces.StatusErrVersion
	}

	handle := s.nextHandle
	s.nextHandle++
	s.sessions[handle] = &simSession{inbox: queue.New()}

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedGroupService.Connect",
		"handle":   handle.String(),
		"sessions": len(s.sessions),
	}).Debug("Simulated session connected")

	return handle, interfaces.StatusOK
}

// Finalize implements GroupService.Finalize. The session leaves every group
// it joined.
func (s *SimulatedGroupService) Finalize(handle interfaces.Handle) interfaces.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, faulted := s.begin(CallFinalize); faulted {
		return status
	}
	sess, ok := s.sessions[handle]
	if !ok {
		return interfaces.StatusErrBadHandle
	}

	for _, name := range sess.groups {
		members := s.groups[name]
		delete(members, handle)
		if len(members) == 0 {
			delete(s.groups, name)
		}
	}
	delete(s.sessions, handle)

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedGroupService.Finalize",
		"handle":   handle.String(),
		"sessions": len(s.sessions),
	}).Debug("Simulated session finalized")

	return interfaces.StatusOK
}

// Join implements GroupService.Join. A second join of the same group on one
// session returns StatusErrExist.
func (s *SimulatedGroupService) Join(handle interfaces.Handle, group []byte) interfaces.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, faulted := s.begin(CallJoin); faulted {
		return status
	}
	sess, ok := s.sessions[handle]
	if !ok {
		return interfaces.StatusErrBadHandle
	}
	if len(group) == 0 {
		return interfaces.StatusErrInvalidParam
	}
	if len(group) > limits.MaxGroupNameLen {
		return interfaces.StatusErrNameTooLong
	}

	name := string(group)
	members := s.groups[name]
	if _, joined := members[handle]; joined {
		return interfaces.StatusErrExist
	}
	if s.maxGroupsPerSession > 0 && len(sess.groups) >= s.maxGroupsPerSession {
		return interfaces.StatusErrTooManyGroups
	}

	if members == nil {
		members = make(map[interfaces.Handle]struct{})
		s.groups[name] = members
	}
	members[handle] = struct{}{}
	sess.groups = append(sess.groups, name)

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedGroupService.Join",
		"handle":   handle.String(),
		"group":    name,
		"members":  len(members),
	}).Debug("Simulated session joined group")

	return interfaces.StatusOK
}

// Multicast implements GroupService.Multicast. The message receives one
// sequence number and is queued for every member of every group the sender
// joined, or for none of them.
func (s *SimulatedGroupService) Multicast(handle interfaces.Handle, mode interfaces.OrderingMode, buffers [][]byte) interfaces.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, faulted := s.begin(CallMulticast); faulted {
		return status
	}
	sess, ok := s.sessions[handle]
	if !ok {
		return interfaces.StatusErrBadHandle
	}
	if len(buffers) == 0 || mode > interfaces.OrderSafe {
		return interfaces.StatusErrInvalidParam
	}
	if len(sess.groups) == 0 {
		return interfaces.StatusErrNotExist
	}

	recipients := s.recipients(sess)
	if s.inboxLimit > 0 {
		for _, r := range recipients {
			if s.sessions[r.handle].inbox.Length() >= s.inboxLimit {
				return interfaces.StatusErrTryAgain
			}
		}
	}

	s.sequence++
	payload := copyBuffers(buffers)
	for _, r := range recipients {
		s.sessions[r.handle].inbox.Add(Delivery{
			Sequence: s.sequence,
			Sender:   handle,
			Group:    r.group,
			Mode:     mode,
			Buffers:  payload,
		})
	}

	logrus.WithFields(logrus.Fields{
		"function":   "SimulatedGroupService.Multicast",
		"handle":     handle.String(),
		"sequence":   s.sequence,
		"buffers":    len(buffers),
		"recipients": len(recipients),
	}).Debug("Simulated multicast delivered")

	return interfaces.StatusOK
}

type recipient struct {
	handle interfaces.Handle
	group  string
}

// recipients lists every (member, group) pair a multicast from sess reaches,
// in a stable order. Must hold s.mu.
func (s *SimulatedGroupService) recipients(sess *simSession) []recipient {
	var out []recipient
	for _, name := range sess.groups {
		for _, h := range sortedHandles(s.groups[name]) {
			out = append(out, recipient{handle: h, group: name})
		}
	}
	return out
}

func sortedHandles(set map[interfaces.Handle]struct{}) []interfaces.Handle {
	handles := make([]interfaces.Handle, 0, len(set))
	for h := range set {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

func copyBuffers(buffers [][]byte) [][]byte {
	out := make([][]byte, len(buffers))
	for i, b := range buffers {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// DescribeStatus implements GroupService.DescribeStatus.
func (s *SimulatedGroupService) DescribeStatus(status interfaces.Status) string {
	return interfaces.DescribeStatus(status)
}

// IsSimulation implements GroupService.IsSimulation
func (s *SimulatedGroupService) IsSimulation() bool {
	return true
}

// Deliveries drains and returns every message queued for handle, in
// delivery order.
func (s *SimulatedGroupService) Deliveries(handle interfaces.Handle) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[handle]
	if !ok {
		return nil
	}
	out := make([]Delivery, 0, sess.inbox.Length())
	for sess.inbox.Length() > 0 {
		out = append(out, sess.inbox.Remove().(Delivery))
	}
	return out
}

// Pending returns how many deliveries are queued for handle.
func (s *SimulatedGroupService) Pending(handle interfaces.Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[handle]; ok {
		return sess.inbox.Length()
	}
	return 0
}

// Members returns the handles joined to group in ascending order.
func (s *SimulatedGroupService) Members(group string) []interfaces.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedHandles(s.groups[group])
}

// SessionCount returns the number of connected, unfinalized sessions.
func (s *SimulatedGroupService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CallCount returns how many times call has been invoked, faulted or not.
func (s *SimulatedGroupService) CallCount(call Call) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[call]
}

// GetStats returns statistics about the simulation
func (s *SimulatedGroupService) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"sessions":        len(s.sessions),
		"groups":          len(s.groups),
		"sequence":        s.sequence,
		"connect_calls":   s.calls[CallConnect],
		"join_calls":      s.calls[CallJoin],
		"multicast_calls": s.calls[CallMulticast],
		"finalize_calls":  s.calls[CallFinalize],
		"is_simulation":   true,
	}
}
