package groupcast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/groupcast/interfaces"
)

// Operation identifies which service primitive produced a status.
type Operation uint8

const (
	OpConnect Operation = iota
	OpJoin
	OpSend
	OpFinalize
)

func (o Operation) String() string {
	switch o {
	case OpConnect:
		return "connect"
	case OpJoin:
		return "join"
	case OpSend:
		return "send"
	case OpFinalize:
		return "finalize"
	default:
		return fmt.Sprintf("operation(%d)", uint8(o))
	}
}

// ParseOperation returns the operation named s ("connect", "join", "send"
// or "finalize").
func ParseOperation(s string) (Operation, bool) {
	for _, op := range []Operation{OpConnect, OpJoin, OpSend, OpFinalize} {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// Kind is the stable category of an *Error. Callers branch on Kind (or on
// the matching sentinel with errors.Is), never on message text.
type Kind uint8

const (
	KindConnectFailed Kind = iota + 1
	KindDuplicateHandle
	KindInvalidGroupName
	KindJoinFailed
	KindInvalidMessage
	KindSendFailed
	KindNotFound
	KindDoubleDestroy
	KindFinalizeFailed
)

var kindNames = map[Kind]string{
	KindConnectFailed:    "CONNECT_FAILED",
	KindDuplicateHandle:  "DUPLICATE_HANDLE",
	KindInvalidGroupName: "INVALID_GROUP_NAME",
	KindJoinFailed:       "JOIN_FAILED",
	KindInvalidMessage:   "INVALID_MESSAGE",
	KindSendFailed:       "SEND_FAILED",
	KindNotFound:         "NOT_FOUND",
	KindDoubleDestroy:    "DOUBLE_DESTROY",
	KindFinalizeFailed:   "FINALIZE_FAILED",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Sentinels for errors.Is. Every *Error matches exactly the sentinel of its Kind.
var (
	ErrConnectFailed    = errors.New("connect failed")
	ErrDuplicateHandle  = errors.New("duplicate session handle")
	ErrInvalidGroupName = errors.New("invalid group name")
	ErrJoinFailed       = errors.New("join failed")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrSendFailed       = errors.New("send failed")
	ErrNotFound         = errors.New("session not found")
	ErrDoubleDestroy    = errors.New("session already destroyed")
	ErrFinalizeFailed   = errors.New("finalize failed")
)

var kindSentinels = map[Kind]error{
	KindConnectFailed:    ErrConnectFailed,
	KindDuplicateHandle:  ErrDuplicateHandle,
	KindInvalidGroupName: ErrInvalidGroupName,
	KindJoinFailed:       ErrJoinFailed,
	KindInvalidMessage:   ErrInvalidMessage,
	KindSendFailed:       ErrSendFailed,
	KindNotFound:         ErrNotFound,
	KindDoubleDestroy:    ErrDoubleDestroy,
	KindFinalizeFailed:   ErrFinalizeFailed,
}

// Error is the domain error returned by every groupcast operation.
//
// Status is zero for failures detected locally; otherwise it is the raw
// service status and Message is its operation-specific description.
type Error struct {
	Kind    Kind
	Op      Operation
	Status  interfaces.Status
	Message string
	Group   string
	Handle  interfaces.Handle
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.Status != 0 && e.Op == OpConnect:
		fmt.Fprintf(&b, "could not connect to group service: rc=%d; %s", uint32(e.Status), e.Message)
	case e.Status != 0 && e.Group != "":
		fmt.Fprintf(&b, "%s %q failed: rc=%d; %s", e.Op, e.Group, uint32(e.Status), e.Message)
	case e.Status != 0:
		fmt.Fprintf(&b, "%s failed: rc=%d; %s", e.Op, uint32(e.Status), e.Message)
	default:
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Per-operation descriptions that replace the service's generic text where
// the generic text is misleading for that operation.
var statusOverrides = map[Operation]map[interfaces.Status]string{
	OpConnect: {
		interfaces.StatusErrAccess:  "Permission denied",
		interfaces.StatusErrLibrary: "Connection failed",
	},
	OpJoin: {
		interfaces.StatusErrExist:         "Group already joined on this session",
		interfaces.StatusErrNameTooLong:   "Group name rejected by service as too long",
		interfaces.StatusErrTooManyGroups: "Session has joined too many groups",
	},
	OpSend: {
		interfaces.StatusErrNotExist: "Session has not joined any group",
		interfaces.StatusErrTryAgain: "Service is congested, message not sent",
		interfaces.StatusErrTooBig:   "Message exceeds the service size limit",
	},
	OpFinalize: {
		interfaces.StatusErrBadHandle: "Session handle is no longer known to the service",
	},
}

var operationKinds = map[Operation]Kind{
	OpConnect:  KindConnectFailed,
	OpJoin:     KindJoinFailed,
	OpSend:     KindSendFailed,
	OpFinalize: KindFinalizeFailed,
}

// Translator maps (operation, status) pairs to domain errors.
type Translator struct {
	describe func(interfaces.Status) string
}

// NewTranslator returns a Translator that falls back to the service's own
// status descriptions. A nil service falls back to interfaces.DescribeStatus.
func NewTranslator(service interfaces.GroupService) *Translator {
	if service == nil {
		return &Translator{describe: interfaces.DescribeStatus}
	}
	return &Translator{describe: service.DescribeStatus}
}

// Describe returns the human-readable meaning of status for op.
func (t *Translator) Describe(op Operation, status interfaces.Status) string {
	if desc, ok := statusOverrides[op][status]; ok {
		return desc
	}
	return t.describe(status)
}

// Translate builds the domain error for a failed service call.
func (t *Translator) Translate(op Operation, status interfaces.Status) *Error {
	return &Error{
		Kind:    operationKinds[op],
		Op:      op,
		Status:  status,
		Message: t.Describe(op, status),
	}
}
