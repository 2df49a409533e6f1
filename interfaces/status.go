package interfaces

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the low-level result code returned by every GroupService call.
// Values follow the service's wire numbering; zero is never a valid status.
type Status uint32

const (
	StatusOK                 Status = 1
	StatusErrLibrary         Status = 2
	StatusErrVersion         Status = 3
	StatusErrInit            Status = 4
	StatusErrTimeout         Status = 5
	StatusErrTryAgain        Status = 6
	StatusErrInvalidParam    Status = 7
	StatusErrNoMemory        Status = 8
	StatusErrBadHandle       Status = 9
	StatusErrBusy            Status = 10
	StatusErrAccess          Status = 11
	StatusErrNotExist        Status = 12
	StatusErrNameTooLong     Status = 13
	StatusErrExist           Status = 14
	StatusErrNoSpace         Status = 15
	StatusErrInterrupt       Status = 16
	StatusErrNameNotFound    Status = 17
	StatusErrNoResources     Status = 18
	StatusErrNotSupported    Status = 19
	StatusErrBadOperation    Status = 20
	StatusErrFailedOperation Status = 21
	StatusErrMessageError    Status = 22
	StatusErrQueueFull       Status = 23
	StatusErrQueueNotAvail   Status = 24
	StatusErrBadFlags        Status = 25
	StatusErrTooBig          Status = 26
	StatusErrNoSections      Status = 27
	StatusErrContextNotFound Status = 28
	StatusErrTooManyGroups   Status = 30
	StatusErrSecurity        Status = 100
)

var statusNames = map[Status]string{
	StatusOK:                 "OK",
	StatusErrLibrary:         "ERR_LIBRARY",
	StatusErrVersion:         "ERR_VERSION",
	StatusErrInit:            "ERR_INIT",
	StatusErrTimeout:         "ERR_TIMEOUT",
	StatusErrTryAgain:        "ERR_TRY_AGAIN",
	StatusErrInvalidParam:    "ERR_INVALID_PARAM",
	StatusErrNoMemory:        "ERR_NO_MEMORY",
	StatusErrBadHandle:       "ERR_BAD_HANDLE",
	StatusErrBusy:            "ERR_BUSY",
	StatusErrAccess:          "ERR_ACCESS",
	StatusErrNotExist:        "ERR_NOT_EXIST",
	StatusErrNameTooLong:     "ERR_NAME_TOO_LONG",
	StatusErrExist:           "ERR_EXIST",
	StatusErrNoSpace:         "ERR_NO_SPACE",
	StatusErrInterrupt:       "ERR_INTERRUPT",
	StatusErrNameNotFound:    "ERR_NAME_NOT_FOUND",
	StatusErrNoResources:     "ERR_NO_RESOURCES",
	StatusErrNotSupported:    "ERR_NOT_SUPPORTED",
	StatusErrBadOperation:    "ERR_BAD_OPERATION",
	StatusErrFailedOperation: "ERR_FAILED_OPERATION",
	StatusErrMessageError:    "ERR_MESSAGE_ERROR",
	StatusErrQueueFull:       "ERR_QUEUE_FULL",
	StatusErrQueueNotAvail:   "ERR_QUEUE_NOT_AVAILABLE",
	StatusErrBadFlags:        "ERR_BAD_FLAGS",
	StatusErrTooBig:          "ERR_TOO_BIG",
	StatusErrNoSections:      "ERR_NO_SECTIONS",
	StatusErrContextNotFound: "ERR_CONTEXT_NOT_FOUND",
	StatusErrTooManyGroups:   "ERR_TOO_MANY_GROUPS",
	StatusErrSecurity:        "ERR_SECURITY",
}

var statusDescriptions = map[Status]string{
	StatusOK:                 "Success",
	StatusErrLibrary:         "Error in library",
	StatusErrVersion:         "Wrong version",
	StatusErrInit:            "Initialization error",
	StatusErrTimeout:         "Timeout",
	StatusErrTryAgain:        "Resource temporarily unavailable",
	StatusErrInvalidParam:    "Invalid argument",
	StatusErrNoMemory:        "Not enough memory to complete the requested task",
	StatusErrBadHandle:       "Bad handle",
	StatusErrBusy:            "Busy",
	StatusErrAccess:          "Access denied",
	StatusErrNotExist:        "Doesn't exist",
	StatusErrNameTooLong:     "Name is too long",
	StatusErrExist:           "Already exists",
	StatusErrNoSpace:         "Insufficient memory",
	StatusErrInterrupt:       "System call interrupted by a signal",
	StatusErrNameNotFound:    "The specified name does not exist",
	StatusErrNoResources:     "Not enough resources to complete the requested task",
	StatusErrNotSupported:    "The requested call is not supported",
	StatusErrBadOperation:    "Bad operation",
	StatusErrFailedOperation: "Failed operation",
	StatusErrMessageError:    "Message error",
	StatusErrQueueFull:       "Queue full",
	StatusErrQueueNotAvail:   "Queue not available",
	StatusErrBadFlags:        "Bad flags",
	StatusErrTooBig:          "Too big",
	StatusErrNoSections:      "No sections",
	StatusErrContextNotFound: "Context not found",
	StatusErrTooManyGroups:   "Too many groups",
	StatusErrSecurity:        "Security error",
}

// String returns the symbolic name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", uint32(s))
}

// IsOK reports whether the status denotes success.
func (s Status) IsOK() bool {
	return s == StatusOK
}

// Known reports whether the status is part of the service's code table.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// DescribeStatus returns the generic, operation-independent description of
// a status. Backends use it to implement GroupService.DescribeStatus.
func DescribeStatus(s Status) string {
	if desc, ok := statusDescriptions[s]; ok {
		return desc
	}
	return "Unknown error"
}

// ParseStatus accepts a symbolic name ("ERR_EXIST", case-insensitive) or a
// decimal code and returns the matching known status.
func ParseStatus(s string) (Status, bool) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		status := Status(n)
		return status, status.Known()
	}
	want := strings.ToUpper(s)
	for status, name := range statusNames {
		if name == want || strings.TrimPrefix(name, "ERR_") == want {
			return status, true
		}
	}
	return 0, false
}
