// Package limits provides centralized size constants and validation functions
// for groupcast.
//
// # Limits
//
//   - MaxGroupNameLen (128 bytes): the longest group name the group service
//     accepts. Names are checked locally so an oversized name never leaves the
//     process.
//
//   - MaxBufferCount (math.MaxInt32): the most buffers one atomic multicast may
//     carry. The service counts buffers with a signed 32-bit integer.
//
//   - MaxFrameSize (1MB): the absolute maximum for any frame read from or
//     written to a group daemon connection.
//
// # Validation Functions
//
//	if err := limits.ValidateGroupName(name); err != nil {
//	    // ErrGroupNameEmpty or ErrGroupNameTooLong
//	}
//
//	if err := limits.ValidateBufferCount(len(buffers)); err != nil {
//	    // ErrMessageEmpty or ErrTooManyBuffers
//	}
package limits
