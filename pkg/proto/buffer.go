package proto

import (
	"bytes"
	"errors"
)

// ErrBufferOverflow is returned by Buffer.Append when the unread data would
// exceed MaxBufferedSize. The peer is considered abusive and must be
// disconnected by the caller.
var ErrBufferOverflow = errors.New("proto: message buffer overflow")

// Buffer accumulates raw bytes from a peer and hands out complete messages.
// It is not safe for concurrent use; each connection owns exactly one.
type Buffer struct {
	data []byte
}

// Append adds raw bytes to the buffer, enforcing the unread-size cap.
func (b *Buffer) Append(p []byte) error {
	if len(b.data)+len(p) > MaxBufferedSize {
		return ErrBufferOverflow
	}
	b.data = append(b.data, p...)
	return nil
}

// HasCompleteMessage reports whether at least one terminator is buffered.
func (b *Buffer) HasCompleteMessage() bool {
	return bytes.IndexByte(b.data, Terminator) >= 0
}

// ExtractMessage consumes and returns the first complete message without its
// terminator. The second return value is false when no complete message is
// buffered.
func (b *Buffer) ExtractMessage() (string, bool) {
	i := bytes.IndexByte(b.data, Terminator)
	if i < 0 {
		return "", false
	}
	msg := string(b.data[:i])
	b.data = b.data[i+1:]
	return msg, true
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}
