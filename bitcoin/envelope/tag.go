// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package envelope

import (
	"github.com/btcsuite/btcd/txscript"
)

// Tag defines a tag byte for an inscription field inside the ordinals envelope.
type Tag byte

const (
	// TagContentType defines the content-type tag in the inscription protocol.
	// The value is the MIME type of the body.
	TagContentType Tag = 1
	// TagBody defines the body tag in the inscription protocol. Unlike every other
	// tag it is pushed as OP_0 rather than a single-byte data push, matching the
	// source ordinals encoding.
	TagBody Tag = 0
)

// IntoDataPush returns Tag as the {OP_DATA_1, value} pair the source compiles literally,
// rather than the minimally-encoded small-int opcode txscript.AddInt64 would produce.
func (t Tag) IntoDataPush() []byte {
	return []byte{txscript.OP_DATA_1, byte(t)}
}
