package resp

// Push is an out-of-band RESP3 message.
//
// Kind is the first element of the push ("message", "invalidate", ...) and
// Data holds the remaining elements.
type Push struct {
	Kind string
	Data []any
}
