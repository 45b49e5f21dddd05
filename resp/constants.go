package resp

// Kind is the single-byte type prefix of a RESP message.
type Kind byte

// Protocol delimiters
const (
	// CRLF terminates every RESP line and every bulk payload.
	CRLF = "\r\n"
)

// RESP2 types
const (
	// KindSimpleString is a status line such as "+OK".
	//
	// Wire format: +<text>\r\n
	KindSimpleString Kind = '+'

	// KindError is an error line such as "-ERR unknown command".
	//
	// Wire format: -<code> <message>\r\n
	KindError Kind = '-'

	// KindInteger is a signed 64-bit integer.
	//
	// Wire format: :<number>\r\n
	KindInteger Kind = ':'

	// KindBulkString is a binary-safe string, or null with length -1 in RESP2.
	//
	// Wire format: $<length>\r\n<bytes>\r\n
	KindBulkString Kind = '$'

	// KindArray is an ordered sequence of replies, or null with count -1 in RESP2.
	//
	// Wire format: *<count>\r\n<element>*
	KindArray Kind = '*'
)

// RESP3 types
//
// These are only sent by servers after the connection negotiated protocol 3
// with HELLO 3. A RESP3 server still replies in RESP2 until then.
const (
	// KindNull is the RESP3 null.
	//
	// Wire format: _\r\n
	KindNull Kind = '_'

	// KindDouble is a floating point number, including "inf", "-inf" and "nan".
	//
	// Wire format: ,<number>\r\n
	KindDouble Kind = ','

	// KindBoolean is "t" or "f".
	//
	// Wire format: #t\r\n
	KindBoolean Kind = '#'

	// KindBlobError is a binary-safe error.
	//
	// Wire format: !<length>\r\n<bytes>\r\n
	KindBlobError Kind = '!'

	// KindVerbatimString is a bulk string prefixed with a three letter format
	// and a colon, e.g. "txt:".
	//
	// Wire format: =<length>\r\n<fmt>:<bytes>\r\n
	KindVerbatimString Kind = '='

	// KindBigNumber is an arbitrary precision integer.
	//
	// Wire format: (<digits>\r\n
	KindBigNumber Kind = '('

	// KindMap is an ordered sequence of key/value pairs.
	//
	// Wire format: %<pairs>\r\n<key><value>*
	KindMap Kind = '%'

	// KindSet is an unordered collection of distinct replies.
	//
	// Wire format: ~<count>\r\n<element>*
	KindSet Kind = '~'

	// KindAttribute carries auxiliary data attached to the reply that follows it.
	// The Reader skips attributes.
	//
	// Wire format: |<pairs>\r\n<key><value>*
	KindAttribute Kind = '|'

	// KindPush is an out-of-band message (pub/sub, client tracking).
	//
	// Wire format: ><count>\r\n<element>*
	KindPush Kind = '>'
)

// Limits
const (
	// MaxBulkLength is the largest bulk payload the Reader accepts (512MB, the
	// Redis proto-max-bulk-len default).
	MaxBulkLength = 512 * 1024 * 1024

	// MaxDepth is the deepest aggregate nesting the Reader accepts.
	MaxDepth = 128

	// MaxAggregateLength bounds the declared element count of a single aggregate.
	MaxAggregateLength = 1 << 24
)
