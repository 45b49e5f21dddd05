package qedis

import (
	"sync"

	"github.com/pior/qedis/resp"
)

// pendingRequest is one in-flight operation on one stream: a single query or
// a pipelined batch.
//
// The parser and replies are only touched by the dispatch goroutine.
// The completion is resolved exactly once, by whichever path finalizes the
// request first.
type pendingRequest struct {
	streamID StreamID
	batch    bool
	expected int

	parser  *resp.Reader
	replies []any

	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newSingleRequest(id StreamID) *pendingRequest {
	return &pendingRequest{
		streamID: id,
		expected: 1,
		parser:   resp.NewReader(),
		done:     make(chan struct{}),
	}
}

func newBatchRequest(id StreamID, expected int) *pendingRequest {
	return &pendingRequest{
		streamID: id,
		batch:    true,
		expected: expected,
		parser:   resp.NewReader(),
		replies:  make([]any, 0, expected),
		done:     make(chan struct{}),
	}
}

// resolve sets the completion. Later calls are ignored.
func (p *pendingRequest) resolve(value any, err error) bool {
	resolved := false
	p.once.Do(func() {
		p.value = value
		p.err = err
		resolved = true
		close(p.done)
	})
	return resolved
}

// result must only be called once done is closed.
func (p *pendingRequest) result() (any, error) {
	return p.value, p.err
}

// accept records one parsed reply and reports whether the request is complete.
func (p *pendingRequest) accept(reply any) bool {
	if !p.batch {
		p.replies = append(p.replies[:0], reply)
		return true
	}
	p.replies = append(p.replies, reply)
	return len(p.replies) >= p.expected
}

// completion returns the value a complete request resolves to.
func (p *pendingRequest) completion() any {
	if !p.batch {
		return p.replies[0]
	}
	return p.replies
}
