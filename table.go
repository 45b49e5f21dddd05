package qedis

import "github.com/puzpuzpuz/xsync/v3"

// requestTable maps stream ids to their in-flight request.
// A stream id maps to at most one request at any time.
type requestTable struct {
	m *xsync.MapOf[StreamID, *pendingRequest]
}

func newRequestTable() *requestTable {
	return &requestTable{m: xsync.NewMapOf[StreamID, *pendingRequest]()}
}

// register adds p, or fails with ErrStreamBusy if its stream already has a request.
func (t *requestTable) register(p *pendingRequest) error {
	if _, loaded := t.m.LoadOrStore(p.streamID, p); loaded {
		return ErrStreamBusy
	}
	return nil
}

func (t *requestTable) lookup(id StreamID) (*pendingRequest, bool) {
	return t.m.Load(id)
}

// remove deletes the entry for p's stream only if it still holds p.
// Exactly one caller gets true for a given request.
func (t *requestTable) remove(p *pendingRequest) bool {
	removed := false
	t.m.Compute(p.streamID, func(old *pendingRequest, loaded bool) (*pendingRequest, bool) {
		if !loaded {
			return nil, true
		}
		if old != p {
			return old, false
		}
		removed = true
		return nil, true
	})
	return removed
}

// drain removes and returns every request.
func (t *requestTable) drain() []*pendingRequest {
	var out []*pendingRequest
	t.m.Range(func(_ StreamID, p *pendingRequest) bool {
		if t.remove(p) {
			out = append(out, p)
		}
		return true
	})
	return out
}

func (t *requestTable) size() int {
	return t.m.Size()
}
