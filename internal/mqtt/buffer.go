package mqtt

import "log"

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds messages published while the broker is unreachable.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	msgs    []bufferedMsg
	start   int // oldest message
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count < len(r.msgs) {
		r.msgs[(r.start+r.count)%len(r.msgs)] = msg
		r.count++
		return
	}

	if r.dropped == 0 {
		log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.msgs))
	}
	r.dropped++
	r.msgs[r.start] = msg
	r.start = (r.start + 1) % len(r.msgs)
}

// drainAll returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}
	if r.dropped > 0 {
		log.Printf("mqtt: %d buffered messages were dropped while offline", r.dropped)
	}

	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.msgs[(r.start+i)%len(r.msgs)]
	}
	r.start, r.count, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
