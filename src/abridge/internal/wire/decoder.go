package wire

import (
	"bytes"
)

// ReadyMarker is the prompt agda prints, without a line terminator, when it
// is idle and able to accept the next command.
const ReadyMarker = "JSON> "

const _excerptLimit = 120

// Handlers receive decoder output. All three are invoked synchronously from
// Feed, in stream order.
type Handlers struct {
	// HandleResponse receives each successfully decoded record.
	HandleResponse func(Response)
	// HandleDecodeError receives a truncated excerpt of each malformed
	// line together with the cause. Decoding continues afterwards.
	HandleDecodeError func(excerpt string, cause error)
	// HandleReady fires on each ready edge.
	HandleReady func()
}

// Decoder turns a raw chunked character stream into discrete records and
// ready edges. Chunk boundaries carry no meaning: feeding the same bytes in
// any split yields the same sequence of handler calls.
type Decoder struct {
	handlers Handlers
	buf      []byte
}

// NewDecoder returns a decoder delivering to the given handlers.
func NewDecoder(handlers Handlers) *Decoder {
	return &Decoder{handlers: handlers}
}

// Feed appends a chunk of process output and processes whatever has become
// complete: a ready marker at the start of the unconsumed input fires a
// ready edge, and every terminated line decodes as one record. Text merely
// containing the marker elsewhere is not an edge.
func (d *Decoder) Feed(chunk []byte) {
	d.buf = append(d.buf, chunk...)

	for {
		// Marker before line extraction: a prompt that arrives in the same
		// chunk as records trailing it must read as an edge followed by
		// those records, not as one malformed line.
		if bytes.HasPrefix(d.buf, []byte(ReadyMarker)) {
			d.buf = d.buf[len(ReadyMarker):]
			if d.handlers.HandleReady != nil {
				d.handlers.HandleReady()
			}
			continue
		}
		if i := bytes.IndexByte(d.buf, '\n'); i >= 0 {
			line := bytes.TrimSuffix(d.buf[:i], []byte("\r"))
			d.buf = d.buf[i+1:]
			d.emitLine(line)
			continue
		}
		return
	}
}

// Reset discards any buffered partial input. Used when the process is
// restarted.
func (d *Decoder) Reset() {
	d.buf = nil
}

func (d *Decoder) emitLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	resp, err := Decode(line)
	if err != nil {
		if d.handlers.HandleDecodeError != nil {
			d.handlers.HandleDecodeError(excerpt(line), err)
		}
		return
	}
	if d.handlers.HandleResponse != nil {
		d.handlers.HandleResponse(resp)
	}
}

func excerpt(line []byte) string {
	if len(line) > _excerptLimit {
		return string(line[:_excerptLimit]) + "..."
	}
	return string(line)
}
