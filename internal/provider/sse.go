package provider

import (
	"io"
	"iter"

	"github.com/tmaxmax/go-sse"
)

// streamDoneSentinel ends an event stream early on backends that send one.
const streamDoneSentinel = "[DONE]"

const sseMaxEventSize = 1 << 20

// sseEvents yields the data payload of each event in r. Multiple data lines
// of one event are joined with "\n". Events that carry no data (comments,
// bare event: or id: fields) are skipped. A final event may end at EOF
// without a blank line.
func sseEvents(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for ev, err := range sse.Read(r, &sse.ReadConfig{MaxEventSize: sseMaxEventSize}) {
			if err != nil {
				yield("", err)
				return
			}
			if ev.Data == "" {
				continue
			}
			if !yield(ev.Data, nil) {
				return
			}
		}
	}
}

// drain discards the rest of r so the connection can be reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 1<<20))
}
