package provider

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, r io.Reader) []string {
	t.Helper()
	var events []string
	for data, err := range sseEvents(r) {
		require.NoError(t, err)
		events = append(events, data)
	}
	return events
}

func TestSSEEvents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single event",
			input: "data: {\"a\":1}\n\n",
			want:  []string{`{"a":1}`},
		},
		{
			name:  "crlf line endings",
			input: "data: one\r\n\r\ndata: two\r\n\r\n",
			want:  []string{"one", "two"},
		},
		{
			name:  "multi-line data joined",
			input: "data: first\ndata: second\n\n",
			want:  []string{"first\nsecond"},
		},
		{
			name:  "comments and other fields skipped",
			input: ": keep-alive\nevent: message\nid: 7\ndata: payload\n\n",
			want:  []string{"payload"},
		},
		{
			name:  "no space after colon",
			input: "data:tight\n\n",
			want:  []string{"tight"},
		},
		{
			name:  "final event without blank line",
			input: "data: a\n\ndata: b",
			want:  []string{"a", "b"},
		},
		{
			name:  "blank lines between events",
			input: "\n\n\ndata: x\n\n\n\n",
			want:  []string{"x"},
		},
		{
			name:  "event without data skipped",
			input: "event: ping\n\ndata: after\n\n",
			want:  []string{"after"},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectEvents(t, strings.NewReader(tt.input)))
		})
	}
}

type chunkedReader struct {
	chunks []string
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestSSEEventsSplitAcrossReads(t *testing.T) {
	r := &chunkedReader{chunks: []string{"da", "ta: hel", "lo\n", "\nda", "ta: world\n\n"}}
	assert.Equal(t, []string{"hello", "world"}, collectEvents(t, r))
}

func TestSSEEventsStopsWhenConsumerBreaks(t *testing.T) {
	var got []string
	for data, err := range sseEvents(strings.NewReader("data: a\n\ndata: b\n\ndata: c\n\n")) {
		require.NoError(t, err)
		got = append(got, data)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestSSEEventsOversizedEvent(t *testing.T) {
	input := "data: " + strings.Repeat("x", sseMaxEventSize+1) + "\n\n"
	var gotErr error
	for _, err := range sseEvents(strings.NewReader(input)) {
		if err != nil {
			gotErr = err
		}
	}
	assert.Error(t, gotErr)
}
