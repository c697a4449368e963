package watch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_decodeEvents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []streamEvent
	}{
		{
			name:  "single named event",
			input: "event: progress\ndata: {\"progress\": 42}\n\n",
			want: []streamEvent{
				{name: "progress", data: []byte(`{"progress": 42}`)},
			},
		},
		{
			name: "multiple events",
			input: "event: progress\ndata: {\"progress\": 10}\n\n" +
				"event: complete\ndata: {\"status\": \"completed\"}\n\n",
			want: []streamEvent{
				{name: "progress", data: []byte(`{"progress": 10}`)},
				{name: "complete", data: []byte(`{"status": "completed"}`)},
			},
		},
		{
			name:  "comments and keep-alives are skipped",
			input: ": ping\n\nevent: progress\ndata: {}\n\n: ping\n\n",
			want: []streamEvent{
				{name: "progress", data: []byte(`{}`)},
			},
		},
		{
			name:  "multi-line data joined with newline",
			input: "event: progress\ndata: {\"a\":\ndata: 1}\n\n",
			want: []streamEvent{
				{name: "progress", data: []byte("{\"a\":\n1}")},
			},
		},
		{
			name:  "event without trailing blank line is still delivered",
			input: "event: complete\ndata: {\"status\": \"completed\"}\n",
			want: []streamEvent{
				{name: "complete", data: []byte(`{"status": "completed"}`)},
			},
		},
		{
			name:  "data without space after colon",
			input: "event: progress\ndata:{\"progress\": 5}\n\n",
			want: []streamEvent{
				{name: "progress", data: []byte(`{"progress": 5}`)},
			},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []streamEvent
			err := decodeEvents(strings.NewReader(tt.input), func(ev streamEvent) bool {
				got = append(got, ev)
				return true
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_decodeEventsStopsWhenHandlerReturnsFalse(t *testing.T) {
	input := "event: progress\ndata: {}\n\nevent: complete\ndata: {}\n\n"

	var got []string
	err := decodeEvents(strings.NewReader(input), func(ev streamEvent) bool {
		got = append(got, ev.name)
		return false
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"progress"}, got)
}
