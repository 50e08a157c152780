package dashboard

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishKeepsBoundedBacklog(t *testing.T) {
	s := NewSSEServer(time.Hour)
	defer s.Stop()
	for i := 0; i < backlogSize+5; i++ {
		s.Publish(Event{Type: EventStageSaved, Invoice: fmt.Sprintf("F-%d", i)})
	}
	recent := s.Recent()
	require.Len(t, recent, backlogSize)
	assert.Equal(t, "F-5", recent[0].Invoice)
	assert.False(t, recent[0].Time.IsZero())
}

func TestPublishWithoutServerIsNoop(t *testing.T) {
	SetSSEServer(nil)
	assert.NotPanics(t, func() { Publish(Event{Type: EventSummaryRebuilt}) })
}

func TestHandleSSEReplaysBacklog(t *testing.T) {
	s := NewSSEServer(time.Hour)
	s.Publish(Event{Type: EventSummaryRebuilt, Files: []string{"RESUMEN_I.xlsx"}})
	srv := httptest.NewServer(http.HandlerFunc(s.HandleSSE))
	defer srv.Close()
	defer s.Stop()

	resp, err := http.Get(srv.URL + "?cliente=a")
	require.NoError(t, err)
	defer resp.Body.Close()

	var types []string
	lines := bufio.NewScanner(resp.Body)
	for len(types) < 2 && lines.Scan() {
		if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(data), &ev))
			types = append(types, ev.Type)
			if ev.Type == EventSummaryRebuilt {
				assert.Equal(t, []string{"RESUMEN_I.xlsx"}, ev.Files)
			}
		}
	}
	assert.Equal(t, []string{eventConnected, EventSummaryRebuilt}, types)
	assert.Equal(t, 1, s.ClientCount())
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewSSEServer(0)
	s.Stop()
	assert.NotPanics(t, s.Stop)
	assert.Equal(t, 0, s.ClientCount())
}

func TestLastSentTracksDelivery(t *testing.T) {
	s := NewSSEServer(time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(s.HandleSSE))
	defer srv.Close()
	defer s.Stop()

	resp, err := http.Get(srv.URL + "?cliente=a")
	require.NoError(t, err)
	defer resp.Body.Close()
	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())

	first := s.LastSent()["a"]
	require.False(t, first.IsZero())

	time.Sleep(5 * time.Millisecond)
	s.Publish(Event{Type: EventStageSaved, Invoice: "F-1"})
	for lines.Scan() {
		if strings.Contains(lines.Text(), "F-1") {
			break
		}
	}
	assert.True(t, s.LastSent()["a"].After(first))
}
