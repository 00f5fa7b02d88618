package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/cruisesim/pkg/sim"
	"github.com/mpapenbr/cruisesim/pkg/utils/broadcast"
)

func TestServer(t *testing.T) {
	source := make(chan sim.Frame)
	bcst := broadcast.NewBroadcastServer("web-test", source,
		broadcast.WithSendTimeout[sim.Frame](time.Second))
	defer bcst.Close()
	s := NewServer(bcst, WithEvery(2))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := int64(1); i <= 4; i++ {
		source <- sim.Frame{Tick: i, Gear: 1, SpeedKmh: float64(i) + 0.5}
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ticks []int64
	for len(ticks) < 2 {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		v, err := oj.ParseString(string(msg))
		require.NoError(t, err)
		ticks = append(ticks, v.(map[string]any)["tick"].(int64))
	}
	assert.Equal(t, []int64{2, 4}, ticks)

	require.Eventually(t, func() bool {
		f := s.latest.Load()
		return f != nil && f.Tick == 4
	}, 5*time.Second, 10*time.Millisecond)
	resp, err = http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	v, err := oj.Parse(body)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v.(map[string]any)["speedKmh"])

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"grade": 2.5}`)))
	select {
	case c := <-s.Commands():
		require.NotNil(t, c.Grade)
		assert.Equal(t, 2.5, *c.Grade)
	case <-time.After(5 * time.Second):
		t.Fatal("command not received")
	}
}
