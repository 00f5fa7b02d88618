//nolint:funlen // ok for tests
package natspub

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/mpapenbr/cruisesim/pkg/runner"
	"github.com/mpapenbr/cruisesim/pkg/sim"
	"github.com/mpapenbr/cruisesim/testsupport/tcnats"
)

func TestSubjects(t *testing.T) {
	p := NewPublisher(nil, "r1", WithPrefix("sim"))
	assert.Equal(t, "sim.r1.telemetry", p.TelemetrySubject())
	assert.Equal(t, "sim.r1.summary", p.SummarySubject())
	assert.Equal(t, []string{"sim.r1.control", "sim.control"}, p.ControlSubjects())

	p = NewPublisher(nil, "r2", WithPrefix(""))
	assert.Equal(t, "cruisesim.r2.telemetry", p.TelemetrySubject())
}

func setupConn(t *testing.T) *nats.Conn {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	c, err := tcnats.SetupNats(ctx)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, c)
	url, err := c.URL(ctx)
	require.NoError(t, err)
	conn, err := Connect(url)
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	return conn
}

func TestPublisher_roundtrip(t *testing.T) {
	conn := setupConn(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPublisher(conn, "run1")

	received := make(chan *nats.Msg, 10)
	sub, err := conn.ChanSubscribe("cruisesim.run1.*", received)
	require.NoError(t, err)
	defer sub.Unsubscribe() //nolint:errcheck // test
	require.NoError(t, conn.Flush())

	frames := make(chan sim.Frame, 2)
	frames <- sim.Frame{Tick: 1, SpeedKmh: 0.5, Gear: 1}
	frames <- sim.Frame{Tick: 2, SpeedKmh: 1.0, Gear: 1, TractionLimited: true}
	close(frames)
	require.NoError(t, p.Run(ctx, frames))
	require.NoError(t, p.PublishSummary(&runner.Summary{RunID: "run1", Ticks: 2}))

	var got []map[string]any
	for i := 0; i < 3; i++ {
		select {
		case msg := <-received:
			v, err := oj.ParseString(string(msg.Data))
			require.NoError(t, err)
			got = append(got, v.(map[string]any))
		case <-time.After(5 * time.Second):
			t.Fatal("message not received")
		}
	}
	assert.Equal(t, int64(1), got[0]["tick"])
	assert.Equal(t, true, got[1]["tractionLimited"])
	assert.Equal(t, "run1", got[2]["runId"])

	cmds, err := p.Commands(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Publish("cruisesim.run1.control", []byte("not: [valid")))
	require.NoError(t, conn.Publish("cruisesim.control", []byte(`{"cruise": 90}`)))
	select {
	case c := <-cmds:
		require.NotNil(t, c.Cruise)
		assert.Equal(t, 90.0, *c.Cruise)
	case <-time.After(5 * time.Second):
		t.Fatal("command not received")
	}
	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-cmds
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}
