package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRequests(t *testing.T, addrs ...string) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range addrs {
		require.NoError(t, enc.Encode(request{Addr: netip.MustParseAddr(a)}))
	}
	return &buf
}

func decodeResults(t *testing.T, r io.Reader) []Result {
	t.Helper()
	var out []Result
	dec := json.NewDecoder(r)
	for {
		var res Result
		if err := dec.Decode(&res); err != nil {
			require.ErrorIs(t, err, io.EOF)
			return out
		}
		out = append(out, res)
	}
}

func TestRunWorkerResolves(t *testing.T) {
	lookup := func(ctx context.Context, addr string) ([]string, error) {
		switch addr {
		case "10.0.0.1":
			return []string{"gateway.example.net."}, nil
		case "10.0.0.2":
			return nil, errors.New("NXDOMAIN")
		default:
			return nil, nil
		}
	}

	var out bytes.Buffer
	err := RunWorker(encodeRequests(t, "10.0.0.1", "10.0.0.2", "10.0.0.3"), &out, lookup)
	require.NoError(t, err)

	results := decodeResults(t, &out)
	require.Len(t, results, 3)

	assert.Equal(t, "gateway.example.net", results[0].Name, "trailing dot must be stripped")
	assert.Empty(t, results[0].Err)

	assert.Empty(t, results[1].Name)
	assert.Equal(t, "NXDOMAIN", results[1].Err)

	assert.Empty(t, results[2].Name)
	assert.NotEmpty(t, results[2].Err, "empty PTR set is reported as an error")
}

func TestRunWorkerExitsOnEOF(t *testing.T) {
	err := RunWorker(bytes.NewReader(nil), io.Discard, func(ctx context.Context, addr string) ([]string, error) {
		t.Fatal("lookup must not be called")
		return nil, nil
	})
	assert.NoError(t, err)
}

func newTestResolver() *Resolver {
	return &Resolver{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:    make(chan netip.Addr, 4),
		results:  make(chan Result, 4),
		inflight: make(map[netip.Addr]struct{}),
	}
}

func TestQueueDeduplicatesInFlight(t *testing.T) {
	r := newTestResolver()
	addr := netip.MustParseAddr("10.0.0.1")

	r.Queue(addr)
	r.Queue(addr)
	r.Queue(addr)

	assert.Len(t, r.queue, 1, "in-flight address must not be re-sent")

	// Completion clears the in-flight mark, so the address may be
	// requested again.
	r.results <- Result{Addr: addr, Name: "host.example.net"}
	polled := r.Poll()
	require.Len(t, polled, 1)
	assert.Equal(t, "host.example.net", polled[0].Name)

	r.Queue(addr)
	assert.Len(t, r.queue, 2)
}

func TestQueueDropsWhenFull(t *testing.T) {
	r := newTestResolver()
	for i := 0; i < 10; i++ {
		r.Queue(netip.AddrFrom4([4]byte{10, 0, 0, byte(i)}))
	}

	assert.Len(t, r.queue, 4)
	assert.Len(t, r.inflight, 4, "skipped addresses must not be marked in flight")
}

// A result must never be lost between the worker and Poll: a dropped
// result leaves its address marked in flight, so Queue would never
// re-request it.
func TestReadLoopDeliversWhenResultsBufferFull(t *testing.T) {
	r := newTestResolver()
	r.results = make(chan Result, 1)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	addrs := []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.0.2"),
		netip.MustParseAddr("10.0.0.3"),
	}
	for _, addr := range addrs {
		r.inflight[addr] = struct{}{}
		require.NoError(t, enc.Encode(Result{Addr: addr, Name: addr.String() + ".example.net"}))
	}

	go r.readLoop(&buf)

	var got []Result
	require.Eventually(t, func() bool {
		got = append(got, r.Poll()...)
		return len(got) == len(addrs)
	}, time.Second, 5*time.Millisecond, "all results must arrive despite the small buffer")
	assert.Empty(t, r.inflight, "completed addresses must leave the in-flight set")
}

func TestPollNonBlocking(t *testing.T) {
	r := newTestResolver()
	assert.Empty(t, r.Poll())
}

func TestQueueIgnoresInvalidAddr(t *testing.T) {
	r := newTestResolver()
	r.Queue(netip.Addr{})
	assert.Empty(t, r.queue)
}
