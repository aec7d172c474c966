// Package dns implements asynchronous reverse DNS resolution in a child
// process. Lookups are synchronous inside the child so slow or broken
// resolvers can never stall the capture loop; the parent talks to it
// over newline-delimited JSON on the child's stdin/stdout and only ever
// performs non-blocking channel operations.
package dns

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"github.com/yjh0502/darkstat/internal/metrics"
)

// WorkerArg is the hidden CLI argument that runs the resolver worker
// loop instead of the monitor. The parent re-executes its own binary
// with it.
const WorkerArg = "dns-worker"

const (
	queueDepth   = 256
	stopGrace    = 3 * time.Second
	lookupExpiry = 10 * time.Second
)

// Result is one completed resolution drained by Poll.
type Result struct {
	Addr netip.Addr `json:"addr"`
	Name string     `json:"name,omitempty"`
	Err  string     `json:"err,omitempty"`
}

// request is the parent-to-child message.
type request struct {
	Addr netip.Addr `json:"addr"`
}

// Resolver is the parent-side handle to the worker child process.
// Queue and Poll must be called from the capture loop goroutine only;
// the pipe goroutines never touch the in-flight set.
type Resolver struct {
	log *slog.Logger
	cmd *exec.Cmd

	queue    chan netip.Addr
	results  chan Result
	inflight map[netip.Addr]struct{}
}

// Start spawns the worker child. If privdropUser is non-empty the child
// runs under that account's uid/gid.
func Start(logger *slog.Logger, privdropUser string) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own executable: %w", err)
	}
	cmd := exec.Command(exe, WorkerArg)
	cmd.Stderr = os.Stderr

	if privdropUser != "" {
		cred, err := lookupCredential(privdropUser)
		if err != nil {
			return nil, err
		}
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start resolver worker: %w", err)
	}
	logger.Info("started resolver worker", "pid", cmd.Process.Pid, "user", privdropUser)

	r := &Resolver{
		log:      logger,
		cmd:      cmd,
		queue:    make(chan netip.Addr, queueDepth),
		results:  make(chan Result, queueDepth),
		inflight: make(map[netip.Addr]struct{}),
	}
	go r.writeLoop(stdin)
	go r.readLoop(stdout)
	return r, nil
}

func lookupCredential(name string) (*syscall.Credential, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("privdrop user lookup failed: %w", err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad uid %q for user %s: %w", u.Uid, name, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad gid %q for user %s: %w", u.Gid, name, err)
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}

// Queue requests resolution of addr without blocking. Duplicate requests
// for an address already in flight are not re-sent; if the queue is full
// the address is simply skipped and will be retried when seen again.
func (r *Resolver) Queue(addr netip.Addr) {
	if !addr.IsValid() {
		return
	}
	if _, ok := r.inflight[addr]; ok {
		return
	}
	select {
	case r.queue <- addr:
		r.inflight[addr] = struct{}{}
	default:
	}
}

// Poll drains completed resolutions without blocking. Safe to call on
// every iteration of the capture loop.
func (r *Resolver) Poll() []Result {
	var out []Result
	for {
		select {
		case res := <-r.results:
			delete(r.inflight, res.Addr)
			outcome := "ok"
			if res.Err != "" {
				outcome = "error"
			}
			metrics.DNSResolvedTotal.WithLabelValues(outcome).Inc()
			out = append(out, res)
		default:
			return out
		}
	}
}

// Stop closes the request pipe, which makes the worker exit on EOF, and
// reaps it. The worker is killed if it does not exit within the grace
// period.
func (r *Resolver) Stop() error {
	close(r.queue)

	timer := time.AfterFunc(stopGrace, func() {
		r.log.Warn("resolver worker did not exit, killing it")
		_ = r.cmd.Process.Kill()
	})
	defer timer.Stop()

	if err := r.cmd.Wait(); err != nil {
		return fmt.Errorf("resolver worker exited with error: %w", err)
	}
	return nil
}

func (r *Resolver) writeLoop(w io.WriteCloser) {
	defer w.Close()
	enc := json.NewEncoder(w)
	for addr := range r.queue {
		if err := enc.Encode(request{Addr: addr}); err != nil {
			r.log.Warn("failed to send request to resolver worker", "error", err)
			return
		}
	}
}

func (r *Resolver) readLoop(rd io.Reader) {
	dec := json.NewDecoder(rd)
	for {
		var res Result
		if err := dec.Decode(&res); err != nil {
			if err != io.EOF {
				r.log.Warn("failed to read from resolver worker", "error", err)
			}
			return
		}
		// The send must not be dropped: the address would stay marked
		// in flight and Queue would never re-request it. Blocking here
		// is safe, this goroutine has nothing else to do.
		r.results <- res
	}
}
