package dns

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
)

// LookupFunc resolves an address to its PTR names. The default uses the
// system resolver.
type LookupFunc func(ctx context.Context, addr string) ([]string, error)

// RunWorker is the child-side loop: it reads resolution requests from
// in, resolves them one at a time, and writes results to out. It returns
// when in reaches EOF (the parent closed the pipe) or on a pipe error.
func RunWorker(in io.Reader, out io.Writer, lookup LookupFunc) error {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupAddr
	}

	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		res := Result{Addr: req.Addr}
		ctx, cancel := context.WithTimeout(context.Background(), lookupExpiry)
		names, err := lookup(ctx, req.Addr.String())
		cancel()
		switch {
		case err != nil:
			res.Err = err.Error()
		case len(names) == 0:
			res.Err = "no PTR record"
		default:
			res.Name = strings.TrimSuffix(names[0], ".")
		}

		if err := enc.Encode(res); err != nil {
			return err
		}
	}
}
