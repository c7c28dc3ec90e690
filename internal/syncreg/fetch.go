package syncreg

import (
	"context"
	"fmt"

	"github.com/indranet/indra/internal/artifact"
	"github.com/indranet/indra/internal/errs"
	"github.com/indranet/indra/internal/ids"
)

// Fetcher retrieves id's blob content from a specific peer. Implementations
// live in internal/transport; this package only defines the contract.
type Fetcher func(ctx context.Context, peer ids.MemberId, id artifact.ID) ([]byte, error)

type fetchResult struct {
	data []byte
	err  error
}

// FetchFirst fetches id's blob content from whichever peer in candidates
// answers first, per spec.md §4.5 ("fetches blob content on demand from
// any peer in the session — first-to-answer wins"). It cancels the
// remaining in-flight fetches once a winner is found.
func FetchFirst(ctx context.Context, id artifact.ID, candidates []ids.MemberId, fetch Fetcher) ([]byte, error) {
	if len(candidates) == 0 {
		return nil, errs.New("syncreg.FetchFirst", errs.ArtifactNotFound, fmt.Errorf("no candidate peers"))
	}

	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan fetchResult, len(candidates))
	for _, peer := range candidates {
		peer := peer
		go func() {
			data, err := fetch(fctx, peer, id)
			results <- fetchResult{data: data, err: err}
		}()
	}

	var lastErr error
	for i := 0; i < len(candidates); i++ {
		select {
		case res := <-results:
			if res.err == nil {
				return res.data, nil
			}
			lastErr = res.err
		case <-ctx.Done():
			return nil, errs.New("syncreg.FetchFirst", errs.Timeout, ctx.Err())
		}
	}
	return nil, errs.New("syncreg.FetchFirst", errs.NotConnected, lastErr)
}
