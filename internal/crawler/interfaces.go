package crawler

import (
	"context"
)

// Fetcher performs one HTTP GET. Non-2xx responses are returned normally;
// only transport failures are errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*HTTPResponse, error)
}

// ResultHandler receives every page result as soon as it is produced.
// A handler error is logged and does not stop the run.
type ResultHandler interface {
	HandlePage(ctx context.Context, result *PageResult) error
}
