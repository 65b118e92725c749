// Package channels connects chat platforms to the analysis service.
package channels

import (
	"context"
	"net/http"
)

type Channel interface {
	Name() string
	RegisterRoutes(mux *http.ServeMux)
	// Start runs until ctx is done. Analyses started by the channel are
	// bound to ctx.
	Start(ctx context.Context) error
}
