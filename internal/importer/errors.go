package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrImportInProgress rejects a second concurrent import. Requests are
	// rejected, never queued.
	ErrImportInProgress = errors.New("an import is already in progress")
	// ErrInvalidProfileURL rejects input that is not a profile URL on the
	// target site. Raised before any tab is created.
	ErrInvalidProfileURL = errors.New("not a valid LinkedIn profile URL")
	// ErrScraperInjectFailed means the scraper script could not be installed.
	ErrScraperInjectFailed = errors.New("scraper injection failed")
	// ErrScrapeFailed wraps a scraper-reported reason or a generic blocked
	// verdict when the page gave none.
	ErrScrapeFailed = errors.New("scrape failed")
	// ErrNormalizationFailed wraps the normalization API's reported error.
	ErrNormalizationFailed = errors.New("normalization failed")
	// ErrDeliveryFailed means the result could not be handed to the host app
	// even after injecting the bridge and retrying once.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Failure is a terminal session error annotated with the state that raised
// it, so every failed import has an auditable origin.
type Failure struct {
	State State
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.State, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
