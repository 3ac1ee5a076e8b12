package models

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrNotFound = status.Errorf(codes.NotFound, "not found")

// ErrEmptySubmission rejects a send with neither text nor a resolved
// attachment. No remote call is made.
var ErrEmptySubmission = errors.New("empty submission: message needs text or an attachment")

// ErrSubscriptionLost reports a dropped realtime transport. Handled
// internally by resubscribe plus reseed; callers only see it when the reseed
// itself fails and the scope degrades.
var ErrSubscriptionLost = errors.New("realtime subscription lost")

// ErrReconciliationTimeout marks a provisional entry whose confirming echo
// never arrived. Distinct from a write error: the write may have succeeded
// server-side.
var ErrReconciliationTimeout = errors.New("no confirming echo before deadline")

// UploadError wraps a blob storage failure. Message creation is aborted and
// the local store is untouched.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// RemoteWriteError wraps a rejected send or reaction upsert. The provisional
// entry, if any, has been marked failed.
type RemoteWriteError struct {
	Op  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write %s: %v", e.Op, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}
