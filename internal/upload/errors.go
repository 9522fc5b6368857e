package upload

import (
	"fmt"

	"farmgate/internal/farm"
)

// CreationError means the remote service rejected the upload slot creation.
// Fatal; the submission is not retried.
type CreationError struct {
	Kind farm.UploadKind
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("creating %s upload slot: %v", e.Kind, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// TransferError means the byte transfer to the upload slot failed.
// Fatal; the caller may resubmit the whole upload.
type TransferError struct {
	Kind   farm.UploadKind
	Handle string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transferring %s payload to %s: %v", e.Kind, e.Handle, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// FailedError means the remote service reported the upload as failed.
type FailedError struct {
	Kind    farm.UploadKind
	Handle  string
	Message string
}

func (e *FailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s upload %s failed remotely: %s", e.Kind, e.Handle, e.Message)
	}
	return fmt.Sprintf("%s upload %s failed remotely", e.Kind, e.Handle)
}

// TimeoutError means the attempt budget ran out while the upload was still
// processing. Distinct from FailedError: a resubmission with a larger budget
// may succeed.
type TimeoutError struct {
	Kind     farm.UploadKind
	Handle   string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s upload %s still processing after %d polls", e.Kind, e.Handle, e.Attempts)
}
