package builder

import (
	"errors"
	"fmt"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// Sentinel errors matched with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransfer      = errors.New("transfer error")
	ErrNotFound      = errors.New("not found")
)

// ConfigurationError reports an unusable cookie file path.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: cookie file %q: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TransferError carries the transport's native error code and message.
type TransferError struct {
	Code    int
	Message string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer error %d: %s", e.Code, e.Message)
}

func (e *TransferError) Is(target error) bool { return target == ErrTransfer }

// NotFoundError reports missing transfer metadata. Key is empty when no
// transfer has completed yet.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return "not found: no transfer info available"
	}
	return fmt.Sprintf("not found: transfer info key %q", e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// newTransferError reads code and message from the transport failure.
// Failures that are not *transport.Error are reported as receive errors.
func newTransferError(err error) *TransferError {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return &TransferError{Code: int(terr.Code), Message: terr.Message}
	}
	return &TransferError{Code: int(transport.CodeRecvError), Message: err.Error()}
}
