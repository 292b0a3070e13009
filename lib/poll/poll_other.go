//go:build !linux

package poll

// NewPoller returns ErrUnsupported on platforms without an epoll backend.
func NewPoller(capacity int) (IPoller, error) {
	return nil, ErrUnsupported
}
