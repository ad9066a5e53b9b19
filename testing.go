package fpdrv

import (
	"context"

	"github.com/swipesensor/fpdrv/internal/transport"
	"github.com/swipesensor/fpdrv/sink"
)

// NewTestSession opens a Session against a transport.FakeTransport for
// unit tests, skipping USB enumeration entirely. The caller scripts the
// fake's responses (QueueIn/QueueBlockingIn) before calling Run, the same
// role NewMockBackend plays for exercising the public API without a real
// kernel resource behind it.
func NewTestSession(ctx context.Context, family DeviceFamily, fake *transport.FakeTransport, sk sink.Sink) (*Session, error) {
	if fake == nil {
		fake = transport.NewFakeTransport()
	}
	return Open(ctx, Params{
		Family:    family,
		Transport: fake,
		Sink:      sk,
	})
}
