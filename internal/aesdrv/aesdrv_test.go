package aesdrv

import (
	"context"
	"testing"
	"time"

	"github.com/swipesensor/fpdrv/internal/dispatch"
	"github.com/swipesensor/fpdrv/internal/transport"
	"github.com/swipesensor/fpdrv/sink"
)

// newTestSession wires a Session to a FakeTransport with its Worker already
// running, returning a cancel func the test defers to stop the loop.
func newTestSession(t *testing.T, family Family, fake *transport.FakeTransport, sk sink.Sink) (*Session, context.CancelFunc) {
	t.Helper()
	worker := dispatch.NewWorker(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	return NewSession(worker, fake, family, sk, nil, nil), cancel
}

func buildFrame(magic byte, payload []byte) []byte {
	out := make([]byte, 3+len(payload))
	out[0] = magic
	out[1] = byte(len(payload))
	out[2] = byte(len(payload) >> 8)
	copy(out[3:], payload)
	return out
}

func TestActivateAES1660AlreadyInitShortCircuits(t *testing.T) {
	fake := transport.NewFakeTransport()
	idResp := make([]byte, AES1660.IDResponseLength)
	idResp[7] = AES1660.AlreadyInitByte
	fake.QueueIn(idResp, nil)

	s, cancel := newTestSession(t, AES1660, fake, nil)
	defer cancel()

	done := make(chan error, 1)
	s.Worker.Post(func() { s.Activate(func(err error) { done <- err }) })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected already-initialized activation to succeed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Activate did not complete in time")
	}
}

func TestActivateAES2550WalksInitTableAndCalibrates(t *testing.T) {
	fake := transport.NewFakeTransport()
	fake.QueueIn(make([]byte, AES2550.IDResponseLength), nil)
	for range AES2550.InitCommands {
		fake.QueueIn([]byte{0x42, 0, 0, 0x01}, nil)
	}
	fake.QueueIn(make([]byte, AES2550.CalibrateResponseLength), nil)

	s, cancel := newTestSession(t, AES2550, fake, nil)
	defer cancel()

	done := make(chan error, 1)
	s.Worker.Post(func() { s.Activate(func(err error) { done <- err }) })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected activation to succeed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Activate did not complete in time")
	}
}

func TestActivateShortIDResponseIsProtocolError(t *testing.T) {
	fake := transport.NewFakeTransport()
	fake.QueueIn(make([]byte, 2), nil)

	s, cancel := newTestSession(t, AES2550, fake, nil)
	defer cancel()

	done := make(chan error, 1)
	s.Worker.Post(func() { s.Activate(func(err error) { done <- err }) })

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a protocol error for a truncated ID response")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Activate did not complete in time")
	}
}

func TestFingerDetectReportsPresence(t *testing.T) {
	fake := transport.NewFakeTransport()
	fake.QueueIn([]byte{0x40, 0, 0, 0x01}, nil)

	s, cancel := newTestSession(t, AES2550, fake, nil)
	defer cancel()

	done := make(chan struct {
		present bool
		err     error
	}, 1)
	s.Worker.Post(func() {
		s.FingerDetect(func(present bool, err error) {
			done <- struct {
				present bool
				err     error
			}{present, err}
		})
	})

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if !res.present {
			t.Error("expected finger to be reported present")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FingerDetect did not complete in time")
	}
}

func TestCaptureAssemblesSingleStripImage(t *testing.T) {
	fake := transport.NewFakeTransport()
	stripSize := AES2550.FrameWidth * AES2550.FrameHeight / 2
	pad := AES2550.StripPayloadOffset - 3
	fake.QueueIn(buildFrame(AES2550.StripMagic, make([]byte, pad+stripSize)), nil)
	fake.QueueIn(buildFrame(AES2550.HeartbeatMagic, nil), nil)

	mem := sink.NewMemory()
	s, cancel := newTestSession(t, AES2550, fake, mem)
	defer cancel()

	done := make(chan error, 1)
	s.Worker.Post(func() { s.Capture(func(err error) { done <- err }) })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected capture error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Capture did not complete in time")
	}

	images := mem.Images()
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}
	if images[0].Width != AES2550.FrameWidth || images[0].Height != AES2550.FrameHeight {
		t.Errorf("expected %dx%d, got %dx%d", AES2550.FrameWidth, AES2550.FrameHeight, images[0].Width, images[0].Height)
	}
}

func TestDeactivateCancelsOutstandingFingerWait(t *testing.T) {
	fake := transport.NewFakeTransport()
	fake.QueueBlockingIn()

	s, cancel := newTestSession(t, AES2550, fake, nil)
	defer cancel()

	fdetDone := make(chan struct{}, 1)
	s.Worker.Post(func() {
		s.FingerDetect(func(present bool, err error) { fdetDone <- struct{}{} })
	})

	time.Sleep(50 * time.Millisecond)

	deactivateDone := make(chan struct{}, 1)
	s.Deactivate(func() { deactivateDone <- struct{}{} })

	select {
	case <-deactivateDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Deactivate did not complete after cancelling the outstanding read")
	}
}
