//go:build !mips && !mipsle

// USB bulk transport backed by github.com/google/gousb, grounded on
// guiperry-HASHER/internal/driver/device/usb_device.go's open/claim/
// endpoint pattern (config 1, interface 0, alternate setting 0; one
// OUT and one IN bulk endpoint). Excluded on mips/mipsle builds for the
// same reason the teacher excludes it: gousb pulls in libusb via cgo.
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// usbTransport is the concrete Transport talking to a real device
// through gousb. Construct with NewUSBTransport once the device has
// been opened (internal/usbctrl owns the enumerate-and-retry step);
// ClaimInterface must be called before the first Submit.
type usbTransport struct {
	device *gousb.Device

	mu      sync.Mutex
	config  *gousb.Config
	intf    *gousb.Interface
	epOut   *gousb.OutEndpoint
	epIn    *gousb.InEndpoint
	nextID  uint64
	cancels map[Handle]context.CancelFunc
}

// NewUSBTransport wraps an already-opened gousb.Device.
func NewUSBTransport(device *gousb.Device) Transport {
	return &usbTransport{
		device:  device,
		cancels: make(map[Handle]context.CancelFunc),
	}
}

func (t *usbTransport) ClaimInterface(ctx context.Context) error {
	config, err := t.device.Config(1)
	if err != nil {
		return fmt.Errorf("transport: set config 1: %w", err)
	}
	intf, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return fmt.Errorf("transport: claim interface 0: %w", err)
	}
	epOut, err := intf.OutEndpoint(EndpointOut)
	if err != nil {
		intf.Close()
		config.Close()
		return fmt.Errorf("transport: open out endpoint %d: %w", EndpointOut, err)
	}
	epIn, err := intf.InEndpoint(EndpointIn)
	if err != nil {
		intf.Close()
		config.Close()
		return fmt.Errorf("transport: open in endpoint %d: %w", EndpointIn, err)
	}

	t.mu.Lock()
	t.config, t.intf, t.epOut, t.epIn = config, intf, epOut, epIn
	t.mu.Unlock()
	return nil
}

func (t *usbTransport) allocHandle(cancel context.CancelFunc) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	h := Handle(t.nextID)
	t.cancels[h] = cancel
	return h
}

func (t *usbTransport) release(h Handle) {
	t.mu.Lock()
	delete(t.cancels, h)
	t.mu.Unlock()
}

// SubmitOut writes payload on ep. gousb's OutEndpoint has no
// context-aware write (matching usb_device.go, where SendPacket calls
// epOut.Write directly); only a pre-write cancellation check is honored,
// since the protocol never cancels an outstanding command write, only
// the "wait for finger" read (spec §4.1).
func (t *usbTransport) SubmitOut(ctx context.Context, ep int, payload []byte) (Handle, <-chan Result) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Result, 1)

	t.mu.Lock()
	epOut := t.epOut
	t.mu.Unlock()

	h := t.allocHandle(cancel)
	go func() {
		defer cancel()
		defer t.release(h)
		defer close(ch)

		if err := ctx.Err(); err != nil {
			ch <- Result{Err: err}
			return
		}
		if epOut == nil {
			ch <- Result{Err: fmt.Errorf("transport: out endpoint not claimed")}
			return
		}
		n, err := epOut.Write(payload)
		ch <- Result{N: n, Err: err}
	}()
	return h, ch
}

func (t *usbTransport) SubmitIn(ctx context.Context, ep int, length int) (Handle, <-chan Result) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Result, 1)

	t.mu.Lock()
	epIn := t.epIn
	t.mu.Unlock()

	h := t.allocHandle(cancel)
	go func() {
		defer cancel()
		defer t.release(h)
		defer close(ch)

		if epIn == nil {
			ch <- Result{Err: fmt.Errorf("transport: in endpoint not claimed")}
			return
		}
		buf := make([]byte, length)
		n, err := epIn.ReadContext(ctx, buf)
		ch <- Result{Data: buf[:n], N: n, Err: err}
	}()
	return h, ch
}

func (t *usbTransport) Cancel(h Handle) {
	t.mu.Lock()
	cancel, ok := t.cancels[h]
	t.mu.Unlock()
	if ok {
		cancel()
	}
}

func (t *usbTransport) Close() error {
	t.mu.Lock()
	intf, config, device := t.intf, t.config, t.device
	for _, cancel := range t.cancels {
		cancel()
	}
	t.cancels = make(map[Handle]context.CancelFunc)
	t.mu.Unlock()

	if intf != nil {
		intf.Close()
	}
	if config != nil {
		config.Close()
	}
	if device != nil {
		return device.Close()
	}
	return nil
}
