//go:build !mips && !mipsle

// Package usbctrl owns the enumerate-and-claim sequence that sits in
// front of internal/transport: finding the sensor on the USB bus by
// vendor/product ID, retrying while it has not yet enumerated (e.g.
// right after a hot-plug), and claiming its bulk interface. Grounded on
// internal/ctrl/control.go's Controller (open a control resource, claim
// it, clean shutdown) combined with internal/queue/runner.go's
// udev-wait retry loop, here waiting on device enumeration instead of a
// character device node appearing.
package usbctrl

import (
	"context"
	"fmt"

	"github.com/google/gousb"
	"golang.org/x/sys/unix"

	"github.com/swipesensor/fpdrv/internal/interfaces"
	"github.com/swipesensor/fpdrv/internal/transport"
)

// RetryPolicy bounds how long Open waits for a matching device to
// enumerate. Mirrors queue.NewRunner's maxRetries/retryDelayNs shape.
type RetryPolicy struct {
	MaxAttempts int
	DelayNs     int64
}

// DefaultRetryPolicy waits up to ~5s (50 * 100ms), the same budget the
// teacher's udev-wait loop uses for a character device node to appear.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 50, DelayNs: 100_000_000}

// VIDPID identifies one member of a device family's supported-hardware
// table (original_source/libfprint/drivers/aes1660.c's/aes2550.c's
// id_table entries).
type VIDPID struct {
	Vendor  gousb.ID
	Product gousb.ID
}

// Controller owns the gousb context for the lifetime of one opened
// session and knows how to tear it down cleanly, mirroring ctrl.
// Controller's controlFd/ring pairing (one long-lived resource, one
// Close).
type Controller struct {
	ctx    *gousb.Context
	device *gousb.Device
	logger interfaces.Logger
}

// Open scans ids in order, retrying per policy until a matching device
// enumerates or ctx is cancelled, then claims its bulk interface and
// returns a ready-to-use Transport plus the Controller that owns it.
func Open(ctx context.Context, ids []VIDPID, policy RetryPolicy, logger interfaces.Logger) (*Controller, transport.Transport, error) {
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("usbctrl: no vendor/product IDs given")
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}

	usbCtx := gousb.NewContext()

	var device *gousb.Device
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			usbCtx.Close()
			return nil, nil, err
		}
		for _, id := range ids {
			dev, err := usbCtx.OpenDeviceWithVIDPID(id.Vendor, id.Product)
			if err != nil {
				lastErr = err
				continue
			}
			if dev != nil {
				device = dev
				break
			}
		}
		if device != nil {
			break
		}
		if logger != nil {
			logger.Debugf("usbctrl: device not found yet, attempt %d/%d", attempt+1, policy.MaxAttempts)
		}
		ts := unix.Timespec{Sec: 0, Nsec: policy.DelayNs}
		_ = unix.Nanosleep(&ts, nil)
	}
	if device == nil {
		usbCtx.Close()
		if lastErr != nil {
			return nil, nil, fmt.Errorf("usbctrl: device did not enumerate: %w", lastErr)
		}
		return nil, nil, fmt.Errorf("usbctrl: device did not enumerate within the retry budget")
	}

	tr := transport.NewUSBTransport(device)
	if err := tr.ClaimInterface(ctx); err != nil {
		device.Close()
		usbCtx.Close()
		return nil, nil, fmt.Errorf("usbctrl: claim interface: %w", err)
	}

	c := &Controller{ctx: usbCtx, device: device, logger: logger}
	return c, tr, nil
}

// Close releases the device and the gousb context. The caller is
// responsible for closing the Transport Open returned first, so any
// outstanding transfers unwind before the underlying handles go away.
func (c *Controller) Close() error {
	var err error
	if c.device != nil {
		err = c.device.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}
	return err
}
