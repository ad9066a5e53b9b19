package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrNoScriptedResponse is returned by a FakeTransport's SubmitIn when
// the test has not queued enough responses for the number of reads the
// code under test actually issued.
var ErrNoScriptedResponse = errors.New("transport: fake has no scripted response queued")

type scriptedIn struct {
	result Result
	block  bool
}

// FakeTransport is a deterministic, in-memory Transport for tests: each
// SubmitIn call consumes the next scripted response in FIFO order, and
// every SubmitOut payload is recorded for later assertions. Grounded on
// the teacher's mockBackend (internal/ctrl/control_test.go): a plain
// struct implementing the production interface with programmable
// in-memory behavior standing in for the real resource. A queued
// response may also be "blocking", staying outstanding until Cancel is
// called on its handle, to exercise the wait-for-finger cancellation
// path without a real device.
type FakeTransport struct {
	mu        sync.Mutex
	responses []scriptedIn
	writes    [][]byte
	claimErr  error
	closed    bool
	nextID    uint64
	cancels   map[Handle]context.CancelFunc
}

// NewFakeTransport returns a FakeTransport with no scripted responses.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{cancels: make(map[Handle]context.CancelFunc)}
}

// QueueIn scripts the next SubmitIn call to resolve immediately with
// data and err, in the order QueueIn/QueueBlockingIn were called.
func (f *FakeTransport) QueueIn(data []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, scriptedIn{result: Result{Data: data, N: len(data), Err: err}})
}

// QueueBlockingIn scripts the next SubmitIn call to stay outstanding
// until Cancel is called on its returned Handle, at which point it
// resolves with ctx's error.
func (f *FakeTransport) QueueBlockingIn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, scriptedIn{block: true})
}

// SetClaimError makes ClaimInterface return err.
func (f *FakeTransport) SetClaimError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimErr = err
}

// Writes returns every payload previously handed to SubmitOut, in order.
func (f *FakeTransport) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

// Closed reports whether Close has been called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeTransport) ClaimInterface(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimErr
}

func (f *FakeTransport) allocHandle(cancel context.CancelFunc) Handle {
	f.nextID++
	h := Handle(f.nextID)
	if cancel != nil {
		f.cancels[h] = cancel
	}
	return h
}

func (f *FakeTransport) SubmitOut(ctx context.Context, ep int, payload []byte) (Handle, <-chan Result) {
	f.mu.Lock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.writes = append(f.writes, cp)
	h := f.allocHandle(nil)
	f.mu.Unlock()

	ch := make(chan Result, 1)
	ch <- Result{N: len(payload)}
	close(ch)
	return h, ch
}

func (f *FakeTransport) SubmitIn(ctx context.Context, ep int, length int) (Handle, <-chan Result) {
	f.mu.Lock()
	var next scriptedIn
	have := false
	if len(f.responses) > 0 {
		next = f.responses[0]
		f.responses = f.responses[1:]
		have = true
	}

	if !have {
		h := f.allocHandle(nil)
		f.mu.Unlock()
		ch := make(chan Result, 1)
		ch <- Result{Err: ErrNoScriptedResponse}
		close(ch)
		return h, ch
	}

	if !next.block {
		h := f.allocHandle(nil)
		f.mu.Unlock()
		ch := make(chan Result, 1)
		ch <- next.result
		close(ch)
		return h, ch
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	h := f.allocHandle(cancel)
	f.mu.Unlock()

	ch := make(chan Result, 1)
	go func() {
		<-cancelCtx.Done()
		ch <- Result{Err: cancelCtx.Err()}
		close(ch)
	}()
	return h, ch
}

func (f *FakeTransport) Cancel(h Handle) {
	f.mu.Lock()
	cancel, ok := f.cancels[h]
	delete(f.cancels, h)
	f.mu.Unlock()
	if ok {
		cancel()
	}
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	for _, cancel := range f.cancels {
		cancel()
	}
	f.cancels = make(map[Handle]context.CancelFunc)
	f.mu.Unlock()
	return nil
}
