package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeTransportScriptedResponsesInOrder(t *testing.T) {
	f := NewFakeTransport()
	f.QueueIn([]byte{1, 2, 3}, nil)
	f.QueueIn([]byte{4, 5}, nil)

	ctx := context.Background()
	_, ch1 := f.SubmitIn(ctx, EndpointIn, 8192)
	res1 := <-ch1
	if res1.Err != nil || len(res1.Data) != 3 || res1.Data[0] != 1 {
		t.Fatalf("first response = %+v, want {1,2,3}", res1)
	}

	_, ch2 := f.SubmitIn(ctx, EndpointIn, 8192)
	res2 := <-ch2
	if res2.Err != nil || len(res2.Data) != 2 || res2.Data[0] != 4 {
		t.Fatalf("second response = %+v, want {4,5}", res2)
	}
}

func TestFakeTransportExhaustedScriptErrors(t *testing.T) {
	f := NewFakeTransport()
	_, ch := f.SubmitIn(context.Background(), EndpointIn, 8192)
	res := <-ch
	if !errors.Is(res.Err, ErrNoScriptedResponse) {
		t.Errorf("Err = %v, want ErrNoScriptedResponse", res.Err)
	}
}

func TestFakeTransportRecordsWrites(t *testing.T) {
	f := NewFakeTransport()
	_, ch := f.SubmitOut(context.Background(), EndpointOut, []byte{0xaa, 0xbb})
	<-ch

	writes := f.Writes()
	if len(writes) != 1 || writes[0][0] != 0xaa || writes[0][1] != 0xbb {
		t.Errorf("Writes() = %v, want [[0xaa 0xbb]]", writes)
	}
}

func TestFakeTransportBlockingInResolvesOnCancel(t *testing.T) {
	f := NewFakeTransport()
	f.QueueBlockingIn()

	h, ch := f.SubmitIn(context.Background(), EndpointIn, 8192)

	select {
	case <-ch:
		t.Fatal("blocking read resolved before Cancel")
	case <-time.After(20 * time.Millisecond):
	}

	f.Cancel(h)

	select {
	case res := <-ch:
		if res.Err == nil {
			t.Error("expected an error after cancelling a blocking read")
		}
	case <-time.After(time.Second):
		t.Fatal("blocking read never resolved after Cancel")
	}
}

func TestFakeTransportCancelOfUnknownHandleIsNoOp(t *testing.T) {
	f := NewFakeTransport()
	f.Cancel(Handle(999))
}

func TestFakeTransportClaimError(t *testing.T) {
	f := NewFakeTransport()
	wantErr := errors.New("claim failed")
	f.SetClaimError(wantErr)

	if err := f.ClaimInterface(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("ClaimInterface() = %v, want %v", err, wantErr)
	}
}

func TestFakeTransportClose(t *testing.T) {
	f := NewFakeTransport()
	f.QueueBlockingIn()
	_, ch := f.SubmitIn(context.Background(), EndpointIn, 8192)

	if err := f.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	if !f.Closed() {
		t.Error("Closed() = false after Close")
	}

	select {
	case res := <-ch:
		if res.Err == nil {
			t.Error("expected outstanding read to resolve with an error after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("outstanding read never resolved after Close")
	}
}
