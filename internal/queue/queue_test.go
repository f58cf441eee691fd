package queue

import (
	"context"
	"testing"
	"time"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 5; i++ {
		if err := q.Send(i); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		v, err := q.Receive(context.Background())
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if v != i {
			t.Fatalf("want %d got %d", i, v)
		}
	}
}

func TestReceiveTimeout(t *testing.T) {
	q := New[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Receive(ctx); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCloseUnblocks(t *testing.T) {
	q := New[int](0)
	done := make(chan error, 1)
	go func() {
		_, err := q.Receive(context.Background())
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("want ErrClosed got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock on Close")
	}
}

func TestBoundedSendBlocks(t *testing.T) {
	q := New[int](1)
	if err := q.Send(1); err != nil {
		t.Fatal(err)
	}
	sent := make(chan struct{})
	go func() {
		_ = q.Send(2)
		close(sent)
	}()
	select {
	case <-sent:
		t.Fatal("Send on full bounded queue should have blocked")
	case <-time.After(20 * time.Millisecond):
	}
	_, _ = q.Receive(context.Background())
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after Receive freed capacity")
	}
}
