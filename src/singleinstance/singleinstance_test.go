package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func usePort(t *testing.T, port int) {
	t.Setenv("SINGLEINSTANCE_PORT_START", strconv.Itoa(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", strconv.Itoa(port))
}

func startServer(t *testing.T, ctx context.Context, port int) Server {
	t.Helper()
	usePort(t, port)
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback port unavailable in this environment: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestCaptureRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49611)

	type reply struct {
		delegated bool
		text      string
		err       error
	}
	replyCh := make(chan reply, 1)
	go func() {
		delegated, text, err := NewClient().TryCapture(ctx)
		replyCh <- reply{delegated, text, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if conn.Request().Kind != RequestCapture {
		t.Errorf("expected capture request, got %q", conn.Request().Kind)
	}
	if err := conn.RespondSuccess("你好\nworld"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	conn.Close()

	r := <-replyCh
	if r.err != nil || !r.delegated || r.text != "你好\nworld" {
		t.Errorf("TryCapture() = %v, %q, %v", r.delegated, r.text, r.err)
	}
}

func TestCaptureError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49612)

	errCh := make(chan error, 1)
	go func() {
		_, _, err := NewClient().TryCapture(ctx)
		errCh <- err
	}()
	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_ = conn.RespondError("capture cancelled")
	conn.Close()

	if err := <-errCh; err == nil || err.Error() != "capture cancelled" {
		t.Errorf("TryCapture() error = %v", err)
	}
}

func TestNoResident(t *testing.T) {
	usePort(t, 49613)
	delegated, _, err := NewClient().TryCapture(context.Background())
	if delegated || err != nil {
		t.Errorf("TryCapture() without resident = %v, %v", delegated, err)
	}
	if _, ok := DetectResident(context.Background()); ok {
		t.Error("DetectResident() found a resident that does not exist")
	}
}

func TestDetectResident(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	startServer(t, ctx, 49614)

	port, ok := DetectResident(context.Background())
	if !ok || port != 49614 {
		t.Errorf("DetectResident() = %d, %v", port, ok)
	}
}

func TestUnknownRequestIsRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	startServer(t, ctx, 49615)

	conn, err := net.Dial("tcp", "127.0.0.1:49615")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_, _ = conn.Write([]byte("STDOUT\n"))
	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || status != errorStatus {
		t.Errorf("status = %q, %v", status, err)
	}
}

func TestPortRange(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "70000")
	t.Setenv("SINGLEINSTANCE_PORT_END", "80")
	start, end := PortRange()
	if start != 1024 || end != 65535 {
		t.Errorf("PortRange() = %d-%d, want 1024-65535", start, end)
	}
}

func TestNextAfterClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := startServer(t, ctx, 49616)
	srv.Close()
	if _, err := srv.Next(ctx); err == nil {
		t.Error("Next() after Close should fail")
	}
	srv.Close()
}
