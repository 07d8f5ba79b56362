package smtp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

func TestMailer_Notify(t *testing.T) {
	t.Run("NoHostConfigured", func(t *testing.T) {
		m := &Mailer{Logger: slogt.New(t)}
		if m.Notify(context.Background(), "to@example.com", "hi", "body") {
			t.Error("Notify() = true, want false for an unconfigured mailer")
		}
	})

	t.Run("StalledServerHonorsDeadline", func(t *testing.T) {
		// A server that accepts the connection but never sends the
		// SMTP greeting. Notify must give up at the context deadline
		// instead of blocking on the handshake read.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("net.Listen() error: %s", err)
		}
		defer ln.Close()
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				defer conn.Close()
			}
		}()

		addr := ln.Addr().(*net.TCPAddr)
		m := &Mailer{
			Host:   "127.0.0.1",
			Port:   addr.Port,
			From:   "noreply@example.com",
			Logger: slogt.New(t),
		}

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		if m.Notify(ctx, "to@example.com", "hi", "body") {
			t.Error("Notify() = true, want false when the server never greets")
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("Notify() took %s, want a return near the 200ms deadline", elapsed)
		}
	})
}
