package valkey

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestConnect(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := Connect(srv.Addr(), "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := srv.Get("k"); got != "v" {
		t.Errorf("stored value: got %q", got)
	}
}

func TestConnectUnreachable(t *testing.T) {
	if _, err := Connect("127.0.0.1:1", ""); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestEmbedded(t *testing.T) {
	client, stop, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	defer stop()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
