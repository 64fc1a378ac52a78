// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package valkey creates the Valkey (Redis-compatible) client shared by
// sessions and user preferences.
package valkey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Connect creates a Valkey client and verifies the connection with a ping.
func Connect(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", addr)
	return client, nil
}

// Embedded starts an in-process Redis-compatible server for development
// runs with the memory store driver. Call the returned stop function on
// shutdown.
func Embedded() (*redis.Client, func(), error) {
	srv, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("embedded valkey: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	stop := func() {
		client.Close()
		srv.Close()
	}
	slog.Warn("using embedded in-memory valkey; sessions are lost on restart", "addr", srv.Addr())
	return client, stop, nil
}
