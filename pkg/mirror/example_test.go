package mirror_test

import (
	"context"
	"fmt"

	"github.com/bft-labs/tcpmirror/pkg/mirror"
)

// ExampleNew demonstrates how to embed a mirror in your application.
func ExampleNew() {
	cfg := mirror.Config{
		ListenAddr: "127.0.0.1:0",
		Targets:    []string{"127.0.0.1:9"},
	}

	m, err := mirror.New(cfg)
	if err != nil {
		fmt.Printf("failed to create mirror: %v\n", err)
		return
	}

	// Binds synchronously; mirroring runs in the background.
	if err := m.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	fmt.Println(m.Status())

	_ = m.Stop()
	fmt.Println(m.Status())

	// Output:
	// Listening
	// Stopped
}

// Example_targets shows the per-target snapshot.
func Example_targets() {
	m, err := mirror.New(mirror.Config{
		Port:    9000,
		Targets: []string{"a.example:1", "b.example:2"},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, t := range m.Targets() {
		fmt.Println(t.Target, t.State)
	}

	// Output:
	// a.example:1 Disconnected
	// b.example:2 Disconnected
}
