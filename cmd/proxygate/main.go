// Command proxygate runs the interactive intercepting proxy engine,
// draining its event bus to stdout as a minimal operator console.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/AndreLaranjeira/ProxyGate/pkg/bus"
	"github.com/AndreLaranjeira/ProxyGate/pkg/engine"
	"github.com/AndreLaranjeira/ProxyGate/pkg/netdial"
)

func main() {
	port := netdial.DefaultPort
	if len(os.Args) > 1 {
		if p, err := strconv.Atoi(os.Args[1]); err == nil && p > 0 && p <= 65535 {
			port = p
		} else {
			fmt.Printf("invalid port %q, falling back to %d\n", os.Args[1], netdial.DefaultPort)
		}
	}

	b := bus.New()
	e := engine.New(port, b)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go consoleLoop(b)

	fmt.Printf("=== ProxyGate listening on port %d ===\n", port)
	if err := e.Run(ctx); err != nil {
		fmt.Printf("engine exited with error: %v\n", err)
		os.Exit(1)
	}
}

// consoleLoop prints every event on b until the bus is closed,
// standing in for a real UI event loop.
func consoleLoop(b *bus.Bus) {
	sub := b.Subscribe()
	for ev := range sub {
		switch ev.Kind {
		case bus.Log:
			fmt.Println(ev.Text)
		case bus.ClientMessage:
			fmt.Printf("--> client message:\n%s\n", ev.Headers)
		case bus.OriginMessage:
			fmt.Printf("<-- origin message:\n%s\n", ev.Headers)
		case bus.NewHost:
			fmt.Printf("new host: %s\n", ev.Text)
		case bus.GateOpened:
			fmt.Println("gate opened")
		case bus.UpdateSiteTree:
			fmt.Printf("site tree:\n%s\n", ev.Text)
		case bus.Finished:
			fmt.Println("engine finished")
			return
		}
	}
}
