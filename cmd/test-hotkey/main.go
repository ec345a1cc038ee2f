// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press the hotkey (F8 by default) to see events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--keys f8] [--mode hold|toggle]
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/spf13/pflag"

	"github.com/BrianIS8090/wisper/internal/hotkey"
)

func main() {
	keys := cli.StringSlice("keys", []string{"f8"}, "hotkey combo, comma separated (e.g. ctrl,shift,r)")
	mode := cli.String("mode", "hold", "hotkey mode: hold or toggle")
	cli.Parse()

	combo := strings.Join(*keys, "+")
	fmt.Printf("Listening for %s in %q mode...\n", combo, *mode)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(*keys, *mode)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.EventStart:
				fmt.Println(">>> START (recording)")
			case hotkey.EventStop:
				fmt.Println("<<< STOP  (stopped)")
			case hotkey.EventToggle:
				fmt.Println("=== TOGGLE")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
