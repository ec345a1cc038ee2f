// Command test-inject is a manual test for text injection.
// It waits 3 seconds, then types or pastes test text.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste] [--restore]
package main

import (
	"fmt"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/BrianIS8090/wisper/internal/config"
	"github.com/BrianIS8090/wisper/internal/inject"
)

func main() {
	method := cli.String("method", "paste", "inject method: type or paste")
	restore := cli.Bool("restore", false, "restore the previous clipboard after pasting")
	text := cli.String("text", "Привет от wisper!", "text to inject")
	cli.Parse()

	fmt.Printf("Will inject %q using %q method (%s+v) in 3 seconds...\n", *text, *method, inject.PasteModifier())
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	inj := inject.NewInjector(config.InjectConfig{
		Method:           *method,
		PasteDelay:       100 * time.Millisecond,
		RestoreClipboard: *restore,
	})
	if err := inj.Inject(*text); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
