// Package runner owns process lifecycle: startup banner, run-until-cancel,
// and bounded drain on shutdown.
package runner

import (
	"bytes"
	"context"
	"os"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

// Hooks fire at the edges of the lifecycle.
type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer flushes buffered work before the process exits.
type Drainer interface {
	Drain() error
}

const EngineVersion = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"VERBA\" \"\" 0 }}\nVersion: " + EngineVersion + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
