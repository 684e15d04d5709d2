// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/coreruntime/novakernel/pkg/kernel"
)

// Kill implements subcommands.Command for the "kill" command.
type Kill struct {
	sync bool
}

// Name implements subcommands.Command.Name.
func (*Kill) Name() string { return "kill" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Kill) Synopsis() string { return "kill the demo worker process" }

// Usage implements subcommands.Command.Usage.
func (*Kill) Usage() string { return `kill [-sync] - kill the demo worker and report its pid` }

// SetFlags implements subcommands.Command.SetFlags.
func (k *Kill) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&k.sync, "sync", false, "block until the kill completes")
}

// Execute implements subcommands.Command.Execute.
func (k *Kill) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	kern := args[1].(*kernel.Kernel)

	_, worker, err := spawnDemoWorkload(ctx, kern)
	if err != nil {
		fmt.Printf("kill: spawning demo workload: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := kern.KillProcess(ctx, worker, false); err != nil {
		fmt.Printf("kill: %v\n", err)
		return subcommands.ExitFailure
	}

	// Nothing drives a real run loop in this driver binary: simulate the
	// victim noticing its own pending kill signal and tearing itself
	// down, the only way a thread ever actually exits.
	kern.Exit(ctx, worker.MainThread, -1, kern.CPU(0))

	if k.sync {
		if _, err := kern.WaitProcess(ctx, worker); err != nil {
			fmt.Printf("kill: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	fmt.Printf("killed worker pid=%d (sync=%t)\n", worker.ID, k.sync)
	return subcommands.ExitSuccess
}
