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

// Wait implements subcommands.Command for the "wait" command.
type Wait struct{}

// Name implements subcommands.Command.Name.
func (*Wait) Name() string { return "wait" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Wait) Synopsis() string { return "kill the demo worker then wait for its exit code" }

// Usage implements subcommands.Command.Usage.
func (*Wait) Usage() string { return `wait - kill the demo worker and report the exit code Wait observes` }

// SetFlags implements subcommands.Command.SetFlags.
func (*Wait) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Wait) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	k := args[1].(*kernel.Kernel)

	_, worker, err := spawnDemoWorkload(ctx, k)
	if err != nil {
		fmt.Printf("wait: spawning demo workload: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := k.KillProcess(ctx, worker, false); err != nil {
		fmt.Printf("wait: %v\n", err)
		return subcommands.ExitFailure
	}
	// Nothing drives a real run loop in this driver binary: simulate
	// the victim noticing its own pending kill signal and tearing
	// itself down before WaitProcess observes the result.
	k.Exit(ctx, worker.MainThread, 7, k.CPU(0))

	code, err := k.WaitProcess(ctx, worker)
	if err != nil {
		fmt.Printf("wait: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("worker pid=%d exited with code %d\n", worker.ID, code)
	return subcommands.ExitSuccess
}
