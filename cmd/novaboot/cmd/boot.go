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

// Boot implements subcommands.Command for the "boot" command.
type Boot struct{}

// Name implements subcommands.Command.Name.
func (*Boot) Name() string { return "boot" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Boot) Synopsis() string { return "boot the kernel and spawn the demo process tree" }

// Usage implements subcommands.Command.Usage.
func (*Boot) Usage() string {
	return `boot - boot the kernel, spawn init and one worker child, report their ids`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Boot) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Boot) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	k := args[1].(*kernel.Kernel)

	initProc, worker, err := spawnDemoWorkload(ctx, k)
	if err != nil {
		fmt.Printf("boot: spawning demo workload: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("booted: init pid=%d pgid=%d sid=%d\n", initProc.ID, initProc.PGID, initProc.SID)
	fmt.Printf("booted: worker pid=%d pgid=%d sid=%d parent=%d\n", worker.ID, worker.PGID, worker.SID, worker.Parent.ID)
	return subcommands.ExitSuccess
}
