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

// SetPGID implements subcommands.Command for the "setpgid" command.
type SetPGID struct{}

// Name implements subcommands.Command.Name.
func (*SetPGID) Name() string { return "setpgid" }

// Synopsis implements subcommands.Command.Synopsis.
func (*SetPGID) Synopsis() string { return "move the demo worker into its own process group" }

// Usage implements subcommands.Command.Usage.
func (*SetPGID) Usage() string {
	return `setpgid - move the demo worker into a new group and print before/after pgids`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*SetPGID) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*SetPGID) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	k := args[1].(*kernel.Kernel)

	_, worker, err := spawnDemoWorkload(ctx, k)
	if err != nil {
		fmt.Printf("setpgid: spawning demo workload: %v\n", err)
		return subcommands.ExitFailure
	}

	before, err := k.GetPGID(worker.ID)
	if err != nil {
		fmt.Printf("setpgid: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := k.SetPGID(worker, worker.ID, kernel.PGID(worker.ID)); err != nil {
		fmt.Printf("setpgid: %v\n", err)
		return subcommands.ExitFailure
	}

	after, err := k.GetPGID(worker.ID)
	if err != nil {
		fmt.Printf("setpgid: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("worker pid=%d pgid %d -> %d\n", worker.ID, before, after)
	return subcommands.ExitSuccess
}
