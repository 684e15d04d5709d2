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

	"github.com/containerd/console"
	"github.com/google/subcommands"

	"github.com/coreruntime/novakernel/pkg/kernel"
)

// PS implements subcommands.Command for the "ps" command.
type PS struct{}

// Name implements subcommands.Command.Name.
func (*PS) Name() string { return "ps" }

// Synopsis implements subcommands.Command.Synopsis.
func (*PS) Synopsis() string { return "list processes known to the kernel" }

// Usage implements subcommands.Command.Usage.
func (*PS) Usage() string { return `ps - print a process table` }

// SetFlags implements subcommands.Command.SetFlags.
func (*PS) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*PS) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	k := args[1].(*kernel.Kernel)

	if _, _, err := spawnDemoWorkload(ctx, k); err != nil {
		fmt.Printf("ps: spawning demo workload: %v\n", err)
		return subcommands.ExitFailure
	}

	// width decides whether to print the wide or narrow table
	// header, the way a real ps would wrap columns to the attached
	// terminal rather than a hardcoded 80.
	width := 80
	if c, err := console.ConsoleFromFile(stdoutFile()); err == nil {
		if sz, err := c.Size(); err == nil && sz.Width > 0 {
			width = int(sz.Width)
		}
	}

	if width >= 100 {
		fmt.Printf("%-6s %-6s %-6s %-6s %-10s %-8s %s\n", "PID", "PPID", "PGID", "SID", "STATE", "THREADS", "NAME")
	} else {
		fmt.Printf("%-6s %-6s %-10s %s\n", "PID", "PPID", "STATE", "NAME")
	}

	k.IterateProcesses(func(info kernel.ProcessInfo) bool {
		if width >= 100 {
			fmt.Printf("%-6d %-6d %-6d %-6d %-10s %-8d %s\n",
				info.ID, info.ParentID, info.PGID, info.SID, info.State, info.NumThreads, info.Name)
		} else {
			fmt.Printf("%-6d %-6d %-10s %s\n", info.ID, info.ParentID, info.State, info.Name)
		}
		return true
	})

	return subcommands.ExitSuccess
}
