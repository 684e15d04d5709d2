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

// Package cmd implements novaboot's subcommands, one file per command,
// mirroring the one-struct-per-file layout of gVisor's own
// runsc/cmd package.
package cmd

import (
	"context"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/coreruntime/novakernel/pkg/kernel"
)

// spawnDemoWorkload boots a small, deterministic process tree on k: an
// init process (its own session and process group founder) and one
// worker child in init's group. Every subcommand that needs something
// to inspect builds the same tree rather than requiring a separate
// persisted-state mechanism novaboot has no use for as a single-shot
// driver binary.
func spawnDemoWorkload(ctx context.Context, k *kernel.Kernel) (initProc, worker *kernel.Process, err error) {
	initProc, err = k.CreateProcess(ctx, kernel.ProcessCreateArgs{
		Path:   "/init",
		Name:   "init",
		Parent: k.KernelProcess(),
		Flags:  kernel.FlagNewSession,
		Proc: &specs.Process{
			Args: []string{"/init"},
			Env:  []string{"PATH=/bin"},
			Cwd:  "/",
		},
	})
	if err != nil {
		return nil, nil, err
	}

	worker, err = k.CreateProcess(ctx, kernel.ProcessCreateArgs{
		Path:   "/worker",
		Name:   "worker",
		Parent: initProc,
		Proc: &specs.Process{
			Args: []string{"/worker", "--tail"},
			Env:  []string{"PATH=/bin"},
			Cwd:  "/",
		},
	})
	if err != nil {
		return nil, nil, err
	}

	return initProc, worker, nil
}
