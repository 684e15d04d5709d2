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
	"testing"

	"github.com/google/subcommands"

	"github.com/coreruntime/novakernel/cmd/novaboot/sim"
	"github.com/coreruntime/novakernel/pkg/kernel"
	"github.com/coreruntime/novakernel/pkg/nkconfig"
)

func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	return kernel.New(nkconfig.Default(), sim.Collaborators(1))
}

func TestSpawnDemoWorkload(t *testing.T) {
	k := newTestKernel(t)
	initProc, worker, err := spawnDemoWorkload(context.Background(), k)
	if err != nil {
		t.Fatalf("spawnDemoWorkload: %v", err)
	}
	if worker.Parent != initProc {
		t.Fatalf("worker's parent: got %v, want init", worker.Parent.Name)
	}
	if worker.SID != initProc.SID {
		t.Fatalf("worker sid %d != init sid %d", worker.SID, initProc.SID)
	}
}

func TestBootExecute(t *testing.T) {
	k := newTestKernel(t)
	conf := nkconfig.Default()
	fs := flag.NewFlagSet("boot", flag.ContinueOnError)
	status := (&Boot{}).Execute(context.Background(), fs, conf, k)
	if status != subcommands.ExitSuccess {
		t.Fatalf("Boot.Execute: status %v", status)
	}
}

func TestKillExecute(t *testing.T) {
	k := newTestKernel(t)
	conf := nkconfig.Default()
	fs := flag.NewFlagSet("kill", flag.ContinueOnError)
	status := (&Kill{}).Execute(context.Background(), fs, conf, k)
	if status != subcommands.ExitSuccess {
		t.Fatalf("Kill.Execute: status %v", status)
	}
}

func TestWaitExecute(t *testing.T) {
	k := newTestKernel(t)
	conf := nkconfig.Default()
	fs := flag.NewFlagSet("wait", flag.ContinueOnError)
	status := (&Wait{}).Execute(context.Background(), fs, conf, k)
	if status != subcommands.ExitSuccess {
		t.Fatalf("Wait.Execute: status %v", status)
	}
}

func TestPSExecute(t *testing.T) {
	k := newTestKernel(t)
	conf := nkconfig.Default()
	fs := flag.NewFlagSet("ps", flag.ContinueOnError)
	status := (&PS{}).Execute(context.Background(), fs, conf, k)
	if status != subcommands.ExitSuccess {
		t.Fatalf("PS.Execute: status %v", status)
	}
}

func TestSetPGIDExecute(t *testing.T) {
	k := newTestKernel(t)
	conf := nkconfig.Default()
	fs := flag.NewFlagSet("setpgid", flag.ContinueOnError)
	status := (&SetPGID{}).Execute(context.Background(), fs, conf, k)
	if status != subcommands.ExitSuccess {
		t.Fatalf("SetPGID.Execute: status %v", status)
	}
}
