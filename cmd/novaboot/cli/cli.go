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

// Package cli is the main entrypoint for novaboot, mirroring the
// teacher's runsc/cli package: register every subcommand, parse flags
// into a shared config, boot the kernel core once, and hand both to
// whichever subcommand was invoked.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/gofrs/flock"

	"github.com/coreruntime/novakernel/cmd/novaboot/cmd"
	"github.com/coreruntime/novakernel/cmd/novaboot/sim"
	"github.com/coreruntime/novakernel/pkg/kernel"
	"github.com/coreruntime/novakernel/pkg/klog"
	"github.com/coreruntime/novakernel/pkg/nkconfig"
	"github.com/coreruntime/novakernel/pkg/nkversion"
)

var (
	configPath  = flag.String("config", "", "path to a TOML boot configuration; defaults are used if empty")
	bootDir     = flag.String("boot-dir", os.TempDir(), "directory novaboot locks for the duration of one run")
	seed        = flag.Int64("seed", 1, "dispatcher RNG seed")
	showVersion = flag.Bool("version", false, "print the version and exit")
)

// Main is the entrypoint invoked from cmd/novaboot's main package.
func Main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(cmd.Boot), "")
	subcommands.Register(new(cmd.PS), "")
	subcommands.Register(new(cmd.Kill), "")
	subcommands.Register(new(cmd.Wait), "")
	subcommands.Register(new(cmd.SetPGID), "")

	flag.Parse()

	if *showVersion {
		fmt.Fprintf(os.Stdout, "novaboot version %s\n", nkversion.Version())
		os.Exit(0)
	}

	conf, err := nkconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "novaboot: %v\n", err)
		os.Exit(128)
	}
	klog.SetLevel(conf.Debug)

	lockPath := *bootDir + "/novaboot.lock"
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "novaboot: locking %q: %v\n", lockPath, err)
		os.Exit(128)
	}
	if !locked {
		fmt.Fprintf(os.Stderr, "novaboot: %q is already locked by another novaboot run\n", lockPath)
		os.Exit(128)
	}
	defer fl.Unlock()

	k := kernel.New(conf, sim.Collaborators(*seed))

	klog.Infof("novaboot %s booted, %d CPU(s), quantum %dms", nkversion.Version(), conf.NumCPUs, conf.QuantumMillis)

	code := subcommands.Execute(context.Background(), conf, k)
	os.Exit(int(code))
}
