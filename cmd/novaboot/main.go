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

// Command novaboot drives the kernel core from the command line: boot
// a kernel instance, create processes in it, and inspect its run
// queues and process tables, the way runsc's cli package drives a
// sandboxed container runtime.
package main

import (
	"github.com/coreruntime/novakernel/cmd/novaboot/cli"
	"github.com/coreruntime/novakernel/pkg/nkversion"
)

// nkversion's version string is set dynamically via -ldflags, but the
// package needs to be linked into the binary, so reference it here.
var _ = nkversion.Version()

func main() {
	cli.Main()
}
