// Copyright 2020 The gVisor Authors.
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

package nkconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
}

func TestLoadMissingPathIsDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if *c != *Default() {
		t.Fatalf("Load(\"\") = %+v, want Default()", c)
	}
}

func TestLoadOverridesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nk.toml")
	body := "num_cpus = 4\nquantum_millis = 20\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.NumCPUs != 4 || c.QuantumMillis != 20 {
		t.Fatalf("Load() = %+v, want NumCPUs=4 QuantumMillis=20", c)
	}
}

func TestValidateRejectsBadPriorities(t *testing.T) {
	c := Default()
	c.MaxUserPriority = c.MaxRTPriority
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() should reject MaxUserPriority == MaxRTPriority")
	}
}

func TestValidateRejectsZeroCPUs(t *testing.T) {
	c := Default()
	c.NumCPUs = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("Validate() should reject zero CPUs")
	}
}
