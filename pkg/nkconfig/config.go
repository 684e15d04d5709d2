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

// Package nkconfig holds the boot-time configuration of the kernel,
// grounded on runsc/config (a flag-registered Config struct), but
// loadable from a TOML file via github.com/BurntSushi/toml rather than
// flags alone, since gVisor's go.mod requires BurntSushi/toml but
// none of the retrieved runsc/config files exercise it.
package nkconfig

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config controls the scheduler and death-stack tunables.
type Config struct {
	// NumCPUs is the number of CPU records the dispatcher schedules
	// across. Must be >= 1.
	NumCPUs int `toml:"num_cpus"`

	// QuantumMillis is the fixed scheduler quantum, default 10.
	QuantumMillis int `toml:"quantum_millis"`

	// NumDeathStacks sizes the death-stack pool (the self-teardown sequence:
	// "sized to the CPU count, capped at 32").
	NumDeathStacks int `toml:"num_death_stacks"`

	// MaxPriority is the scheduler priority ceiling: priorities clamp
	// to [0, MaxPriority] on entry.
	MaxPriority int `toml:"max_priority"`

	// MaxUserPriority is the separate, lower ceiling for user-settable
	// priorities.
	MaxUserPriority int `toml:"max_user_priority"`

	// MaxRTPriority is the lowest priority level considered
	// "real-time": the RT band sits above the regular band.
	MaxRTPriority int `toml:"max_rt_priority"`

	// Debug enables debug-level logging, mirroring runsc's --debug.
	Debug bool `toml:"debug"`
}

// Default returns the configuration this package's defaults and design
// notes imply: a 10ms quantum, priorities 0-127 with 120-127 reserved
// for RT, and one death stack per CPU capped at 32.
func Default() *Config {
	return &Config{
		NumCPUs:         1,
		QuantumMillis:   10,
		NumDeathStacks:  1,
		MaxPriority:     127,
		MaxUserPriority: 119,
		MaxRTPriority:   120,
	}
}

// RegisterFlags registers flags that override the loaded file,
// mirroring runsc/config.RegisterFlags binding Config fields to a
// flag.FlagSet.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.NumCPUs, "num-cpus", c.NumCPUs, "number of simulated CPUs")
	fs.IntVar(&c.QuantumMillis, "quantum-millis", c.QuantumMillis, "scheduler quantum in milliseconds")
	fs.IntVar(&c.NumDeathStacks, "num-death-stacks", c.NumDeathStacks, "size of the death-stack pool")
	fs.IntVar(&c.MaxPriority, "max-priority", c.MaxPriority, "highest schedulable priority")
	fs.IntVar(&c.MaxUserPriority, "max-user-priority", c.MaxUserPriority, "highest priority a user may request")
	fs.IntVar(&c.MaxRTPriority, "max-rt-priority", c.MaxRTPriority, "lowest priority considered real-time")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "enable debug logging")
}

// Load reads a TOML configuration file on top of Default(), mirroring
// the way runsc layers file/flag/OCI-annotation configuration.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("nkconfig: stat %q: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("nkconfig: decode %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects configurations that would violate scheduler
// invariants before the kernel ever boots.
func (c *Config) Validate() error {
	if c.NumCPUs < 1 {
		return fmt.Errorf("nkconfig: num_cpus must be >= 1, got %d", c.NumCPUs)
	}
	if c.NumDeathStacks < 1 || c.NumDeathStacks > 32 {
		return fmt.Errorf("nkconfig: num_death_stacks must be in [1, 32], got %d", c.NumDeathStacks)
	}
	if c.MaxRTPriority <= 0 || c.MaxRTPriority > c.MaxPriority {
		return fmt.Errorf("nkconfig: max_rt_priority %d must be in (0, max_priority=%d]", c.MaxRTPriority, c.MaxPriority)
	}
	if c.MaxUserPriority <= 0 || c.MaxUserPriority >= c.MaxRTPriority {
		return fmt.Errorf("nkconfig: max_user_priority %d must be in (0, max_rt_priority=%d)", c.MaxUserPriority, c.MaxRTPriority)
	}
	if c.QuantumMillis < 1 {
		return fmt.Errorf("nkconfig: quantum_millis must be >= 1, got %d", c.QuantumMillis)
	}
	return nil
}
