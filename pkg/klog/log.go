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

// Package klog is the kernel's logging façade. It is shaped like the
// teacher's own pkg/log (SetLevel/SetTarget/Infof/Debugf/Warningf, as
// used from runsc/cli.Main), but backed by logrus rather than a
// hand-rolled Emitter, since logrus is already part of gVisor's
// dependency graph.
package klog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

func init() {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(logrus.InfoLevel)
}

// SetLevel sets the minimum level of message that will be emitted.
// debug enables Debugf output, mirroring gVisor's
// log.SetLevel(log.Debug) called when conf.Debug is set.
func SetLevel(debug bool) {
	if debug {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
}

// SetTarget redirects log output, mirroring gVisor's
// log.SetTarget(e) call in runsc/cli.Main.
func SetTarget(w io.Writer) {
	base.SetOutput(w)
}

// ForThread returns a logger pre-tagged with a thread id, for call
// sites inside pkg/kernel that want every line attributable to a
// specific thread without repeating the field at each call.
func ForThread(id int64) *logrus.Entry {
	return base.WithField("thread", id)
}

// ForProcess returns a logger pre-tagged with a process id.
func ForProcess(id int64) *logrus.Entry {
	return base.WithField("process", id)
}

// Infof logs at info level.
func Infof(format string, args ...any) { base.Infof(format, args...) }

// Debugf logs at debug level.
func Debugf(format string, args ...any) { base.Debugf(format, args...) }

// Warningf logs at warning level.
func Warningf(format string, args ...any) { base.Warnf(format, args...) }
