// Copyright 2025 Zintix Labs
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

package perf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunModes(t *testing.T) {
	dir := t.TempDir()
	for _, mode := range []string{"cpu", "heap", "allocs"} {
		called := false
		path, err := Run(dir, mode, func() error { called = true; return nil })
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if !called || path != filepath.Join(dir, mode+".pprof") {
			t.Fatalf("%s: called=%v path=%q", mode, called, path)
		}
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			t.Fatalf("%s: profile not written: %v", mode, err)
		}
	}
}

func TestRunWithoutProfiling(t *testing.T) {
	want := errors.New("bench failed")
	path, err := Run(t.TempDir(), "", func() error { return want })
	if path != "" || !errors.Is(err, want) {
		t.Fatalf("unexpected path=%q err=%v", path, err)
	}
}

func TestRunUnknownMode(t *testing.T) {
	called := false
	if _, err := Run(t.TempDir(), "trace", func() error { called = true; return nil }); err == nil || called {
		t.Fatalf("unknown mode must fail before running exe")
	}
}
