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

package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestNewKindMatchesSentinel(t *testing.T) {
	err := NewKind(KindNotFound, "load state", "/tmp/state.json", fs.ErrNotExist)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrCorrupt) {
		t.Fatalf("unexpected ErrCorrupt match")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("cause should stay reachable")
	}
	if err.ErrLv != Warn {
		t.Fatalf("not found should be warn, got %s", ErrLv(err.ErrLv))
	}
}

func TestWrapKeepsKindAndLevel(t *testing.T) {
	inner := NewKind(KindWriteFailure, "rename", "a.json", nil)
	outer := Wrap(fmt.Errorf("flush: %w", inner), "shutdown flush")
	if outer.Kind != KindWriteFailure || outer.ErrLv != Fatal {
		t.Fatalf("unexpected wrap result: %+v", outer)
	}
	if !errors.Is(outer, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure through wrap")
	}
	if KindOf(fmt.Errorf("ctx: %w", outer)) != KindWriteFailure {
		t.Fatalf("KindOf should find write failure")
	}
}

func TestWrapForeignErrorIsFatal(t *testing.T) {
	e := Wrap(errors.New("boom"), "x")
	if e.ErrLv != Fatal || e.Kind != KindNone {
		t.Fatalf("unexpected: %+v", e)
	}
	if KindOf(e) != KindNone {
		t.Fatalf("expected no kind")
	}
}

func TestErrorString(t *testing.T) {
	e := NewKind(KindCorrupt, "decode", "state.json", errors.New("bad json"))
	s := e.Error()
	for _, want := range []string{"errlv=fatal", "kind=corrupt", "decode", "extra: state.json", "cause: bad json"} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %q in %q", want, s)
		}
	}
	if got := NewWarn("plain").Error(); got != "errlv=warn plain" {
		t.Fatalf("unexpected plain message: %q", got)
	}
}
