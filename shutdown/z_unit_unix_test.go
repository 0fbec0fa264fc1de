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

//go:build unix

package shutdown

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/zintix-labs/statekeep/errs"
)

func TestOSSourceDeliversRealSignal(t *testing.T) {
	s, err := Register(WithSignals(syscall.SIGUSR1), WithLogger(quietLog()))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer s.Stop()

	// 同一行程內第二組 OS 處理器應被拒絕
	if _, err := Register(WithSignals(syscall.SIGUSR2)); !errors.Is(err, errs.ErrSignalRegistration) {
		t.Fatalf("expected duplicate registration failure, got %v", err)
	}

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if tr := waitTimeout(t, s); tr.Signal != syscall.SIGUSR1 {
		t.Fatalf("unexpected trigger %v", tr)
	}

	s.Stop()
	again, err := Register(WithSignals(syscall.SIGUSR2), WithLogger(quietLog()))
	if err != nil {
		t.Fatalf("register after stop: %v", err)
	}
	again.Stop()
}
