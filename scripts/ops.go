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

package main

import (
	"fmt"
	"os"
)

// Usage: go run ./scripts [task]
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test|test-race|test-detail|bench]")
		os.Exit(1)
	}
	selectTask(os.Args[1])
}

func selectTask(task string) {
	var ok bool
	switch task {
	case "test":
		ok = runTest("-cover", "-count=1")
	case "test-race":
		ok = runTest("-race", "-count=1")
	case "test-detail":
		ok = runTestDetail()
	case "bench":
		ok = runBench()
	default:
		PrintYellow("Unknown task: " + task)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}
