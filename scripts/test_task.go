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
	"bufio"
	"os"
	"os/exec"
	"strings"
)

// runTest 執行 go test ./...，只印出每個套件的 ok / FAIL 與編譯錯誤。
func runTest(args ...string) bool {
	PrintGreen("running tests " + strings.Join(args, " "))
	cleanCache()

	cmd := exec.Command("go", append([]string{"test", "./..."}, args...)...)
	return stream(cmd, func(line string) {
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"), strings.HasPrefix(line, "---"),
			strings.Contains(line, "build failed"), strings.Contains(line, "setup failed"):
			PrintRed(line)
		}
	})
}

// runTestDetail 輸出完整 -v 結果。
func runTestDetail() bool {
	cleanCache()
	cmd := exec.Command("go", "test", "./...", "-v", "-count=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run() == nil
}

// runBench 對每種 codec 跑一次 keepbench。
func runBench() bool {
	ok := true
	for _, codec := range []string{"json", "yaml", "gzip", "zstd", "framed"} {
		cmd := exec.Command("go", "run", "./cmd/keepbench", "-q", "-n", "500", "-codec", codec)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			PrintRed(codec + ": " + err.Error())
			ok = false
		}
	}
	return ok
}

func cleanCache() {
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		PrintRed(err.Error())
	}
}

// stream 合併 stdout / stderr，逐行交給 fn；回傳指令是否成功。
func stream(cmd *exec.Cmd, fn func(line string)) bool {
	out, err := cmd.StdoutPipe()
	if err != nil {
		PrintRed(err.Error())
		return false
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		PrintRed("Error starting command: " + err.Error())
		return false
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		fn(sc.Text())
	}
	return cmd.Wait() == nil
}
