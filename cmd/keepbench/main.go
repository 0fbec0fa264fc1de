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
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/zintix-labs/statekeep/bench"
	"github.com/zintix-labs/statekeep/perf"
	"github.com/zintix-labs/statekeep/store"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	dir       string
	n         int
	size      int
	codec     string
	keep      bool
	quiet     bool
	pprofmode string
	pprofdir  string
}

func bindVar() {
	flag.StringVar(&cfg.dir, "dir", os.TempDir(), "directory to write the bench state file into")
	flag.IntVar(&cfg.n, "n", 1000, "number of saves")
	flag.IntVar(&cfg.size, "size", 64, "items in the payload")
	flag.StringVar(&cfg.codec, "codec", "json", "json|yaml|zstd|gzip|framed")
	flag.BoolVar(&cfg.keep, "keep", false, "keep the state file after the run")
	flag.BoolVar(&cfg.quiet, "q", false, "hide the progress bar")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")
	flag.StringVar(&cfg.pprofdir, "pdir", perf.DefaultDir, "pprof output directory")

	flag.Parse()
}

func main() {
	bindVar()

	codec, ok := store.CodecByName(cfg.codec)
	if !ok {
		log.Fatalf("value err : unknown codec %q", cfg.codec)
	}

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	p.Printf("%s[CODEC:%s] [SAVES:%d] [ITEMS:%d] [DIR:%s]%s\n", green, codec.Name(), cfg.n, cfg.size, cfg.dir, reset)

	var res *bench.Result
	prof, err := perf.Run(cfg.pprofdir, cfg.pprofmode, func() error {
		var err error
		res, err = bench.Run(bench.Config{
			Dir:          cfg.dir,
			N:            cfg.n,
			Size:         cfg.size,
			Codec:        codec,
			ShowProgress: !cfg.quiet,
			Keep:         cfg.keep,
		})
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Print(res.Table())
	if cfg.keep {
		fmt.Println("state:", res.Path)
	}
	if prof != "" {
		fmt.Println("profile:", prof)
	}
}
