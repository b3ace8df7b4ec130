// Command rebuild re-demultiplexes a single <date>_raw_data.txt capture
// file into per-class files plus an orphans file, re-joining any
// TCP-split continuation lines along the way (§6.5).
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gustavoferreira/cedrofeed/internal/rebuild"
)

var rawNameRE = regexp.MustCompile(`^(\d{8})_raw_data\.txt$`)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	file := flag.String("file", "", "path to <date>_raw_data.txt")
	outDir := flag.String("out-dir", "", "output directory (default: same directory as --file)")
	date := flag.String("date", "", "output file date prefix (default: parsed from --file's name)")
	overwrite := flag.Bool("overwrite", false, "truncate existing per-class files instead of appending")
	flag.Parse()

	if *file == "" {
		log.Println("rebuild: --file is required")
		os.Exit(2)
	}

	dir := *outDir
	if dir == "" {
		dir = filepath.Dir(*file)
	}

	ymd := *date
	if ymd == "" {
		if m := rawNameRE.FindStringSubmatch(filepath.Base(*file)); m != nil {
			ymd = m[1]
		} else {
			log.Println("rebuild: --date is required when --file does not match <date>_raw_data.txt")
			os.Exit(2)
		}
	}
	ymd = strings.TrimSpace(ymd)

	f, err := os.Open(*file)
	if err != nil {
		log.Printf("rebuild: open %s: %v", *file, err)
		os.Exit(1)
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("rebuild: mkdir %s: %v", dir, err)
		os.Exit(1)
	}

	stats, err := rebuild.Run(f, dir, ymd, *overwrite)
	if err != nil {
		log.Printf("rebuild: %v", err)
		os.Exit(1)
	}

	log.Printf("rebuild: total=%d rejoined=%d orphaned=%d", stats.Total, stats.Rejoined, stats.Orphaned)
	for cls, n := range stats.PerClass {
		log.Printf("rebuild: class %c: %d records", cls, n)
	}
}
