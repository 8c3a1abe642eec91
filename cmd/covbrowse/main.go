// Command covbrowse runs the interactive coverage browser over a
// previously computed coverage map JSON file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/standardbeagle/armcorrelate/internal/browser"
	"github.com/standardbeagle/armcorrelate/internal/correlate"
)

// covmapFile is the on-disk JSON shape this command reads: the selected
// tagged correlation plus target names indexed by tag.
type covmapFile struct {
	Targets  []string                    `json:"targets"`
	Selected correlate.TaggedCorrelation `json:"selected"`
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: covbrowse <coverage-map.json>")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "covbrowse:", err)
		os.Exit(1)
	}
	defer f.Close()

	var cm covmapFile
	if err := json.NewDecoder(f).Decode(&cm); err != nil {
		fmt.Fprintln(os.Stderr, "covbrowse:", err)
		os.Exit(1)
	}

	b := browser.New(cm.Selected, make(correlate.InterpolationSet), cm.Targets)
	if err := b.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "covbrowse:", err)
		os.Exit(1)
	}
}
