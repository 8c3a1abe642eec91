// Command covgui runs the fyne coverage summary window over a previously
// computed coverage map JSON file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/standardbeagle/armcorrelate/internal/correlate"
	"github.com/standardbeagle/armcorrelate/internal/covgui"
)

type covmapFile struct {
	Targets  []string                    `json:"targets"`
	Selected correlate.TaggedCorrelation `json:"selected"`
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: covgui <coverage-map.json>")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "covgui:", err)
		os.Exit(1)
	}
	defer f.Close()

	var cm covmapFile
	if err := json.NewDecoder(f).Decode(&cm); err != nil {
		fmt.Fprintln(os.Stderr, "covgui:", err)
		os.Exit(1)
	}

	g := covgui.New(cm.Selected, cm.Targets)
	g.Run()
}
