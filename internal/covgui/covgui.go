// Package covgui implements a fyne graphical coverage summary window: a
// coverage ratio bar per target plus a scrollable list of gap segments.
// Adapted from the teacher project's debugger.GUI widget composition.
package covgui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/standardbeagle/armcorrelate/internal/correlate"
	"github.com/standardbeagle/armcorrelate/internal/segment"
)

// GUI is the coverage summary window.
type GUI struct {
	App    fyne.App
	Window fyne.Window

	RatioBars *fyne.Container
	GapList   *widget.List

	Selected    correlate.TaggedCorrelation
	TargetNames []string
	gaps        []segment.Segment
}

// New builds a GUI summarizing selected over the given target names
// (indexed by tag).
func New(selected correlate.TaggedCorrelation, targetNames []string) *GUI {
	myApp := app.New()
	myWindow := myApp.NewWindow("Coverage Summary")

	g := &GUI{
		App:         myApp,
		Window:      myWindow,
		Selected:    selected,
		TargetNames: targetNames,
	}
	g.computeGaps()
	g.initializeViews()
	g.buildLayout()
	myWindow.Resize(fyne.NewSize(900, 600))
	return g
}

func (g *GUI) computeGaps() {
	for _, entry := range g.Selected {
		if len(entry.Tags) == 0 {
			g.gaps = append(g.gaps, entry.Src)
		}
	}
}

func (g *GUI) initializeViews() {
	coverage := g.coverageByTag()
	bars := make([]fyne.CanvasObject, 0, len(coverage))
	for tag, ratio := range coverage {
		name := fmt.Sprintf("target %d", tag)
		if tag >= 0 && tag < len(g.TargetNames) {
			name = g.TargetNames[tag]
		}
		label := widget.NewLabel(fmt.Sprintf("%s: %.1f%%", name, ratio*100))
		bar := widget.NewProgressBar()
		bar.SetValue(ratio)
		bars = append(bars, container.NewVBox(label, bar))
	}
	g.RatioBars = container.NewVBox(bars...)

	g.GapList = widget.NewList(
		func() int { return len(g.gaps) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			gap := g.gaps[i]
			o.(*widget.Label).SetText(fmt.Sprintf("[0x%x, 0x%x) len=%d", gap.Offset, gap.End(), gap.Length))
		},
	)
}

func (g *GUI) buildLayout() {
	split := container.NewHSplit(
		container.NewVScroll(g.RatioBars),
		container.NewBorder(widget.NewLabel("Gaps"), nil, nil, nil, g.GapList),
	)
	g.Window.SetContent(split)
}

// coverageByTag returns, for each target tag seen in the selection, the
// fraction of total selected source bytes that tag covers.
func (g *GUI) coverageByTag() map[int]float64 {
	var total int
	covered := make(map[int]int)
	for _, entry := range g.Selected {
		total += entry.Src.Length
		for _, tag := range entry.Tags {
			covered[tag.Tag] += entry.Src.Length
		}
	}
	ratios := make(map[int]float64, len(covered))
	if total == 0 {
		return ratios
	}
	for tag, n := range covered {
		ratios[tag] = float64(n) / float64(total)
	}
	return ratios
}

// Run shows the window and blocks until it is closed.
func (g *GUI) Run() {
	g.Window.ShowAndRun()
}
