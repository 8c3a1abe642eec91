// Package browser implements an interactive tview/tcell coverage browser:
// a segment list pane plus a detail pane showing the per-tag target
// segments for the selected entry. Adapted from the teacher project's
// debugger.TUI page/pane layout.
package browser

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/standardbeagle/armcorrelate/internal/correlate"
)

// Browser is the coverage browser's TUI: a list of selected source
// segments on the left, and the tagged target detail for the highlighted
// segment on the right.
type Browser struct {
	App  *tview.Application
	Root *tview.Flex

	List   *tview.List
	Detail *tview.TextView

	Selected     correlate.TaggedCorrelation
	Interpolated correlate.InterpolationSet
	TargetNames  []string
}

// New builds a Browser over a previously computed tagged correlation.
func New(selected correlate.TaggedCorrelation, interpolated correlate.InterpolationSet, targetNames []string) *Browser {
	b := &Browser{
		App:          tview.NewApplication(),
		Selected:     selected,
		Interpolated: interpolated,
		TargetNames:  targetNames,
	}
	b.initializeViews()
	b.buildLayout()
	b.setupKeyBindings()
	b.populateList()
	return b
}

func (b *Browser) initializeViews() {
	b.List = tview.NewList().ShowSecondaryText(false)
	b.List.SetBorder(true).SetTitle(" Coverage ")

	b.Detail = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	b.Detail.SetBorder(true).SetTitle(" Targets ")
}

func (b *Browser) buildLayout() {
	b.Root = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(b.List, 0, 1, true).
		AddItem(b.Detail, 0, 2, false)
}

func (b *Browser) setupKeyBindings() {
	b.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			b.App.Stop()
			return nil
		}
		return event
	})
	b.List.SetChangedFunc(func(index int, _, _ string, _ rune) {
		b.showDetail(index)
	})
}

func (b *Browser) populateList() {
	for _, entry := range b.Selected {
		tagCount := len(entry.Tags)
		marker := ""
		if hasInterpolated(entry, b.Interpolated) {
			marker = " *"
		}
		label := fmt.Sprintf("0x%-8x %-6d %s  tags=%d%s", entry.Src.Offset, entry.Src.Length, entry.Src.Kind, tagCount, marker)
		b.List.AddItem(label, "", 0, nil)
	}
	if len(b.Selected) > 0 {
		b.showDetail(0)
	}
}

func (b *Browser) showDetail(index int) {
	if index < 0 || index >= len(b.Selected) {
		b.Detail.SetText("")
		return
	}
	entry := b.Selected[index]
	var sb strings.Builder
	fmt.Fprintf(&sb, "source [0x%x, 0x%x) %s\n\n", entry.Src.Offset, entry.Src.End(), entry.Src.Kind)
	for _, tag := range entry.Tags {
		name := fmt.Sprintf("target %d", tag.Tag)
		if tag.Tag >= 0 && tag.Tag < len(b.TargetNames) {
			name = b.TargetNames[tag.Tag]
		}
		fmt.Fprintf(&sb, "%s:\n", name)
		for _, t := range tag.Targets {
			marker := ""
			if _, ok := b.Interpolated[correlate.InterpolationKey{Src: entry.Src, Tag: tag.Tag, Target: t}]; ok {
				marker = " (interpolated)"
			}
			fmt.Fprintf(&sb, "  [0x%x, 0x%x)%s\n", t.Offset, t.End(), marker)
		}
	}
	b.Detail.SetText(sb.String())
}

func hasInterpolated(e correlate.TaggedEntry, interpolated correlate.InterpolationSet) bool {
	for _, tag := range e.Tags {
		for _, t := range tag.Targets {
			if _, ok := interpolated[correlate.InterpolationKey{Src: e.Src, Tag: tag.Tag, Target: t}]; ok {
				return true
			}
		}
	}
	return false
}

// Run starts the browser's event loop until the user quits.
func (b *Browser) Run() error {
	return b.App.SetRoot(b.Root, true).SetFocus(b.List).Run()
}
