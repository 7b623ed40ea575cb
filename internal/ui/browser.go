package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"testmgr/internal/domain"
	"testmgr/internal/foldout"
	"testmgr/internal/manager"
)

const welcomeText = `Welcome to the test manager.
Select tests with [yellow]space[white], lock them with [yellow]l[white], run the selection with [yellow]r[white].
Press [yellow]w[white] to hide this message and [yellow]?[white] for every key.`

const helpText = `[yellow]space[white] select  [yellow]a[white] toggle all  [yellow]l[white] lock  [yellow]enter[white] fold  [yellow]r[white] run/stop  [yellow]p[white] pause
[yellow]c[white] reset selected  [yellow]C[white] reset all  [yellow]z[white] reset test  [yellow]x[white] cancel queued  [yellow]e[white] empty scene
[yellow]w[white] welcome  [yellow]d[white] debug  [yellow]F5[white] refresh  [yellow]ctrl+r[white] reset everything  [yellow]q[white] quit`

// nodeRef identifies what a tree row shows: a group path, or a test identity.
type nodeRef struct {
	path string
	test string
}

// Browser is the interactive test tree. Key presses and ticks both run on the tview event
// goroutine, so the manager is never used concurrently.
type Browser struct {
	mgr      *manager.Context
	interval time.Duration
	ctx      context.Context

	app     *tview.Application
	pages   *tview.Pages
	tree    *tview.TreeView
	welcome *tview.TextView
	details *tview.TextView
	status  *tview.TextView
	help    bool
	message string

	afterUpdate func()
}

// NewBrowser creates a new Browser ticking the manager every interval
func NewBrowser(mgr *manager.Context, interval time.Duration) *Browser {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	b := &Browser{mgr: mgr, interval: interval, ctx: context.Background()}
	b.build()
	return b
}

func (b *Browser) build() {
	b.app = tview.NewApplication()
	b.tree = tview.NewTreeView().SetGraphics(true)
	b.tree.SetBorder(true).SetTitle(" Tests ")
	b.tree.SetChangedFunc(func(*tview.TreeNode) { b.showDetails() })

	b.welcome = tview.NewTextView().SetDynamicColors(true).SetText(welcomeText)
	b.details = tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetWordWrap(true)
	b.details.SetBorder(true).SetTitle(" Details ")
	b.status = tview.NewTextView().SetDynamicColors(true)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(b.details, 0, 1, false)
	body := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(b.tree, 0, 2, true).
		AddItem(right, 0, 1, false)
	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(b.welcome, 3, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(b.status, 3, 0, false)

	b.pages = tview.NewPages().AddPage("main", main, true, true)
	b.app.SetRoot(b.pages, true).SetFocus(b.tree)
	b.tree.SetInputCapture(b.HandleKey)
}

// SetAfterUpdate sets a function called on the event goroutine after every tick and key press.
func (b *Browser) SetAfterUpdate(fn func()) {
	b.afterUpdate = fn
}

// Run shows the browser until the user quits or ctx is done.
func (b *Browser) Run(ctx context.Context) error {
	b.ctx = ctx
	b.refresh()

	done := make(chan struct{})
	defer close(done)
	go b.tick(ctx, done)

	if err := b.app.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func (b *Browser) tick(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.app.Stop()
			return
		case <-done:
			return
		case <-ticker.C:
			b.app.QueueUpdateDraw(func() {
				b.mgr.Update()
				b.refresh()
			})
		}
	}
}

// HandleKey maps key presses to manager operations.
func (b *Browser) HandleKey(event *tcell.EventKey) *tcell.EventKey {
	ref := b.currentRef()
	switch event.Key() {
	case tcell.KeyEnter:
		b.mgr.ToggleExpanded(ref.target())
	case tcell.KeyF5:
		b.report(b.mgr.Refresh(b.ctx))
	case tcell.KeyCtrlR:
		b.confirmReset()
	case tcell.KeyCtrlC:
		b.app.Stop()
		return nil
	case tcell.KeyRune:
		if !b.handleRune(event.Rune(), ref) {
			return event
		}
	default:
		return event
	}
	b.refresh()
	return nil
}

func (b *Browser) handleRune(r rune, ref nodeRef) bool {
	switch r {
	case ' ':
		if ref.test != "" {
			b.mgr.ToggleTest(ref.test)
		} else {
			b.mgr.Toggle(ref.path)
		}
	case 'a':
		b.mgr.ToggleAll()
	case 'l':
		b.mgr.ToggleLock(ref.target())
	case 'r':
		if b.mgr.Scheduler().Running() {
			b.mgr.Stop()
		} else if !b.mgr.RunSelected() {
			b.message = "nothing to run"
		}
	case 'p':
		b.mgr.TogglePause()
	case 'c':
		b.mgr.ResetSelected()
	case 'C':
		b.mgr.ResetAll()
	case 'z':
		if ref.test != "" {
			b.mgr.ResetTest(ref.test)
		}
	case 'x':
		if ref.test != "" && !b.mgr.CancelQueued(ref.test) {
			b.message = ref.test + " is not queued"
		}
	case 'e':
		b.report(b.mgr.GoToEmptyScene())
	case 'w':
		b.mgr.ToggleWelcome()
	case 'd':
		b.mgr.ToggleDebug()
	case '?':
		b.help = !b.help
	case 'q':
		b.app.Stop()
	default:
		return false
	}
	return true
}

func (b *Browser) report(err error) {
	if err != nil {
		b.message = err.Error()
	}
}

// confirmReset asks before forgetting every persisted setting.
func (b *Browser) confirmReset() {
	modal := tview.NewModal().
		SetText("Reset the test manager? Selection, locks, results and settings are lost.").
		AddButtons([]string{"Reset", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			b.pages.RemovePage("confirm")
			b.app.SetFocus(b.tree)
			b.resetConfirmed(label == "Reset")
		})
	b.pages.AddPage("confirm", modal, false, true)
	b.app.SetFocus(modal)
}

func (b *Browser) resetConfirmed(ok bool) {
	if ok {
		b.report(b.mgr.DoReset(b.ctx))
	}
	b.refresh()
}

func (r nodeRef) target() string {
	if r.test != "" {
		return r.test
	}
	return r.path
}

func (b *Browser) currentRef() nodeRef {
	if n := b.tree.GetCurrentNode(); n != nil {
		if ref, ok := n.GetReference().(nodeRef); ok {
			return ref
		}
	}
	return nodeRef{}
}

// refresh rebuilds the rows from the manager and keeps the cursor on the same row.
func (b *Browser) refresh() {
	current := b.currentRef()
	tree := b.mgr.Tree()

	nodes := make(map[string]*tview.TreeNode)
	var selected *tview.TreeNode
	tree.Walk(tree.Root(), func(n *foldout.Node, _ int) bool {
		ref := nodeRef{path: n.Path}
		tn := tview.NewTreeNode(b.groupLabel(tree, n)).SetReference(ref).SetSelectable(true)
		tn.SetExpanded(n.IsRoot() || n.Expanded)
		nodes[n.Path] = tn
		if !n.IsRoot() {
			nodes[tree.Parent(n).Path].AddChild(tn)
		}
		if ref == current {
			selected = tn
		}
		for _, test := range n.Tests() {
			tref := nodeRef{path: n.Path, test: test.ID.String()}
			child := tview.NewTreeNode(b.testLabel(test)).SetReference(tref)
			tn.AddChild(child)
			if tref == current {
				selected = child
			}
		}
		return true
	})

	root := nodes[""]
	b.tree.SetRoot(root)
	if selected == nil {
		selected = root
	}
	b.tree.SetCurrentNode(selected)

	b.welcome.SetText(welcomeText)
	if !b.mgr.ShowWelcome() {
		b.welcome.SetText("")
	}
	b.status.SetText(b.statusText())
	b.showDetails()

	if b.afterUpdate != nil {
		b.afterUpdate()
	}
}

func (b *Browser) groupLabel(tree *foldout.Tree, n *foldout.Node) string {
	name := n.Name()
	if n.IsRoot() {
		name = "All tests"
	}
	stats := tree.Stats(n.Path)
	check := "[ ]"
	switch {
	case tree.AllSelected(n.Path):
		check = "[x]"
	case tree.AnySelected(n.Path):
		check = "[-]"
	}
	return fmt.Sprintf("%s %s %s [gray](%d/%d)[white]", tview.Escape(check), resultTag(tree.Result(n.Path)), tview.Escape(name), stats.Passed, stats.Total)
}

func (b *Browser) testLabel(test *domain.Test) string {
	check := "[ ]"
	if test.Selected {
		check = "[x]"
	}
	label := fmt.Sprintf("%s %s %s", tview.Escape(check), resultTag(test.Result), tview.Escape(test.DisplayName()))
	if test.Locked {
		label += " [gray](locked)[white]"
	}
	if cur, ok := b.mgr.Scheduler().Current(); ok && cur == test {
		label += " [yellow]running[white]"
	} else if b.mgr.Queue().Contains(test.ID) {
		label += " [gray]queued[white]"
	}
	return label
}

func resultTag(r domain.Result) string {
	switch r {
	case domain.Pass:
		return "[green]✓[white]"
	case domain.Fail:
		return "[red]✗[white]"
	default:
		return "[gray]·[white]"
	}
}

func (b *Browser) statusText() string {
	st := b.mgr.State()
	var sb strings.Builder
	switch {
	case st.Running && st.Paused:
		fmt.Fprintf(&sb, "[yellow]paused[white] frame %d, %s, %d queued", st.Frame, st.Elapsed, st.Queued)
	case st.Running:
		fmt.Fprintf(&sb, "[green]running[white] %s, frame %d, %s, %d queued", st.Current, st.Frame, st.Elapsed, st.Queued)
	default:
		fmt.Fprintf(&sb, "%d tests, [green]%d passed[white], [red]%d failed[white]", st.Total, st.Passed, st.Failed)
	}
	if st.Debug {
		sb.WriteString(" [gray](debug)[white]")
	}
	if b.message != "" {
		fmt.Fprintf(&sb, "  [red]%s[white]", tview.Escape(b.message))
	}
	sb.WriteString("\n")
	if b.help {
		sb.WriteString(helpText)
	} else {
		sb.WriteString("[gray]press ? for help[white]")
	}
	return sb.String()
}

func (b *Browser) showDetails() {
	ref := b.currentRef()
	if ref.test == "" {
		stats := b.mgr.Tree().Stats(ref.path)
		b.details.SetText(fmt.Sprintf("[cyan]%s[white]\n\n%d tests\n[green]%d passed[white]\n[red]%d failed[white]\n%d not run",
			tview.Escape(displayPath(ref.path)), stats.Total, stats.Passed, stats.Failed, stats.None))
		return
	}
	v, ok := b.mgr.View(ref.test)
	if !ok {
		b.details.SetText("")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[cyan]%s[white]\n%s\n\n", tview.Escape(v.Name), tview.Escape(v.ID))
	if v.Source != "" {
		fmt.Fprintf(&sb, "[yellow]Location:[white] %s\n", tview.Escape(v.Source))
	}
	if v.Resource != "" {
		fmt.Fprintf(&sb, "[yellow]Resource:[white] %s\n", tview.Escape(v.Resource))
	}
	fmt.Fprintf(&sb, "[yellow]Result:[white] %s\n", v.Result)
	if v.Failure != "" {
		fmt.Fprintf(&sb, "\n[red]%s[white]\n", tview.Escape(v.Failure))
	}
	b.details.SetText(sb.String())
}

// Message returns the last error or notice shown in the status line.
func (b *Browser) Message() string {
	return b.message
}
