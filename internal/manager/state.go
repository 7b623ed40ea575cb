package manager

import (
	"time"

	"testmgr/internal/domain"
)

// State is what the toolbar needs to decide which actions are enabled.
type State struct {
	AnySelected         bool   `json:"any_selected"`
	AllSelected         bool   `json:"all_selected"`
	AnyResults          bool   `json:"any_results"`
	SelectedHaveResults bool   `json:"selected_have_results"`
	Running             bool   `json:"running"`
	Paused              bool   `json:"paused"`
	SceneEmpty          bool   `json:"scene_empty"`
	SimActive           bool   `json:"sim_active"`
	ShowWelcome         bool   `json:"show_welcome"`
	Debug               bool   `json:"debug"`
	Current             string `json:"current,omitempty"`
	Queued              int    `json:"queued"`
	Frame               uint64 `json:"frame"`
	Elapsed             string `json:"elapsed,omitempty"`
	Total               int    `json:"total"`
	Passed              int    `json:"passed"`
	Failed              int    `json:"failed"`
}

// State returns a snapshot of the manager.
func (c *Context) State() State {
	stats := c.tree.Stats("")
	s := State{
		AnySelected:         c.tree.AnySelected(""),
		AllSelected:         c.tree.AllSelected(""),
		AnyResults:          c.tree.AnyResults(""),
		SelectedHaveResults: c.tree.SelectedHaveResults(""),
		Running:             c.scheduler.Running(),
		Paused:              c.scheduler.Paused(),
		SceneEmpty:          c.opts.Sim.IsEmpty(),
		SimActive:           c.opts.Sim.IsActive(),
		ShowWelcome:         c.showWelcome,
		Debug:               c.debug,
		Queued:              c.queue.Len(),
		Total:               stats.Total,
		Passed:              stats.Passed,
		Failed:              stats.Failed,
	}
	if cur, ok := c.scheduler.Current(); ok {
		s.Current = cur.ID.String()
	}
	if s.Running {
		s.Frame = c.scheduler.Frame()
		s.Elapsed = c.scheduler.Elapsed().Round(time.Millisecond).String()
	}
	return s
}

// TestView is the read-only view of one test.
type TestView struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	Source   string `json:"source,omitempty"`
	Selected bool   `json:"selected"`
	Locked   bool   `json:"locked"`
	Result   string `json:"result"`
	Failure  string `json:"failure,omitempty"`
	Resource string `json:"resource,omitempty"`
}

// View returns the read-only view of the test with identity id.
func (c *Context) View(id string) (TestView, bool) {
	test, ok := c.Test(id)
	if !ok {
		return TestView{}, false
	}
	return viewOf(test), true
}

func viewOf(test *domain.Test) TestView {
	return TestView{
		ID:       test.ID.String(),
		Path:     test.Path,
		Name:     test.DisplayName(),
		Source:   test.Source,
		Selected: test.Selected,
		Locked:   test.Locked,
		Result:   test.Result.String(),
		Failure:  test.Failure,
		Resource: test.Resource.Ref,
	}
}
