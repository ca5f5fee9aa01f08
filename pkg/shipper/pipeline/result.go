package pipeline

// State is the lifecycle state of a job.
type State int

const (
	Pending State = iota
	DataReady
	Skipped
	Executed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case DataReady:
		return "data_ready"
	case Skipped:
		return "skipped"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the final state of one stage.
type Outcome struct {
	ID       string
	State    State
	Response string
	Err      error
}

// Result maps stage ids to their outcomes.
type Result struct {
	outcomes []Outcome
	index    map[string]int
}

func newResult(stages []Stage) *Result {
	r := &Result{
		outcomes: make([]Outcome, len(stages)),
		index:    make(map[string]int, len(stages)),
	}
	for i, s := range stages {
		r.outcomes[i] = Outcome{ID: s.ID, State: Pending}
		if _, dup := r.index[s.ID]; !dup {
			r.index[s.ID] = i
		}
	}
	return r
}

func (r *Result) set(i int, state State, response string, err error) {
	r.outcomes[i].State = state
	r.outcomes[i].Response = response
	r.outcomes[i].Err = err
}

// Response returns the raw response of a stage, the fallback of a skipped
// stage, or "".
func (r *Result) Response(id string) string {
	o, _ := r.Outcome(id)
	return o.Response
}

// State returns the state of a stage. Unknown ids report Pending.
func (r *Result) State(id string) State {
	o, _ := r.Outcome(id)
	return o.State
}

// Outcome returns the outcome of a stage.
func (r *Result) Outcome(id string) (Outcome, bool) {
	i, ok := r.index[id]
	if !ok {
		return Outcome{ID: id, State: Pending}, false
	}
	return r.outcomes[i], true
}

// Outcomes returns every outcome in stage order.
func (r *Result) Outcomes() []Outcome {
	return append([]Outcome(nil), r.outcomes...)
}

// Responses maps every executed or skipped stage to its response.
func (r *Result) Responses() map[string]string {
	out := make(map[string]string, len(r.outcomes))
	for _, o := range r.outcomes {
		if o.State == Executed || o.State == Skipped {
			out[o.ID] = o.Response
		}
	}
	return out
}
