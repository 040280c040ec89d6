package transfer

type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventDone
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventDone:
		return "done"
	case EventFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is one step of a task lifecycle. Transferred and Total are the byte
// counts as of this event and are set on Progress and Done. Location is only
// set on Done and Err only on Failure.
type Event struct {
	Kind        EventKind
	Task        *Task
	Transferred int64
	Total       int64
	Location    string
	Err         error
}

type Listener func(Event)

// Snapshot is a point-in-time copy of a task, safe to hand to other
// goroutines.
type Snapshot struct {
	ID               string `json:"id"`
	Source           string `json:"source"`
	Destination      string `json:"destination"`
	State            string `json:"state"`
	TransferredBytes int64  `json:"transferred_bytes"`
	TotalBytes       int64  `json:"total_bytes"`
	Location         string `json:"location,omitempty"`
}

func (t *Task) Snapshot() Snapshot {
	loc, _ := t.suri.Location()
	return Snapshot{
		ID:               t.id,
		Source:           t.suri.Source,
		Destination:      t.suri.Destination,
		State:            t.State().String(),
		TransferredBytes: t.TransferredBytes(),
		TotalBytes:       t.TotalBytes(),
		Location:         loc,
	}
}
