package driver

import "time"

// Stage names one step of the pipeline.
type Stage string

const (
	StageLoad   Stage = "load"
	StageLayout Stage = "layout"
	StageUnify  Stage = "unify"
	StageNames  Stage = "names"
	StageBind   Stage = "bind"
	StageEmit   Stage = "emit"
	StageVerify Stage = "verify"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLoad, StageLayout, StageUnify, StageNames, StageBind, StageEmit, StageVerify}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusSkipped marks a stage that had nothing to do, e.g. verify
	// without a configured compiler.
	StatusSkipped Status = "skipped"
)

// Event reports progress for one platform (or for the whole run when
// Platform is empty).
type Event struct {
	Platform string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. OnEvent may be called from the
// loading goroutines concurrently.
type ProgressSink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

// ChannelSink forwards events to a channel; the UI reads the other end.
type ChannelSink chan<- Event

func (c ChannelSink) OnEvent(ev Event) { c <- ev }

func notify(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
