package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

type Kind string

const (
	KindLog      Kind = "log"
	KindProgress Kind = "progress"
	KindDone     Kind = "done"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Progress of one transfer. Total is -1 when the source announced no size.
type Progress struct {
	Name     string
	URL      string
	Received int64
	Total    int64
}

func (p Progress) Indeterminate() bool {
	return p.Total < 0
}

func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Received) * 100 / float64(p.Total)
}

// Event is what background operations publish to the presentation layer.
type Event struct {
	Kind     Kind
	Time     time.Time
	Level    Level
	Source   string
	Message  string
	Progress *Progress
	Err      error
}

func Log(level Level, source, msg string) Event {
	return Event{Kind: KindLog, Time: time.Now(), Level: level, Source: source, Message: msg}
}

func ProgressEvent(p Progress) Event {
	return Event{Kind: KindProgress, Time: time.Now(), Level: LevelInfo, Message: p.Name, Progress: &p}
}

func Done(msg string, err error) Event {
	level := LevelSuccess
	if err != nil {
		level = LevelError
		if msg == "" {
			msg = err.Error()
		}
	}
	return Event{Kind: KindDone, Time: time.Now(), Level: level, Message: msg, Err: err}
}

type Sink interface {
	Emit(Event)
}

type FuncSink func(Event)

func (f FuncSink) Emit(e Event) { f(e) }

var Discard Sink = FuncSink(func(Event) {})

// ChanSink forwards events to a channel. Log and completion events block
// until consumed; progress events are dropped when the buffer is full.
type ChanSink struct {
	C chan Event

	mu     sync.RWMutex
	closed bool
}

func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{C: make(chan Event, buffer)}
}

func (s *ChanSink) Emit(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if e.Kind == KindProgress {
		select {
		case s.C <- e:
		default:
		}
		return
	}
	s.C <- e
}

func (s *ChanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.C)
	}
}

/////////////////////////////////////////////////////////////////////
// hclog bridge
/////////////////////////////////////////////////////////////////////

// LogSink is an hclog.SinkAdapter that republishes every log entry as an
// event, so the presentation layer sees what the session log records.
type LogSink struct {
	Sink Sink
}

var _ hclog.SinkAdapter = (*LogSink)(nil)

func (l *LogSink) Accept(name string, level hclog.Level, msg string, args ...interface{}) {
	if l.Sink == nil {
		return
	}
	for i := 0; i+1 < len(args); i += 2 {
		msg += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	l.Sink.Emit(Log(FromHclog(level), name, msg))
}

func FromHclog(level hclog.Level) Level {
	switch {
	case level >= hclog.Error:
		return LevelError
	case level == hclog.Warn:
		return LevelWarning
	}
	return LevelInfo
}
