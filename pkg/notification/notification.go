package notification

import (
	"time"

	"github.com/fsaudit/fsaudit/pkg/comparison"
	"github.com/fsaudit/fsaudit/pkg/duplicates"
)

type Action int

const (
	ActionDrift Action = iota + 1
	ActionDuplicate
)

type Sender interface {
	CanSend() bool
	Send(title string, description string, runTime time.Duration, fields []Field) error
	BuildField(action Action, options BuildOptions) Field
	Name() string
}

type Field struct {
	Name  string
	Value string
}

type BuildOptions struct {
	Outcome comparison.Outcome

	Group duplicates.Group
}
