package animator

import (
	"github.com/Carmen-Shannon/oxy-spring/common"
)

type commandKind int

const (
	commandAnimate commandKind = iota
	commandRemove
)

// command is a mutation received while a batch was in flight, replayed in arrival order once the
// batch has been written back.
type command struct {
	kind commandKind

	// commandAnimate
	key     Key
	current common.Vec4
	hasCur  bool
	target  common.Vec4
	params  SpringParams
	meta    metadata

	// commandRemove
	subject    SubjectID
	properties []string
}

func animateCommand(key Key, current common.Vec4, hasCur bool, target common.Vec4, params SpringParams, meta metadata) command {
	return command{
		kind:    commandAnimate,
		key:     key,
		current: current,
		hasCur:  hasCur,
		target:  target,
		params:  params,
		meta:    meta,
	}
}

func removeCommand(subject SubjectID, properties []string) command {
	return command{
		kind:       commandRemove,
		subject:    subject,
		properties: properties,
	}
}

// apply performs the command against the animator. The caller holds a.mu and the buffer is not
// leased. Completions of replaced or removed springs are returned for the caller to fire unlocked.
func (c command) apply(a *animator) []Completion {
	switch c.kind {
	case commandAnimate:
		if cancelled := a.installLocked(c.key, c.current, c.hasCur, c.target, c.params, c.meta); cancelled != nil {
			return []Completion{cancelled}
		}
		return nil
	case commandRemove:
		return a.removeLocked(c.subject, c.properties)
	}
	return nil
}
