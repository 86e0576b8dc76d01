package mlog

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
)

// LogAppend logs a debug message describing the result of appending a range
// of events to an entity's stream.
func LogAppend(
	log logging.Logger,
	entityID, writerID string,
	lowest, highest int64,
	err error,
) {
	if !logging.IsDebug(log) {
		return
	}

	icon := AppendIcon
	text := "events appended"
	if err != nil {
		icon = AppendErrorIcon
		text = err.Error()
	}

	logging.DebugString(
		log,
		String(
			[]IconWithLabel{
				EntityIDIcon.WithID(entityID),
				WriterIDIcon.WithID(writerID),
				SequenceIcon.WithLabel("%d..%d", lowest, highest),
			},
			[]Icon{
				icon,
				errorIcon(err),
			},
			text,
		),
	)
}

// LogReplay logs a debug message describing the events delivered by a replay.
func LogReplay(
	log logging.Logger,
	entityID string,
	from, to int64,
	n int,
	err error,
) {
	if !logging.IsDebug(log) {
		return
	}

	icon := ReadIcon
	if err != nil {
		icon = ReadErrorIcon
	}

	messages := []string{
		fmt.Sprintf("replayed %d event(s)", n),
	}

	if err != nil {
		messages = append(messages, err.Error())
	}

	logging.DebugString(
		log,
		String(
			[]IconWithLabel{
				EntityIDIcon.WithID(entityID),
				WriterIDIcon.WithLabel(""),
				SequenceIcon.WithLabel("%d..%d", from, to),
			},
			[]Icon{
				icon,
				errorIcon(err),
			},
			messages...,
		),
	)
}

// LogDelete logs a message indicating that an entity's records have been
// deleted.
func LogDelete(
	log logging.Logger,
	entityID string,
	to int64,
	n int,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				EntityIDIcon.WithID(entityID),
				WriterIDIcon.WithLabel(""),
				SequenceIcon.WithLabel("..%d", to),
			},
			[]Icon{
				DeleteIcon,
				"",
			},
			fmt.Sprintf("deleted %d event(s)", n),
		),
	)
}

// LogSnapshot logs a debug message relating to an entity's snapshots.
func LogSnapshot(
	log logging.Logger,
	entityID string,
	seq int64,
	f string, v ...interface{},
) {
	if !logging.IsDebug(log) {
		return
	}

	logging.DebugString(
		log,
		String(
			[]IconWithLabel{
				EntityIDIcon.WithID(entityID),
				WriterIDIcon.WithLabel(""),
				SequenceIcon.WithLabel("%d", seq),
			},
			[]Icon{
				SnapshotIcon,
				"",
			},
			fmt.Sprintf(f, v...),
		),
	)
}

// LogQueryPass logs a debug message describing a single pass of a continuous
// query.
func LogQueryPass(
	log logging.Logger,
	name string,
	offset fmt.Stringer,
	n int,
	done bool,
) {
	if !logging.IsDebug(log) {
		return
	}

	messages := []string{
		name,
		fmt.Sprintf("delivered %d item(s)", n),
	}

	if done {
		messages = append(messages, "query is complete")
	}

	logging.DebugString(
		log,
		String(
			[]IconWithLabel{
				OffsetIcon.WithLabel("%s", offset),
			},
			[]Icon{
				QueryIcon,
				"",
			},
			messages...,
		),
	)
}

// LogRetry logs a message indicating that an operation failed and will be
// re-attempted.
func LogRetry(
	log logging.Logger,
	operation string,
	cause error,
	delay time.Duration,
) {
	logging.LogString(
		log,
		String(
			nil,
			[]Icon{
				SystemIcon,
				RetryIcon,
			},
			operation,
			cause.Error(),
			fmt.Sprintf("next retry in %s", delay),
		),
	)
}

// LogSystem logs an informational message about the internals of the engine.
func LogSystem(
	log logging.Logger,
	f string, v ...interface{},
) {
	logging.LogString(
		log,
		String(
			nil,
			[]Icon{
				SystemIcon,
				"",
			},
			fmt.Sprintf(f, v...),
		),
	)
}

func errorIcon(err error) Icon {
	if err == nil {
		return ""
	}

	return ErrorIcon
}
