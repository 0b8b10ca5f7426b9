package queueview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/izzyreal/bbdash/internal/buildbot"
)

var ErrUnknownArchitecture = errors.New("unknown queue architecture")

// UnknownArchitecturePolicy decides what happens to queues whose
// architecture tag is not one of buildbot.Architectures.
type UnknownArchitecturePolicy string

const (
	UnknownArchitectureDrop  UnknownArchitecturePolicy = "drop"
	UnknownArchitectureError UnknownArchitecturePolicy = "error"
)

func ParseUnknownArchitecturePolicy(raw string) (UnknownArchitecturePolicy, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", string(UnknownArchitectureDrop):
		return UnknownArchitectureDrop, nil
	case string(UnknownArchitectureError):
		return UnknownArchitectureError, nil
	default:
		return "", fmt.Errorf("unsupported unknown architecture policy %q", raw)
	}
}

type BucketKey struct {
	Architecture buildbot.Architecture
	BuildType    buildbot.BuildType
}

// BucketOrder is the order in which builder sections are rendered.
func BucketOrder() []BucketKey {
	keys := make([]BucketKey, 0, 2*len(buildbot.Architectures))
	for _, bt := range []buildbot.BuildType{buildbot.BuildTypeRelease, buildbot.BuildTypeDebug} {
		for _, arch := range buildbot.Architectures {
			keys = append(keys, BucketKey{Architecture: arch, BuildType: bt})
		}
	}
	return keys
}

type Grouping struct {
	Buckets                  map[BucketKey][]*buildbot.Queue
	HasMultipleReleaseBuilds bool
	HasMultipleDebugBuilds   bool
	// Dropped holds queues excluded under UnknownArchitectureDrop.
	Dropped []*buildbot.Queue
}

// Classify partitions queues into architecture x build-type buckets,
// preserving input order inside each bucket. The build type comes from the
// list a queue was passed in, not from the queue itself.
func Classify(debugQueues, releaseQueues []*buildbot.Queue, policy UnknownArchitecturePolicy) (Grouping, error) {
	g := Grouping{
		Buckets:                  make(map[BucketKey][]*buildbot.Queue, 6),
		HasMultipleReleaseBuilds: len(releaseQueues) > 1,
		HasMultipleDebugBuilds:   len(debugQueues) > 1,
	}

	place := func(queues []*buildbot.Queue, bt buildbot.BuildType) error {
		for _, q := range queues {
			if q == nil {
				continue
			}
			arch, ok := buildbot.ParseArchitecture(string(q.Architecture))
			if !ok {
				if policy == UnknownArchitectureError {
					return fmt.Errorf("queue %q: %w %q", q.ID, ErrUnknownArchitecture, q.Architecture)
				}
				g.Dropped = append(g.Dropped, q)
				continue
			}
			key := BucketKey{Architecture: arch, BuildType: bt}
			g.Buckets[key] = append(g.Buckets[key], q)
		}
		return nil
	}

	if err := place(releaseQueues, buildbot.BuildTypeRelease); err != nil {
		return Grouping{}, err
	}
	if err := place(debugQueues, buildbot.BuildTypeDebug); err != nil {
		return Grouping{}, err
	}
	return g, nil
}

func (g Grouping) Queues(key BucketKey) []*buildbot.Queue {
	return g.Buckets[key]
}

// Label is the queue label for a bucket: the architecture is only spelled
// out when the build type has more than one queue.
func (g Grouping) Label(key BucketKey) string {
	multiple := g.HasMultipleReleaseBuilds
	if key.BuildType == buildbot.BuildTypeDebug {
		multiple = g.HasMultipleDebugBuilds
	}
	if !multiple {
		return key.BuildType.Title()
	}
	return fmt.Sprintf("%s (%s)", key.BuildType.Title(), key.Architecture)
}
