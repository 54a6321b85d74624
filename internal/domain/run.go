package domain

import (
	"fmt"
	"strings"
	"time"
)

type RunType string

const (
	RunTypeContainer RunType = "CONTAINER"
	RunTypeImage     RunType = "IMAGE"
)

func (rt RunType) IsValid() bool {
	switch rt {
	case RunTypeContainer, RunTypeImage:
		return true
	}
	return false
}

func ParseRunType(s string) (RunType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONTAINER":
		return RunTypeContainer, nil
	case "IMAGE":
		return RunTypeImage, nil
	default:
		return "", fmt.Errorf("unsupported run type %q", s)
	}
}

// Run is one recorded observation of a Docker container or image.
type Run struct {
	JobName   string
	Number    int64
	Type      RunType
	DockerID  string
	Name      string    // optional
	Timestamp time.Time // when the docker object was created
	Recorded  time.Time
}

func (r Run) Key() string {
	return RunKey(r.Type, r.DockerID)
}

func RunKey(runType RunType, dockerID string) string {
	return fmt.Sprintf("%s|%s", runType, dockerID)
}

func (r Run) Render() string {
	name := r.Name
	if name == "" {
		name = "<no name>"
	}
	return fmt.Sprintf("#%d [%s] %s %s (created=%s)", r.Number, r.Type, ShortID(r.DockerID), name, r.Timestamp.Format("2006-01-02 15:04:05"))
}

// ShortID trims a docker id to the 12 characters docker itself prints.
func ShortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
