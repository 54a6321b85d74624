package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

type etcdItem struct {
	Name    string          `json:"name"`
	Kind    domain.ItemKind `json:"kind"`
	Created time.Time       `json:"created"`
}

type etcdRun struct {
	JobName   string         `json:"job_name"`
	Number    int64          `json:"number"`
	Type      domain.RunType `json:"type"`
	DockerID  string         `json:"docker_id"`
	Name      string         `json:"name,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Recorded  time.Time      `json:"recorded"`
}

func marshalItem(item domain.Item) (string, error) {
	b, err := json.Marshal(etcdItem{
		Name:    item.Name,
		Kind:    item.Kind,
		Created: item.Created,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalItem(raw []byte) (domain.Item, error) {
	var wire etcdItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Item{}, fmt.Errorf("decode etcd item: %w", err)
	}
	if wire.Name == "" || wire.Kind == "" {
		return domain.Item{}, fmt.Errorf("etcd item is missing name or kind: %s", raw)
	}
	return domain.Item{
		Name:    wire.Name,
		Kind:    wire.Kind,
		Created: wire.Created,
	}, nil
}

func marshalRun(run domain.Run) (string, error) {
	b, err := json.Marshal(etcdRun{
		JobName:   run.JobName,
		Number:    run.Number,
		Type:      run.Type,
		DockerID:  run.DockerID,
		Name:      run.Name,
		Timestamp: run.Timestamp,
		Recorded:  run.Recorded,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalRun(raw []byte) (domain.Run, error) {
	var wire etcdRun
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Run{}, fmt.Errorf("decode etcd run: %w", err)
	}
	if !wire.Type.IsValid() {
		return domain.Run{}, fmt.Errorf("unknown run type %q", wire.Type)
	}
	if wire.DockerID == "" {
		return domain.Run{}, fmt.Errorf("missing docker_id in etcd run: %s", raw)
	}
	return domain.Run{
		JobName:   wire.JobName,
		Number:    wire.Number,
		Type:      wire.Type,
		DockerID:  wire.DockerID,
		Name:      wire.Name,
		Timestamp: wire.Timestamp,
		Recorded:  wire.Recorded,
	}, nil
}
