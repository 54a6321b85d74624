package domain

import "time"

type ItemKind string

const ItemKindBuildReferenceJob ItemKind = "docker-build-reference-job"

// Item is a named entry of the host item registry as it is persisted.
type Item struct {
	Name    string
	Kind    ItemKind
	Created time.Time
}
