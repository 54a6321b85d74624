package host

import "github.com/auto-dns/docker-traceability/internal/domain"

// GenericItem stands in for persisted items whose kind has no decoder.
type GenericItem struct {
	item domain.Item
}

func NewGenericItem(item domain.Item) *GenericItem {
	return &GenericItem{item: item}
}

func (g *GenericItem) ItemName() string          { return g.item.Name }
func (g *GenericItem) ItemKind() domain.ItemKind { return g.item.Kind }
