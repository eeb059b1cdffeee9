package quality

import (
	"sort"

	"gramload.app/cloud/models"
)

// LabelMap maps a quality tier to the display label stamped on the variants
// served at that tier. Relabeling is display policy, not filtering logic:
// downgraded callers see generic descriptors instead of the source labels,
// so the response does not reveal that a better variant was withheld.
type LabelMap map[models.QualityTier]string

func DefaultLabels() LabelMap {
	return LabelMap{
		models.QualityHD: "High quality",
		models.QualitySD: "Standard quality",
	}
}

type Filter struct {
	labels LabelMap
}

// New builds a filter with the given label policy. Missing or nil entries
// fall back to the defaults.
func New(labels LabelMap) *Filter {
	merged := DefaultLabels()
	for tier, label := range labels {
		if label != "" {
			merged[tier] = label
		}
	}
	return &Filter{labels: merged}
}

// Apply narrows a variant list to what the tier is entitled to see:
// original keeps everything untouched, hd drops the single highest
// resolution, sd keeps only the single lowest. An unknown tier gets the
// most restrictive treatment.
func (f *Filter) Apply(variants []models.Variant, tier models.QualityTier) []models.Variant {
	if len(variants) == 0 {
		return nil
	}

	if tier == models.QualityOriginal {
		out := make([]models.Variant, len(variants))
		copy(out, variants)
		return out
	}

	sorted := make([]models.Variant, len(variants))
	copy(sorted, variants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Resolution() > sorted[j].Resolution()
	})

	var kept []models.Variant
	switch tier {
	case models.QualityHD:
		if len(sorted) == 1 {
			// Nothing lower to fall back to; dropping the only variant
			// would serve hd callers less than sd callers.
			kept = sorted
		} else {
			kept = sorted[1:]
		}
	default:
		kept = sorted[len(sorted)-1:]
	}

	label := f.labels[tier]
	if label == "" {
		label = f.labels[models.QualitySD]
	}
	for i := range kept {
		kept[i].Label = label
	}
	return kept
}

// ApplyItems filters composite content, applying the tier rule to each
// item's own variant list independently.
func (f *Filter) ApplyItems(items []models.Item, tier models.QualityTier) []models.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.Item, len(items))
	for i, item := range items {
		out[i] = models.Item{
			ID:       item.ID,
			Variants: f.Apply(item.Variants, tier),
		}
	}
	return out
}
