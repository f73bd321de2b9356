package pipeline

import (
	"regexp"
	"strings"
)

// ============================================================================
// Candidate Deduplication
// ============================================================================

var extraSpace = regexp.MustCompile(`\s+`)

// deduplicateEntities collapses candidate entities whose normalized names
// match. The first occurrence wins; attributes from later duplicates are
// merged in where the keys are new. Keeping one node per name also keeps
// edge resolution unambiguous.
func deduplicateEntities(entities []CandidateEntity) []CandidateEntity {
	if len(entities) <= 1 {
		return entities
	}

	seen := make(map[string]int, len(entities))
	unique := make([]CandidateEntity, 0, len(entities))

	for _, entity := range entities {
		normalized := normalizeEntityName(entity.Name)
		if i, ok := seen[normalized]; ok {
			merged := &unique[i]
			if merged.Type == "" {
				merged.Type = entity.Type
			}
			if merged.Description == "" {
				merged.Description = entity.Description
			}
			for k, v := range entity.Attributes {
				if merged.Attributes == nil {
					merged.Attributes = make(map[string]interface{})
				}
				if _, exists := merged.Attributes[k]; !exists {
					merged.Attributes[k] = v
				}
			}
			continue
		}
		seen[normalized] = len(unique)
		unique = append(unique, entity)
	}

	return unique
}

// normalizeEntityName normalizes an entity name for comparison
func normalizeEntityName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = extraSpace.ReplaceAllString(name, " ")
	name = strings.TrimRight(name, ".,!?;:")
	return name
}
