package docstore

import "context"

// Expand replaces reference fields of docs with the referenced documents.
// Every field costs one batched lookup. References to missing documents are
// left as they are. The input documents are modified in place.
func Expand(ctx context.Context, s Store, docs []Document, fields []string) error {
	for _, field := range fields {
		var ids []string
		seen := map[string]bool{}
		for _, d := range docs {
			v, ok := d.Lookup(field)
			if !ok {
				continue
			}
			refIDs := RefIDs(v)
			if refIDs == nil {
				if id := RefID(v); id != "" {
					refIDs = []string{id}
				}
			}
			for _, id := range refIDs {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		if len(ids) == 0 {
			continue
		}

		found, err := s.GetMany(ctx, ids)
		if err != nil {
			return err
		}
		for _, d := range docs {
			replaceRefs(d, field, found)
		}
	}
	return nil
}

func replaceRefs(doc Document, path string, found map[string]Document) {
	parent, key := splitParent(doc, path)
	if parent == nil {
		return
	}
	switch v := parent[key].(type) {
	case []any:
		for i, item := range v {
			if target, ok := found[RefID(item)]; ok {
				v[i] = map[string]any(target.Clone())
			}
		}
	default:
		if target, ok := found[RefID(v)]; ok {
			parent[key] = map[string]any(target.Clone())
		}
	}
}

func splitParent(doc Document, path string) (map[string]any, string) {
	parts := splitPath(path)
	cur := map[string]any(doc)
	for _, p := range parts[:len(parts)-1] {
		next := asMap(cur[p])
		if next == nil {
			return nil, ""
		}
		cur = next
	}
	return cur, parts[len(parts)-1]
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}
