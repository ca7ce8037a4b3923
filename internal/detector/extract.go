package detector

import (
	"strings"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// extract reads deployability metadata out of a generic decoded document
func extract(source string, doc map[string]any) *domain.DeployConfig {
	cfg := &domain.DeployConfig{
		Source: source,
		Name:   stringField(doc, "name"),
		Main:   stringField(doc, "main"),
	}

	if r, ok := doc["route"]; ok {
		if p := routePattern(r); p != "" {
			cfg.Routes = append(cfg.Routes, p)
		}
	}
	if rs, ok := doc["routes"].([]any); ok {
		for _, r := range rs {
			if p := routePattern(r); p != "" {
				cfg.Routes = append(cfg.Routes, p)
			}
		}
	}

	cfg.Bindings = append(cfg.Bindings, bindings(doc, "kv_namespaces", domain.BindingKV, "id", "binding")...)
	cfg.Bindings = append(cfg.Bindings, bindings(doc, "r2_buckets", domain.BindingR2, "bucket_name", "binding")...)
	cfg.Bindings = append(cfg.Bindings, bindings(doc, "d1_databases", domain.BindingD1, "database_name", "database_id", "binding")...)

	return cfg
}

// routePattern accepts either a bare string or an object with a pattern field
func routePattern(v any) string {
	switch r := v.(type) {
	case string:
		return strings.TrimSpace(r)
	case map[string]any:
		if p := stringField(r, "pattern"); p != nil {
			return *p
		}
	}
	return ""
}

// bindings reads a list of binding objects, taking the first non-empty id field
func bindings(doc map[string]any, key string, kind domain.BindingKind, idFields ...string) []domain.Binding {
	items, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	var out []domain.Binding
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, f := range idFields {
			if id := stringField(obj, f); id != nil {
				out = append(out, domain.Binding{Kind: kind, ID: *id})
				break
			}
		}
	}
	return out
}

// stringField returns a trimmed non-empty string value, or nil
func stringField(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
