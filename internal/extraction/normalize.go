package extraction

import (
	"strings"

	"github.com/nikhilbhutani/resumeprocessor/internal/models"
)

// MaxGeneratedRoles caps ai_generated_roles.
const MaxGeneratedRoles = 10

// ApplyDefaults fills missing or blank string fields with "N/A" ("Present"
// for end dates) and missing lists with empty ones, then tidies the keyword
// lists. Values the model returned in another shape are left untouched.
// When the model returns no skills_keywords they are derived from skills.
func ApplyDefaults(r models.ExtractedRecord) {
	if p := objectOrNew(r, "personalInformation"); p != nil {
		orNA(p, "firstName", "lastName", "middleName", "dateOfBirth")
	}
	if c := objectOrNew(r, "contactInformation"); c != nil {
		orNA(c, "email", "phone")
		if a := objectOrNew(c, "address"); a != nil {
			orNA(a, "street", "city", "state", "zip")
		}
	}

	eachObject(r, "education", func(e map[string]any) {
		orNA(e, "institution", "degree", "fieldOfStudy", "graduationDate")
	})
	eachObject(r, "workExperience", func(w map[string]any) {
		orNA(w, "employer", "position", "startDate", "responsibilities")
		if blank(w, "endDate") {
			w["endDate"] = models.Present
		}
	})
	eachObject(r, "references", func(ref map[string]any) {
		orNA(ref, "name", "relationship")
		if c := objectOrNew(ref, "contact"); c != nil {
			orNA(c, "email", "phone")
		}
	})

	if skills, ok := stringList(r["skills"]); ok {
		r["skills"] = cleanList(skills)
	}

	switch v := r["skills_keywords"].(type) {
	case string:
		r["skills_keywords"] = Keywords([]string{v})
	case nil:
		r["skills_keywords"] = []string{}
	default:
		if kws, ok := stringList(v); ok {
			r["skills_keywords"] = Keywords(kws)
		}
	}
	if kws, ok := r["skills_keywords"].([]string); ok && len(kws) == 0 {
		r["skills_keywords"] = Keywords(r.Strings("skills"))
	}

	if r["ai_generated_roles"] == nil {
		r["ai_generated_roles"] = []string{}
	} else if roles, ok := stringList(r["ai_generated_roles"]); ok {
		roles = cleanList(roles)
		if len(roles) > MaxGeneratedRoles {
			roles = roles[:MaxGeneratedRoles]
		}
		r["ai_generated_roles"] = roles
	}
}

// Keywords splits comma separated entries, trims them and drops
// case-insensitive duplicates, keeping first occurrence order.
func Keywords(items []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			kw := strings.TrimSpace(part)
			key := strings.ToLower(kw)
			if kw == "" || kw == models.NotAvailable || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, kw)
		}
	}
	return out
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stringList reports v as a list of strings when every element is one.
func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// objectOrNew returns the object under key, creating it when the key is
// absent or null. It returns nil when the key holds some other shape.
func objectOrNew(m map[string]any, key string) map[string]any {
	switch v := m[key].(type) {
	case map[string]any:
		return v
	case nil:
		obj := map[string]any{}
		m[key] = obj
		return obj
	}
	return nil
}

// eachObject visits the object elements of the list under key. An absent
// or null list becomes empty.
func eachObject(m map[string]any, key string, fn func(map[string]any)) {
	switch list := m[key].(type) {
	case nil:
		m[key] = []any{}
	case []any:
		for _, item := range list {
			if obj, ok := item.(map[string]any); ok {
				fn(obj)
			}
		}
	}
}

func blank(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

func orNA(m map[string]any, keys ...string) {
	for _, k := range keys {
		if blank(m, k) {
			m[k] = models.NotAvailable
		} else if s, ok := m[k].(string); ok {
			m[k] = strings.TrimSpace(s)
		}
	}
}
