package store

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Amenities are kept as a JSON array of lower-case strings, e.g. ["wifi","water","security"].

func NormalizeAmenities(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func encodeAmenities(in []string) (string, error) {
	doc := "[]"
	for _, a := range NormalizeAmenities(in) {
		var err error
		doc, err = sjson.Set(doc, "-1", a)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

func decodeAmenities(doc string) []string {
	res := gjson.Parse(doc)
	if !res.IsArray() {
		return nil
	}
	var out []string
	res.ForEach(func(_, v gjson.Result) bool {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

func hasAmenity(doc string, amenity string) bool {
	amenity = strings.ToLower(strings.TrimSpace(amenity))
	if amenity == "" {
		return true
	}
	return gjson.Get(doc, `#(=="`+escapeGJSONString(amenity)+`")`).Exists()
}

func escapeGJSONString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}
