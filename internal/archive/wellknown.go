package archive

import "fmt"

// WellknownNames carries the configured names of the entities the pipeline
// depends on. Names are resolved against the cache at startup so the rest of
// the system works with ids only.
type WellknownNames struct {
	TriggerTag         string
	StatusField        string
	PersonField        string
	PaginationField    string
	HouseRegisterField string
	HouseSequenceField string
}

// Wellknown holds the resolved archive entities the pipeline depends on.
type Wellknown struct {
	TriggerTag         Entity
	StatusField        CustomField
	PersonField        CustomField
	PaginationField    CustomField
	HouseRegisterField CustomField
	HouseSequenceField CustomField
}

// ResolveWellknown looks up every configured name in the cache. All names
// must resolve; a missing entity is a deployment error, not a runtime
// condition to work around.
func ResolveWellknown(cache *Cache, names WellknownNames) (*Wellknown, error) {
	tag, ok := cache.Lookup(KindTag, names.TriggerTag)
	if !ok {
		return nil, fmt.Errorf("trigger tag %q not found in archive", names.TriggerTag)
	}

	w := &Wellknown{TriggerTag: tag}

	fields := []struct {
		name   string
		label  string
		target *CustomField
	}{
		{names.StatusField, "status field", &w.StatusField},
		{names.PersonField, "person field", &w.PersonField},
		{names.PaginationField, "pagination field", &w.PaginationField},
		{names.HouseRegisterField, "house register field", &w.HouseRegisterField},
		{names.HouseSequenceField, "house sequence field", &w.HouseSequenceField},
	}

	for _, f := range fields {
		cf, ok := cache.Field(f.name)
		if !ok {
			return nil, fmt.Errorf("%s %q not found in archive", f.label, f.name)
		}
		*f.target = cf
	}

	return w, nil
}
