package flows

// payload accumulates optional request fields, skipping unset ones, and
// finalizes as the flat JSON body map. Setters no-op on zero values so that
// request builders read as a single chain without nil checks.
type payload struct {
	fields map[string]any
}

func newPayload() *payload {
	return &payload{fields: map[string]any{}}
}

// set stores a value unconditionally.
func (p *payload) set(key string, value any) *payload {
	p.fields[key] = value
	return p
}

// setOptionalString stores a string field, skipping empty values.
func (p *payload) setOptionalString(key, value string) *payload {
	if value != "" {
		p.fields[key] = value
	}
	return p
}

// setOptionalStringSlice stores a list field, skipping empty lists.
func (p *payload) setOptionalStringSlice(key string, values []string) *payload {
	if len(values) > 0 {
		p.fields[key] = values
	}
	return p
}

// setOptionalMap stores an object field, skipping nil maps.
func (p *payload) setOptionalMap(key string, value map[string]any) *payload {
	if value != nil {
		p.fields[key] = value
	}
	return p
}

// merge copies extra fields over the accumulated ones. Collisions favor the
// extras, letting callers overwrite computed fields deliberately.
func (p *payload) merge(extra map[string]any) *payload {
	for key, value := range extra {
		p.fields[key] = value
	}
	return p
}

// Map finalizes the accumulated fields as the request body.
func (p *payload) Map() map[string]any {
	return p.fields
}
