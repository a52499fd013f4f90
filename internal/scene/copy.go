package scene

// Clone returns a deep copy of s. Maps, slices and pointer fields are not
// shared with the original.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	out := *s
	if s.Fields != nil {
		out.Fields = make([]StateField, len(s.Fields))
		for i, f := range s.Fields {
			f.Options = cloneStrings(f.Options)
			out.Fields[i] = f
		}
	}
	if s.Nodes != nil {
		out.Nodes = make([]Node, len(s.Nodes))
		for i, n := range s.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if s.Edges != nil {
		out.Edges = append([]Edge(nil), s.Edges...)
	}
	return &out
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	if n.Size != nil {
		sz := *n.Size
		out.Size = &sz
	}
	out.Payload = ClonePayload(n.Payload)
	return out
}

// ClonePayload returns a deep copy of p.
func ClonePayload(p Payload) Payload {
	switch p := p.(type) {
	case AppPayload:
		p.Config = CloneConfig(p.Config)
		p.Cache = cloneCache(p.Cache)
		p.Schema = cloneSchema(p.Schema)
		return p
	case DispatchPayload:
		p.Config = CloneConfig(p.Config)
		return p
	case CodePayload:
		if p.SourceByLanguage != nil {
			src := make(map[string]string, len(p.SourceByLanguage))
			for k, v := range p.SourceByLanguage {
				src[k] = v
			}
			p.SourceByLanguage = src
		}
		if p.Args != nil {
			p.Args = append([]CodeArg(nil), p.Args...)
		}
		if p.Outputs != nil {
			p.Outputs = append([]CodeArg(nil), p.Outputs...)
		}
		p.Cache = cloneCache(p.Cache)
		return p
	case UnknownPayload:
		if p.Data != nil {
			p.Data = append([]byte(nil), p.Data...)
		}
		return p
	}
	// Remaining payloads hold only strings.
	return p
}

// CloneConfig deep-copies a decoded JSON object.
func CloneConfig(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return CloneConfig(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return cloneStrings(v)
	}
	return v
}

func cloneCache(c *CacheConfig) *CacheConfig {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func cloneSchema(es *EmbeddedSchema) *EmbeddedSchema {
	if es == nil {
		return nil
	}
	out := &EmbeddedSchema{}
	if es.Fields != nil {
		out.Fields = make([]FieldSchema, len(es.Fields))
		for i, f := range es.Fields {
			f.Options = cloneStrings(f.Options)
			f.Value = cloneValue(f.Value)
			out.Fields[i] = f
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
