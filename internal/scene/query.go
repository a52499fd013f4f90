package scene

// FindNode returns the node with the given id.
func (s *Scene) FindNode(nodeID string) (*Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == nodeID {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// FindNode looks a node up across a working set of scenes.
func FindNode(scenes []Scene, sceneID, nodeID string) (*Node, bool) {
	for i := range scenes {
		if scenes[i].ID == sceneID {
			return scenes[i].FindNode(nodeID)
		}
	}
	return nil, false
}

// FindScene returns the scene with the given id from a working set.
func FindScene(scenes []Scene, sceneID string) (*Scene, bool) {
	for i := range scenes {
		if scenes[i].ID == sceneID {
			return &scenes[i], true
		}
	}
	return nil, false
}

// EdgesOf returns every edge with nodeID as source or target, in scene order.
func (s *Scene) EdgesOf(nodeID string) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Touches(nodeID) {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingExecutionEdge returns the execution edge leaving nodeID. Run
// order is a chain, so there is at most one.
func (s *Scene) OutgoingExecutionEdge(nodeID string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.Source == nodeID && e.IsExecution() {
			return e, true
		}
	}
	return Edge{}, false
}

// IncomingExecutionEdge returns the execution edge entering nodeID.
func (s *Scene) IncomingExecutionEdge(nodeID string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.Target == nodeID && e.IsExecution() {
			return e, true
		}
	}
	return Edge{}, false
}

// FindEdge returns the edge with the given id.
func (s *Scene) FindEdge(edgeID string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.ID == edgeID {
			return e, true
		}
	}
	return Edge{}, false
}

// Field returns the state field with the given name.
func (s *Scene) Field(name string) (StateField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StateField{}, false
}

// NodeIndex maps node ids to nodes for repeated lookups.
func (s *Scene) NodeIndex() map[string]*Node {
	idx := make(map[string]*Node, len(s.Nodes))
	for i := range s.Nodes {
		idx[s.Nodes[i].ID] = &s.Nodes[i]
	}
	return idx
}
