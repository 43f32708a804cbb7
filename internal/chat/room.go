package chat

// room keeps its members in join order so snapshots are deterministic.
type room struct {
	name    string
	order   []string
	members map[string]*Session
}

func newRoom(name string) *room {
	return &room{name: name, members: make(map[string]*Session)}
}

func (r *room) add(s *Session) {
	if _, ok := r.members[s.id]; ok {
		return
	}
	r.members[s.id] = s
	r.order = append(r.order, s.id)
}

func (r *room) remove(id string) bool {
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *room) empty() bool { return len(r.order) == 0 }

func (r *room) snapshot() []Member {
	out := make([]Member, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.members[id].member())
	}
	return out
}

// recipients lists member ids, skipping except when non-empty.
func (r *room) recipients(except string) []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if id == except {
			continue
		}
		out = append(out, id)
	}
	return out
}
