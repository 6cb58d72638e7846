package server

// roomDirectory maps room names to their current member sets. Rooms exist
// from first reference and never auto-delete, so an empty room still shows
// up in listings. Membership and Session.room are kept in lockstep: join
// and leave are the only mutators and both update the session record.
type roomDirectory struct {
	rooms map[string]map[*Session]struct{}
	order []string
}

func newRoomDirectory() *roomDirectory {
	return &roomDirectory{rooms: make(map[string]map[*Session]struct{})}
}

// ensure creates the room with empty membership if absent. Idempotent.
func (d *roomDirectory) ensure(name string) {
	if _, ok := d.rooms[name]; !ok {
		d.rooms[name] = make(map[*Session]struct{})
		d.order = append(d.order, name)
	}
}

// join adds the session to the named room, first leaving whichever room it
// was in. A session belongs to at most one room.
func (d *roomDirectory) join(name string, s *Session) {
	d.ensure(name)
	if s.room != "" && s.room != name {
		d.leave(s.room, s)
	}
	d.rooms[name][s] = struct{}{}
	s.room = name
}

// leave removes the session from the named room. The room itself persists
// even when empty.
func (d *roomDirectory) leave(name string, s *Session) {
	if members, ok := d.rooms[name]; ok {
		delete(members, s)
	}
	if s.room == name {
		s.room = ""
	}
}

// members returns the room's current member sessions.
func (d *roomDirectory) members(name string) []*Session {
	set := d.rooms[name]
	out := make([]*Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// names lists every known room, including empty ones, in creation order.
func (d *roomDirectory) names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func (d *roomDirectory) memberCount(name string) int {
	return len(d.rooms[name])
}
