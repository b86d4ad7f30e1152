// Package registry tracks connected sessions, their room membership, and the
// per-room publisher directory used for camera discovery.
//
// All state lives behind a single mutex so that one session's join or
// disconnect transition is atomic with respect to every other event: no
// observer sees a session present in two rooms, or present in a room's member
// set but absent from the global map. A directory entry can still go stale
// relative to a lookup racing a disconnect processed for another connection;
// lookups therefore treat an entry whose owner is gone as absent and purge it.
package registry

import "sync"

type Config struct {
	// MaxSessions caps concurrently registered sessions. Zero means unlimited.
	MaxSessions int
}

type Registry struct {
	cfg Config

	mu        sync.Mutex
	sessions  map[string]*Session            // id -> session
	rooms     map[string]map[string]*Session // room -> id -> session
	directory map[string]map[string]string   // room -> publisherKey -> owning id
}

func New(cfg Config) *Registry {
	return &Registry{
		cfg:       cfg,
		sessions:  make(map[string]*Session),
		rooms:     make(map[string]map[string]*Session),
		directory: make(map[string]map[string]string),
	}
}

// DirectoryEntry is one (publisherKey, owning session) pair within a room.
type DirectoryEntry struct {
	PublisherKey string
	SessionID    string
}

// JoinResult is the snapshot a join transition leaves behind. All slices are
// copies taken under the registry lock; senders may be invoked without it.
type JoinResult struct {
	Room         string
	Role         Role
	PublisherKey string

	// Peers are the other members of the target room after the join.
	Peers []*Session

	// RoomChanged reports that the session left a different room to get here.
	RoomChanged bool
	OldRoom     string
	// OldRoomPeers are the members remaining in the old room (room change only).
	OldRoomPeers []*Session

	// RemovedPublisherKey is set when the transition removed a directory entry
	// that was not immediately re-established under the same (room, key).
	RemovedPublisherKey string

	// Directory lists the live directory entries of the target room at join
	// time. Populated only for non-publisher joiners.
	Directory []DirectoryEntry
}

// DisconnectResult is the snapshot a disconnect transition leaves behind.
type DisconnectResult struct {
	Session *Session
	Room    string
	// PublisherKey is set if the session held a directory entry in its room.
	PublisherKey string
	// Peers are the members remaining in the room.
	Peers []*Session
}

// Register adds a session to the global map. The session has no room
// membership until Join is called.
func (r *Registry) Register(sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sess.id]; ok {
		return ErrDuplicateID
	}
	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		return ErrTooManySessions
	}
	r.sessions[sess.id] = sess
	return nil
}

// Lookup returns the session registered under id.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// CurrentRoom returns the room sess currently belongs to, or "" if it has not
// joined one yet.
func (r *Registry) CurrentRoom(sess *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sess.room
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Join moves sess into room, applying role and publisherKey stickiness: a
// join that omits role or publisherKey keeps the previously set value, and a
// session with no role at all defaults to subscriber. The whole transition
// (leave old room, drop old directory entry, enter new room, create new
// directory entry) happens under one lock acquisition.
func (r *Registry) Join(sess *Session, room string, role Role, publisherKey string) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sess.id]; !ok {
		// Disconnect cleanup won the race; the transport is already gone.
		return JoinResult{}, ErrNotRegistered
	}

	if role == RoleUnspecified {
		role = sess.role
	}
	if role == RoleUnspecified {
		role = RoleSubscriber
	}
	if publisherKey == "" {
		publisherKey = sess.publisherKey
	}

	oldRoom := sess.room
	oldKey := ""
	if oldRoom != "" {
		oldKey = r.removeFromRoomLocked(sess)
	}

	sess.room = room
	sess.role = role
	sess.publisherKey = publisherKey

	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Session)
		r.rooms[room] = members
	}
	members[sess.id] = sess

	res := JoinResult{
		Room:         room,
		Role:         role,
		PublisherKey: publisherKey,
		Peers:        r.roomMembersLocked(room, sess.id),
	}
	if oldRoom != "" && oldRoom != room {
		res.RoomChanged = true
		res.OldRoom = oldRoom
		res.OldRoomPeers = r.roomMembersLocked(oldRoom, sess.id)
	}

	publishes := role == RolePublisher && publisherKey != ""
	if oldKey != "" && !(publishes && oldRoom == room && oldKey == publisherKey) {
		res.RemovedPublisherKey = oldKey
	}

	if publishes {
		dir := r.directory[room]
		if dir == nil {
			dir = make(map[string]string)
			r.directory[room] = dir
		}
		dir[publisherKey] = sess.id
	} else {
		res.Directory = r.roomDirectoryLocked(room)
	}

	return res, nil
}

// Disconnect removes the session registered under id from every registry
// structure. The second return value is false when the id is unknown, which
// makes double invocation (transport error followed by transport close)
// harmless.
func (r *Registry) Disconnect(id string) (DisconnectResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return DisconnectResult{}, false
	}
	delete(r.sessions, id)

	res := DisconnectResult{Session: sess, Room: sess.room}
	if sess.room != "" {
		res.PublisherKey = r.removeFromRoomLocked(sess)
		res.Peers = r.roomMembersLocked(res.Room, id)
		sess.room = ""
	}
	return res, true
}

// AddToRoom inserts sess into room's member set and records it as the
// session's current room. Most callers want the compound Join transition;
// this exists for callers that manage directory entries themselves.
func (r *Registry) AddToRoom(sess *Session, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Session)
		r.rooms[room] = members
	}
	members[sess.id] = sess
	sess.room = room
}

// RemoveFromRoom removes sess from its current room, deleting any directory
// entry it held there. It returns the removed publisher key, if any.
func (r *Registry) RemoveFromRoom(sess *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.removeFromRoomLocked(sess)
	sess.room = ""
	return key
}

// SetDirectoryEntry records (room, publisherKey) -> sessionID.
func (r *Registry) SetDirectoryEntry(room, publisherKey, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dir := r.directory[room]
	if dir == nil {
		dir = make(map[string]string)
		r.directory[room] = dir
	}
	dir[publisherKey] = sessionID
}

// RemoveDirectoryEntry deletes (room, publisherKey) if present.
func (r *Registry) RemoveDirectoryEntry(room, publisherKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeDirectoryEntryLocked(room, publisherKey)
}

// LookupDirectoryEntry resolves (room, publisherKey) to the owning session.
// A stale entry, whose owner is no longer in the global map, is purged and
// reported as absent; purged tells the caller that happened.
func (r *Registry) LookupDirectoryEntry(room, publisherKey string) (owner *Session, purged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.directory[room]
	id, ok := dir[publisherKey]
	if !ok {
		return nil, false
	}
	sess, ok := r.sessions[id]
	if !ok {
		r.removeDirectoryEntryLocked(room, publisherKey)
		return nil, true
	}
	return sess, false
}

// RoomMembers returns the sessions currently in room, excluding exceptID if
// non-empty. The slice is a copy; iteration order is unspecified.
func (r *Registry) RoomMembers(room, exceptID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomMembersLocked(room, exceptID)
}

// RoomDirectory returns the live directory entries of room, purging any
// stale ones found along the way.
func (r *Registry) RoomDirectory(room string) []DirectoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomDirectoryLocked(room)
}

// removeFromRoomLocked detaches sess from its current room and deletes its
// directory entry there, returning the removed publisher key ("" if none).
// Empty room and directory maps are dropped so idle room names don't
// accumulate for the process lifetime.
func (r *Registry) removeFromRoomLocked(sess *Session) string {
	room := sess.room
	if room == "" {
		return ""
	}

	if members := r.rooms[room]; members != nil {
		delete(members, sess.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}

	removedKey := ""
	if dir := r.directory[room]; dir != nil {
		if key := sess.publisherKey; key != "" && dir[key] == sess.id {
			removedKey = key
			r.removeDirectoryEntryLocked(room, key)
		}
	}
	return removedKey
}

func (r *Registry) removeDirectoryEntryLocked(room, publisherKey string) {
	dir := r.directory[room]
	if dir == nil {
		return
	}
	delete(dir, publisherKey)
	if len(dir) == 0 {
		delete(r.directory, room)
	}
}

func (r *Registry) roomMembersLocked(room, exceptID string) []*Session {
	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(members))
	for id, sess := range members {
		if id == exceptID {
			continue
		}
		out = append(out, sess)
	}
	return out
}

func (r *Registry) roomDirectoryLocked(room string) []DirectoryEntry {
	dir := r.directory[room]
	if len(dir) == 0 {
		return nil
	}

	var stale []string
	out := make([]DirectoryEntry, 0, len(dir))
	for key, id := range dir {
		if _, ok := r.sessions[id]; !ok {
			stale = append(stale, key)
			continue
		}
		out = append(out, DirectoryEntry{PublisherKey: key, SessionID: id})
	}
	for _, key := range stale {
		r.removeDirectoryEntryLocked(room, key)
	}
	return out
}
