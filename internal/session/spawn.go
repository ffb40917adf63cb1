package session

// SpawnPointAvailable reports whether a spawn point can be claimed according
// to the snapshot s. Point 0 means "no spawn point" and is always available.
//
// The answer is advisory: two clients can both see a point as free and claim
// it at the same time. The host applies claims in arrival order, so the later
// one simply never shows up in a future snapshot.
func SpawnPointAvailable(s Session, index int) bool {
	if index == 0 {
		return true
	}
	for _, c := range s.Clients {
		if c.SpawnPoint == index {
			return false
		}
	}
	return true
}

// SpawnClaims maps every claimed spawn point to the client holding it.
func SpawnClaims(s Session) map[int]Client {
	out := make(map[int]Client)
	for _, c := range s.Clients {
		if c.SpawnPoint != 0 {
			out[c.SpawnPoint] = c
		}
	}
	return out
}

// SpawnPointsDistinct reports whether no two clients share a non-zero spawn point.
func SpawnPointsDistinct(s Session) bool {
	seen := make(map[int]bool, len(s.Clients))
	for _, c := range s.Clients {
		if c.SpawnPoint == 0 {
			continue
		}
		if seen[c.SpawnPoint] {
			return false
		}
		seen[c.SpawnPoint] = true
	}
	return true
}
