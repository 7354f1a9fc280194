package league

// Fixture is a scheduled group match.
type Fixture struct {
	Home, Away string
	Matchday   int
}

// GenerateSchedule returns a single round-robin schedule for the provided
// teams using the circle method: the first team stays fixed while the rest
// rotate. It outputs a slice of matchdays, each a slice of fixtures. The
// input slice is not modified.
func GenerateSchedule(teams []string) [][]Fixture {
	ring := make([]string, len(teams), len(teams)+1)
	copy(ring, teams)
	// Odd number of teams: add an empty placeholder (bye)
	if len(ring)%2 != 0 {
		ring = append(ring, "")
	}
	n := len(ring)
	if n < 2 {
		return nil
	}

	days := make([][]Fixture, n-1)
	for i := 0; i < n-1; i++ {
		day := make([]Fixture, 0, n/2)
		for j := 0; j < n/2; j++ {
			home, away := ring[j], ring[n-1-j]
			if home != "" && away != "" {
				day = append(day, Fixture{Home: home, Away: away, Matchday: i + 1})
			}
		}
		days[i] = day

		// Rotate everyone except the first
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}
	return days
}

// Fixtures flattens GenerateSchedule into play order.
func Fixtures(teams []string) []Fixture {
	var out []Fixture
	for _, day := range GenerateSchedule(teams) {
		out = append(out, day...)
	}
	return out
}
