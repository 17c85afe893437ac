package game

// NextState returns the state reached when the player to move in s plays
// act and the world then advances one ply. Uncaught fish are displaced by
// the observation codes for that ply. A player with a fish on the line can
// only reel it in, so act is overridden with ActionUp in that case.
func NextState(s *State, act Action, obs Observations, ply int) *State {
	mover := s.Player
	other := s.Opponent()
	if s.Hooked(mover) {
		act = ActionUp
	}

	next := &State{
		Grid:       s.Grid,
		Player:     other,
		Scores:     s.Scores,
		Hooks:      s.Hooks,
		FishScores: s.FishScores,
		Caught:     [NumPlayers]int{NoFish, NoFish},
		Fish:       make([]Fish, len(s.Fish)),
	}

	for i, f := range s.Fish {
		var d Point
		switch f.ID {
		case s.Caught[mover]:
			d = actionDeltas[ActionUp]
		case s.Caught[other]:
			// held still by the idle player
		default:
			d = Displacement(obs.Code(f.ID, ply))
		}
		next.Fish[i] = Fish{ID: f.ID, Pos: s.Grid.Move(f.Pos, d)}
	}
	next.Hooks[mover] = s.Grid.MoveHook(s.Hooks[mover], act.Delta(), s.Hooks[other])

	surface := s.Grid.Surface()
	landed := [NumPlayers]int{NoFish, NoFish}
	for p := range NumPlayers {
		if id := s.Caught[p]; id != NoFish {
			pos, _ := next.FishPosition(id)
			if pos.Y >= surface {
				landed[p] = id
			} else {
				next.Caught[p] = id
			}
			continue
		}
		for _, f := range next.Fish {
			if f.ID == s.Caught[0] || f.ID == s.Caught[1] || f.ID == next.Caught[0] || f.ID == landed[0] {
				continue
			}
			if f.Pos == next.Hooks[p] {
				if f.Pos.Y >= surface {
					landed[p] = f.ID
				} else {
					next.Caught[p] = f.ID
				}
				break
			}
		}
	}

	for p, id := range landed {
		if id == NoFish {
			continue
		}
		next.Scores[p] += s.FishScores[id]
		next.removeFish(id)
	}
	return next
}

func (s *State) removeFish(id int) {
	for i, f := range s.Fish {
		if f.ID == id {
			s.Fish = append(s.Fish[:i], s.Fish[i+1:]...)
			return
		}
	}
}
