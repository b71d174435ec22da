package config

import (
	"fmt"
	"strconv"
	"strings"
)

// SeatPlan names the players to seat in one game at startup.
type SeatPlan struct {
	GameID int
	White  string
	Black  string
}

// SeatPlans is the parsed SEED_SEATS value.
type SeatPlans []SeatPlan

// ParseSeatPlans parses games separated by ';', each "<id>:<color>=<user>"
// with seats separated by ','. Colors are white/black or w/b, e.g.
// "1:white=alice,black=bob;2:b=carol".
func ParseSeatPlans(s string) (SeatPlans, error) {
	var out SeatPlans
	seen := map[int]bool{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idText, seats, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("seat plan %q: missing ':'", part)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idText))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("seat plan %q: invalid game id", part)
		}
		if seen[id] {
			return nil, fmt.Errorf("seat plan: game %d listed twice", id)
		}
		seen[id] = true

		plan := SeatPlan{GameID: id}
		for _, seat := range strings.Split(seats, ",") {
			color, user, ok := strings.Cut(seat, "=")
			user = strings.TrimSpace(user)
			if !ok || user == "" {
				return nil, fmt.Errorf("seat plan %q: want color=user, got %q", part, seat)
			}
			switch strings.ToLower(strings.TrimSpace(color)) {
			case "white", "w":
				plan.White = user
			case "black", "b":
				plan.Black = user
			default:
				return nil, fmt.Errorf("seat plan %q: unknown color %q", part, color)
			}
		}
		out = append(out, plan)
	}
	return out, nil
}
