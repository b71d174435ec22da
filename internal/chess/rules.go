package chess

// delta is a (row, col) step.
type delta struct{ row, col int }

// ruleFunc appends the candidate moves of pc standing on from. Candidates
// ignore whether the mover's own king is left in check.
type ruleFunc func(b *Board, from Position, pc Piece, out []Move) []Move

var (
	orthogonal = []delta{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = []delta{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	allAround  = append(append([]delta{}, orthogonal...), diagonal...)
	knightJump = []delta{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
)

var promotionKinds = [...]PieceKind{Queen, Rook, Bishop, Knight}

var rules = [...]ruleFunc{
	King:   offsets(allAround),
	Queen:  slide(allAround),
	Bishop: slide(diagonal),
	Knight: offsets(knightJump),
	Rook:   slide(orthogonal),
	Pawn:   pawnMoves,
}

// CandidateMoves returns the moves the piece on from may make by shape alone.
// It returns nil for an empty square.
func CandidateMoves(b *Board, from Position) []Move {
	pc, ok := b.Get(from)
	if !ok {
		return nil
	}
	return rules[pc.Kind](b, from, pc, nil)
}

// slide walks each direction until the edge or the first occupied square,
// which is included only when it holds an enemy piece.
func slide(dirs []delta) ruleFunc {
	return func(b *Board, from Position, pc Piece, out []Move) []Move {
		for _, d := range dirs {
			for to := from.shift(d); to.Valid(); to = to.shift(d) {
				occ, taken := b.Get(to)
				if !taken {
					out = append(out, Move{Start: from, End: to})
					continue
				}
				if occ.Color != pc.Color {
					out = append(out, Move{Start: from, End: to})
				}
				break
			}
		}
		return out
	}
}

// offsets takes each on-board destination that is empty or enemy-held.
func offsets(deltas []delta) ruleFunc {
	return func(b *Board, from Position, pc Piece, out []Move) []Move {
		for _, d := range deltas {
			to := from.shift(d)
			if !to.Valid() {
				continue
			}
			if occ, taken := b.Get(to); taken && occ.Color == pc.Color {
				continue
			}
			out = append(out, Move{Start: from, End: to})
		}
		return out
	}
}

func pawnMoves(b *Board, from Position, pc Piece, out []Move) []Move {
	dir, home, last := 1, 2, 8
	if pc.Color == Black {
		dir, home, last = -1, 7, 1
	}

	one := Position{Row: from.Row + dir, Col: from.Col}
	if one.Valid() && b.empty(one) {
		out = pawnStep(out, from, one, last)
		two := Position{Row: from.Row + 2*dir, Col: from.Col}
		if from.Row == home && two.Valid() && b.empty(two) {
			out = append(out, Move{Start: from, End: two})
		}
	}

	for _, dc := range [...]int{-1, 1} {
		to := Position{Row: from.Row + dir, Col: from.Col + dc}
		if !to.Valid() {
			continue
		}
		if occ, taken := b.Get(to); taken && occ.Color != pc.Color {
			out = pawnStep(out, from, to, last)
		}
	}
	return out
}

// pawnStep appends a plain move, or the four promotion moves when to lies on
// the promotion rank.
func pawnStep(out []Move, from, to Position, last int) []Move {
	if to.Row != last {
		return append(out, Move{Start: from, End: to})
	}
	for _, k := range promotionKinds {
		out = append(out, Move{Start: from, End: to, Promotion: k})
	}
	return out
}
