package bbook

// Apply mutates the book per one decoded B: event, mirroring parser_B.c's
// op dispatch (A inserts, U reconciles via ApplyUpdate, D cancels at a
// position (1), clears a prefix (2, this repo's own extension per
// DESIGN.md), or clears the whole book (3); E is a book-unchanged
// heartbeat).
func (b *Book) Apply(ev Event) {
	switch ev.Op {
	case 'A':
		b.Side(ev.Side).Insert(ev.Pos, ev.Order)
	case 'U':
		b.ApplyUpdate(ev.Side, ev.Pos, ev.PosOld, ev.Order)
	case 'D':
		switch ev.CancelType {
		case 1:
			b.Side(ev.Side).RemoveAt(ev.Pos)
		case 2:
			b.Side(ev.Side).RemoveBestTo(ev.Pos)
		case 3:
			b.Clear()
		}
	case 'E':
		// book unchanged
	}
}
