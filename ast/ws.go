package ast

// BoundaryWS returns the marker that governs the literal immediately before
// n (its "open" side) and the marker that governs the literal immediately
// after n (its "close" side). For single-tag nodes these are the one WS
// value's Leading/Trailing; for compound nodes the open side comes from the
// first inner tag and the close side from the final `end...` tag.
func BoundaryWS(n Node) (open, close MarkerSet) {
	switch v := n.(type) {
	case *Expr:
		return v.WS.Leading, v.WS.Trailing
	case *Comment:
		return v.WS.Leading, v.WS.Trailing
	case *Cond:
		if len(v.Branches) == 0 {
			return MarkerNone, MarkerNone
		}
		return v.Branches[0].WS.Leading, v.EndWS.Trailing
	case *Loop:
		return v.WS.Leading, v.EndWS.Trailing
	case *Match:
		return v.WS.Leading, v.EndWS.Trailing
	case *BlockDef:
		return v.WS.Leading, v.EndWS.Trailing
	case *Include:
		return v.WS.Leading, v.WS.Trailing
	case *Extends:
		return MarkerNone, MarkerNone
	case *Import:
		return v.WS.Leading, v.WS.Trailing
	case *MacroDef:
		return v.WS.Leading, v.EndWS.Trailing
	case *Call:
		return v.WS.Leading, v.WS.Trailing
	case *Let:
		return v.WS.Leading, v.WS.Trailing
	case *FilterBlock:
		return v.WS.Leading, v.EndWS.Trailing
	case *Raw:
		return v.WS.Leading, v.EndWS.Trailing
	default:
		return MarkerNone, MarkerNone
	}
}
