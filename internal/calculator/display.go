package calculator

// Display is what a view renders for one session.
type Display struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Error     bool   `json:"error"`
}

// Project maps a snapshot to its two display lines. After equals the
// result line is promoted and the expression moves to the secondary slot;
// otherwise the live expression is shown alone.
func Project(st State) Display {
	if !st.EqualsClicked {
		return Display{Primary: st.Expression}
	}
	return Display{
		Primary:   resultLine(st),
		Secondary: st.Expression,
		Error:     st.HasError,
	}
}

func resultLine(st State) string {
	if st.HasError {
		return st.Error
	}
	if st.CurrentOperand == restValue {
		return restValue
	}
	return "= " + st.CurrentOperand
}
