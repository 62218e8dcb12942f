package calculator

// PressRequest is the JSON body for POST /calculator/sessions/{id}/press.
// Either Button or Buttons is set; Buttons are applied in order.
type PressRequest struct {
	Button  string   `json:"button,omitempty"`
	Buttons []string `json:"buttons,omitempty"`
}

// labels returns the requested key labels in press order.
func (r PressRequest) labels() []string {
	if r.Button == "" {
		return r.Buttons
	}
	return append([]string{r.Button}, r.Buttons...)
}

// SessionResponse is the JSON response for all session endpoints.
type SessionResponse struct {
	SessionID         string  `json:"session_id"`
	Expression        string  `json:"expression"`
	CurrentOperand    string  `json:"current_operand"`
	Operation         string  `json:"operation,omitempty"`
	Mode              string  `json:"mode"`
	WaitingForOperand bool    `json:"waiting_for_operand"`
	EqualsClicked     bool    `json:"equals_clicked"`
	Error             string  `json:"error,omitempty"`
	Display           Display `json:"display"`
}

func newSessionResponse(id string, st State) SessionResponse {
	return SessionResponse{
		SessionID:         id,
		Expression:        st.Expression,
		CurrentOperand:    st.CurrentOperand,
		Operation:         st.Operation.String(),
		Mode:              st.Mode.String(),
		WaitingForOperand: st.WaitingForOperand,
		EqualsClicked:     st.EqualsClicked,
		Error:             st.Error,
		Display:           Project(st),
	}
}
