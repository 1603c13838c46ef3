package dpagg

type aggregationState int

const (
	defaultState aggregationState = iota
	resultReturned
)

var errorMessages = map[aggregationState]string{
	defaultState:   "",
	resultReturned: "Noised result is already computed and returned",
}

var stateName = map[aggregationState]string{
	defaultState:   "Default",
	resultReturned: "ResultReturned",
}

func (s aggregationState) errorMessage() string {
	return errorMessages[s]
}

func (s aggregationState) String() string {
	return stateName[s]
}
