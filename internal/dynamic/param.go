package dynamic

import "fmt"

// Direction tells how a statement parameter is exchanged with the database.
type Direction int

const (
	Input Direction = iota
	Output
	InputOutput
	ReturnValue
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case InputOutput:
		return "InputOutput"
	case ReturnValue:
		return "ReturnValue"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Param is a statement parameter handed to the data layer.
type Param struct {
	Name      string
	Value     any
	Direction Direction
}

// In returns an input parameter.
func In(name string, value any) Param {
	return Param{Name: name, Value: value, Direction: Input}
}

// Out returns an output parameter.
func Out(name string) Param {
	return Param{Name: name, Direction: Output}
}

// SecureString holds sensitive text. Its String method never reveals the
// content.
type SecureString struct {
	b []byte
}

// NewSecureString copies s into a SecureString.
func NewSecureString(s string) SecureString {
	return SecureString{b: []byte(s)}
}

// Reveal returns the protected text.
func (s SecureString) Reveal() string { return string(s.b) }

// Len returns the length of the protected text in bytes.
func (s SecureString) Len() int { return len(s.b) }

func (s SecureString) String() string { return "********" }
