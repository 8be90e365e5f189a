package factor

// Kind classifies an incoming message before an operator picks its update
// rule. Operators switch on the Kind of each input in a fixed priority
// order, so point-mass and uniform cases are handled before the general
// numerical path.
type Kind int

const (
	Proper Kind = iota
	Uniform
	PointMass
	Improper
)

func (k Kind) String() string {
	switch k {
	case Proper:
		return "Proper"
	case Uniform:
		return "Uniform"
	case PointMass:
		return "PointMass"
	case Improper:
		return "Improper"
	}
	return "Kind(?)"
}

// classifiable is implemented by every message type in the distribution
// package.
type classifiable interface {
	IsPointMass() bool
	IsUniform() bool
	IsProper() bool
}

// KindOf returns the Kind of m. Point masses take priority over
// uniformity.
func KindOf(m classifiable) Kind {
	switch {
	case m.IsPointMass():
		return PointMass
	case m.IsUniform():
		return Uniform
	case m.IsProper():
		return Proper
	}
	return Improper
}

// informative reports whether m is a point mass or proper.
func informative(m classifiable) bool {
	k := KindOf(m)
	return k == PointMass || k == Proper
}
